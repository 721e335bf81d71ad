package attendance

import (
	"strings"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

// MarkStatus is the attendance status of one student in one session.
type MarkStatus string

const (
	Present  MarkStatus = "present"
	Absent   MarkStatus = "absent"
	Unmarked MarkStatus = "unmarked"
)

// ParseMarkStatus accepts present, absent or unmarked in any case.
func ParseMarkStatus(s string) (MarkStatus, error) {
	switch MarkStatus(strings.ToLower(strings.TrimSpace(s))) {
	case Present:
		return Present, nil
	case Absent:
		return Absent, nil
	case Unmarked:
		return Unmarked, nil
	}
	return "", shared.ErrInvalidMarkStatus
}

// IsValid reports whether the status is one of the three known values.
func (m MarkStatus) IsValid() bool {
	return m == Present || m == Absent || m == Unmarked
}

// Mark is a recorded status. Students without a stored mark are Unmarked.
type Mark struct {
	SessionID string     `json:"session_id"`
	StudentID string     `json:"student_id"`
	Status    MarkStatus `json:"status"`
	EditedBy  string     `json:"edited_by"`
	EditedAt  time.Time  `json:"edited_at"`
}

// StudentResult is the per-student outcome of a bulk write.
type StudentResult struct {
	StudentID string `json:"student_id"`
	Applied   bool   `json:"applied"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}

// NewStudentResult builds a result from the outcome of a single write.
func NewStudentResult(studentID string, err error) StudentResult {
	r := StudentResult{StudentID: studentID, Applied: err == nil, Err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// RosterEntry is one row of a session's mark sheet.
type RosterEntry struct {
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	BatchID     string     `json:"batch_id,omitempty"`
	Status      MarkStatus `json:"status"`
}

// BuildRoster lists every student in scope with their current status.
// Students that were never marked appear as Unmarked.
func BuildRoster(students []Enrollment, marks []Mark) []RosterEntry {
	byStudent := make(map[string]MarkStatus, len(marks))
	for _, m := range marks {
		byStudent[m.StudentID] = m.Status
	}

	roster := make([]RosterEntry, 0, len(students))
	for _, e := range students {
		status, ok := byStudent[e.StudentID]
		if !ok {
			status = Unmarked
		}
		roster = append(roster, RosterEntry{
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			BatchID:     e.BatchID,
			Status:      status,
		})
	}
	return roster
}
