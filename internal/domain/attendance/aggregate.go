package attendance

import (
	"sort"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

// ══════════════════════════════════════════════════════════════════════════════
// TALLY
// ══════════════════════════════════════════════════════════════════════════════

// Tally is an attended/total pair with its rounded percentage.
type Tally struct {
	Attended   int `json:"attended"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// NewTally computes the percentage as round-half-up of 100*attended/total,
// or 0 when there is nothing to count.
func NewTally(attended, total int) Tally {
	return Tally{Attended: attended, Total: total, Percentage: Percentage(attended, total)}
}

// Percentage returns floor(100*attended/total + 0.5) using integer arithmetic.
func Percentage(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*attended + total) / (2 * total)
}

// HasData reports whether any relevant session was counted.
func (t Tally) HasData() bool {
	return t.Total > 0
}

// Add sums two tallies. The overall figure is a ratio of sums, never an
// average of percentages.
func (t Tally) Add(o Tally) Tally {
	return NewTally(t.Attended+o.Attended, t.Total+o.Total)
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// SessionRecord is one session as seen by one student: the session's
// identity and lock state joined with that student's mark.
type SessionRecord struct {
	SessionID string     `json:"session_id"`
	Date      time.Time  `json:"date"`
	SubjectID string     `json:"subject_id"`
	BatchID   string     `json:"batch_id,omitempty"`
	Locked    bool       `json:"locked"`
	Status    MarkStatus `json:"status"`
}

// LectureType of the underlying session.
func (r SessionRecord) LectureType() timetable.LectureType {
	return timetable.LectureTypeOf(r.BatchID)
}

// Filter narrows aggregation to a subject and/or lecture type.
// Zero values mean "all".
type Filter struct {
	SubjectID   string
	LectureType timetable.LectureType
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(r SessionRecord) bool {
	if f.SubjectID != "" && r.SubjectID != f.SubjectID {
		return false
	}
	return r.LectureType().Matches(f.LectureType)
}

// InScope reports whether a session record is relevant to the enrolled
// student: theory sessions of their class always, practicals only for their batch.
// Records are assumed to already belong to the student's class.
func InScope(e Enrollment, r SessionRecord) bool {
	return r.BatchID == "" || r.BatchID == e.BatchID
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// Aggregate counts the locked records matching filter. Open sessions are
// ignored. An Unmarked or missing mark counts toward the total but never as attended.
func Aggregate(records []SessionRecord, filter Filter) Tally {
	attended, total := 0, 0
	for _, r := range records {
		if !r.Locked || !filter.Matches(r) {
			continue
		}
		total++
		if r.Status == Present {
			attended++
		}
	}
	return NewTally(attended, total)
}

// AggregateBySubject returns a tally per subject over locked records that
// match the lecture-type part of filter.
func AggregateBySubject(records []SessionRecord, filter Filter) map[string]Tally {
	out := make(map[string]Tally)
	for _, r := range records {
		if !r.Locked || !filter.Matches(r) {
			continue
		}
		t := out[r.SubjectID]
		present := 0
		if r.Status == Present {
			present = 1
		}
		out[r.SubjectID] = t.Add(NewTally(present, 1))
	}
	return out
}

// Overall sums per-subject tallies.
func Overall(bySubject map[string]Tally) Tally {
	var sum Tally
	for _, t := range bySubject {
		sum = sum.Add(t)
	}
	return sum
}

// SubjectTally pairs a subject with its tally for ordered output.
type SubjectTally struct {
	SubjectID string `json:"subject_id"`
	Tally
}

// SortedSubjects flattens a per-subject map ordered by subject id.
func SortedSubjects(bySubject map[string]Tally) []SubjectTally {
	out := make([]SubjectTally, 0, len(bySubject))
	for id, t := range bySubject {
		out = append(out, SubjectTally{SubjectID: id, Tally: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS-WIDE
// ══════════════════════════════════════════════════════════════════════════════

// StudentRecords joins a student's marks onto the class's sessions,
// keeping only the sessions in the student's scope.
func StudentRecords(e Enrollment, sessions []Session, marks []Mark) []SessionRecord {
	status := make(map[string]MarkStatus)
	for _, m := range marks {
		if m.StudentID == e.StudentID {
			status[m.SessionID] = m.Status
		}
	}

	records := make([]SessionRecord, 0, len(sessions))
	for _, s := range sessions {
		if s.ClassID != e.ClassID {
			continue
		}
		r := SessionRecord{
			SessionID: s.ID,
			Date:      s.Date,
			SubjectID: s.SubjectID,
			BatchID:   s.BatchID,
			Locked:    s.Locked,
			Status:    Unmarked,
		}
		if !InScope(e, r) {
			continue
		}
		if st, ok := status[s.ID]; ok {
			r.Status = st
		}
		records = append(records, r)
	}
	return records
}

// ClassTallies computes one tally per enrolled student over the given sessions.
func ClassTallies(enrollments []Enrollment, sessions []Session, marks []Mark, filter Filter) map[string]Tally {
	byStudent := make(map[string][]Mark)
	for _, m := range marks {
		byStudent[m.StudentID] = append(byStudent[m.StudentID], m)
	}

	out := make(map[string]Tally, len(enrollments))
	for _, e := range enrollments {
		out[e.StudentID] = Aggregate(StudentRecords(e, sessions, byStudent[e.StudentID]), filter)
	}
	return out
}
