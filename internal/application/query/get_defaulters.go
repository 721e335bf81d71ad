package query

import (
	"context"
	"sort"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// DefaultDefaulterThreshold is the percentage below which a student is a defaulter.
const DefaultDefaulterThreshold = 75

// GetDefaultersQuery lists students whose percentage is below Threshold.
type GetDefaultersQuery struct {
	ClassID     string `json:"class_id" validate:"required"`
	SubjectID   string `json:"subject_id"`
	LectureType string `json:"lecture_type" validate:"lecture_type"`
	// Threshold in percent; 0 falls back to the configured default.
	Threshold int `json:"threshold" validate:"min=0,max=100"`
}

// Defaulter is one student below the threshold.
type Defaulter struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	BatchID     string `json:"batch_id,omitempty"`
	attendance.Tally
	// Shortfall is how many more consecutive presents would reach the threshold.
	Shortfall int `json:"shortfall"`
}

// GetDefaultersResult is ordered by percentage ascending, then name.
type GetDefaultersResult struct {
	ClassID    string      `json:"class_id"`
	Threshold  int         `json:"threshold"`
	Defaulters []Defaulter `json:"defaulters"`
}

// GetDefaultersHandler handles GetDefaultersQuery.
type GetDefaultersHandler struct {
	reader    ClassReader
	threshold int
}

// NewGetDefaultersHandler creates a new handler. threshold <= 0 uses the default.
func NewGetDefaultersHandler(reader ClassReader, threshold int) *GetDefaultersHandler {
	if threshold <= 0 {
		threshold = DefaultDefaulterThreshold
	}
	return &GetDefaultersHandler{reader: reader, threshold: threshold}
}

// Handle computes the list. Students without any locked session are not listed.
func (h *GetDefaultersHandler) Handle(ctx context.Context, q GetDefaultersQuery) (*GetDefaultersResult, error) {
	if err := validate.Struct("query", "GetDefaulters", q); err != nil {
		return nil, err
	}
	lt, err := timetable.ParseLectureType(q.LectureType)
	if err != nil {
		return nil, err
	}
	threshold := q.Threshold
	if threshold == 0 {
		threshold = h.threshold
	}

	students, tallies, err := h.reader.Tallies(ctx, q.ClassID, attendance.Filter{SubjectID: q.SubjectID, LectureType: lt})
	if err != nil {
		return nil, wrapRepo("GetDefaulters", err)
	}

	out := make([]Defaulter, 0)
	for _, s := range students {
		t := tallies[s.StudentID]
		if !t.HasData() || t.Percentage >= threshold {
			continue
		}
		out = append(out, Defaulter{
			StudentID:   s.StudentID,
			StudentName: s.StudentName,
			BatchID:     s.BatchID,
			Tally:       t,
			Shortfall:   Shortfall(t, threshold),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage < out[j].Percentage
		}
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].StudentID < out[j].StudentID
	})

	return &GetDefaultersResult{ClassID: q.ClassID, Threshold: threshold, Defaulters: out}, nil
}

// Shortfall returns the smallest n such that attending the next n sessions
// brings the rounded percentage to threshold. With round-half-up that means
// 200(a+n) + (t+n) >= 2*threshold*(t+n), which is linear in n, so every
// threshold up to 100 is reachable. It returns -1 above 100.
func Shortfall(t attendance.Tally, threshold int) int {
	switch {
	case threshold > 100:
		return -1
	case t.Total > 0 && t.Percentage >= threshold:
		return 0
	case threshold <= 0:
		return 0
	case t.Total == 0:
		return 1
	}
	need := 2*threshold*t.Total - 200*t.Attended - t.Total
	per := 201 - 2*threshold
	return (need + per - 1) / per
}
