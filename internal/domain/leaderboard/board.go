package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

// Key identifies a board.
type Key struct {
	ClassID     string
	SubjectID   string
	LectureType timetable.LectureType
}

// String renders the key as class:subject:type, with "*" for an empty subject.
func (k Key) String() string {
	subject := k.SubjectID
	if subject == "" {
		subject = "*"
	}
	lt := k.LectureType
	if lt == "" {
		lt = timetable.LectureBoth
	}
	return fmt.Sprintf("%s:%s:%s", k.ClassID, subject, lt)
}

// Board is a leaderboard snapshot. Theory and combined boards rank the
// whole class in Entries; practical boards rank each batch separately in Batches.
type Board struct {
	ClassID     string                `json:"class_id"`
	SubjectID   string                `json:"subject_id,omitempty"`
	LectureType timetable.LectureType `json:"lecture_type"`
	Entries     []Entry               `json:"entries,omitempty"`
	Batches     []BatchBoard          `json:"batches,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Grouped reports whether the board is split per batch.
func (b *Board) Grouped() bool {
	return b.LectureType == timetable.LecturePractical
}

// Build assembles a board from enrollments and their tallies. Students
// missing from tallies rank with a zero tally.
func Build(key Key, students []attendance.Enrollment, tallies map[string]attendance.Tally, now time.Time) *Board {
	entries := make([]Entry, 0, len(students))
	for _, s := range students {
		t := tallies[s.StudentID]
		entries = append(entries, Entry{
			StudentID:   s.StudentID,
			StudentName: s.StudentName,
			BatchID:     s.BatchID,
			Attended:    t.Attended,
			Total:       t.Total,
			Percentage:  t.Percentage,
		})
	}

	lt := key.LectureType
	if lt == "" {
		lt = timetable.LectureBoth
	}

	board := &Board{
		ClassID:     key.ClassID,
		SubjectID:   key.SubjectID,
		LectureType: lt,
		GeneratedAt: now,
	}
	if board.Grouped() {
		board.Batches = RankByBatch(entries)
	} else {
		board.Entries = RankEntries(entries)
	}
	return board
}

// Cache stores computed boards between lock events.
type Cache interface {
	Get(ctx context.Context, key Key) (*Board, error)
	Set(ctx context.Context, key Key, board *Board, ttl time.Duration) error
	InvalidateClass(ctx context.Context, classID string) error
}
