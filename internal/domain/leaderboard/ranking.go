// Package leaderboard ranks students by attendance.
// Ranks are strict ordinals: ties are broken deterministically and no two
// students ever share a position.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Rank is a 1-based position.
type Rank int

// IsValid reports whether the rank is positive.
func (r Rank) IsValid() bool {
	return r > 0
}

// String returns the rank as "#n".
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// Entry is one student's row on a board.
type Entry struct {
	Rank        Rank   `json:"rank"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	BatchID     string `json:"batch_id,omitempty"`
	Attended    int    `json:"attended"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
}

// String returns a compact form for logging.
func (e Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, Student: %s, %d/%d=%d%%}",
		e.Rank, e.StudentName, e.Attended, e.Total, e.Percentage)
}

// less orders by percentage desc, attended desc, name asc, then id asc so
// the order is total even for namesakes.
func less(a, b Entry) bool {
	if a.Percentage != b.Percentage {
		return a.Percentage > b.Percentage
	}
	if a.Attended != b.Attended {
		return a.Attended > b.Attended
	}
	if a.StudentName != b.StudentName {
		return a.StudentName < b.StudentName
	}
	return a.StudentID < b.StudentID
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Ranking is an ordered, ranked list of entries.
type Ranking struct {
	entries []Entry
	seen    map[string]struct{}
}

// NewRanking creates an empty Ranking.
func NewRanking() *Ranking {
	return &Ranking{seen: make(map[string]struct{})}
}

// Add appends an entry without re-sorting.
func (r *Ranking) Add(e Entry) error {
	if e.StudentID == "" {
		return ErrInvalidStudentID
	}
	if _, exists := r.seen[e.StudentID]; exists {
		return ErrDuplicateStudent
	}
	r.seen[e.StudentID] = struct{}{}
	r.entries = append(r.entries, e)
	return nil
}

// Sort orders the entries and assigns ranks 1..n.
func (r *Ranking) Sort() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		return less(r.entries[i], r.entries[j])
	})
	for i := range r.entries {
		r.entries[i].Rank = Rank(i + 1)
	}
}

// All returns a copy of every entry in order.
func (r *Ranking) All() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// RankEntries sorts entries and assigns strict ordinal ranks.
// Entries without a student id and repeated students are dropped.
func RankEntries(entries []Entry) []Entry {
	r := NewRanking()
	for _, e := range entries {
		_ = r.Add(e)
	}
	r.Sort()
	return r.All()
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH GROUPING
// ══════════════════════════════════════════════════════════════════════════════

// BatchBoard is an independently ranked group of one batch.
type BatchBoard struct {
	BatchID string  `json:"batch_id"`
	Entries []Entry `json:"entries"`
}

// RankByBatch groups entries by batch, ranks each group from 1, and orders
// the groups by batch id. Students without a batch are grouped under "".
func RankByBatch(entries []Entry) []BatchBoard {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.BatchID] = append(groups[e.BatchID], e)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	boards := make([]BatchBoard, 0, len(ids))
	for _, id := range ids {
		boards = append(boards, BatchBoard{BatchID: id, Entries: RankEntries(groups[id])})
	}
	return boards
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidStudentID means an entry has no student id.
	ErrInvalidStudentID = errors.New("invalid student id: cannot be empty")

	// ErrDuplicateStudent means the student is already ranked.
	ErrDuplicateStudent = errors.New("student already exists in ranking")
)
