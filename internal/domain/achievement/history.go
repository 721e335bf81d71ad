package achievement

import (
	"sort"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// DayRecord summarizes one calendar day of locked sessions for a student.
type DayRecord struct {
	Date     time.Time `json:"date"`
	Present  int       `json:"present"`
	Absent   int       `json:"absent"`
	Unmarked int       `json:"unmarked"`
}

// IsAbsentDay reports whether the day had an Absent mark and no Present mark.
func (d DayRecord) IsAbsentDay() bool {
	return d.Absent > 0 && d.Present == 0
}

// History is everything the rules look at: aggregated tallies plus a
// per-day view of the session-level marks.
type History struct {
	Overall  attendance.Tally
	Subjects map[string]attendance.Tally
	Days     []DayRecord // ascending by date
}

// BuildHistory derives a History from a student's session records.
// Open sessions are ignored like everywhere else in aggregation.
func BuildHistory(records []attendance.SessionRecord) History {
	subjects := attendance.AggregateBySubject(records, attendance.Filter{})

	days := make(map[time.Time]*DayRecord)
	for _, r := range records {
		if !r.Locked {
			continue
		}
		date := timeutil.Normalize(r.Date)
		d, ok := days[date]
		if !ok {
			d = &DayRecord{Date: date}
			days[date] = d
		}
		switch r.Status {
		case attendance.Present:
			d.Present++
		case attendance.Absent:
			d.Absent++
		default:
			d.Unmarked++
		}
	}

	ordered := make([]DayRecord, 0, len(days))
	for _, d := range days {
		ordered = append(ordered, *d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	return History{
		Overall:  attendance.Overall(subjects),
		Subjects: subjects,
		Days:     ordered,
	}
}

// LongestAbsentStreak returns the longest run of consecutive calendar days
// that are each absent days. A day without any locked session breaks the run.
func (h History) LongestAbsentStreak() int {
	longest, current := 0, 0
	var prev time.Time
	for _, d := range h.Days {
		if !d.IsAbsentDay() {
			current = 0
			continue
		}
		if current > 0 && timeutil.DaysBetween(prev, d.Date) == 1 {
			current++
		} else {
			current = 1
		}
		prev = d.Date
		if current > longest {
			longest = current
		}
	}
	return longest
}

// AbsentWithin reports whether an Absent mark falls within the window of
// the last n calendar days ending at today, inclusive.
func (h History) AbsentWithin(n int, today time.Time) bool {
	if n <= 0 {
		return false
	}
	end := timeutil.Normalize(today)
	start := timeutil.AddDays(end, -(n - 1))
	for _, d := range h.Days {
		if d.Date.Before(start) || d.Date.After(end) {
			continue
		}
		if d.Absent > 0 {
			return true
		}
	}
	return false
}
