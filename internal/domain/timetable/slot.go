// Package timetable models the recurring weekly schedule of a class and
// the rules that keep it free of faculty and class double-bookings.
package timetable

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAY OF WEEK
// ══════════════════════════════════════════════════════════════════════════════

// DayOfWeek is a teaching day, Monday (1) through Saturday (6).
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// IsValid reports whether d is a teaching day.
func (d DayOfWeek) IsValid() bool {
	return d >= Monday && d <= Saturday
}

// String returns the English day name.
func (d DayOfWeek) String() string {
	if !d.IsValid() {
		return "DayOfWeek(" + strconv.Itoa(int(d)) + ")"
	}
	return dayNames[d]
}

// DayOfWeekOf maps a calendar date to a teaching day. Sundays report false.
func DayOfWeekOf(date time.Time) (DayOfWeek, bool) {
	wd := date.Weekday()
	if wd == time.Sunday {
		return 0, false
	}
	return DayOfWeek(wd), true
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, shared.NewDomainError("timetable", "ParseClock", shared.ErrInvalidFormat,
			fmt.Sprintf("time %q must be HH:MM", s))
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, shared.NewDomainError("timetable", "ParseClock", shared.ErrInvalidFormat,
			fmt.Sprintf("time %q is out of range", s))
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LECTURE TYPE
// ══════════════════════════════════════════════════════════════════════════════

// LectureType distinguishes class-wide theory sessions from batch practicals.
type LectureType string

const (
	LectureTheory    LectureType = "theory"
	LecturePractical LectureType = "practical"
	// LectureBoth is a query filter only; slots are always one of the two above.
	LectureBoth LectureType = "both"
)

// ParseLectureType accepts theory, practical, both or empty (meaning both).
func ParseLectureType(s string) (LectureType, error) {
	switch LectureType(strings.ToLower(strings.TrimSpace(s))) {
	case "", LectureBoth:
		return LectureBoth, nil
	case LectureTheory:
		return LectureTheory, nil
	case LecturePractical:
		return LecturePractical, nil
	}
	return "", shared.NewDomainError("timetable", "ParseLectureType", shared.ErrInvalidInput,
		fmt.Sprintf("unknown lecture type %q", s))
}

// Matches reports whether a session of type t passes filter f.
func (t LectureType) Matches(f LectureType) bool {
	return f == "" || f == LectureBoth || f == t
}

// LectureTypeOf derives the lecture type from a batch id.
func LectureTypeOf(batchID string) LectureType {
	if batchID == "" {
		return LectureTheory
	}
	return LecturePractical
}

// ══════════════════════════════════════════════════════════════════════════════
// SLOT
// ══════════════════════════════════════════════════════════════════════════════

// Slot is a recurring weekly occurrence of a subject for a class.
// A slot without a batch is theory (whole class); with a batch it is a practical.
type Slot struct {
	ID        string    `json:"id"`
	Day       DayOfWeek `json:"day_of_week"`
	Start     Clock     `json:"start_time"`
	End       Clock     `json:"end_time"`
	ClassID   string    `json:"class_id"`
	SubjectID string    `json:"subject_id"`
	FacultyID string    `json:"faculty_id,omitempty"`
	BatchID   string    `json:"batch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTheory reports whether the slot addresses the whole class.
func (s Slot) IsTheory() bool {
	return s.BatchID == ""
}

// LectureType returns theory or practical.
func (s Slot) LectureType() LectureType {
	return LectureTypeOf(s.BatchID)
}

// Validate checks the slot's own fields.
func (s Slot) Validate() error {
	if !s.Day.IsValid() {
		return shared.ErrInvalidDay
	}
	if s.Start >= s.End {
		return shared.ErrInvalidTimeSpan
	}
	if s.Start < 0 || s.End > 24*60 {
		return shared.NewDomainError("timetable", "Validate", shared.ErrValueOutOfRange, "slot times must be within the day")
	}
	if strings.TrimSpace(s.ClassID) == "" {
		return shared.NewDomainError("timetable", "Validate", shared.ErrInvalidInput, "class_id is required")
	}
	if strings.TrimSpace(s.SubjectID) == "" {
		return shared.NewDomainError("timetable", "Validate", shared.ErrInvalidInput, "subject_id is required")
	}
	return nil
}

// Overlaps reports whether the two slots share a day and their half-open
// time ranges intersect. Back-to-back slots (10:00-11:00, 11:00-12:00) do not overlap.
func (s Slot) Overlaps(o Slot) bool {
	return s.Day == o.Day && s.Start < o.End && o.Start < s.End
}

// ConflictsWith applies the double-booking rules:
// overlapping slots conflict when they share a faculty member, or when they
// share a class and either targets the whole class or both target the same batch.
func (s Slot) ConflictsWith(o Slot) bool {
	if !s.Overlaps(o) {
		return false
	}
	if s.FacultyID != "" && s.FacultyID == o.FacultyID {
		return true
	}
	if s.ClassID != o.ClassID {
		return false
	}
	return s.IsTheory() || o.IsTheory() || s.BatchID == o.BatchID
}
