package attendance

import (
	"testing"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func mondaySlot(batch string) timetable.Slot {
	return timetable.Slot{
		ID:        "slot-1",
		Day:       timetable.Monday,
		Start:     timetable.MustClock("10:00"),
		End:       timetable.MustClock("11:00"),
		ClassID:   "CSE-A",
		SubjectID: "math",
		BatchID:   batch,
	}
}

func TestNewSession_CopiesScopeFromSlot(t *testing.T) {
	s, err := NewSession("s1", mondaySlot("B1"), monday.Add(9*time.Hour), monday)
	require.NoError(t, err)

	assert.Equal(t, monday, s.Date)
	assert.Equal(t, Scope{ClassID: "CSE-A", BatchID: "B1"}, s.Scope())
	assert.Equal(t, timetable.LecturePractical, s.LectureType())
	assert.Equal(t, StateOpen, s.State())
}

func TestNewSession_RejectsWrongWeekday(t *testing.T) {
	_, err := NewSession("s1", mondaySlot(""), monday.AddDate(0, 0, 1), monday)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSession_LockIsTerminal(t *testing.T) {
	s, err := NewSession("s1", mondaySlot(""), monday, monday)
	require.NoError(t, err)

	require.NoError(t, s.Lock(monday))
	assert.Equal(t, StateLocked, s.State())
	require.NotNil(t, s.LockedAt)

	assert.ErrorIs(t, s.Lock(monday), shared.ErrAlreadyLocked)
	assert.ErrorIs(t, s.EnsureWritable(), shared.ErrSessionLocked)

	var none *Session
	assert.Equal(t, StateNone, none.State())
}

func TestSession_CanDelete(t *testing.T) {
	s, _ := NewSession("s1", mondaySlot(""), monday, monday)

	assert.NoError(t, s.CanDelete(0, monday))
	assert.ErrorIs(t, s.CanDelete(2, monday), shared.ErrInvalidState)
	assert.ErrorIs(t, s.CanDelete(0, monday.AddDate(0, 0, 1)), shared.ErrInvalidState)

	require.NoError(t, s.Lock(monday))
	assert.ErrorIs(t, s.CanDelete(0, monday), shared.ErrSessionLocked)
}

func TestLockPolicy(t *testing.T) {
	assert.NoError(t, LockPolicy{}.Check(0))
	assert.ErrorIs(t, LockPolicy{RequireMarks: true}.Check(0), shared.ErrInvalidState)
	assert.NoError(t, LockPolicy{RequireMarks: true}.Check(1))
}

func TestScope_Includes(t *testing.T) {
	b1 := Enrollment{StudentID: "s1", ClassID: "CSE-A", BatchID: "B1"}
	b2 := Enrollment{StudentID: "s2", ClassID: "CSE-A", BatchID: "B2"}
	other := Enrollment{StudentID: "s3", ClassID: "CSE-B", BatchID: "B1"}

	theory := Scope{ClassID: "CSE-A"}
	practical := Scope{ClassID: "CSE-A", BatchID: "B1"}

	assert.True(t, theory.Includes(b1))
	assert.True(t, theory.Includes(b2))
	assert.False(t, theory.Includes(other))
	assert.True(t, practical.Includes(b1))
	assert.False(t, practical.Includes(b2))
	assert.False(t, practical.Includes(other))

	assert.Len(t, FilterScope(practical, []Enrollment{b1, b2, other}), 1)
}

func TestParseMarkStatus(t *testing.T) {
	st, err := ParseMarkStatus(" Present ")
	require.NoError(t, err)
	assert.Equal(t, Present, st)

	_, err = ParseMarkStatus("late")
	assert.True(t, shared.IsValidation(err))
}

func TestPercentage_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 83, Percentage(5, 6)) // 83.33
	assert.Equal(t, 88, Percentage(7, 8)) // 87.5 rounds up
	assert.Equal(t, 100, Percentage(4, 4))

	assert.False(t, NewTally(0, 0).HasData())
}

func TestAggregate_OnlyLockedSessionsCount(t *testing.T) {
	records := []SessionRecord{
		{SessionID: "A", SubjectID: "math", Locked: true, Status: Present},
		{SessionID: "B", SubjectID: "math", Locked: true, Status: Absent},
		{SessionID: "C", SubjectID: "math", Locked: false, Status: Present},
	}

	got := Aggregate(records, Filter{})
	assert.Equal(t, Tally{Attended: 1, Total: 2, Percentage: 50}, got)
}

func TestAggregate_UnmarkedCountsAsNotPresent(t *testing.T) {
	records := []SessionRecord{
		{SessionID: "A", SubjectID: "math", Locked: true, Status: Present},
		{SessionID: "B", SubjectID: "math", Locked: true, Status: Unmarked},
	}
	assert.Equal(t, NewTally(1, 2), Aggregate(records, Filter{}))
}

func TestAggregate_Filters(t *testing.T) {
	records := []SessionRecord{
		{SessionID: "1", SubjectID: "math", Locked: true, Status: Present},
		{SessionID: "2", SubjectID: "math", BatchID: "B1", Locked: true, Status: Absent},
		{SessionID: "3", SubjectID: "phys", Locked: true, Status: Present},
	}

	assert.Equal(t, NewTally(1, 2), Aggregate(records, Filter{SubjectID: "math"}))
	assert.Equal(t, NewTally(1, 1), Aggregate(records, Filter{SubjectID: "math", LectureType: timetable.LectureTheory}))
	assert.Equal(t, NewTally(0, 1), Aggregate(records, Filter{LectureType: timetable.LecturePractical}))
	assert.Equal(t, NewTally(2, 3), Aggregate(records, Filter{LectureType: timetable.LectureBoth}))
	assert.Equal(t, Tally{}, Aggregate(nil, Filter{}))
}

func TestOverall_IsRatioOfSums(t *testing.T) {
	records := []SessionRecord{
		{SessionID: "1", SubjectID: "math", Locked: true, Status: Present},
		{SessionID: "2", SubjectID: "phys", Locked: true, Status: Present},
		{SessionID: "3", SubjectID: "phys", Locked: true, Status: Absent},
		{SessionID: "4", SubjectID: "phys", Locked: true, Status: Absent},
	}

	bySubject := AggregateBySubject(records, Filter{})
	assert.Equal(t, 100, bySubject["math"].Percentage)
	assert.Equal(t, 33, bySubject["phys"].Percentage)

	// 2/4 = 50, not (100+33)/2.
	assert.Equal(t, NewTally(2, 4), Overall(bySubject))

	sorted := SortedSubjects(bySubject)
	require.Len(t, sorted, 2)
	assert.Equal(t, "math", sorted[0].SubjectID)
}

func TestStudentRecords_ScopesPracticalsByBatch(t *testing.T) {
	sessions := []Session{
		{ID: "theory", ClassID: "CSE-A", SubjectID: "math", Locked: true},
		{ID: "b1-lab", ClassID: "CSE-A", SubjectID: "math", BatchID: "B1", Locked: true},
		{ID: "b2-lab", ClassID: "CSE-A", SubjectID: "math", BatchID: "B2", Locked: true},
		{ID: "other-class", ClassID: "CSE-B", SubjectID: "math", Locked: true},
	}
	marks := []Mark{
		{SessionID: "theory", StudentID: "alice", Status: Present},
		{SessionID: "b2-lab", StudentID: "alice", Status: Present},
		{SessionID: "theory", StudentID: "bob", Status: Absent},
	}
	alice := Enrollment{StudentID: "alice", ClassID: "CSE-A", BatchID: "B2"}
	bob := Enrollment{StudentID: "bob", ClassID: "CSE-A", BatchID: "B1"}

	aliceRecords := StudentRecords(alice, sessions, marks)
	ids := make([]string, 0, len(aliceRecords))
	for _, r := range aliceRecords {
		ids = append(ids, r.SessionID)
	}
	assert.ElementsMatch(t, []string{"theory", "b2-lab"}, ids)

	tallies := ClassTallies([]Enrollment{alice, bob}, sessions, marks, Filter{})
	assert.Equal(t, NewTally(2, 2), tallies["alice"])
	// bob: theory absent, B1 lab never marked.
	assert.Equal(t, NewTally(0, 2), tallies["bob"])
}

func TestBuildRoster(t *testing.T) {
	students := []Enrollment{
		{StudentID: "a", StudentName: "Ann"},
		{StudentID: "b", StudentName: "Ben"},
	}
	roster := BuildRoster(students, []Mark{{StudentID: "b", Status: Absent}})

	require.Len(t, roster, 2)
	assert.Equal(t, Unmarked, roster[0].Status)
	assert.Equal(t, Absent, roster[1].Status)
}

func TestNewStudentResult(t *testing.T) {
	ok := NewStudentResult("a", nil)
	assert.True(t, ok.Applied)
	assert.Empty(t, ok.Error)

	failed := NewStudentResult("b", shared.ErrSessionIsLocked)
	assert.False(t, failed.Applied)
	assert.ErrorIs(t, failed.Err, shared.ErrSessionLocked)
	assert.NotEmpty(t, failed.Error)
}
