package achievement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.April, d, 0, 0, 0, 0, time.UTC)
}

func rec(id, subject string, date time.Time, status attendance.MarkStatus) attendance.SessionRecord {
	return attendance.SessionRecord{SessionID: id, SubjectID: subject, Date: date, Locked: true, Status: status}
}

// subjects builds a history with the given per-subject attended/total pairs.
func subjects(pairs map[string][2]int) History {
	var records []attendance.SessionRecord
	for subject, p := range pairs {
		for i := 0; i < p[1]; i++ {
			status := attendance.Absent
			if i < p[0] {
				status = attendance.Present
			}
			records = append(records, rec(subject+string(rune('a'+i)), subject, day(1+i%20), status))
		}
	}
	return BuildHistory(records)
}

func TestParseCriteria(t *testing.T) {
	v := func(i int) *int { return &i }

	c, err := ParseCriteria(RawCriteria{Type: "min_overall", Value: v(75)})
	require.NoError(t, err)
	assert.Equal(t, MinOverall{Value: 75}, c)

	c, err = ParseCriteria(RawCriteria{Type: "min_subjects_above_x", Percentage: v(90), Count: v(2)})
	require.NoError(t, err)
	assert.Equal(t, MinSubjectsAboveX{Percentage: 90, Count: 2}, c)

	c, err = ParseCriteria(RawCriteria{Type: "perfect_subject"})
	require.NoError(t, err)
	assert.Equal(t, TypePerfectSubject, c.Type())
}

func TestParseCriteria_FailSafe(t *testing.T) {
	v := func(i int) *int { return &i }

	cases := []RawCriteria{
		{Type: "top_of_class"},
		{Type: "min_overall"},
		{Type: "min_overall", Value: v(120)},
		{Type: "no_absent_days", Value: v(0)},
		{Type: "min_subjects_above_x", Percentage: v(80)},
		{Type: "max_absent_days_streak", Value: v(-1)},
	}
	for _, raw := range cases {
		c, err := ParseCriteria(raw)
		require.Error(t, err, raw.Type)
		assert.ErrorIs(t, err, shared.ErrInvalidCriteria, raw.Type)
		assert.IsType(t, UnknownCriteria{}, c, raw.Type)
	}
}

func TestDefinition_JSONRoundTrip(t *testing.T) {
	in := `{"id":"a1","title":"Regular","criteria":{"type":"all_subjects_min","value":75}}`

	var d Definition
	require.NoError(t, json.Unmarshal([]byte(in), &d))
	assert.Equal(t, AllSubjectsMin{Value: 75}, d.Criteria)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))

	var future Definition
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","title":"?","criteria":{"type":"moon_phase","value":3}}`), &future))
	assert.IsType(t, UnknownCriteria{}, future.Criteria)
	out, err = json.Marshal(future)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"moon_phase"`)
}

func TestEvaluate_AllSubjectsMin(t *testing.T) {
	h := subjects(map[string][2]int{"math": {10, 10}, "phys": {1, 4}})
	assert.False(t, Evaluate(AllSubjectsMin{Value: 75}, h, day(30)))

	h = subjects(map[string][2]int{"math": {10, 10}, "phys": {3, 4}})
	assert.True(t, Evaluate(AllSubjectsMin{Value: 75}, h, day(30)))
}

func TestEvaluate_PerfectSubject(t *testing.T) {
	assert.True(t, Evaluate(PerfectSubject{}, subjects(map[string][2]int{"math": {3, 3}, "phys": {0, 2}}), day(30)))
	assert.False(t, Evaluate(PerfectSubject{}, subjects(map[string][2]int{"math": {2, 3}}), day(30)))
}

func TestEvaluate_MinOverall(t *testing.T) {
	h := subjects(map[string][2]int{"math": {3, 4}, "phys": {3, 4}}) // 6/8 = 75
	assert.True(t, Evaluate(MinOverall{Value: 75}, h, day(30)))
	assert.False(t, Evaluate(MinOverall{Value: 76}, h, day(30)))
}

func TestEvaluate_MinSubjectsAboveX(t *testing.T) {
	h := subjects(map[string][2]int{"a": {9, 10}, "b": {8, 10}, "c": {1, 10}})
	assert.True(t, Evaluate(MinSubjectsAboveX{Percentage: 80, Count: 2}, h, day(30)))
	assert.False(t, Evaluate(MinSubjectsAboveX{Percentage: 80, Count: 3}, h, day(30)))
}

func TestEvaluate_NoAbsentDays(t *testing.T) {
	h := BuildHistory([]attendance.SessionRecord{
		rec("1", "math", day(1), attendance.Absent),
		rec("2", "math", day(8), attendance.Present),
		rec("3", "math", day(9), attendance.Unmarked),
	})

	// Window [Apr 4, Apr 10] has no Absent mark.
	assert.True(t, Evaluate(NoAbsentDays{Days: 7}, h, day(10)))
	// Window [Apr 1, Apr 10] includes the Apr 1 absence.
	assert.False(t, Evaluate(NoAbsentDays{Days: 10}, h, day(10)))
}

func TestEvaluate_NoAbsentDays_IgnoresOpenSessions(t *testing.T) {
	open := rec("2", "math", day(9), attendance.Absent)
	open.Locked = false
	h := BuildHistory([]attendance.SessionRecord{rec("1", "math", day(8), attendance.Present), open})

	assert.True(t, Evaluate(NoAbsentDays{Days: 3}, h, day(10)))
}

func TestEvaluate_MaxAbsentDaysStreak(t *testing.T) {
	h := BuildHistory([]attendance.SessionRecord{
		rec("1", "math", day(1), attendance.Absent),
		rec("2", "math", day(2), attendance.Absent),
		rec("3", "phys", day(2), attendance.Absent),
		rec("4", "math", day(3), attendance.Absent),
		// Apr 4 mixes present and absent, so it is not an absent day.
		rec("5", "math", day(4), attendance.Absent),
		rec("6", "phys", day(4), attendance.Present),
		rec("7", "math", day(5), attendance.Absent),
		// Apr 6 has no sessions; the run restarts on Apr 7.
		rec("8", "math", day(7), attendance.Absent),
	})

	assert.Equal(t, 3, h.LongestAbsentStreak())
	assert.True(t, Evaluate(MaxAbsentDaysStreak{Days: 3}, h, day(10)))
	assert.False(t, Evaluate(MaxAbsentDaysStreak{Days: 2}, h, day(10)))
}

func TestEvaluate_UnknownAndEmpty(t *testing.T) {
	h := subjects(map[string][2]int{"math": {5, 5}})
	assert.False(t, Evaluate(UnknownCriteria{Raw: RawCriteria{Type: "future"}}, h, day(30)))
	assert.False(t, Evaluate(nil, h, day(30)))

}

func TestEvaluate_EmptyHistoryUsesZeroValues(t *testing.T) {
	empty := BuildHistory(nil)
	require.False(t, empty.Overall.HasData())
	require.Empty(t, empty.Subjects)

	cases := []struct {
		criteria Criteria
		want     bool
	}{
		{NoAbsentDays{Days: 7}, true},
		{MaxAbsentDaysStreak{Days: 0}, true},
		{MaxAbsentDaysStreak{Days: 2}, true},
		{AllSubjectsMin{Value: 75}, true},
		{MinOverall{Value: 0}, true},
		{MinOverall{Value: 1}, false},
		{PerfectSubject{}, false},
		{MinSubjectsAboveX{Percentage: 50, Count: 1}, false},
		{UnknownCriteria{Raw: RawCriteria{Type: "future"}}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Evaluate(tc.criteria, empty, day(30)), "%T %+v", tc.criteria, tc.criteria)
	}
}

func TestEvaluateAll(t *testing.T) {
	defs := []Definition{
		{ID: "perfect", Title: "Perfect", Criteria: PerfectSubject{}},
		{ID: "future", Title: "Future", Criteria: UnknownCriteria{}},
	}
	statuses := EvaluateAll(defs, subjects(map[string][2]int{"math": {2, 2}}), day(30))

	require.Len(t, statuses, 2)
	assert.Equal(t, Status{AchievementID: "perfect", Title: "Perfect", Unlocked: true}, statuses[0])
	assert.False(t, statuses[1].Unlocked)
}
