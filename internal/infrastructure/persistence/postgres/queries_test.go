package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

func TestLockedSessionsQuery(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		sql, args, err := lockedSessionsQuery("C", attendance.Filter{}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "FROM sessions WHERE class_id = $1 AND locked = $2")
		assert.Contains(t, sql, "ORDER BY date, id")
		assert.NotContains(t, sql, "batch_id =")
		assert.NotContains(t, sql, "batch_id <>")
		assert.Equal(t, []interface{}{"C", true}, args)
	})

	t.Run("subject and theory", func(t *testing.T) {
		sql, args, err := lockedSessionsQuery("C", attendance.Filter{SubjectID: "math", LectureType: timetable.LectureTheory}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "subject_id = $3")
		assert.Contains(t, sql, "batch_id = $4")
		assert.Equal(t, []interface{}{"C", true, "math", ""}, args)
	})

	t.Run("practical", func(t *testing.T) {
		sql, args, err := lockedSessionsQuery("C", attendance.Filter{LectureType: timetable.LecturePractical}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "batch_id <> $3")
		assert.Equal(t, []interface{}{"C", true, ""}, args)
	})

	t.Run("both", func(t *testing.T) {
		sql, _, err := lockedSessionsQuery("C", attendance.Filter{LectureType: timetable.LectureBoth}).ToSql()
		require.NoError(t, err)
		assert.NotContains(t, sql, "batch_id <>")
	})
}

func TestMarksBySessionsQuery(t *testing.T) {
	sql, args, err := marksBySessionsQuery([]string{"s1", "s2"}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM attendance_marks WHERE session_id IN ($1,$2)")
	assert.Equal(t, []interface{}{"s1", "s2"}, args)
}

func TestEnrollmentsByScopeQuery(t *testing.T) {
	sql, args, err := enrollmentsByScopeQuery(attendance.Scope{ClassID: "C"}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "batch_id =")
	assert.Contains(t, sql, "ORDER BY student_name, student_id")
	assert.Equal(t, []interface{}{"C"}, args)

	sql, args, err = enrollmentsByScopeQuery(attendance.Scope{ClassID: "C", BatchID: "B1"}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "class_id = $1 AND batch_id = $2")
	assert.Equal(t, []interface{}{"C", "B1"}, args)
}

func TestStudentRecordsQuery(t *testing.T) {
	e := attendance.Enrollment{StudentID: "a", ClassID: "C", BatchID: "B1"}

	sql, args, err := studentRecordsQuery(e).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "COALESCE(m.status, 'unmarked')")
	assert.Contains(t, sql, "LEFT JOIN attendance_marks m ON m.session_id = s.id AND m.student_id = $1")
	assert.Contains(t, sql, "s.class_id = $2")
	assert.Contains(t, sql, "(s.batch_id = $3 OR s.batch_id = $4)")
	assert.Equal(t, []interface{}{"a", "C", "", "B1"}, args)
}

func TestMigrationsAreOrdered(t *testing.T) {
	migs := Migrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}
