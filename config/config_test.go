package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/attendance")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Attendance.DefaulterThreshold)
	assert.False(t, cfg.Attendance.RequireMarksToLock)
	assert.Equal(t, 5*time.Minute, cfg.Attendance.LeaderboardCacheTTL)
	assert.Equal(t, time.UTC.String(), cfg.App.Location.String())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "attendance:events", cfg.Redis.EventChannel)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("ATTENDANCE_DEFAULTER_THRESHOLD", "60")
	t.Setenv("ATTENDANCE_REQUIRE_MARKS_TO_LOCK", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres://app:secret@db:5432/attendance?sslmode=disable", cfg.Database.URL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 60, cfg.Attendance.DefaulterThreshold)
	assert.True(t, cfg.Attendance.RequireMarksToLock)
	assert.True(t, cfg.IsProduction())
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	t.Setenv("ATTENDANCE_DEFAULTER_THRESHOLD", "140")
	t.Setenv("SCHEDULER_WARMUP_SPEC", "every now and then")

	_, err := FromEnv()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL")
	assert.Contains(t, msg, "Mars/Olympus")
	assert.Contains(t, msg, "ATTENDANCE_DEFAULTER_THRESHOLD")
	assert.Contains(t, msg, "SCHEDULER_WARMUP_SPEC")
}

const catalogYAML = `
achievements:
  - id: regular
    title: Regular
    description: Overall attendance of at least 75%
    criteria:
      type: min_overall
      value: 75
  - id: all-rounder
    criteria:
      type: min_subjects_above_x
      percentage: 90
      count: 3
  - id: iron
    title: Iron
    criteria:
      type: max_absent_days_streak
      value: 0
`

func TestParseAchievementCatalog(t *testing.T) {
	defs, err := ParseAchievementCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, achievement.MinOverall{Value: 75}, defs[0].Criteria)
	assert.Equal(t, "all-rounder", defs[1].Title)
	assert.Equal(t, achievement.MinSubjectsAboveX{Percentage: 90, Count: 3}, defs[1].Criteria)
	assert.Equal(t, achievement.MaxAbsentDaysStreak{Days: 0}, defs[2].Criteria)
}

func TestParseAchievementCatalog_Rejects(t *testing.T) {
	_, err := ParseAchievementCatalog([]byte("achievements:\n  - id: x\n    criteria: {type: min_overall}\n"))
	assert.ErrorIs(t, err, shared.ErrMissingCriteriaArg)

	_, err = ParseAchievementCatalog([]byte("achievements:\n  - id: x\n    criteria: {type: teleport}\n"))
	assert.ErrorIs(t, err, shared.ErrUnknownCriteriaType)

	_, err = ParseAchievementCatalog([]byte("achievements:\n  - id: x\n    criteria: {type: perfect_subject}\n  - id: x\n    criteria: {type: perfect_subject}\n"))
	assert.ErrorContains(t, err, "duplicate id")

	_, err = ParseAchievementCatalog([]byte("achievements:\n  - id: x\n    colour: red\n"))
	assert.Error(t, err)

	defs, err := ParseAchievementCatalog(nil)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadAchievementCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	defs, err := LoadAchievementCatalog(path)
	require.NoError(t, err)
	assert.Len(t, defs, 3)

	_, err = LoadAchievementCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
