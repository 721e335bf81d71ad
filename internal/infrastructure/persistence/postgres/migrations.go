package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: TIMETABLE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS enrollments (
    student_id   TEXT PRIMARY KEY,
    student_name TEXT NOT NULL,
    class_id     TEXT NOT NULL,
    batch_id     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_enrollments_scope ON enrollments(class_id, batch_id, student_name);

CREATE TABLE IF NOT EXISTS timetable_slots (
    id           TEXT PRIMARY KEY,
    day_of_week  SMALLINT NOT NULL,
    start_minute SMALLINT NOT NULL,
    end_minute   SMALLINT NOT NULL,
    class_id     TEXT NOT NULL,
    subject_id   TEXT NOT NULL,
    faculty_id   TEXT NOT NULL DEFAULT '',
    batch_id     TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_day CHECK (day_of_week BETWEEN 1 AND 6),
    CONSTRAINT valid_span CHECK (start_minute >= 0 AND end_minute <= 1440 AND start_minute < end_minute)
);

CREATE INDEX IF NOT EXISTS idx_slots_day ON timetable_slots(day_of_week, start_minute);
CREATE INDEX IF NOT EXISTS idx_slots_class ON timetable_slots(class_id);
`

const migration001Down = `
DROP TABLE IF EXISTS timetable_slots;
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: SESSIONS AND MARKS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    slot_id    TEXT NOT NULL REFERENCES timetable_slots(id) ON DELETE RESTRICT,
    date       DATE NOT NULL,
    class_id   TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    batch_id   TEXT NOT NULL DEFAULT '',
    locked     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    locked_at  TIMESTAMP WITH TIME ZONE,

    CONSTRAINT uniq_session_slot_date UNIQUE (slot_id, date),
    CONSTRAINT locked_has_time CHECK (locked = (locked_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_sessions_class_locked ON sessions(class_id, date) WHERE locked;

CREATE TABLE IF NOT EXISTS attendance_marks (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    student_id TEXT NOT NULL,
    status     TEXT NOT NULL,
    edited_by  TEXT NOT NULL DEFAULT '',
    edited_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (session_id, student_id),
    CONSTRAINT valid_status CHECK (status IN ('present', 'absent', 'unmarked'))
);

CREATE INDEX IF NOT EXISTS idx_marks_student ON attendance_marks(student_id);
`

const migration002Down = `
DROP TABLE IF EXISTS attendance_marks;
DROP TABLE IF EXISTS sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS achievements (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    criteria    JSONB NOT NULL,
    updated_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS achievements;
`

// Migrations returns the embedded migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_timetable", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_sessions_and_marks", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_achievements", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}
