package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIMETABLE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SlotRepository implements timetable.Repository.
type SlotRepository struct {
	conn *Connection
}

var _ timetable.Repository = (*SlotRepository)(nil)

// NewSlotRepository creates a SlotRepository.
func NewSlotRepository(conn *Connection) *SlotRepository {
	return &SlotRepository{conn: conn}
}

// Get returns a slot by id.
func (r *SlotRepository) Get(ctx context.Context, id string) (*timetable.Slot, error) {
	sql, args, err := slotsQuery(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSlot(r.conn.QueryRow(ctx, sql, args...))
	if IsNoRows(err) {
		return nil, shared.ErrSlotNotFound
	}
	return s, storeError("GetSlot", err)
}

// SaveIfNoConflict takes a transaction-scoped advisory lock keyed by the
// weekday, so saves for the same day run one at a time, then checks the
// candidate against that day's slots and upserts it.
func (r *SlotRepository) SaveIfNoConflict(ctx context.Context, slot *timetable.Slot) (bool, error) {
	var created bool
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('timetable_slots'), $1)`, int32(slot.Day)); err != nil {
			return err
		}

		sql, args, err := slotsQuery(squirrel.Eq{"day_of_week": int(slot.Day)}).ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		sameDay, err := collect(rows, scanSlot)
		if err != nil {
			return err
		}
		existing := make([]timetable.Slot, len(sameDay))
		for i, s := range sameDay {
			existing[i] = *s
		}
		if err := timetable.NewConflictError(*slot, timetable.CheckConflict(*slot, existing)); err != nil {
			return err
		}

		// xmax is zero only for freshly inserted rows.
		return tx.QueryRow(ctx, `
			INSERT INTO timetable_slots (id, day_of_week, start_minute, end_minute, class_id, subject_id, faculty_id, batch_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				day_of_week = EXCLUDED.day_of_week,
				start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				class_id = EXCLUDED.class_id,
				subject_id = EXCLUDED.subject_id,
				faculty_id = EXCLUDED.faculty_id,
				batch_id = EXCLUDED.batch_id,
				updated_at = EXCLUDED.updated_at
			RETURNING (xmax = 0)
		`,
			slot.ID, int(slot.Day), int(slot.Start), int(slot.End),
			slot.ClassID, slot.SubjectID, slot.FacultyID, slot.BatchID,
			slot.CreatedAt, slot.UpdatedAt,
		).Scan(&created)
	})
	if err != nil {
		return false, storeError("SaveSlot", err)
	}
	return created, nil
}

// Delete removes a slot that has no sessions.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var inUse bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM sessions WHERE slot_id = s.id)
			FROM timetable_slots s WHERE s.id = $1 FOR UPDATE
		`, id).Scan(&inUse)
		if IsNoRows(err) {
			return shared.ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		if inUse {
			return shared.ErrSlotInUse
		}
		_, err = tx.Exec(ctx, `DELETE FROM timetable_slots WHERE id = $1`, id)
		if IsForeignKeyViolation(err) {
			return shared.ErrSlotInUse
		}
		return err
	})
	return storeError("DeleteSlot", err)
}

// ListByDay returns the day's slots ordered by start time.
func (r *SlotRepository) ListByDay(ctx context.Context, day timetable.DayOfWeek) ([]timetable.Slot, error) {
	return r.list(ctx, "ListSlotsByDay", squirrel.Eq{"day_of_week": int(day)})
}

func (r *SlotRepository) list(ctx context.Context, op string, where squirrel.Sqlizer) ([]timetable.Slot, error) {
	sql, args, err := slotsQuery(where).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(op, err)
	}
	slots, err := collect(rows, scanSlot)
	if err != nil {
		return nil, storeError(op, err)
	}
	out := make([]timetable.Slot, len(slots))
	for i, s := range slots {
		out[i] = *s
	}
	return out, nil
}
