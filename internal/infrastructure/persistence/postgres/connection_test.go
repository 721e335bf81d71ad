package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

func TestAlreadyExists_MapsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "sessions_pkey"}

	err := storeError("EnsureSession", alreadyExists("EnsureSession", "session id already in use", dup))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.True(t, shared.IsAlreadyExists(err))
	assert.False(t, shared.IsRetryable(err))

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
}

func TestAlreadyExists_PassesOtherErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503"}
	assert.Same(t, fk, alreadyExists("op", "msg", fk))
	assert.Nil(t, alreadyExists("op", "msg", nil))

	err := storeError("op", alreadyExists("op", "msg", fk))
	assert.True(t, shared.IsRetryable(err))
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))
}

func TestStoreError(t *testing.T) {
	assert.NoError(t, storeError("op", nil))
	assert.Same(t, shared.ErrSessionIsLocked, storeError("op", shared.ErrSessionIsLocked))

	conflict := timetable.NewConflictError(timetable.Slot{ID: "a"}, []timetable.Slot{{ID: "b"}})
	assert.Equal(t, conflict, storeError("op", conflict))

	assert.True(t, IsNoRows(pgx.ErrNoRows))
	assert.True(t, shared.IsRetryable(storeError("op", errors.New("connection reset"))))

	canceled := storeError("op", fmt.Errorf("acquire: %w", context.Canceled))
	assert.ErrorIs(t, canceled, context.Canceled)
	assert.False(t, shared.IsRetryable(canceled))
	assert.Equal(t, context.DeadlineExceeded, storeError("op", context.DeadlineExceeded))
}
