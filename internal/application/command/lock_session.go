package command

import (
	"context"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOCK SESSION COMMAND
// OPEN -> LOCKED. Locked sessions are the only ones that count toward
// percentages, rankings and achievements, and their marks are read-only.
// ══════════════════════════════════════════════════════════════════════════════

// LockSessionCommand locks one session.
type LockSessionCommand struct {
	SessionID string `json:"session_id" validate:"required"`
}

// LockSessionHandler handles LockSessionCommand.
type LockSessionHandler struct {
	sessions attendance.SessionRepository
	policy   attendance.LockPolicy
	deps     Deps
}

// NewLockSessionHandler creates a new handler.
func NewLockSessionHandler(sessions attendance.SessionRepository, policy attendance.LockPolicy, deps Deps) *LockSessionHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("lock_session"))
	return &LockSessionHandler{sessions: sessions, policy: policy, deps: deps}
}

// Handle locks the session. Locking twice fails with shared.ErrAlreadyLocked.
func (h *LockSessionHandler) Handle(ctx context.Context, cmd LockSessionCommand) (*attendance.Session, error) {
	if err := validate.Struct("command", "LockSession", cmd); err != nil {
		return nil, err
	}

	guard := func(_ attendance.Session, markCount int) error {
		return h.policy.Check(markCount)
	}

	locked, err := h.sessions.Lock(ctx, cmd.SessionID, h.deps.Clock.Now(), guard)
	if err != nil {
		h.deps.Logger.Warn("lock rejected", logger.SessionID(cmd.SessionID), logger.Err(err))
		return nil, wrapRepo("LockSession", err)
	}

	metrics.SessionsLocked.Inc()
	h.deps.Logger.Info("session locked",
		logger.SessionID(locked.ID),
		logger.ClassID(locked.ClassID),
		logger.SubjectID(locked.SubjectID),
		logger.BatchID(locked.BatchID),
	)
	h.deps.publish(shared.NewSessionEvent(shared.EventSessionLocked,
		locked.ID, locked.SlotID, locked.ClassID, locked.SubjectID, locked.BatchID, locked.Date))

	return locked, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE SESSION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteSessionCommand removes a session created by mistake.
type DeleteSessionCommand struct {
	SessionID string `json:"session_id" validate:"required"`
}

// DeleteSessionHandler handles DeleteSessionCommand.
type DeleteSessionHandler struct {
	sessions attendance.SessionRepository
	deps     Deps
}

// NewDeleteSessionHandler creates a new handler.
func NewDeleteSessionHandler(sessions attendance.SessionRepository, deps Deps) *DeleteSessionHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("delete_session"))
	return &DeleteSessionHandler{sessions: sessions, deps: deps}
}

// Handle deletes an open, unmarked session whose date has not passed.
func (h *DeleteSessionHandler) Handle(ctx context.Context, cmd DeleteSessionCommand) error {
	if err := validate.Struct("command", "DeleteSession", cmd); err != nil {
		return err
	}

	today := timeutil.Today(h.deps.Clock)
	guard := func(s attendance.Session, markCount int) error {
		return s.CanDelete(markCount, today)
	}

	deleted, err := h.sessions.Delete(ctx, cmd.SessionID, guard)
	if err != nil {
		return wrapRepo("DeleteSession", err)
	}

	h.deps.Logger.Info("session deleted", logger.SessionID(deleted.ID), logger.ClassID(deleted.ClassID))
	h.deps.publish(shared.NewSessionEvent(shared.EventSessionDeleted,
		deleted.ID, deleted.SlotID, deleted.ClassID, deleted.SubjectID, deleted.BatchID, deleted.Date))
	return nil
}
