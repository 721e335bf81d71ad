package command

import (
	"context"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE OR GET SESSION COMMAND
// Materializes a timetable slot on a date. Repeated and concurrent calls for
// the same (slot, date) resolve to the same session.
// ══════════════════════════════════════════════════════════════════════════════

// CreateOrGetSessionCommand names the (slot, date) pair.
type CreateOrGetSessionCommand struct {
	SlotID string `json:"slot_id" validate:"required"`
	// Date is a YYYY-MM-DD civil date.
	Date string `json:"date" validate:"required,date"`
}

// CreateOrGetSessionResult carries the session and whether this call created it.
type CreateOrGetSessionResult struct {
	Session attendance.Session `json:"session"`
	Created bool               `json:"created"`
}

// CreateOrGetSessionHandler handles CreateOrGetSessionCommand.
type CreateOrGetSessionHandler struct {
	slots    timetable.Repository
	sessions attendance.SessionRepository
	deps     Deps
}

// NewCreateOrGetSessionHandler creates a new handler.
func NewCreateOrGetSessionHandler(slots timetable.Repository, sessions attendance.SessionRepository, deps Deps) *CreateOrGetSessionHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("ensure_session"))
	return &CreateOrGetSessionHandler{slots: slots, sessions: sessions, deps: deps}
}

// Handle returns the existing session or creates a new OPEN one.
func (h *CreateOrGetSessionHandler) Handle(ctx context.Context, cmd CreateOrGetSessionCommand) (*CreateOrGetSessionResult, error) {
	if err := validate.Struct("command", "CreateOrGetSession", cmd); err != nil {
		return nil, err
	}
	date, err := timeutil.ParseDate(cmd.Date)
	if err != nil {
		return nil, shared.WrapError("command", "CreateOrGetSession", shared.ErrInvalidFormat, "invalid date", err)
	}
	return h.Ensure(ctx, cmd.SlotID, date)
}

// Ensure is Handle for callers that already hold a civil date.
func (h *CreateOrGetSessionHandler) Ensure(ctx context.Context, slotID string, date time.Time) (*CreateOrGetSessionResult, error) {
	date = timeutil.Normalize(date)

	if existing, err := h.sessions.GetBySlotAndDate(ctx, slotID, date); err == nil {
		return &CreateOrGetSessionResult{Session: *existing}, nil
	} else if !shared.IsNotFound(err) {
		return nil, wrapRepo("CreateOrGetSession", err)
	}

	slot, err := h.slots.Get(ctx, slotID)
	if err != nil {
		return nil, wrapRepo("CreateOrGetSession", err)
	}

	candidate, err := attendance.NewSession(h.deps.NewID(), *slot, date, h.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	stored, created, err := h.sessions.Ensure(ctx, candidate)
	if err != nil {
		return nil, wrapRepo("CreateOrGetSession", err)
	}

	if created {
		metrics.SessionsCreated.Inc()
		h.deps.Logger.Info("session created",
			logger.SessionID(stored.ID),
			logger.SlotID(stored.SlotID),
			logger.Date("date", stored.Date),
			logger.ClassID(stored.ClassID),
			logger.BatchID(stored.BatchID),
		)
		h.deps.publish(shared.NewSessionEvent(shared.EventSessionCreated,
			stored.ID, stored.SlotID, stored.ClassID, stored.SubjectID, stored.BatchID, stored.Date))
	}

	return &CreateOrGetSessionResult{Session: *stored, Created: created}, nil
}
