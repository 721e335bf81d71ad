package command

import (
	"context"
	"errors"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/internal/infrastructure/metrics"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/validate"
)

// ══════════════════════════════════════════════════════════════════════════════
// SAVE SLOT COMMAND
// Creates or edits a weekly timetable slot. The conflict check and the write
// run atomically in the repository, so two overlapping saves cannot both win.
// ══════════════════════════════════════════════════════════════════════════════

// SaveSlotCommand is an admin-authored slot draft.
type SaveSlotCommand struct {
	// ID is empty for a new slot.
	ID        string `json:"id"`
	Day       int    `json:"day_of_week" validate:"min=1,max=6"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	FacultyID string `json:"faculty_id"`
	BatchID   string `json:"batch_id"`
}

// Validate checks the draft's shape.
func (c SaveSlotCommand) Validate() error {
	return validate.Struct("command", "SaveSlot", c)
}

// SaveSlotResult is the stored slot.
type SaveSlotResult struct {
	Slot    timetable.Slot `json:"slot"`
	Created bool           `json:"created"`
}

// SaveSlotHandler handles SaveSlotCommand.
type SaveSlotHandler struct {
	slots timetable.Repository
	deps  Deps
}

// NewSaveSlotHandler creates a new handler.
func NewSaveSlotHandler(slots timetable.Repository, deps Deps) *SaveSlotHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("save_slot"))
	return &SaveSlotHandler{slots: slots, deps: deps}
}

// Handle validates the draft and stores it unless it conflicts.
// A rejected save returns a *timetable.ConflictError listing every conflicting slot.
func (h *SaveSlotHandler) Handle(ctx context.Context, cmd SaveSlotCommand) (*SaveSlotResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	slot, err := h.buildSlot(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	created, err := h.slots.SaveIfNoConflict(ctx, slot)
	if err != nil {
		var ce *timetable.ConflictError
		if errors.As(err, &ce) {
			metrics.SlotConflicts.Inc()
			h.deps.Logger.Warn("slot rejected",
				logger.SlotID(slot.ID),
				logger.ClassID(slot.ClassID),
				logger.Int("conflicts", len(ce.Conflicts)),
			)
			return nil, err
		}
		return nil, wrapRepo("SaveSlot", err)
	}

	h.deps.Logger.Info("slot saved",
		logger.SlotID(slot.ID),
		logger.ClassID(slot.ClassID),
		logger.SubjectID(slot.SubjectID),
		logger.BatchID(slot.BatchID),
		logger.Bool("created", created),
	)
	h.deps.publish(shared.NewSlotSavedEvent(slot.ID, slot.ClassID, slot.SubjectID, int(slot.Day), created))

	return &SaveSlotResult{Slot: *slot, Created: created}, nil
}

func (h *SaveSlotHandler) buildSlot(ctx context.Context, cmd SaveSlotCommand) (*timetable.Slot, error) {
	start, err := timetable.ParseClock(cmd.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := timetable.ParseClock(cmd.EndTime)
	if err != nil {
		return nil, err
	}

	now := h.deps.Clock.Now()
	slot := &timetable.Slot{
		ID:        cmd.ID,
		Day:       timetable.DayOfWeek(cmd.Day),
		Start:     start,
		End:       end,
		ClassID:   cmd.ClassID,
		SubjectID: cmd.SubjectID,
		FacultyID: cmd.FacultyID,
		BatchID:   cmd.BatchID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if slot.ID == "" {
		slot.ID = h.deps.NewID()
		return slot, nil
	}

	existing, err := h.slots.Get(ctx, slot.ID)
	switch {
	case err == nil:
		slot.CreatedAt = existing.CreatedAt
	case !shared.IsNotFound(err):
		return nil, wrapRepo("SaveSlot", err)
	}
	return slot, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE SLOT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteSlotCommand removes a slot that was never materialized.
type DeleteSlotCommand struct {
	SlotID string `json:"slot_id" validate:"required"`
}

// DeleteSlotHandler handles DeleteSlotCommand.
type DeleteSlotHandler struct {
	slots timetable.Repository
	deps  Deps
}

// NewDeleteSlotHandler creates a new handler.
func NewDeleteSlotHandler(slots timetable.Repository, deps Deps) *DeleteSlotHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("delete_slot"))
	return &DeleteSlotHandler{slots: slots, deps: deps}
}

// Handle deletes the slot. Slots with sessions fail with shared.ErrSlotInUse.
func (h *DeleteSlotHandler) Handle(ctx context.Context, cmd DeleteSlotCommand) error {
	if err := validate.Struct("command", "DeleteSlot", cmd); err != nil {
		return err
	}

	slot, err := h.slots.Get(ctx, cmd.SlotID)
	if err != nil {
		return wrapRepo("DeleteSlot", err)
	}
	if err := h.slots.Delete(ctx, cmd.SlotID); err != nil {
		return wrapRepo("DeleteSlot", err)
	}

	h.deps.Logger.Info("slot deleted", logger.SlotID(slot.ID), logger.ClassID(slot.ClassID))
	h.deps.publish(shared.NewSlotDeletedEvent(slot.ID, slot.ClassID))
	return nil
}
