package timetable

import "context"

// Repository persists timetable slots.
type Repository interface {
	// Get returns a slot by id, or shared.ErrSlotNotFound.
	Get(ctx context.Context, id string) (*Slot, error)

	// SaveIfNoConflict runs CheckConflict against the stored slots of the
	// same day and stores the slot only when it is clear. Implementations
	// serialize concurrent saves for a day so two conflicting slots cannot
	// both pass. On conflict it returns a *ConflictError and stores nothing.
	SaveIfNoConflict(ctx context.Context, slot *Slot) (created bool, err error)

	// Delete removes a slot. Slots with materialized sessions cannot be
	// deleted (shared.ErrSlotInUse).
	Delete(ctx context.Context, id string) error

	// ListByDay returns all slots scheduled on day, ordered by start time.
	ListByDay(ctx context.Context, day DayOfWeek) ([]Slot, error)
}
