package memory

import (
	"context"
	"sort"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

// SlotRepository implements timetable.Repository.
type SlotRepository struct {
	db *Store
}

var _ timetable.Repository = (*SlotRepository)(nil)

// Get returns a copy of the slot.
func (r *SlotRepository) Get(_ context.Context, id string) (*timetable.Slot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.slots[id]
	if !ok {
		return nil, shared.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

// SaveIfNoConflict checks and stores under the store's write lock.
func (r *SlotRepository) SaveIfNoConflict(_ context.Context, slot *timetable.Slot) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	sameDay := r.listLocked(func(s *timetable.Slot) bool { return s.Day == slot.Day })
	if err := timetable.NewConflictError(*slot, timetable.CheckConflict(*slot, sameDay)); err != nil {
		return false, err
	}

	_, exists := r.db.slots[slot.ID]
	cp := *slot
	if exists {
		cp.CreatedAt = r.db.slots[slot.ID].CreatedAt
	}
	r.db.slots[slot.ID] = &cp
	return !exists, nil
}

// Delete refuses to remove a slot that already has sessions.
func (r *SlotRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.slots[id]; !ok {
		return shared.ErrSlotNotFound
	}
	for _, s := range r.db.sessions {
		if s.SlotID == id {
			return shared.ErrSlotInUse
		}
	}
	delete(r.db.slots, id)
	return nil
}

// ListByDay returns the day's slots ordered by start time.
func (r *SlotRepository) ListByDay(_ context.Context, day timetable.DayOfWeek) ([]timetable.Slot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.listLocked(func(s *timetable.Slot) bool { return s.Day == day }), nil
}

func (r *SlotRepository) listLocked(keep func(*timetable.Slot) bool) []timetable.Slot {
	out := make([]timetable.Slot, 0)
	for _, s := range r.db.slots {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}
