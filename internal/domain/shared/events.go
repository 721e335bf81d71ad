package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	// Timetable events
	EventSlotSaved   EventType = "timetable.slot_saved"
	EventSlotDeleted EventType = "timetable.slot_deleted"

	// Attendance events
	EventSessionCreated EventType = "attendance.session_created"
	EventSessionLocked  EventType = "attendance.session_locked"
	EventSessionDeleted EventType = "attendance.session_deleted"
	EventMarkRecorded   EventType = "attendance.mark_recorded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Timetable Events
// ═══════════════════════════════════════════════════════════════════════════

// SlotSavedEvent is emitted after a timetable slot passes the conflict check and is stored.
type SlotSavedEvent struct {
	BaseEvent
	ClassID   string `json:"class_id"`
	SubjectID string `json:"subject_id"`
	DayOfWeek int    `json:"day_of_week"`
	Created   bool   `json:"created"`
}

// Payload implements Event interface.
func (e SlotSavedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"class_id":    e.ClassID,
		"subject_id":  e.SubjectID,
		"day_of_week": e.DayOfWeek,
		"created":     e.Created,
	}
}

// NewSlotSavedEvent creates a new SlotSavedEvent.
func NewSlotSavedEvent(slotID, classID, subjectID string, day int, created bool) SlotSavedEvent {
	return SlotSavedEvent{
		BaseEvent: NewBaseEvent(EventSlotSaved, slotID),
		ClassID:   classID,
		SubjectID: subjectID,
		DayOfWeek: day,
		Created:   created,
	}
}

// SlotDeletedEvent is emitted after an unused slot is removed.
type SlotDeletedEvent struct {
	BaseEvent
	ClassID string `json:"class_id"`
}

// Payload implements Event interface.
func (e SlotDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"class_id": e.ClassID}
}

// NewSlotDeletedEvent creates a new SlotDeletedEvent.
func NewSlotDeletedEvent(slotID, classID string) SlotDeletedEvent {
	return SlotDeletedEvent{
		BaseEvent: NewBaseEvent(EventSlotDeleted, slotID),
		ClassID:   classID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionEvent describes a session lifecycle change (created, locked or deleted).
type SessionEvent struct {
	BaseEvent
	SlotID    string    `json:"slot_id"`
	ClassID   string    `json:"class_id"`
	SubjectID string    `json:"subject_id"`
	BatchID   string    `json:"batch_id,omitempty"`
	Date      time.Time `json:"date"`
}

// Payload implements Event interface.
func (e SessionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"slot_id":    e.SlotID,
		"class_id":   e.ClassID,
		"subject_id": e.SubjectID,
		"batch_id":   e.BatchID,
		"date":       e.Date.Format("2006-01-02"),
	}
}

// NewSessionEvent creates a session lifecycle event of the given type.
func NewSessionEvent(eventType EventType, sessionID, slotID, classID, subjectID, batchID string, date time.Time) SessionEvent {
	return SessionEvent{
		BaseEvent: NewBaseEvent(eventType, sessionID),
		SlotID:    slotID,
		ClassID:   classID,
		SubjectID: subjectID,
		BatchID:   batchID,
		Date:      date,
	}
}

// MarkRecordedEvent is emitted for every successful mark write.
type MarkRecordedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	EditedBy  string `json:"edited_by"`
}

// Payload implements Event interface.
func (e MarkRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"status":     e.Status,
		"edited_by":  e.EditedBy,
	}
}

// NewMarkRecordedEvent creates a new MarkRecordedEvent.
func NewMarkRecordedEvent(sessionID, studentID, status, editedBy string) MarkRecordedEvent {
	return MarkRecordedEvent{
		BaseEvent: NewBaseEvent(EventMarkRecorded, sessionID),
		StudentID: studentID,
		Status:    status,
		EditedBy:  editedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Handling
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles domain events.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber subscribes to domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
