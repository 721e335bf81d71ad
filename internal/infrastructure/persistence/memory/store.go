// Package memory provides map-backed repositories used in development mode
// and in tests. All tables share one lock so multi-table rules (lock vs.
// mark write, delete vs. mark count) are atomic just like in PostgreSQL.
package memory

import (
	"sync"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
)

type sessionKey struct {
	slotID string
	date   time.Time
}

type markKey struct {
	sessionID string
	studentID string
}

// Store holds every table.
type Store struct {
	mu sync.RWMutex

	slots        map[string]*timetable.Slot
	sessions     map[string]*attendance.Session
	sessionByKey map[sessionKey]string
	marks        map[markKey]*attendance.Mark
	enrollments  map[string]*attendance.Enrollment // by student id
	achievements map[string]achievement.Definition
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		slots:        make(map[string]*timetable.Slot),
		sessions:     make(map[string]*attendance.Session),
		sessionByKey: make(map[sessionKey]string),
		marks:        make(map[markKey]*attendance.Mark),
		enrollments:  make(map[string]*attendance.Enrollment),
		achievements: make(map[string]achievement.Definition),
	}
}

// Slots returns the timetable repository view of the store.
func (s *Store) Slots() *SlotRepository { return &SlotRepository{db: s} }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{db: s} }

// Marks returns the mark ledger view of the store.
func (s *Store) Marks() *MarkRepository { return &MarkRepository{db: s} }

// Enrollments returns the enrollment repository view of the store.
func (s *Store) Enrollments() *EnrollmentRepository { return &EnrollmentRepository{db: s} }

// History returns the aggregation read view of the store.
func (s *Store) History() *HistoryRepository { return &HistoryRepository{db: s} }

// Achievements returns the achievement definition repository view of the store.
func (s *Store) Achievements() *AchievementRepository { return &AchievementRepository{db: s} }

func (s *Store) markCountLocked(sessionID string) int {
	n := 0
	for k := range s.marks {
		if k.sessionID == sessionID {
			n++
		}
	}
	return n
}
