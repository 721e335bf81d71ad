// Package application wires command and query handlers into a single
// Engine that exposes the attendance use cases.
package application

import (
	"context"
	"time"

	"github.com/attendance-hub/attendance-engine/internal/application/command"
	"github.com/attendance-hub/attendance-engine/internal/application/eventhandler"
	"github.com/attendance-hub/attendance-engine/internal/application/query"
	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/attendance"
	"github.com/attendance-hub/attendance-engine/internal/domain/leaderboard"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
	"github.com/attendance-hub/attendance-engine/internal/domain/timetable"
	"github.com/attendance-hub/attendance-engine/pkg/logger"
	"github.com/attendance-hub/attendance-engine/pkg/timeutil"
)

// Repositories is the persistence surface the engine runs on.
type Repositories struct {
	Slots        timetable.Repository
	Sessions     attendance.SessionRepository
	Marks        attendance.MarkRepository
	Enrollments  attendance.EnrollmentRepository
	History      attendance.HistoryRepository
	Achievements achievement.Repository
}

// Options tunes engine behaviour. Zero values fall back to defaults.
type Options struct {
	LockPolicy         attendance.LockPolicy
	DefaulterThreshold int
	LeaderboardTTL     time.Duration

	// Cache is optional; without it every board is computed on demand.
	Cache leaderboard.Cache
	// Bus receives domain events. When it also accepts subscriptions the
	// engine registers its cache invalidation handler on it.
	Bus shared.EventPublisher

	Clock  timeutil.Clock
	Logger *logger.Logger
	NewID  command.IDGenerator
}

// Engine is the entry point for every attendance use case.
type Engine struct {
	saveSlot      *command.SaveSlotHandler
	deleteSlot    *command.DeleteSlotHandler
	ensureSession *command.CreateOrGetSessionHandler
	lockSession   *command.LockSessionHandler
	deleteSession *command.DeleteSessionHandler
	setMark       *command.SetMarkHandler
	bulkSet       *command.BulkSetMarksHandler

	attendance   *query.GetAttendanceHandler
	leaderboard  *query.GetLeaderboardHandler
	achievements *query.GetAchievementStatusHandler
	defaulters   *query.GetDefaultersHandler
	roster       *query.GetSessionRosterHandler

	slots  timetable.Repository
	clock  timeutil.Clock
	logger *logger.Logger
}

// NewEngine builds every handler over repos.
func NewEngine(repos Repositories, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock()
	}
	if opts.Bus == nil {
		opts.Bus = shared.NopPublisher{}
	}

	cdeps := command.Deps{Publisher: opts.Bus, Clock: opts.Clock, Logger: opts.Logger, NewID: opts.NewID}
	qdeps := query.Deps{Clock: opts.Clock, Logger: opts.Logger}
	reader := query.ClassReader{Enrollments: repos.Enrollments, Sessions: repos.Sessions, Marks: repos.Marks}

	e := &Engine{
		saveSlot:      command.NewSaveSlotHandler(repos.Slots, cdeps),
		deleteSlot:    command.NewDeleteSlotHandler(repos.Slots, cdeps),
		ensureSession: command.NewCreateOrGetSessionHandler(repos.Slots, repos.Sessions, cdeps),
		lockSession:   command.NewLockSessionHandler(repos.Sessions, opts.LockPolicy, cdeps),
		deleteSession: command.NewDeleteSessionHandler(repos.Sessions, cdeps),
		setMark:       command.NewSetMarkHandler(repos.Sessions, repos.Marks, repos.Enrollments, cdeps),
		bulkSet:       command.NewBulkSetMarksHandler(repos.Sessions, repos.Marks, repos.Enrollments, cdeps),

		attendance:   query.NewGetAttendanceHandler(repos.Enrollments, repos.History),
		leaderboard:  query.NewGetLeaderboardHandler(reader, opts.Cache, opts.LeaderboardTTL, qdeps),
		achievements: query.NewGetAchievementStatusHandler(repos.Enrollments, repos.History, repos.Achievements, qdeps),
		defaulters:   query.NewGetDefaultersHandler(reader, opts.DefaulterThreshold),
		roster:       query.NewGetSessionRosterHandler(repos.Sessions, repos.Marks, repos.Enrollments),

		slots:  repos.Slots,
		clock:  opts.Clock,
		logger: opts.Logger.With(logger.Component("engine")),
	}

	if opts.Cache != nil {
		sub, ok := opts.Bus.(shared.EventSubscriber)
		if !ok {
			e.logger.Warn("leaderboard cache has no event bus to subscribe to; cached boards refresh only on expiry",
				logger.Duration("ttl", opts.LeaderboardTTL))
			return e, nil
		}
		if err := eventhandler.NewOnSessionChangedHandler(opts.Cache, opts.Logger).Register(sub); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMETABLE
// ══════════════════════════════════════════════════════════════════════════════

// SaveSlot creates or edits a slot after the conflict check.
func (e *Engine) SaveSlot(ctx context.Context, cmd command.SaveSlotCommand) (*command.SaveSlotResult, error) {
	return e.saveSlot.Handle(ctx, cmd)
}

// DeleteSlot removes a slot that has no sessions.
func (e *Engine) DeleteSlot(ctx context.Context, slotID string) error {
	return e.deleteSlot.Handle(ctx, command.DeleteSlotCommand{SlotID: slotID})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS & MARKS
// ══════════════════════════════════════════════════════════════════════════════

// CreateOrGetSession returns the session id for (slot, date), creating it on first use.
func (e *Engine) CreateOrGetSession(ctx context.Context, slotID string, date time.Time) (string, error) {
	res, err := e.ensureSession.Ensure(ctx, slotID, date)
	if err != nil {
		return "", err
	}
	return res.Session.ID, nil
}

// LockSession makes the session's marks final.
func (e *Engine) LockSession(ctx context.Context, sessionID string) error {
	_, err := e.lockSession.Handle(ctx, command.LockSessionCommand{SessionID: sessionID})
	return err
}

// DeleteSession removes an open, unmarked session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	return e.deleteSession.Handle(ctx, command.DeleteSessionCommand{SessionID: sessionID})
}

// SetMark records one student's status.
func (e *Engine) SetMark(ctx context.Context, sessionID, studentID string, status attendance.MarkStatus, editedBy string) error {
	_, err := e.setMark.Handle(ctx, command.SetMarkCommand{
		SessionID: sessionID,
		StudentID: studentID,
		Status:    string(status),
		EditedBy:  editedBy,
	})
	return err
}

// BulkSet applies status to everyone in the session's scope.
func (e *Engine) BulkSet(ctx context.Context, sessionID string, status attendance.MarkStatus, editedBy string) ([]attendance.StudentResult, error) {
	res, err := e.bulkSet.Handle(ctx, command.BulkSetMarksCommand{
		SessionID: sessionID,
		Status:    string(status),
		EditedBy:  editedBy,
	})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Roster returns the session's mark sheet.
func (e *Engine) Roster(ctx context.Context, sessionID string) (*query.GetSessionRosterResult, error) {
	return e.roster.Handle(ctx, query.GetSessionRosterQuery{SessionID: sessionID})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendance returns a student's tally over locked sessions.
func (e *Engine) GetAttendance(ctx context.Context, studentID, subjectID string, lt timetable.LectureType) (attendance.Tally, error) {
	res, err := e.attendance.Handle(ctx, query.GetAttendanceQuery{
		StudentID:   studentID,
		SubjectID:   subjectID,
		LectureType: string(lt),
	})
	if err != nil {
		return attendance.Tally{}, err
	}
	return res.Tally, nil
}

// GetLeaderboard returns the ranked board.
func (e *Engine) GetLeaderboard(ctx context.Context, classID, subjectID string, lt timetable.LectureType) (*leaderboard.Board, error) {
	return e.leaderboard.Handle(ctx, query.GetLeaderboardQuery{
		ClassID:     classID,
		SubjectID:   subjectID,
		LectureType: string(lt),
	})
}

// RefreshLeaderboard recomputes a board and overwrites the cached copy.
func (e *Engine) RefreshLeaderboard(ctx context.Context, key leaderboard.Key) (*leaderboard.Board, error) {
	return e.leaderboard.Refresh(ctx, key)
}

// GetAchievementStatus evaluates every achievement for the student.
func (e *Engine) GetAchievementStatus(ctx context.Context, studentID string) ([]achievement.Status, error) {
	res, err := e.achievements.Handle(ctx, query.GetAchievementStatusQuery{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	return res.Achievements, nil
}

// GetDefaulters lists students below the threshold (0 = configured default).
func (e *Engine) GetDefaulters(ctx context.Context, classID, subjectID string, threshold int) (*query.GetDefaultersResult, error) {
	return e.defaulters.Handle(ctx, query.GetDefaultersQuery{ClassID: classID, SubjectID: subjectID, Threshold: threshold})
}

// ══════════════════════════════════════════════════════════════════════════════
// MAINTENANCE
// ══════════════════════════════════════════════════════════════════════════════

// MaterializeDay ensures a session exists for every slot scheduled on date's
// weekday and returns how many were newly created. Sundays have no slots.
func (e *Engine) MaterializeDay(ctx context.Context, date time.Time) (int, error) {
	day, ok := timetable.DayOfWeekOf(date)
	if !ok {
		return 0, nil
	}
	slots, err := e.slots.ListByDay(ctx, day)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, s := range slots {
		res, err := e.ensureSession.Ensure(ctx, s.ID, date)
		if err != nil {
			e.logger.Error("materialize failed", logger.SlotID(s.ID), logger.Date("date", date), logger.Err(err))
			continue
		}
		if res.Created {
			created++
		}
	}
	return created, nil
}

// ClassesOnDay returns the distinct classes that have slots on date's weekday.
func (e *Engine) ClassesOnDay(ctx context.Context, date time.Time) ([]string, error) {
	day, ok := timetable.DayOfWeekOf(date)
	if !ok {
		return nil, nil
	}
	slots, err := e.slots.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range slots {
		if _, ok := seen[s.ClassID]; ok {
			continue
		}
		seen[s.ClassID] = struct{}{}
		out = append(out, s.ClassID)
	}
	return out, nil
}

// Today returns the engine clock's civil date.
func (e *Engine) Today() time.Time {
	return timeutil.Today(e.clock)
}
