package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/exam"
	"github.com/selekta/portal-backend/internal/model"
)

// Session lifecycle errors surfaced to handlers.
var (
	ErrSessionCompleted = errors.New("test session already completed")
	ErrSessionExpired   = errors.New("test session expired")
	ErrPersistFailed    = errors.New("result persistence failed")
)

// QuestionStore is the question bank surface the engine orchestration needs.
type QuestionStore interface {
	ListPool(ctx context.Context, limit int) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// SessionStore is the session persistence surface.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error)
	SubmitResult(ctx context.Context, sessionID uuid.UUID, res *exam.Result) error
	ListOverdue(ctx context.Context, startedBefore time.Time) ([]model.TestSession, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// StartResult is returned when an attempt begins (or resumes on reload).
type StartResult struct {
	Paper []model.QuestionForParticipant `json:"questions"`
	State exam.Snapshot                  `json:"state"`
}

// SubmitSummary is the participant-facing outcome of a submission.
type SubmitSummary struct {
	Score           int                 `json:"score"`
	CorrectCount    int                 `json:"correct_count"`
	TotalQuestions  int                 `json:"total_questions"`
	DurationSeconds int                 `json:"duration_seconds"`
	Status          model.SessionStatus `json:"status"`
}

// ExamSessionService runs the timed exam lifecycle. Each attempt is an
// exam.Session engine instance held in an in-memory registry; answers,
// flags, and the drawn layout are mirrored to Redis so an attempt survives
// a page reload and a process restart with the same questions, option
// order, and clock.
type ExamSessionService struct {
	questions QuestionStore
	sessions  SessionStore
	rdb       *goredis.Client
	cfg       *config.Config
	monitor   *Monitor
	log       zerolog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]*exam.Session
	rng    *rand.Rand

	now func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	questions QuestionStore,
	sessions SessionStore,
	rdb *goredis.Client,
	cfg *config.Config,
	monitor *Monitor,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		questions: questions,
		sessions:  sessions,
		rdb:       rdb,
		cfg:       cfg,
		monitor:   monitor,
		log:       log.With().Str("component", "exam_session_service").Logger(),
		active:    make(map[uuid.UUID]*exam.Session),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

func (s *ExamSessionService) engineConfig() exam.Config {
	return exam.Config{
		QuestionCount: s.cfg.ExamQuestionCount,
		Duration:      s.cfg.ExamDuration,
	}
}

// Start draws the question set for a session and starts the countdown, or
// resumes the existing attempt if one is already running (page reload). The
// questions are served without correct answers.
func (s *ExamSessionService) Start(ctx context.Context, sessionID uuid.UUID) (*StartResult, error) {
	engine, err := s.engineFor(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}

	return &StartResult{
		Paper: engine.Paper(),
		State: engine.Snapshot(s.now()),
	}, nil
}

// State returns the live snapshot for a running attempt.
func (s *ExamSessionService) State(ctx context.Context, sessionID uuid.UUID) (*exam.Snapshot, error) {
	engine, err := s.engineFor(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	snap := engine.Snapshot(s.now())
	return &snap, nil
}

// Answer records a choice for a question index and mirrors it to Redis.
func (s *ExamSessionService) Answer(ctx context.Context, sessionID uuid.UUID, index int, letter string) error {
	engine, err := s.engineFor(ctx, sessionID, false)
	if err != nil {
		return err
	}
	if err := engine.SelectAnswer(index, letter); err != nil {
		return err
	}

	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	if err := s.rdb.HSet(ctx, key, strconv.Itoa(index), letter).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Mirror answer failed")
	}
	return nil
}

// ToggleFlag flips the review flag for a question index.
func (s *ExamSessionService) ToggleFlag(ctx context.Context, sessionID uuid.UUID, index int) (bool, error) {
	engine, err := s.engineFor(ctx, sessionID, false)
	if err != nil {
		return false, err
	}
	flagged, err := engine.ToggleFlag(index)
	if err != nil {
		return false, err
	}

	key := config.CacheKey.SessionFlagsKey(sessionID.String())
	member := strconv.Itoa(index)
	if flagged {
		err = s.rdb.SAdd(ctx, key, member).Err()
	} else {
		err = s.rdb.SRem(ctx, key, member).Err()
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Mirror flag failed")
	}
	return flagged, nil
}

// SetPosition moves the current question index.
func (s *ExamSessionService) SetPosition(ctx context.Context, sessionID uuid.UUID, index int) error {
	engine, err := s.engineFor(ctx, sessionID, false)
	if err != nil {
		return err
	}
	return engine.SetPosition(index)
}

// Submit finalizes an attempt. Manual submissions require every question
// answered; a force submission is honored only once the deadline passed.
// The answer records and the session finalize are one transaction at the
// store; on persistence failure the engine lands in Failed and the error is
// surfaced distinctly from normal completion.
func (s *ExamSessionService) Submit(ctx context.Context, sessionID uuid.UUID, force bool) (*SubmitSummary, error) {
	engine, err := s.engineFor(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}

	res, err := engine.Submit(s.now(), force)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SubmitResult(ctx, sessionID, res); err != nil {
		_ = engine.MarkFailed()
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Persist submission failed")
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	_ = engine.MarkCompleted()

	s.clearMirror(ctx, sessionID)

	handle := engine.Handle()
	score := res.Score
	s.monitor.Publish(ctx, MonitorEvent{
		Type:            MonitorSessionCompleted,
		SessionID:       sessionID.String(),
		InvitationCode:  handle.Code,
		ParticipantName: handle.ParticipantName,
		Score:           &score,
	})

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("score", res.Score).
		Int("correct", res.CorrectCount).
		Bool("forced", force).
		Msg("Test submitted")

	return &SubmitSummary{
		Score:           res.Score,
		CorrectCount:    res.CorrectCount,
		TotalQuestions:  len(res.Records),
		DurationSeconds: res.DurationSeconds,
		Status:          model.SessionStatusCompleted,
	}, nil
}

// ExpireOverdue sweeps in_progress sessions whose deadline plus grace has
// passed, marking them expired. Returns how many sessions were expired.
func (s *ExamSessionService) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-(s.cfg.ExamDuration + s.cfg.ExpiryGrace))

	overdue, err := s.sessions.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list overdue sessions: %w", err)
	}

	expired := 0
	for _, row := range overdue {
		if err := s.sessions.MarkExpired(ctx, row.ID); err != nil {
			if errors.Is(err, model.ErrSessionNotActive) {
				continue // A submission won the race; leave it be.
			}
			s.log.Error().Err(err).Str("session_id", row.ID.String()).Msg("Mark expired failed")
			continue
		}

		s.mu.Lock()
		if engine, ok := s.active[row.ID]; ok {
			_ = engine.MarkExpired()
			delete(s.active, row.ID)
		}
		s.mu.Unlock()

		s.clearMirror(ctx, row.ID)

		s.monitor.Publish(ctx, MonitorEvent{
			Type:            MonitorSessionExpired,
			SessionID:       row.ID.String(),
			InvitationCode:  row.InvitationCode,
			ParticipantName: row.ParticipantName,
		})
		expired++
	}

	if expired > 0 {
		s.log.Info().Int("count", expired).Msg("Expired overdue sessions")
	}
	return expired, nil
}

// engineFor returns the engine for a session, rebuilding it from the Redis
// mirror after a restart. When allowDraw is set (the start endpoint) a
// missing mirror triggers a fresh draw; otherwise the caller must start the
// attempt first.
func (s *ExamSessionService) engineFor(ctx context.Context, sessionID uuid.UUID, allowDraw bool) (*exam.Session, error) {
	s.mu.Lock()
	engine, ok := s.active[sessionID]
	s.mu.Unlock()
	if ok {
		return engine, nil
	}

	row, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch row.Status {
	case model.SessionStatusCompleted:
		return nil, ErrSessionCompleted
	case model.SessionStatusExpired:
		return nil, ErrSessionExpired
	}

	handle := exam.Handle{
		SessionID:       row.ID,
		Code:            row.InvitationCode,
		ParticipantName: row.ParticipantName,
		StartTime:       row.StartTime,
	}
	engine = exam.NewSession(handle, s.engineConfig())

	drawn, restored, err := s.loadLayout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !restored {
		if !allowDraw {
			return nil, model.ErrSessionNotFound
		}
		drawn, err = s.draw(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	if err := engine.Load(drawn); err != nil {
		return nil, fmt.Errorf("load drawn questions: %w", err)
	}
	if restored {
		s.restoreMirror(ctx, sessionID, engine)
	}

	s.mu.Lock()
	// Another request may have built the engine concurrently; first one wins.
	if existing, ok := s.active[sessionID]; ok {
		engine = existing
	} else {
		s.active[sessionID] = engine
	}
	s.mu.Unlock()

	return engine, nil
}

func (s *ExamSessionService) draw(ctx context.Context, sessionID uuid.UUID) ([]exam.Drawn, error) {
	pool, err := s.questions.ListPool(ctx, s.cfg.QuestionPoolLimit)
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}

	s.mu.Lock()
	drawn, err := exam.Draw(pool, s.cfg.ExamQuestionCount, s.rng)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(exam.Layout(drawn))
	if err != nil {
		return nil, fmt.Errorf("marshal layout: %w", err)
	}
	key := config.CacheKey.SessionLayoutKey(sessionID.String())
	set, err := s.rdb.SetNX(ctx, key, raw, 0).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Cache layout failed")
		return drawn, nil
	}
	if !set {
		// A concurrent start mirrored its draw first; that layout is the
		// one a restart would rebuild from, so it wins here too.
		mirrored, restored, err := s.loadLayout(ctx, sessionID)
		if err == nil && restored {
			return mirrored, nil
		}
	}
	return drawn, nil
}

// loadLayout rebuilds a previously drawn set from the Redis mirror.
func (s *ExamSessionService) loadLayout(ctx context.Context, sessionID uuid.UUID) ([]exam.Drawn, bool, error) {
	key := config.CacheKey.SessionLayoutKey(sessionID.String())
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load layout: %w", err)
	}

	var layout []exam.QuestionLayout
	if err := json.Unmarshal([]byte(raw), &layout); err != nil {
		return nil, false, fmt.Errorf("decode layout: %w", err)
	}

	ids := make([]uuid.UUID, len(layout))
	for i, l := range layout {
		ids[i] = l.QuestionID
	}
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, false, fmt.Errorf("load layout questions: %w", err)
	}

	drawn, err := exam.Rebuild(questions, layout)
	if err != nil {
		return nil, false, err
	}
	return drawn, true, nil
}

func (s *ExamSessionService) restoreMirror(ctx context.Context, sessionID uuid.UUID, engine *exam.Session) {
	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
	if mirrored, err := s.rdb.HGetAll(ctx, answersKey).Result(); err == nil && len(mirrored) > 0 {
		answers := make(map[int]string, len(mirrored))
		for field, letter := range mirrored {
			idx, err := strconv.Atoi(field)
			if err != nil {
				continue
			}
			answers[idx] = letter
		}
		engine.RestoreAnswers(answers)
	}

	flagsKey := config.CacheKey.SessionFlagsKey(sessionID.String())
	if members, err := s.rdb.SMembers(ctx, flagsKey).Result(); err == nil && len(members) > 0 {
		flags := make([]int, 0, len(members))
		for _, m := range members {
			if idx, err := strconv.Atoi(m); err == nil {
				flags = append(flags, idx)
			}
		}
		engine.RestoreFlags(flags)
	}
}

func (s *ExamSessionService) clearMirror(ctx context.Context, sessionID uuid.UUID) {
	id := sessionID.String()
	err := s.rdb.Del(ctx,
		config.CacheKey.SessionStartKey(id),
		config.CacheKey.SessionAnswersKey(id),
		config.CacheKey.SessionFlagsKey(id),
		config.CacheKey.SessionLayoutKey(id),
	).Err()
	if err != nil {
		s.log.Warn().Err(err).Msg("Clear session mirror failed")
	}
}
