package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/exam"
	"github.com/selekta/portal-backend/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        4,
		ExamDuration:      3600 * time.Second,
		ExamQuestionCount: 5,
		QuestionPoolLimit: 200,
		ExpiryGrace:       120 * time.Second,
	}
}

func testRedis(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testQuestionPool(n int) []model.Question {
	pool := make([]model.Question, n)
	for i := 0; i < n; i++ {
		pool[i] = model.Question{
			ID:            uuid.New(),
			QuestionText:  fmt.Sprintf("question %d", i),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectAnswer: model.Letters[i%4],
		}
	}
	return pool
}

// ─── Question store fake ────────────────────────────────────────────

type fakeQuestionStore struct {
	pool []model.Question
}

func (f *fakeQuestionStore) ListPool(ctx context.Context, limit int) ([]model.Question, error) {
	if limit < len(f.pool) {
		return f.pool[:limit], nil
	}
	return f.pool, nil
}

func (f *fakeQuestionStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	byID := make(map[uuid.UUID]model.Question, len(f.pool))
	for _, q := range f.pool {
		byID[q.ID] = q
	}
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// ─── Session store fake ─────────────────────────────────────────────

type fakeSessionStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*model.TestSession
	submitted map[uuid.UUID]*exam.Result
	submitErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[uuid.UUID]*model.TestSession),
		submitted: make(map[uuid.UUID]*exam.Result),
	}
}

func (f *fakeSessionStore) add(sess *model.TestSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	copied := *sess
	return &copied, nil
}

func (f *fakeSessionStore) SubmitResult(ctx context.Context, sessionID uuid.UUID, res *exam.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	sess, ok := f.sessions[sessionID]
	if !ok || sess.Status != model.SessionStatusInProgress {
		return model.ErrSessionNotActive
	}

	end := res.SubmittedAt
	total := len(res.Records)
	sess.EndTime = &end
	sess.DurationSeconds = &res.DurationSeconds
	sess.Score = &res.Score
	sess.TotalQuestions = &total
	sess.Status = model.SessionStatusCompleted
	f.submitted[sessionID] = res
	return nil
}

func (f *fakeSessionStore) ListOverdue(ctx context.Context, startedBefore time.Time) ([]model.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestSession
	for _, sess := range f.sessions {
		if sess.Status == model.SessionStatusInProgress && sess.StartTime.Before(startedBefore) {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok || sess.Status != model.SessionStatusInProgress {
		return model.ErrSessionNotActive
	}
	sess.Status = model.SessionStatusExpired
	return nil
}

// ─── Code store fake ────────────────────────────────────────────────

type fakeCodeStore struct {
	mu    sync.Mutex
	codes map[string]*model.InvitationCode
}

func newFakeCodeStore(codes ...string) *fakeCodeStore {
	f := &fakeCodeStore{codes: make(map[string]*model.InvitationCode)}
	for _, c := range codes {
		f.codes[c] = &model.InvitationCode{ID: uuid.New(), Code: c, CreatedAt: time.Now()}
	}
	return f
}

func (f *fakeCodeStore) Redeem(ctx context.Context, code, participantName string) (*model.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.codes[code]
	if !ok {
		return nil, model.ErrCodeNotFound
	}
	if entry.IsUsed {
		return nil, model.ErrCodeAlreadyUsed
	}

	now := time.Now()
	entry.IsUsed = true
	entry.UsedAt = &now
	entry.ParticipantName = &participantName

	return &model.TestSession{
		ID:              uuid.New(),
		InvitationCode:  code,
		ParticipantName: participantName,
		StartTime:       now,
		Status:          model.SessionStatusInProgress,
		CreatedAt:       now,
	}, nil
}

func (f *fakeCodeStore) CreateBatch(ctx context.Context, codes []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, c := range codes {
		if _, exists := f.codes[c]; exists {
			continue
		}
		f.codes[c] = &model.InvitationCode{ID: uuid.New(), Code: c, CreatedAt: time.Now()}
		inserted++
	}
	return inserted, nil
}

func (f *fakeCodeStore) List(ctx context.Context) ([]model.InvitationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.InvitationCode, 0, len(f.codes))
	for _, c := range f.codes {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCodeStore) CountUsage(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	used := 0
	for _, c := range f.codes {
		if c.IsUsed {
			used++
		}
	}
	return len(f.codes), used, nil
}

// ─── Admin store fake ───────────────────────────────────────────────

type fakeAdminStore struct {
	admins map[string]*model.AdminUser
}

func (f *fakeAdminStore) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	admin, ok := f.admins[email]
	if !ok {
		return nil, fmt.Errorf("no admin %s", email)
	}
	return admin, nil
}

func (f *fakeAdminStore) GetByID(ctx context.Context, id uuid.UUID) (*model.AdminUser, error) {
	for _, admin := range f.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, fmt.Errorf("no admin %s", id)
}

// ─── Ranked session fake (dashboard/export) ─────────────────────────

type fakeRankedStore struct {
	sessions []model.TestSession
}

func (f *fakeRankedStore) ListRanked(ctx context.Context) ([]model.TestSession, error) {
	return f.sessions, nil
}
