package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/exam"
	"github.com/selekta/portal-backend/internal/model"
)

var testStart = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

func newExamServiceEnv(t *testing.T) (*ExamSessionService, *fakeSessionStore, *goredis.Client, uuid.UUID, []model.Question) {
	t.Helper()

	pool := testQuestionPool(8)
	questions := &fakeQuestionStore{pool: pool}
	sessions := newFakeSessionStore()
	rdb := testRedis(t)
	cfg := testConfig()

	sid := uuid.New()
	sessions.add(&model.TestSession{
		ID:              sid,
		InvitationCode:  "TES-AAAA1111",
		ParticipantName: "Budi Santoso",
		StartTime:       testStart,
		Status:          model.SessionStatusInProgress,
		CreatedAt:       testStart,
	})

	svc := NewExamSessionService(questions, sessions, rdb, cfg, NewMonitor(rdb, nopLogger()), nopLogger())
	svc.now = func() time.Time { return testStart.Add(time.Minute) }
	return svc, sessions, rdb, sid, pool
}

// answerCorrectly fills every question with its correct letter, using the
// paper order from Start.
func answerCorrectly(t *testing.T, svc *ExamSessionService, sid uuid.UUID, pool []model.Question) {
	t.Helper()

	correctByID := make(map[uuid.UUID]string, len(pool))
	for _, q := range pool {
		correctByID[q.ID] = q.CorrectAnswer
	}

	result, err := svc.Start(context.Background(), sid)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i, q := range result.Paper {
		if err := svc.Answer(context.Background(), sid, i, correctByID[q.ID]); err != nil {
			t.Fatalf("answer %d failed: %v", i, err)
		}
	}
}

func TestStartDrawsAndCountsDown(t *testing.T) {
	svc, _, rdb, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	result, err := svc.Start(ctx, sid)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(result.Paper) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(result.Paper))
	}
	if result.State.State != exam.StateInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", result.State.State)
	}
	if result.State.RemainingSeconds != 3540 {
		t.Fatalf("expected 3540s remaining, got %d", result.State.RemainingSeconds)
	}

	layoutKey := config.CacheKey.SessionLayoutKey(sid.String())
	if exists, _ := rdb.Exists(ctx, layoutKey).Result(); exists != 1 {
		t.Fatal("layout was not cached")
	}

	// A second start resumes the same attempt with the same questions.
	again, err := svc.Start(ctx, sid)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	for i := range result.Paper {
		if again.Paper[i].ID != result.Paper[i].ID {
			t.Fatalf("question order changed on resume at %d", i)
		}
	}
}

func TestAnswersAndFlagsAreMirrored(t *testing.T) {
	svc, _, rdb, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sid); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.Answer(ctx, sid, 0, "B"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if _, err := svc.ToggleFlag(ctx, sid, 2); err != nil {
		t.Fatalf("flag failed: %v", err)
	}

	answersKey := config.CacheKey.SessionAnswersKey(sid.String())
	if got, _ := rdb.HGet(ctx, answersKey, "0").Result(); got != "B" {
		t.Fatalf("expected mirrored answer B, got %q", got)
	}
	flagsKey := config.CacheKey.SessionFlagsKey(sid.String())
	if member, _ := rdb.SIsMember(ctx, flagsKey, "2").Result(); !member {
		t.Fatal("flag was not mirrored")
	}

	// Toggling off removes the mirror entry.
	if _, err := svc.ToggleFlag(ctx, sid, 2); err != nil {
		t.Fatalf("unflag failed: %v", err)
	}
	if member, _ := rdb.SIsMember(ctx, flagsKey, "2").Result(); member {
		t.Fatal("flag mirror not removed")
	}
}

func TestResumeAfterRestart(t *testing.T) {
	svc, sessions, rdb, sid, pool := newExamServiceEnv(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, sid)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.Answer(ctx, sid, 1, "C"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if _, err := svc.ToggleFlag(ctx, sid, 3); err != nil {
		t.Fatalf("flag failed: %v", err)
	}

	// A fresh service instance simulates a process restart sharing Redis.
	restarted := NewExamSessionService(&fakeQuestionStore{pool: pool}, sessions, rdb, testConfig(), NewMonitor(rdb, nopLogger()), nopLogger())
	restarted.now = svc.now

	snap, err := restarted.State(ctx, sid)
	if err != nil {
		t.Fatalf("state after restart failed: %v", err)
	}
	if snap.Answers[1] != "C" {
		t.Fatalf("expected restored answer C, got %q", snap.Answers[1])
	}
	if len(snap.Flags) != 1 || snap.Flags[0] != 3 {
		t.Fatalf("expected restored flag [3], got %v", snap.Flags)
	}

	result, err := restarted.Start(ctx, sid)
	if err != nil {
		t.Fatalf("start after restart failed: %v", err)
	}
	for i := range first.Paper {
		if result.Paper[i].ID != first.Paper[i].ID {
			t.Fatalf("question order changed after restart at %d", i)
		}
	}
}

func TestStateRequiresStartedAttempt(t *testing.T) {
	svc, _, _, sid, _ := newExamServiceEnv(t)

	if _, err := svc.State(context.Background(), sid); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitPersistsAndClearsMirror(t *testing.T) {
	svc, sessions, rdb, sid, pool := newExamServiceEnv(t)
	ctx := context.Background()

	answerCorrectly(t, svc, sid, pool)

	summary, err := svc.Submit(ctx, sid, false)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if summary.Score != 100 || summary.CorrectCount != 5 {
		t.Fatalf("expected 5 correct score 100, got %d/%d", summary.CorrectCount, summary.Score)
	}
	if summary.Status != model.SessionStatusCompleted {
		t.Fatalf("expected completed, got %s", summary.Status)
	}
	if summary.DurationSeconds != 60 {
		t.Fatalf("expected duration 60s, got %d", summary.DurationSeconds)
	}

	res, ok := sessions.submitted[sid]
	if !ok || len(res.Records) != 5 {
		t.Fatalf("result not persisted: %+v", res)
	}

	for _, key := range []string{
		config.CacheKey.SessionStartKey(sid.String()),
		config.CacheKey.SessionAnswersKey(sid.String()),
		config.CacheKey.SessionFlagsKey(sid.String()),
		config.CacheKey.SessionLayoutKey(sid.String()),
	} {
		if exists, _ := rdb.Exists(ctx, key).Result(); exists != 0 {
			t.Fatalf("key %s not cleared after submit", key)
		}
	}

	// A second submit must not produce a second result.
	if _, err := svc.Submit(ctx, sid, false); !errors.Is(err, exam.ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
}

func TestSubmitIncompleteRejected(t *testing.T) {
	svc, _, _, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sid); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.Answer(ctx, sid, 0, "A"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if _, err := svc.Submit(ctx, sid, false); !errors.Is(err, exam.ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
	// Force before the deadline must not bypass the gate either.
	if _, err := svc.Submit(ctx, sid, true); !errors.Is(err, exam.ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
}

func TestForcedSubmitAfterDeadline(t *testing.T) {
	svc, sessions, _, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sid); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.Answer(ctx, sid, 0, "A"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	svc.now = func() time.Time { return testStart.Add(3601 * time.Second) }

	summary, err := svc.Submit(ctx, sid, true)
	if err != nil {
		t.Fatalf("forced submit failed: %v", err)
	}
	if summary.TotalQuestions != 5 {
		t.Fatalf("expected 5 total, got %d", summary.TotalQuestions)
	}
	if summary.DurationSeconds != 3600 {
		t.Fatalf("expected duration capped at 3600, got %d", summary.DurationSeconds)
	}
	if sessions.sessions[sid].Status != model.SessionStatusCompleted {
		t.Fatalf("session not completed: %s", sessions.sessions[sid].Status)
	}
}

func TestPersistFailureSurfacesDistinctly(t *testing.T) {
	svc, sessions, _, sid, pool := newExamServiceEnv(t)
	ctx := context.Background()

	answerCorrectly(t, svc, sid, pool)
	sessions.submitErr = errors.New("connection refused")

	if _, err := svc.Submit(ctx, sid, false); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	// The attempt is not silently resumable after a failed persist, and
	// follow-up actions report the failure, not a completion.
	if err := svc.Answer(ctx, sid, 0, "A"); !errors.Is(err, exam.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if _, err := svc.Submit(ctx, sid, false); !errors.Is(err, exam.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, sessions, _, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sid); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Within grace: nothing to expire yet.
	svc.now = func() time.Time { return testStart.Add(3600*time.Second + time.Minute) }
	if n, err := svc.ExpireOverdue(ctx); err != nil || n != 0 {
		t.Fatalf("expected no expiry within grace, got %d %v", n, err)
	}

	// Past deadline plus grace: the sweep marks it expired.
	svc.now = func() time.Time { return testStart.Add(3600*time.Second + 121*time.Second) }
	n, err := svc.ExpireOverdue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 expired, got %d %v", n, err)
	}
	if sessions.sessions[sid].Status != model.SessionStatusExpired {
		t.Fatalf("session not expired: %s", sessions.sessions[sid].Status)
	}

	if _, err := svc.State(ctx, sid); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// The sweep is idempotent.
	if n, err := svc.ExpireOverdue(ctx); err != nil || n != 0 {
		t.Fatalf("expected idempotent sweep, got %d %v", n, err)
	}
}

func TestDrawRaceKeepsMirroredLayout(t *testing.T) {
	svc, _, rdb, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	// Two starts racing past the registry both draw; the mirrored layout
	// must stay the first one so a restart rebuilds the paper in memory.
	first, err := svc.draw(ctx, sid)
	if err != nil {
		t.Fatalf("first draw failed: %v", err)
	}
	stored, err := rdb.Get(ctx, config.CacheKey.SessionLayoutKey(sid.String())).Result()
	if err != nil {
		t.Fatalf("layout not mirrored: %v", err)
	}

	second, err := svc.draw(ctx, sid)
	if err != nil {
		t.Fatalf("second draw failed: %v", err)
	}

	if len(second) != len(first) {
		t.Fatalf("expected %d questions, got %d", len(first), len(second))
	}
	for i := range first {
		if second[i].Question.ID != first[i].Question.ID {
			t.Fatalf("question %d diverged from the mirrored layout", i)
		}
		for j := range first[i].Options {
			if second[i].Options[j].Letter != first[i].Options[j].Letter {
				t.Fatalf("question %d option order diverged", i)
			}
		}
	}

	after, err := rdb.Get(ctx, config.CacheKey.SessionLayoutKey(sid.String())).Result()
	if err != nil {
		t.Fatalf("layout gone after second draw: %v", err)
	}
	if after != stored {
		t.Fatal("second draw overwrote the mirrored layout")
	}
}

func TestStartOnFinishedSession(t *testing.T) {
	svc, sessions, _, sid, _ := newExamServiceEnv(t)
	ctx := context.Background()

	sessions.sessions[sid].Status = model.SessionStatusCompleted
	if _, err := svc.Start(ctx, sid); !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}

	if _, err := svc.Start(ctx, uuid.New()); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStartWithThinBank(t *testing.T) {
	pool := testQuestionPool(4) // one short of the configured 5
	sessions := newFakeSessionStore()
	rdb := testRedis(t)

	sid := uuid.New()
	sessions.add(&model.TestSession{
		ID:        sid,
		StartTime: testStart,
		Status:    model.SessionStatusInProgress,
	})

	svc := NewExamSessionService(&fakeQuestionStore{pool: pool}, sessions, rdb, testConfig(), NewMonitor(rdb, nopLogger()), nopLogger())
	svc.now = func() time.Time { return testStart }

	if _, err := svc.Start(context.Background(), sid); !errors.Is(err, exam.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
}
