package exam_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/selekta/portal-backend/internal/exam"
)

var testConfig = exam.Config{QuestionCount: 30, Duration: 3600 * time.Second}

// newRunningSession draws 30 questions from a 40-question pool and returns
// the session in IN_PROGRESS together with its start time.
func newRunningSession(t *testing.T) (*exam.Session, time.Time) {
	t.Helper()

	start := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	drawn, err := exam.Draw(makePool(40), testConfig.QuestionCount, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	s := exam.NewSession(exam.Handle{
		SessionID:       uuid.New(),
		Code:            "TES-ABCD1234",
		ParticipantName: "Budi Santoso",
		StartTime:       start,
	}, testConfig)
	if err := s.Load(drawn); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return s, start
}

// answerAll records the correct letter for every question.
func answerAll(t *testing.T, s *exam.Session) {
	t.Helper()
	for i, d := range s.Questions() {
		if err := s.SelectAnswer(i, d.Question.CorrectAnswer); err != nil {
			t.Fatalf("answer %d failed: %v", i, err)
		}
	}
}

func TestLoadRequiresExactCount(t *testing.T) {
	drawn, _ := exam.Draw(makePool(40), 29, rand.New(rand.NewSource(12)))
	s := exam.NewSession(exam.Handle{SessionID: uuid.New(), StartTime: time.Now()}, testConfig)
	if err := s.Load(drawn); err != exam.ErrQuestionCount {
		t.Fatalf("expected ErrQuestionCount, got %v", err)
	}
}

func TestAnswerValidation(t *testing.T) {
	s, _ := newRunningSession(t)

	if err := s.SelectAnswer(0, "A"); err != nil {
		t.Fatalf("valid answer rejected: %v", err)
	}
	if err := s.SelectAnswer(0, "E"); err != exam.ErrInvalidAnswer {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}
	if err := s.SelectAnswer(30, "A"); err != exam.ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := s.SelectAnswer(-1, "A"); err != exam.ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestAnswerCanBeChanged(t *testing.T) {
	s, start := newRunningSession(t)

	if err := s.SelectAnswer(3, "A"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if err := s.SelectAnswer(3, "D"); err != nil {
		t.Fatalf("re-answer failed: %v", err)
	}

	snap := s.Snapshot(start)
	if snap.Answers[3] != "D" {
		t.Fatalf("expected answer D, got %q", snap.Answers[3])
	}
	if snap.AnsweredCount != 1 {
		t.Fatalf("expected 1 answered, got %d", snap.AnsweredCount)
	}
}

func TestToggleFlag(t *testing.T) {
	s, start := newRunningSession(t)

	flagged, err := s.ToggleFlag(5)
	if err != nil || !flagged {
		t.Fatalf("expected flag on, got %v %v", flagged, err)
	}
	flagged, err = s.ToggleFlag(5)
	if err != nil || flagged {
		t.Fatalf("expected flag off, got %v %v", flagged, err)
	}

	s.ToggleFlag(2)
	s.ToggleFlag(7)
	snap := s.Snapshot(start)
	if len(snap.Flags) != 2 || snap.Flags[0] != 2 || snap.Flags[1] != 7 {
		t.Fatalf("expected flags [2 7], got %v", snap.Flags)
	}
}

func TestNavigationClamps(t *testing.T) {
	s, start := newRunningSession(t)

	s.Prev()
	if snap := s.Snapshot(start); snap.CurrentIndex != 0 {
		t.Fatalf("prev below zero, index %d", snap.CurrentIndex)
	}

	if err := s.SetPosition(29); err != nil {
		t.Fatalf("set position failed: %v", err)
	}
	s.Next()
	if snap := s.Snapshot(start); snap.CurrentIndex != 29 {
		t.Fatalf("next beyond last, index %d", snap.CurrentIndex)
	}

	if err := s.SetPosition(30); err != exam.ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestSnapshotCountdownAlerts(t *testing.T) {
	s, start := newRunningSession(t)

	cases := []struct {
		elapsed   time.Duration
		remaining int
		alert     string
	}{
		{0, 3600, ""},
		{2999 * time.Second, 601, ""},
		{3000 * time.Second, 600, "warning"},
		{3300 * time.Second, 300, "danger"},
		{4000 * time.Second, 0, "danger"},
	}
	for _, tc := range cases {
		snap := s.Snapshot(start.Add(tc.elapsed))
		if snap.RemainingSeconds != tc.remaining {
			t.Fatalf("elapsed %v: expected remaining %d, got %d", tc.elapsed, tc.remaining, snap.RemainingSeconds)
		}
		if snap.Alert != tc.alert {
			t.Fatalf("elapsed %v: expected alert %q, got %q", tc.elapsed, tc.alert, snap.Alert)
		}
	}
}

func TestSubmitIncompleteRejected(t *testing.T) {
	s, start := newRunningSession(t)
	s.SelectAnswer(0, "A")

	if _, err := s.Submit(start.Add(time.Minute), false); err != exam.ErrIncompleteAnswers {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
	if s.State() != exam.StateInProgress {
		t.Fatalf("rejected submit changed state to %s", s.State())
	}
}

func TestForceBeforeDeadlineIsDemoted(t *testing.T) {
	s, start := newRunningSession(t)
	s.SelectAnswer(0, "A")

	// Deadline has not passed, so force must not bypass the gate.
	if _, err := s.Submit(start.Add(time.Minute), true); err != exam.ErrIncompleteAnswers {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
}

func TestSubmitAllCorrect(t *testing.T) {
	s, start := newRunningSession(t)
	answerAll(t, s)

	res, err := s.Submit(start.Add(1200*time.Second), false)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Score != 100 || res.CorrectCount != 30 {
		t.Fatalf("expected 30 correct score 100, got %d correct score %d", res.CorrectCount, res.Score)
	}
	if res.DurationSeconds != 1200 {
		t.Fatalf("expected duration 1200, got %d", res.DurationSeconds)
	}
	if len(res.Records) != 30 {
		t.Fatalf("expected 30 records, got %d", len(res.Records))
	}
	for i, rec := range res.Records {
		if rec.Selected == nil || !rec.Correct {
			t.Fatalf("record %d not correct: %+v", i, rec)
		}
	}
}

func TestTimeoutForceScoresUnansweredAsWrong(t *testing.T) {
	s, start := newRunningSession(t)

	// Answer the first 10 correctly, leave 20 blank.
	questions := s.Questions()
	for i := 0; i < 10; i++ {
		if err := s.SelectAnswer(i, questions[i].Question.CorrectAnswer); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
	}

	res, err := s.Submit(start.Add(3601*time.Second), true)
	if err != nil {
		t.Fatalf("forced submit failed: %v", err)
	}
	if res.CorrectCount != 10 {
		t.Fatalf("expected 10 correct, got %d", res.CorrectCount)
	}
	// round(10/30*100) = 33
	if res.Score != 33 {
		t.Fatalf("expected score 33, got %d", res.Score)
	}
	if res.DurationSeconds != 3600 {
		t.Fatalf("expected duration capped at 3600, got %d", res.DurationSeconds)
	}

	blank := 0
	for _, rec := range res.Records {
		if rec.Selected == nil {
			blank++
			if rec.Correct {
				t.Fatal("unanswered question scored as correct")
			}
		}
	}
	if blank != 20 {
		t.Fatalf("expected 20 blank records, got %d", blank)
	}
}

func TestScoringIsLetterBasedUnderShuffledOptions(t *testing.T) {
	s, _ := newRunningSession(t)

	// The displayed option order is shuffled per question, but answering with
	// the question's correct letter must always score, regardless of where
	// that option appears.
	for i, d := range s.Questions() {
		pos := -1
		for j, o := range d.Options {
			if o.Letter == d.Question.CorrectAnswer {
				pos = j
				break
			}
		}
		if pos == -1 {
			t.Fatalf("question %d lost its correct option in the shuffle", i)
		}
		if err := s.SelectAnswer(i, d.Options[pos].Letter); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
	}

	res, err := s.Submit(s.Handle().StartTime.Add(time.Hour/2), false)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Score != 100 {
		t.Fatalf("expected score 100, got %d", res.Score)
	}
}

func TestDoubleSubmitLosesRace(t *testing.T) {
	s, start := newRunningSession(t)
	answerAll(t, s)

	if _, err := s.Submit(start.Add(time.Minute), false); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := s.Submit(start.Add(2*time.Minute), false); err != exam.ErrNotInProgress {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	s, start := newRunningSession(t)
	answerAll(t, s)

	if _, err := s.Submit(start.Add(time.Minute), false); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := s.MarkCompleted(); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	if err := s.SelectAnswer(0, "A"); err != exam.ErrNotInProgress {
		t.Fatalf("expected ErrNotInProgress after completion, got %v", err)
	}
	if _, err := s.ToggleFlag(0); err != exam.ErrNotInProgress {
		t.Fatalf("expected ErrNotInProgress after completion, got %v", err)
	}
	if err := s.MarkExpired(); err != exam.ErrNotInProgress {
		t.Fatalf("completed session must not expire, got %v", err)
	}
}

func TestPersistFailureLandsInFailed(t *testing.T) {
	s, start := newRunningSession(t)
	answerAll(t, s)

	if _, err := s.Submit(start.Add(time.Minute), false); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := s.MarkFailed(); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if s.State() != exam.StateFailed {
		t.Fatalf("expected FAILED, got %s", s.State())
	}
	// Failed is terminal.
	if err := s.MarkCompleted(); err != exam.ErrNotSubmitting {
		t.Fatalf("expected ErrNotSubmitting, got %v", err)
	}

	// Operations against the failed attempt surface the lost result
	// distinctly from a completed one.
	if err := s.SelectAnswer(0, "A"); err != exam.ErrFailed {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if _, err := s.ToggleFlag(0); err != exam.ErrFailed {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if _, err := s.Submit(start.Add(2*time.Minute), false); err != exam.ErrFailed {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
}

func TestMarkExpired(t *testing.T) {
	s, _ := newRunningSession(t)

	if err := s.MarkExpired(); err != nil {
		t.Fatalf("mark expired failed: %v", err)
	}
	if s.State() != exam.StateExpired {
		t.Fatalf("expected EXPIRED, got %s", s.State())
	}
	if _, err := s.Submit(time.Now(), true); err != exam.ErrNotInProgress {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
}

func TestRestoreDropsInvalidEntries(t *testing.T) {
	s, start := newRunningSession(t)

	s.RestoreAnswers(map[int]string{
		0:  "A",
		5:  "C",
		30: "B", // out of range
		-1: "A", // out of range
		7:  "X", // invalid letter
	})
	s.RestoreFlags([]int{1, 29, 30, -2})

	snap := s.Snapshot(start)
	if snap.AnsweredCount != 2 {
		t.Fatalf("expected 2 restored answers, got %d", snap.AnsweredCount)
	}
	if len(snap.Flags) != 2 {
		t.Fatalf("expected 2 restored flags, got %v", snap.Flags)
	}
}

func TestPaperHidesCorrectAnswers(t *testing.T) {
	s, _ := newRunningSession(t)

	paper := s.Paper()
	if len(paper) != 30 {
		t.Fatalf("expected 30 questions, got %d", len(paper))
	}
	for i, q := range paper {
		if q.Number != i+1 {
			t.Fatalf("question %d numbered %d", i, q.Number)
		}
		if len(q.Options) != 4 {
			t.Fatalf("question %d has %d options", i, len(q.Options))
		}
	}
}
