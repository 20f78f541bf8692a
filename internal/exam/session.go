// Package exam implements the timed exam session engine: question draw,
// answer and flag bookkeeping, countdown, the submission gate, and scoring.
// The engine is pure in-memory state behind explicit transitions; all I/O
// (persistence, transport) lives with the callers.
package exam

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/selekta/portal-backend/internal/model"
)

// State enumerates the engine's lifecycle states.
type State string

const (
	// StateLoading is the initial state while questions are being drawn.
	StateLoading State = "LOADING"
	// StateInProgress means the countdown is running and navigation,
	// answering, and flagging are enabled.
	StateInProgress State = "IN_PROGRESS"
	// StateSubmitting means a submission has been accepted and its writes
	// are in flight. Exactly one transition into this state is possible.
	StateSubmitting State = "SUBMITTING"
	// StateCompleted is terminal: the result was persisted.
	StateCompleted State = "COMPLETED"
	// StateExpired is terminal: the deadline passed without a submission.
	StateExpired State = "EXPIRED"
	// StateFailed is terminal: persistence failed mid-submit. The attempt
	// is lost from the participant's perspective and must be surfaced
	// distinctly from normal completion.
	StateFailed State = "FAILED"
)

// Engine errors.
var (
	ErrNotLoading        = errors.New("session is not loading")
	ErrNotInProgress     = errors.New("session is not in progress")
	ErrFailed            = errors.New("session failed during result persistence")
	ErrNotSubmitting     = errors.New("session is not submitting")
	ErrIndexOutOfRange   = errors.New("question index out of range")
	ErrInvalidAnswer     = errors.New("answer must be one of A, B, C, D")
	ErrIncompleteAnswers = errors.New("not all questions are answered")
	ErrQuestionCount     = errors.New("drawn question count does not match the configured exam length")
)

// Config fixes the shape of one attempt.
type Config struct {
	QuestionCount int
	Duration      time.Duration
}

// Handle identifies the persisted session an engine instance belongs to.
type Handle struct {
	SessionID       uuid.UUID
	Code            string
	ParticipantName string
	StartTime       time.Time
}

// AnswerEntry is one scored answer produced at submission, in original draw
// order. Selected is nil for unanswered questions (timeout path only).
type AnswerEntry struct {
	QuestionID uuid.UUID
	Selected   *string
	Correct    bool
}

// Result is the outcome of an accepted submission.
type Result struct {
	CorrectCount    int
	Score           int
	DurationSeconds int
	SubmittedAt     time.Time
	Records         []AnswerEntry
}

// Snapshot is a read-only view of the live session for the state endpoint.
type Snapshot struct {
	State            State          `json:"state"`
	CurrentIndex     int            `json:"current_index"`
	Answers          map[int]string `json:"answers"`
	Flags            []int          `json:"flags"`
	AnsweredCount    int            `json:"answered_count"`
	TotalQuestions   int            `json:"total_questions"`
	RemainingSeconds int            `json:"remaining_seconds"`
	// Alert is the presentation-only countdown threshold:
	// "" above 600s, "warning" at or below 600s, "danger" at or below 300s.
	Alert string `json:"alert"`
}

const (
	warningThreshold = 600 * time.Second
	dangerThreshold  = 300 * time.Second
)

// Session owns the ephemeral state of one exam attempt. All methods are safe
// for concurrent use; the internal mutex also guarantees that only one of
// the two competing submit paths (participant action vs. timeout) wins.
type Session struct {
	mu sync.Mutex

	handle    Handle
	cfg       Config
	state     State
	questions []Drawn
	answers   map[int]string
	flags     map[int]bool
	current   int
}

// NewSession creates an engine instance in StateLoading for the given
// persisted session handle.
func NewSession(handle Handle, cfg Config) *Session {
	return &Session{
		handle:  handle,
		cfg:     cfg,
		state:   StateLoading,
		answers: make(map[int]string),
		flags:   make(map[int]bool),
	}
}

// Load attaches the drawn question set and moves Loading → InProgress.
func (s *Session) Load(drawn []Drawn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return ErrNotLoading
	}
	if len(drawn) != s.cfg.QuestionCount {
		return ErrQuestionCount
	}

	s.questions = drawn
	s.state = StateInProgress
	return nil
}

// Handle returns the session handle.
func (s *Session) Handle() Handle { return s.handle }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Questions returns the drawn set. The slice must not be mutated.
func (s *Session) Questions() []Drawn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// Paper renders the drawn set for the participant, without correct answers.
func (s *Session) Paper() []model.QuestionForParticipant {
	s.mu.Lock()
	defer s.mu.Unlock()

	paper := make([]model.QuestionForParticipant, len(s.questions))
	for i, d := range s.questions {
		paper[i] = model.QuestionForParticipant{
			ID:           d.Question.ID,
			Number:       i + 1,
			QuestionText: d.Question.QuestionText,
			Options:      d.Options,
		}
	}
	return paper
}

// SelectAnswer records the chosen letter for a question index. A choice may
// be changed any number of times until submission.
func (s *Session) SelectAnswer(index int, letter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return s.notRunningErr()
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	if !validLetter(letter) {
		return ErrInvalidAnswer
	}

	s.answers[index] = letter
	return nil
}

// ToggleFlag flips the review flag for a question index and reports the new
// value. Flags never affect scoring, gating, or navigation.
func (s *Session) ToggleFlag(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return false, s.notRunningErr()
	}
	if index < 0 || index >= len(s.questions) {
		return false, ErrIndexOutOfRange
	}

	if s.flags[index] {
		delete(s.flags, index)
		return false, nil
	}
	s.flags[index] = true
	return true, nil
}

// SetPosition moves the current question index (jump navigation).
func (s *Session) SetPosition(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return s.notRunningErr()
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}

	s.current = index
	return nil
}

// Next advances the current index by one, clamped to the last question.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < len(s.questions)-1 {
		s.current++
	}
}

// Prev moves the current index back by one, clamped to the first question.
func (s *Session) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
}

// Remaining returns the countdown value at the given instant, clamped at 0.
func (s *Session) Remaining(now time.Time) time.Duration {
	deadline := s.handle.StartTime.Add(s.cfg.Duration)
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AllAnswered reports whether every question index has a recorded choice.
func (s *Session) AllAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers) == len(s.questions)
}

// Snapshot captures the live state for the participant's state endpoint.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[int]string, len(s.answers))
	for i, a := range s.answers {
		answers[i] = a
	}

	flags := make([]int, 0, len(s.flags))
	for i := range s.flags {
		flags = append(flags, i)
	}
	sort.Ints(flags)

	remaining := s.Remaining(now)

	alert := ""
	if remaining <= dangerThreshold {
		alert = "danger"
	} else if remaining <= warningThreshold {
		alert = "warning"
	}

	return Snapshot{
		State:            s.state,
		CurrentIndex:     s.current,
		Answers:          answers,
		Flags:            flags,
		AnsweredCount:    len(s.answers),
		TotalQuestions:   len(s.questions),
		RemainingSeconds: int(remaining / time.Second),
		Alert:            alert,
	}
}

// Submit attempts the InProgress → Submitting transition and scores the
// attempt. A forced submission is honored only once the deadline has passed;
// it then bypasses the completeness gate and unanswered questions score as
// incorrect. A manual submission with unanswered questions is rejected with
// ErrIncompleteAnswers and the state is left unchanged.
//
// On success the session is in StateSubmitting; the caller persists the
// result and settles the state with MarkCompleted or MarkFailed.
func (s *Session) Submit(now time.Time, force bool) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return nil, s.notRunningErr()
	}

	remaining := s.Remaining(now)
	if force && remaining > 0 {
		force = false
	}
	if !force && len(s.answers) < len(s.questions) {
		return nil, ErrIncompleteAnswers
	}

	s.state = StateSubmitting

	correct := 0
	records := make([]AnswerEntry, len(s.questions))
	for i, d := range s.questions {
		entry := AnswerEntry{QuestionID: d.Question.ID}
		if letter, ok := s.answers[i]; ok {
			selected := letter
			entry.Selected = &selected
			entry.Correct = letter == d.Question.CorrectAnswer
		}
		if entry.Correct {
			correct++
		}
		records[i] = entry
	}

	total := len(s.questions)
	score := int(math.Round(float64(correct) / float64(total) * 100))

	return &Result{
		CorrectCount:    correct,
		Score:           score,
		DurationSeconds: int(s.cfg.Duration/time.Second) - int(remaining/time.Second),
		SubmittedAt:     now,
		Records:         records,
	}, nil
}

// MarkCompleted settles Submitting → Completed after a successful persist.
func (s *Session) MarkCompleted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return ErrNotSubmitting
	}
	s.state = StateCompleted
	return nil
}

// MarkFailed settles Submitting → Failed after a persistence error. The
// state is deliberately not rolled back to InProgress.
func (s *Session) MarkFailed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return ErrNotSubmitting
	}
	s.state = StateFailed
	return nil
}

// MarkExpired forces a non-terminal session to Expired. Used by the sweep
// when the deadline plus grace passed without a submission.
func (s *Session) MarkExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading && s.state != StateInProgress {
		return ErrNotInProgress
	}
	s.state = StateExpired
	return nil
}

// RestoreAnswers reloads previously mirrored answers, e.g. after a process
// restart. Entries with invalid indices or letters are dropped.
func (s *Session) RestoreAnswers(answers map[int]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, letter := range answers {
		if i < 0 || i >= len(s.questions) || !validLetter(letter) {
			continue
		}
		s.answers[i] = letter
	}
}

// RestoreFlags reloads previously mirrored review flags.
func (s *Session) RestoreFlags(indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range indices {
		if i < 0 || i >= len(s.questions) {
			continue
		}
		s.flags[i] = true
	}
}

// notRunningErr is the guard error for operations that need a live attempt.
// A Failed attempt reports ErrFailed so callers never present a lost result
// as a completed one. Callers must hold s.mu.
func (s *Session) notRunningErr() error {
	if s.state == StateFailed {
		return ErrFailed
	}
	return ErrNotInProgress
}

func validLetter(letter string) bool {
	for _, l := range model.Letters {
		if l == letter {
			return true
		}
	}
	return false
}
