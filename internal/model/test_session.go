package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates test session states as stored.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusExpired    SessionStatus = "expired"
)

// TestSession represents one participant's test attempt.
// A session transitions in_progress → completed exactly once, at submission.
// Abandoned sessions are swept to expired by a background worker.
type TestSession struct {
	ID              uuid.UUID     `json:"id"`
	InvitationCode  string        `json:"invitation_code"`
	ParticipantName string        `json:"participant_name"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         *time.Time    `json:"end_time,omitempty"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
	Score           *int          `json:"score,omitempty"`
	TotalQuestions  *int          `json:"total_questions,omitempty"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}

// SubmitRequest is the payload for submitting a test.
// Force is set by the client when the countdown reached zero; the server
// only honors it once its own clock agrees.
type SubmitRequest struct {
	Force bool `json:"force"`
}

// AnswerRequest is the payload for selecting an answer.
type AnswerRequest struct {
	Index  int    `json:"index" binding:"min=0"`
	Answer string `json:"answer" binding:"required,oneof=A B C D"`
}

// FlagRequest is the payload for toggling a review flag.
type FlagRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// PositionRequest is the payload for jump navigation.
type PositionRequest struct {
	Index int `json:"index" binding:"min=0"`
}
