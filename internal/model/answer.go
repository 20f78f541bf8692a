package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is one scored answer, written once per drawn question at
// submission time and never mutated. SelectedAnswer is nil for questions
// left unanswered on the timeout path.
type AnswerRecord struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedAnswer *string   `json:"selected_answer,omitempty"`
	IsCorrect      bool      `json:"is_correct"`
	AnsweredAt     time.Time `json:"answered_at"`
}
