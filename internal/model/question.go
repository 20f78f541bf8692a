package model

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty represents a question's difficulty label.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "mudah"
	DifficultyMedium Difficulty = "sedang"
	DifficultyHard   Difficulty = "sulit"
)

// Letters are the valid option labels, in canonical order.
var Letters = []string{"A", "B", "C", "D"}

// Question represents a single bank question. Immutable from the exam
// engine's perspective.
type Question struct {
	ID            uuid.UUID  `json:"id"`
	QuestionText  string     `json:"question_text"`
	OptionA       string     `json:"option_a"`
	OptionB       string     `json:"option_b"`
	OptionC       string     `json:"option_c"`
	OptionD       string     `json:"option_d"`
	CorrectAnswer string     `json:"correct_answer"`
	Category      string     `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Option pairs an option's original letter with its text. Display order may
// be shuffled, but the letter stays attached to its text so scoring is
// always letter-based.
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Options returns the four options in canonical A–D order.
func (q *Question) Options() []Option {
	return []Option{
		{Letter: "A", Text: q.OptionA},
		{Letter: "B", Text: q.OptionB},
		{Letter: "C", Text: q.OptionC},
		{Letter: "D", Text: q.OptionD},
	}
}

// QuestionForParticipant is a drawn question as served to the participant:
// shuffled option order, no correct answer.
type QuestionForParticipant struct {
	ID           uuid.UUID `json:"id"`
	Number       int       `json:"number"`
	QuestionText string    `json:"question_text"`
	Options      []Option  `json:"options"`
}
