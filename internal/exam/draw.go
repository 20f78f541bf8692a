package exam

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/selekta/portal-backend/internal/model"
)

// ErrInsufficientQuestions is returned when the question bank cannot cover
// one full attempt.
var ErrInsufficientQuestions = errors.New("not enough questions in the bank")

// Drawn is one selected question together with its shuffled option order.
// The options are a permutation of the question's four canonical options;
// each entry keeps its original letter so correctness stays letter-based.
type Drawn struct {
	Question model.Question
	Options  []model.Option
}

// QuestionLayout is the serializable shape of a Drawn entry, cached so an
// attempt can be rebuilt with the same questions and option order after a
// process restart.
type QuestionLayout struct {
	QuestionID  uuid.UUID `json:"question_id"`
	OptionOrder []string  `json:"option_order"`
}

// Draw selects exactly n distinct questions from pool using a uniform
// partial Fisher–Yates shuffle, then shuffles each question's options the
// same way. The pool is not mutated.
func Draw(pool []model.Question, n int, rng *rand.Rand) ([]Drawn, error) {
	if len(pool) < n {
		return nil, ErrInsufficientQuestions
	}

	picked := make([]model.Question, len(pool))
	copy(picked, pool)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}

	drawn := make([]Drawn, n)
	for i := 0; i < n; i++ {
		drawn[i] = Drawn{
			Question: picked[i],
			Options:  shuffleOptions(picked[i].Options(), rng),
		}
	}
	return drawn, nil
}

func shuffleOptions(opts []model.Option, rng *rand.Rand) []model.Option {
	shuffled := make([]model.Option, len(opts))
	copy(shuffled, opts)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// Layout extracts the serializable layout of a drawn set.
func Layout(drawn []Drawn) []QuestionLayout {
	layout := make([]QuestionLayout, len(drawn))
	for i, d := range drawn {
		order := make([]string, len(d.Options))
		for j, o := range d.Options {
			order[j] = o.Letter
		}
		layout[i] = QuestionLayout{QuestionID: d.Question.ID, OptionOrder: order}
	}
	return layout
}

// Rebuild reconstructs a drawn set from a cached layout and the referenced
// bank questions. Question order and option order follow the layout exactly.
func Rebuild(questions []model.Question, layout []QuestionLayout) ([]Drawn, error) {
	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	drawn := make([]Drawn, len(layout))
	for i, l := range layout {
		q, ok := byID[l.QuestionID]
		if !ok {
			return nil, fmt.Errorf("rebuild: question %s missing from bank", l.QuestionID)
		}

		byLetter := make(map[string]model.Option, 4)
		for _, o := range q.Options() {
			byLetter[o.Letter] = o
		}

		opts := make([]model.Option, 0, len(l.OptionOrder))
		for _, letter := range l.OptionOrder {
			o, ok := byLetter[letter]
			if !ok {
				return nil, fmt.Errorf("rebuild: question %s has no option %q", l.QuestionID, letter)
			}
			opts = append(opts, o)
		}
		drawn[i] = Drawn{Question: q, Options: opts}
	}
	return drawn, nil
}
