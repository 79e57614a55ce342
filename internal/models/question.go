package models

import (
	"time"
)

// Difficulty represents the difficulty tier of a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid returns true if the difficulty is one of the known tiers
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Rank returns the ordering rank of the tier (easy < medium < hard)
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return -1
	}
}

// NoAnswerSentinel is recorded as the answer text when a question is
// submitted blank (user submit with empty input, or timer expiry).
const NoAnswerSentinel = "No answer provided"

// Question is one interview question together with the candidate's
// recorded answer. Question fields (text, difficulty, time limit) are
// immutable once the set is attached to a session; answer fields are
// written exactly once, at submission time.
type Question struct {
	ID         string     `json:"id" yaml:"id"`
	Text       string     `json:"text" yaml:"text"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	TimeLimit  int        `json:"time_limit" yaml:"time_limit"` // seconds

	Answer     string     `json:"answer,omitempty" yaml:"-"`
	TimeSpent  float64    `json:"time_spent,omitempty" yaml:"-"` // seconds
	Score      *int       `json:"score,omitempty" yaml:"-"`      // 0-10, set once evaluated
	Feedback   string     `json:"feedback,omitempty" yaml:"-"`
	AnsweredAt *time.Time `json:"answered_at,omitempty" yaml:"-"`
}

// Answered returns true if an answer has been recorded for this question
func (q *Question) Answered() bool {
	return q.AnsweredAt != nil
}

// Scored returns true if the question has an evaluated score
func (q *Question) Scored() bool {
	return q.Score != nil
}
