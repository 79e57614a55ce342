package questions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// The built-in fallback bank. It is deterministic: every interview that
// falls back to it gets exactly this set, in this order.
var defaultBank = []models.Question{
	{ID: "q1", Difficulty: models.DifficultyEasy, Text: "What is JSX in React?", TimeLimit: 20},
	{ID: "q2", Difficulty: models.DifficultyEasy, Text: "Difference between let and var in JavaScript?", TimeLimit: 20},
	{ID: "q3", Difficulty: models.DifficultyMedium, Text: "Explain the Virtual DOM in React and how reconciliation works.", TimeLimit: 60},
	{ID: "q4", Difficulty: models.DifficultyMedium, Text: "How do you design RESTful APIs in Node.js? Give an example flow.", TimeLimit: 60},
	{ID: "q5", Difficulty: models.DifficultyHard, Text: "How would you optimize a Node.js application handling heavy I/O and CPU-bound tasks?", TimeLimit: 120},
	{ID: "q6", Difficulty: models.DifficultyHard, Text: "Explain tradeoffs of SSR vs CSR vs ISR for a React app and when you'd choose each.", TimeLimit: 120},
}

// DefaultBank returns a copy of the built-in fallback question set
func DefaultBank() []models.Question {
	return cloneSet(defaultBank)
}

type bankFile struct {
	Questions []models.Question `yaml:"questions"`
}

// LoadBank loads a question bank from a YAML file. The file must
// contain a valid 6-question set (see ValidateSet); anything else is an
// error so a broken override never silently replaces the built-in bank.
func LoadBank(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var bf bankFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse question bank YAML: %w", err)
	}

	if err := ValidateSet(bf.Questions); err != nil {
		return nil, fmt.Errorf("invalid question bank %s: %w", path, err)
	}

	return bf.Questions, nil
}

// ValidateSet checks the shape every interview set must have: exactly
// 6 questions, 2 per tier, difficulty non-decreasing across the
// sequence, positive time limits, non-empty ids and texts.
func ValidateSet(set []models.Question) error {
	if len(set) != models.QuestionCount {
		return fmt.Errorf("expected %d questions, got %d", models.QuestionCount, len(set))
	}

	counts := map[models.Difficulty]int{}
	prevRank := -1

	for i, q := range set {
		if q.ID == "" {
			return fmt.Errorf("question %d has no id", i)
		}
		if q.Text == "" {
			return fmt.Errorf("question %s has no text", q.ID)
		}
		if !q.Difficulty.Valid() {
			return fmt.Errorf("question %s has unknown difficulty %q", q.ID, q.Difficulty)
		}
		if q.TimeLimit <= 0 {
			return fmt.Errorf("question %s has non-positive time limit %d", q.ID, q.TimeLimit)
		}

		rank := q.Difficulty.Rank()
		if rank < prevRank {
			return fmt.Errorf("difficulty must be non-decreasing: %s at position %d breaks the order", q.Difficulty, i)
		}
		prevRank = rank
		counts[q.Difficulty]++
	}

	for _, d := range []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		if counts[d] != 2 {
			return fmt.Errorf("expected 2 %s questions, got %d", d, counts[d])
		}
	}

	return nil
}

// cloneSet deep-copies a question set so each session owns its answers
func cloneSet(set []models.Question) []models.Question {
	out := make([]models.Question, len(set))
	copy(out, set)
	return out
}
