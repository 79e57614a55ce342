package questions

import (
	"context"
	"log/slog"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// Generator produces a question set for a role. Implemented by the
// evaluator client; failures are expected and handled here.
type Generator interface {
	GenerateQuestions(ctx context.Context, role string) ([]models.Question, error)
}

// Source supplies the frozen question set for a new interview: remote
// generation with one retry, falling back to the static bank on any
// failure or shape violation. It never fails.
type Source struct {
	gen  Generator
	bank []models.Question
}

// NewSource creates a question source. gen may be nil to always use the
// bank; bank must be a valid set (use DefaultBank or LoadBank).
func NewSource(gen Generator, bank []models.Question) *Source {
	return &Source{gen: gen, bank: bank}
}

// Questions returns a 6-question set for the role. The returned slice
// is owned by the caller; the bank itself is never handed out.
func (s *Source) Questions(ctx context.Context, role string) []models.Question {
	if s.gen == nil {
		return cloneSet(s.bank)
	}

	// One retry before giving up on the remote source
	for attempt := 0; attempt < 2; attempt++ {
		set, err := s.gen.GenerateQuestions(ctx, role)
		if err != nil {
			slog.Warn("question generation failed", "role", role, "attempt", attempt+1, "error", err)
			continue
		}

		if err := ValidateSet(set); err != nil {
			slog.Warn("generated question set rejected", "role", role, "attempt", attempt+1, "error", err)
			continue
		}

		return cloneSet(set)
	}

	slog.Info("falling back to static question bank", "role", role)
	return cloneSet(s.bank)
}
