package questions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisp-labs/interview-engine/internal/models"
)

type stubGenerator struct {
	sets  [][]models.Question
	errs  []error
	calls int
}

func (g *stubGenerator) GenerateQuestions(ctx context.Context, role string) ([]models.Question, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	if i < len(g.sets) {
		return g.sets[i], nil
	}
	return nil, errors.New("exhausted")
}

func TestSourceUsesGeneratedSet(t *testing.T) {
	gen := &stubGenerator{sets: [][]models.Question{DefaultBank()}}
	src := NewSource(gen, DefaultBank())

	set := src.Questions(context.Background(), "Backend")
	require.Len(t, set, models.QuestionCount)
	assert.Equal(t, 1, gen.calls)
}

func TestSourceRetriesOnceThenFallsBack(t *testing.T) {
	gen := &stubGenerator{errs: []error{errors.New("down"), errors.New("still down")}}
	src := NewSource(gen, DefaultBank())

	set := src.Questions(context.Background(), "Backend")
	require.NoError(t, ValidateSet(set))
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, "q1", set[0].ID) // bank set
}

func TestSourceSecondAttemptCanSucceed(t *testing.T) {
	good := DefaultBank()
	good[0].ID = "fresh1"
	gen := &stubGenerator{
		errs: []error{errors.New("flaky"), nil},
		sets: [][]models.Question{nil, good},
	}
	src := NewSource(gen, DefaultBank())

	set := src.Questions(context.Background(), "Backend")
	assert.Equal(t, "fresh1", set[0].ID)
	assert.Equal(t, 2, gen.calls)
}

func TestSourceRejectsMalformedSet(t *testing.T) {
	// 6 questions but all hard: shape violation, bank wins
	bad := DefaultBank()
	for i := range bad {
		bad[i].Difficulty = models.DifficultyHard
	}
	gen := &stubGenerator{sets: [][]models.Question{bad, bad}}
	src := NewSource(gen, DefaultBank())

	set := src.Questions(context.Background(), "Backend")
	require.NoError(t, ValidateSet(set))
	assert.Equal(t, "q1", set[0].ID)
}

func TestSourceWithoutGeneratorUsesBank(t *testing.T) {
	src := NewSource(nil, DefaultBank())
	set := src.Questions(context.Background(), "Backend")
	require.NoError(t, ValidateSet(set))
}

func TestSourceHandsOutIndependentCopies(t *testing.T) {
	src := NewSource(nil, DefaultBank())

	a := src.Questions(context.Background(), "Backend")
	a[0].Text = "mutated"

	b := src.Questions(context.Background(), "Backend")
	assert.NotEqual(t, "mutated", b[0].Text)
}
