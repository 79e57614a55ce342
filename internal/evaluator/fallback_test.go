package evaluator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crisp-labs/interview-engine/internal/models"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		difficulty models.Difficulty
		want       int
	}{
		{"empty easy floors at one", "", models.DifficultyEasy, 1},
		{"no-answer sentinel scores one", models.NoAnswerSentinel, models.DifficultyEasy, 1},
		{"short easy answer penalized to floor", words(15), models.DifficultyEasy, 1},
		{"adequate easy answer escapes penalty", words(25), models.DifficultyEasy, 2},
		{"medium answer has no penalty", words(35), models.DifficultyMedium, 3},
		{"short hard answer penalized", words(40), models.DifficultyHard, 1},
		{"long hard answer", words(60), models.DifficultyHard, 6},
		{"very long answer capped at ten", words(250), models.DifficultyMedium, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicScore(tt.answer, tt.difficulty))
		})
	}
}

func TestFallbackSummary(t *testing.T) {
	sum := FallbackSummary([]int{5, 5, 5, 5, 5, 5})
	assert.Equal(t, 5.0, sum.FinalScore)
	assert.Equal(t, 50.0, sum.FinalPercent)
	assert.Contains(t, sum.Summary, "5.0/10")
	assert.Contains(t, sum.Summary, "AI summary unavailable")
}

func TestFallbackSummaryRoundsToOneDecimal(t *testing.T) {
	// mean of 3 and 4 is 3.5; mean of 1,2,2 is 1.666... -> 1.7
	assert.Equal(t, 3.5, FallbackSummary([]int{3, 4}).FinalScore)
	assert.Equal(t, 1.7, FallbackSummary([]int{1, 2, 2}).FinalScore)
}

func TestFallbackSummaryEmpty(t *testing.T) {
	sum := FallbackSummary(nil)
	assert.Equal(t, 0.0, sum.FinalScore)
	assert.Contains(t, sum.Summary, "AI summary unavailable")
}
