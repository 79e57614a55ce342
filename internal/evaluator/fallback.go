package evaluator

import (
	"fmt"
	"math"
	"strings"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// Deterministic local fallbacks, used whenever the evaluator service is
// unreachable or returns garbage. Scoring failures are never surfaced
// to the candidate; these formulas always yield in-range values.

// FallbackFeedback is attached to heuristically scored answers
const FallbackFeedback = "Answer evaluated using fallback scoring (AI unavailable)."

// HeuristicScore computes a word-count based score in [1,10]:
// floor(words/10) clamped to [1,10], minus 2 for a short easy answer
// (under 20 words) or minus 3 for a short hard answer (under 50 words),
// floored at 1.
func HeuristicScore(answerText string, difficulty models.Difficulty) int {
	words := len(strings.Fields(answerText))

	score := words / 10
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	switch {
	case difficulty == models.DifficultyEasy && words < 20:
		score -= 2
	case difficulty == models.DifficultyHard && words < 50:
		score -= 3
	}

	if score < 1 {
		score = 1
	}

	return score
}

// FallbackSummary computes the final score as the mean of the six
// per-question scores, rounded to one decimal, with a generic summary
// string.
func FallbackSummary(scores []int) *Summary {
	if len(scores) == 0 {
		return &Summary{Summary: "Interview completed. AI summary unavailable."}
	}

	total := 0
	for _, s := range scores {
		total += s
	}

	avg := math.Round(float64(total)/float64(len(scores))*10) / 10

	return &Summary{
		FinalScore:   avg,
		FinalPercent: avg * 10,
		Summary:      fmt.Sprintf("Interview completed with an average score of %.1f/10. AI summary unavailable.", avg),
	}
}
