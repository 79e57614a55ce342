package interview

import (
	"fmt"
	"strings"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// Interviewer-side transcript messages. The wording is part of the
// candidate-facing contract; change with care.

func greetingText(name string) string {
	return fmt.Sprintf(
		"Hello %s! Welcome to your AI-powered interview. You will be asked %d questions, each with its own time limit. Answer in your own words and submit before the timer runs out. Good luck!",
		name, models.QuestionCount,
	)
}

func welcomeBackText(name string) string {
	return fmt.Sprintf("Welcome back, %s! Let's continue with your interview.", name)
}

func promptText(index int, q *models.Question) string {
	return fmt.Sprintf("Question %d/%d (%s): %s",
		index+1, models.QuestionCount, strings.ToUpper(string(q.Difficulty)), q.Text)
}

func closingText(name string, finalScore float64, summary string) string {
	return fmt.Sprintf("Thank you for completing the interview, %s! Your final score is %.1f/10. %s",
		name, finalScore, summary)
}
