package questions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisp-labs/interview-engine/internal/models"
)

func TestDefaultBankIsValid(t *testing.T) {
	bank := DefaultBank()
	require.NoError(t, ValidateSet(bank))
	require.Len(t, bank, models.QuestionCount)

	// Tier time limits
	assert.Equal(t, 20, bank[0].TimeLimit)
	assert.Equal(t, 60, bank[2].TimeLimit)
	assert.Equal(t, 120, bank[5].TimeLimit)
}

func TestDefaultBankReturnsCopy(t *testing.T) {
	first := DefaultBank()
	first[0].Text = "mutated"

	second := DefaultBank()
	assert.NotEqual(t, "mutated", second[0].Text)
}

func TestValidateSet(t *testing.T) {
	valid := DefaultBank()

	tests := []struct {
		name    string
		mutate  func([]models.Question) []models.Question
		wantErr string
	}{
		{
			"wrong count",
			func(s []models.Question) []models.Question { return s[:5] },
			"expected 6 questions",
		},
		{
			"missing id",
			func(s []models.Question) []models.Question { s[3].ID = ""; return s },
			"has no id",
		},
		{
			"missing text",
			func(s []models.Question) []models.Question { s[1].Text = ""; return s },
			"has no text",
		},
		{
			"unknown difficulty",
			func(s []models.Question) []models.Question { s[2].Difficulty = "brutal"; return s },
			"unknown difficulty",
		},
		{
			"non-positive time limit",
			func(s []models.Question) []models.Question { s[4].TimeLimit = 0; return s },
			"non-positive time limit",
		},
		{
			"decreasing difficulty",
			func(s []models.Question) []models.Question {
				s[0], s[5] = s[5], s[0]
				return s
			},
			"non-decreasing",
		},
		{
			"wrong tier distribution",
			func(s []models.Question) []models.Question {
				s[1].Difficulty = models.DifficultyMedium
				s[1].TimeLimit = 60
				return s
			},
			"expected 2 easy questions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := tt.mutate(DefaultBank())
			err := ValidateSet(set)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	require.NoError(t, ValidateSet(valid))
}

func TestLoadBank(t *testing.T) {
	yamlBody := `questions:
  - id: a1
    text: "What is a slice?"
    difficulty: easy
    time_limit: 20
  - id: a2
    text: "What does defer do?"
    difficulty: easy
    time_limit: 20
  - id: a3
    text: "Explain channels and select."
    difficulty: medium
    time_limit: 60
  - id: a4
    text: "How does the garbage collector work?"
    difficulty: medium
    time_limit: 60
  - id: a5
    text: "Design a rate limiter for a distributed API."
    difficulty: hard
    time_limit: 120
  - id: a6
    text: "Debug a goroutine leak in production."
    difficulty: hard
    time_limit: 120
`
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	bank, err := LoadBank(path)
	require.NoError(t, err)
	require.Len(t, bank, 6)
	assert.Equal(t, "a1", bank[0].ID)
	assert.Equal(t, models.DifficultyHard, bank[5].Difficulty)
}

func TestLoadBankRejectsInvalidSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("questions:\n  - id: only\n    text: one\n    difficulty: easy\n    time_limit: 20\n"), 0o644))

	_, err := LoadBank(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid question bank")
}

func TestLoadBankMissingFile(t *testing.T) {
	_, err := LoadBank(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
