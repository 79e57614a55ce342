package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileCompleteness(t *testing.T) {
	p := CandidateProfile{Name: "Ada", Email: "ada@example.com", Phone: "+1"}
	assert.True(t, p.Complete())
	assert.Empty(t, p.MissingFields())

	p.Phone = "   "
	assert.False(t, p.Complete())
	assert.Equal(t, []string{"phone"}, p.MissingFields())

	empty := CandidateProfile{}
	assert.Equal(t, []string{"name", "email", "phone"}, empty.MissingFields())
}

func TestSessionResumable(t *testing.T) {
	qs := make([]*Question, QuestionCount)
	for i := range qs {
		qs[i] = &Question{ID: "q", Text: "t", Difficulty: DifficultyEasy, TimeLimit: 20}
	}

	s := &Session{Status: StatusIncomplete, Phase: PhaseQuestionOpen, Questions: qs}
	assert.True(t, s.Resumable())

	completed := &Session{Status: StatusCompleted, Phase: PhaseCompleted, Questions: qs}
	assert.False(t, completed.Resumable())

	// No attached question set: never offered for resume
	gatedWithoutSet := &Session{Status: StatusIncomplete, Phase: PhaseProfileIncomplete}
	assert.False(t, gatedWithoutSet.Resumable())
}

func TestOpenQuestionBounds(t *testing.T) {
	s := &Session{Questions: []*Question{{ID: "q1"}}}
	assert.NotNil(t, s.OpenQuestion())

	s.CurrentQuestion = 5
	assert.Nil(t, s.OpenQuestion())

	s.CurrentQuestion = -1
	assert.Nil(t, s.OpenQuestion())
}

func TestApiClientPermissions(t *testing.T) {
	c := &ApiClient{IsActive: true, Permissions: []string{"sessions:read"}}
	assert.True(t, c.HasPermission("sessions:read"))
	assert.False(t, c.HasPermission("sessions:write"))

	wildcard := &ApiClient{IsActive: true, Permissions: []string{"sessions:*"}}
	assert.True(t, wildcard.HasPermission("sessions:read"))
	assert.True(t, wildcard.HasPermission("sessions:write"))

	inactive := &ApiClient{IsActive: false, Permissions: []string{"*"}}
	assert.False(t, inactive.HasPermission("sessions:read"))
}
