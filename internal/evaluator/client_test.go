package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate-questions", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Backend", req["role"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"questions": []map[string]interface{}{
				{"id": "g1", "text": "What is a goroutine?", "difficulty": "easy", "time_limit": 20},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	set, err := c.GenerateQuestions(context.Background(), "Backend")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "g1", set[0].ID)
	assert.Equal(t, 20, set[0].TimeLimit)
}

func TestEvaluateAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/evaluate-answer", r.URL.Path)

		var req EvaluateAnswerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q3", req.QuestionID)
		assert.Equal(t, "medium", req.Difficulty)

		json.NewEncoder(w).Encode(Evaluation{Score: 7, Feedback: "solid answer"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ev, err := c.EvaluateAnswer(context.Background(), EvaluateAnswerRequest{
		QuestionID:   "q3",
		QuestionText: "Explain the Virtual DOM",
		AnswerText:   "It is a lightweight tree",
		Difficulty:   "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, ev.Score)
	assert.Equal(t, "solid answer", ev.Feedback)
}

func TestEvaluateAnswerRejectsOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Evaluation{Score: 14, Feedback: "generous"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.EvaluateAnswer(context.Background(), EvaluateAnswerRequest{AnswerText: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-of-range")
}

func TestEvaluateAnswerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.EvaluateAnswer(context.Background(), EvaluateAnswerRequest{AnswerText: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFinalSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/final-summary", r.URL.Path)

		var req struct {
			CandidateName string         `json:"candidate_name"`
			Answers       []AnswerReport `json:"answers"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada", req.CandidateName)
		require.Len(t, req.Answers, 2)

		json.NewEncoder(w).Encode(Summary{FinalScore: 7.5, FinalPercent: 75, Summary: "strong candidate"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	sum, err := c.FinalSummary(context.Background(), "Ada", []AnswerReport{
		{QuestionID: "q1", Score: 7, Difficulty: "easy"},
		{QuestionID: "q2", Score: 8, Difficulty: "easy"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7.5, sum.FinalScore)
	assert.Equal(t, "strong candidate", sum.Summary)
}

func TestParseResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/parse-resume/", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cv.pdf", header.Filename)

		json.NewEncoder(w).Encode(ResumeProfile{
			Name:          "Ada Lovelace",
			Email:         "ada@example.com",
			MissingFields: []string{"phone"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	profile, err := c.ParseResume(context.Background(), "cv.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, []string{"phone"}, profile.MissingFields)
}
