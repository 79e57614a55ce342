package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// Client talks to the external evaluator service: question generation,
// per-answer scoring, final summary and resume parsing. Every caller is
// expected to degrade to a local fallback when a call fails; the client
// itself just reports errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new evaluator client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Evaluation is the evaluator's verdict on a single answer
type Evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// Summary is the evaluator's final verdict on the full answer set
type Summary struct {
	FinalScore   float64 `json:"final_score"`
	FinalPercent float64 `json:"final_percent,omitempty"`
	Summary      string  `json:"summary"`
}

// EvaluateAnswerRequest carries one answer for scoring
type EvaluateAnswerRequest struct {
	QuestionID   string `json:"question_id,omitempty"`
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
	Difficulty   string `json:"difficulty"`
}

// AnswerReport is one entry of the final-summary request
type AnswerReport struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
	Difficulty   string `json:"difficulty"`
	Score        int    `json:"score"`
}

// ResumeProfile holds the contact fields extracted from an uploaded resume
type ResumeProfile struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// GenerateQuestions asks the evaluator for a 6-question set for the role
func (c *Client) GenerateQuestions(ctx context.Context, role string) ([]models.Question, error) {
	var resp struct {
		Questions []models.Question `json:"questions"`
	}

	err := c.postJSON(ctx, "/generate-questions", map[string]string{"role": role}, &resp)
	if err != nil {
		return nil, err
	}

	return resp.Questions, nil
}

// EvaluateAnswer scores a single answer (0-10) with short feedback
func (c *Client) EvaluateAnswer(ctx context.Context, req EvaluateAnswerRequest) (*Evaluation, error) {
	var ev Evaluation
	if err := c.postJSON(ctx, "/evaluate-answer", req, &ev); err != nil {
		return nil, err
	}

	if ev.Score < 0 || ev.Score > 10 {
		return nil, fmt.Errorf("evaluator returned out-of-range score %d", ev.Score)
	}

	return &ev, nil
}

// FinalSummary requests the final score and narrative summary for the
// full ordered answer set. The remote weighs scores by difficulty
// (easy=1, medium=2, hard=3) and scales to 0-10.
func (c *Client) FinalSummary(ctx context.Context, candidateName string, answers []AnswerReport) (*Summary, error) {
	req := struct {
		CandidateName string         `json:"candidate_name,omitempty"`
		Answers       []AnswerReport `json:"answers"`
	}{
		CandidateName: candidateName,
		Answers:       answers,
	}

	var sum Summary
	if err := c.postJSON(ctx, "/final-summary", req, &sum); err != nil {
		return nil, err
	}

	return &sum, nil
}

// ParseResume uploads a resume document (PDF or DOCX) and returns the
// extracted contact fields. Parsing happens entirely on the evaluator
// side; this is a pass-through for profile prefill.
func (c *Client) ParseResume(ctx context.Context, filename string, file io.Reader) (*ResumeProfile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse-resume/", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("resume parse request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("resume parse failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var profile ResumeProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode resume parse response: %w", err)
	}

	return &profile, nil
}

// postJSON executes a JSON POST and decodes the response into out
func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}
