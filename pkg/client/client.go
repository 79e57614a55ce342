package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a Go SDK for the interview-engine API. The API key is only
// needed for the dashboard endpoints; candidate-side calls work
// without one.
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient creates a new interview-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Question represents one question of a session
type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Difficulty string     `json:"difficulty"`
	TimeLimit  int        `json:"time_limit"`
	Answer     string     `json:"answer,omitempty"`
	TimeSpent  float64    `json:"time_spent,omitempty"`
	Score      *int       `json:"score,omitempty"`
	Feedback   string     `json:"feedback,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// TranscriptEntry is one message of the interview transcript
type TranscriptEntry struct {
	Author string    `json:"author"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Profile holds the candidate's contact fields
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Session represents an interview session response
type Session struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id,omitempty"`
	Role            string            `json:"role,omitempty"`
	Profile         Profile           `json:"profile"`
	Questions       []*Question       `json:"questions"`
	CurrentQuestion int               `json:"current_question"`
	Phase           string            `json:"phase"`
	Status          string            `json:"status"`
	HasResumed      bool              `json:"has_resumed,omitempty"`
	FinalScore      *float64          `json:"final_score,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	Transcript      []TranscriptEntry `json:"transcript,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// StartSessionRequest starts a new interview
type StartSessionRequest struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// CompleteProfileRequest fills in missing profile fields
type CompleteProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ListOptions contains options for listing sessions
type ListOptions struct {
	Search    string
	Status    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// StartSession creates a new interview session
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*Session, error) {
	var session Session
	if err := c.call(ctx, "POST", "/api/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSession returns the client's resumable session, or nil if none
func (c *Client) ActiveSession(ctx context.Context, clientID string) (*Session, error) {
	var resp struct {
		Session *Session `json:"session"`
	}
	path := "/api/v1/sessions/active?client_id=" + url.QueryEscape(clientID)
	if err := c.call(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// StartOver declines the resume offer for a client
func (c *Client) StartOver(ctx context.Context, clientID string) error {
	path := "/api/v1/sessions/active?client_id=" + url.QueryEscape(clientID)
	return c.call(ctx, "DELETE", path, nil, nil)
}

// CompleteProfile fills in missing profile fields on a gated session
func (c *Client) CompleteProfile(ctx context.Context, sessionID string, req CompleteProfileRequest) (*Session, error) {
	var session Session
	if err := c.call(ctx, "POST", fmt.Sprintf("/api/v1/sessions/%s/profile", sessionID), req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitAnswer submits the answer for the open question
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, text string) (*Session, error) {
	req := struct {
		Text string `json:"text"`
	}{Text: text}

	var session Session
	if err := c.call(ctx, "POST", fmt.Sprintf("/api/v1/sessions/%s/answer", sessionID), req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResumeSession resumes an interrupted session
func (c *Client) ResumeSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	if err := c.call(ctx, "POST", fmt.Sprintf("/api/v1/sessions/%s/resume", sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// AbandonSession interrupts a session and clears its resume pointer
func (c *Client) AbandonSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, "POST", fmt.Sprintf("/api/v1/sessions/%s/abandon", sessionID), nil, nil)
}

// GetSession retrieves a session by ID (dashboard; requires API key)
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	if err := c.call(ctx, "GET", fmt.Sprintf("/api/v1/sessions/%s", sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions retrieves sessions (dashboard; requires API key)
func (c *Client) ListSessions(ctx context.Context, opts ListOptions) ([]*Session, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sort_order", opts.SortOrder)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", opts.Offset))
	}

	path := "/api/v1/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Sessions []*Session `json:"sessions"`
		Total    int        `json:"total"`
	}
	if err := c.call(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// call performs a request and unwraps the standard response envelope
func (c *Client) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error != nil {
			return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
