package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// MemoryRepository implements Repository in process memory. It backs
// unit tests and storage-less development runs. Sessions are deep
// copied on the way in and out so readers only ever observe committed
// snapshots, mirroring the row-level isolation of the Postgres
// implementation.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	clients  map[string]*models.ApiClient
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*models.Session),
		clients:  make(map[string]*models.ApiClient),
	}
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (r *MemoryRepository) Close() error { return nil }

// CreateSession stores a snapshot of the session
func (r *MemoryRepository) CreateSession(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

// GetSession returns a copy of the stored session
func (r *MemoryRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

// UpdateSession replaces the session row fields; recorded answers are
// preserved (they are written only through RecordAnswer).
func (r *MemoryRepository) UpdateSession(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID]
	if !ok {
		return nil // defensive no-op
	}

	updated := cloneSession(s)
	// Keep the write-once answer fields from the store
	for i, q := range stored.Questions {
		if i < len(updated.Questions) && q.Answered() {
			*updated.Questions[i] = *q
		}
	}
	r.sessions[s.ID] = updated
	return nil
}

// RecordAnswer writes the answer for one question, exactly once.
// Unknown ids and already-answered questions are no-ops.
func (r *MemoryRepository) RecordAnswer(ctx context.Context, sessionID, questionID, answer string, timeSpent float64, score int, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}

	for _, q := range s.Questions {
		if q.ID == questionID {
			if q.Answered() {
				return nil
			}
			now := time.Now()
			q.Answer = answer
			q.TimeSpent = timeSpent
			q.Score = &score
			q.Feedback = feedback
			q.AnsweredAt = &now
			return nil
		}
	}

	return nil
}

// CompleteSession marks the session completed; no-op if unknown or
// already completed.
func (r *MemoryRepository) CompleteSession(ctx context.Context, sessionID string, finalScore float64, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Status == models.StatusCompleted {
		return nil
	}

	now := time.Now()
	s.FinalScore = &finalScore
	s.Summary = summary
	s.Status = models.StatusCompleted
	s.Phase = models.PhaseCompleted
	s.CompletedAt = &now
	return nil
}

// ListSessions filters, sorts and pages the stored sessions
func (r *MemoryRepository) ListSessions(ctx context.Context, filters models.ListFilters) ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Session
	search := strings.ToLower(filters.Search)

	for _, s := range r.sessions {
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Profile.Name), search) &&
			!strings.Contains(strings.ToLower(s.Profile.Email), search) {
			continue
		}
		out = append(out, cloneSession(s))
	}

	sortSessions(out, filters.SortBy, filters.SortOrder)

	offset := filters.Offset
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit < len(out) {
		out = out[:limit]
	}

	return out, nil
}

// SeedClient registers a dashboard API client (tests and dev setup)
func (r *MemoryRepository) SeedClient(client *models.ApiClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ApiKey] = client
}

// GetClientByApiKey looks up a seeded API client
func (r *MemoryRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[apiKey], nil
}

// UpdateClientLastUsed stamps the client's last_used_at
func (r *MemoryRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[apiKey]; ok {
		now := time.Now()
		c.LastUsedAt = &now
	}
	return nil
}

func sortSessions(sessions []*models.Session, sortBy, order string) {
	less := func(a, b *models.Session) bool {
		switch sortBy {
		case "name":
			return a.Profile.Name < b.Profile.Name
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default: // score
			return scoreOf(a) < scoreOf(b)
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if order == "asc" {
			return less(sessions[i], sessions[j])
		}
		return less(sessions[j], sessions[i])
	})
}

func scoreOf(s *models.Session) float64 {
	if s.FinalScore == nil {
		return -1
	}
	return *s.FinalScore
}

func cloneSession(s *models.Session) *models.Session {
	out := *s

	out.Questions = make([]*models.Question, len(s.Questions))
	for i, q := range s.Questions {
		qc := *q
		if q.Score != nil {
			v := *q.Score
			qc.Score = &v
		}
		if q.AnsweredAt != nil {
			t := *q.AnsweredAt
			qc.AnsweredAt = &t
		}
		out.Questions[i] = &qc
	}

	out.Transcript = make([]models.TranscriptEntry, len(s.Transcript))
	copy(out.Transcript, s.Transcript)

	if s.FinalScore != nil {
		v := *s.FinalScore
		out.FinalScore = &v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}

	return &out
}
