package storage

import (
	"context"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// Repository defines the interface for session persistence. Answer and
// completion writes are total over unknown session ids: mutating a
// session that does not exist is a defensive no-op, not an error.
type Repository interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error
	RecordAnswer(ctx context.Context, sessionID, questionID, answer string, timeSpent float64, score int, feedback string) error
	CompleteSession(ctx context.Context, sessionID string, finalScore float64, summary string) error
	ListSessions(ctx context.Context, filters models.ListFilters) ([]*models.Session, error)

	// Dashboard API clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
