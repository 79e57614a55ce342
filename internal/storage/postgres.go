package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateSession persists a new session together with its six question
// rows in one transaction.
func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.Session) error {
	transcriptJSON, err := json.Marshal(s.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, client_id, role, name, email, phone, current_question, phase, status, has_resumed, final_score, summary, transcript, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		s.ID,
		nullString(s.ClientID),
		nullString(s.Role),
		s.Profile.Name,
		s.Profile.Email,
		s.Profile.Phone,
		s.CurrentQuestion,
		string(s.Phase),
		string(s.Status),
		s.HasResumed,
		s.FinalScore,
		nullString(s.Summary),
		transcriptJSON,
		s.CreatedAt,
		nullTime(s.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	for i, q := range s.Questions {
		_, err = tx.Exec(ctx, `
			INSERT INTO session_questions (session_id, position, question_id, text, difficulty, time_limit, answer, time_spent, score, feedback, answered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			s.ID,
			i,
			q.ID,
			q.Text,
			string(q.Difficulty),
			q.TimeLimit,
			nullString(q.Answer),
			q.TimeSpent,
			q.Score,
			nullString(q.Feedback),
			nullTime(q.AnsweredAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create session question %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}

	return nil
}

// GetSession retrieves a session with its questions and transcript.
// Returns ErrSessionNotFound if the id is unknown.
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, client_id, role, name, email, phone, current_question, phase, status, has_resumed, final_score, summary, transcript, created_at, completed_at
		FROM sessions
		WHERE id = $1
	`

	s, err := r.scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	questions, err := r.getQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Questions = questions

	return s, nil
}

// UpdateSession updates the session row. Question rows are written only
// through RecordAnswer so a dashboard read never observes a
// partially-written answer.
func (r *PostgresRepository) UpdateSession(ctx context.Context, s *models.Session) error {
	transcriptJSON, err := json.Marshal(s.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE sessions
		SET name = $2, email = $3, phone = $4, current_question = $5, phase = $6, status = $7, has_resumed = $8, transcript = $9
		WHERE id = $1
	`,
		s.ID,
		s.Profile.Name,
		s.Profile.Email,
		s.Profile.Phone,
		s.CurrentQuestion,
		string(s.Phase),
		string(s.Status),
		s.HasResumed,
		transcriptJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// RecordAnswer writes the answer for one question. Write-once: a row
// that already has an answered_at timestamp is left untouched, and an
// unknown session or question id is a no-op.
func (r *PostgresRepository) RecordAnswer(ctx context.Context, sessionID, questionID, answer string, timeSpent float64, score int, feedback string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE session_questions
		SET answer = $3, time_spent = $4, score = $5, feedback = $6, answered_at = NOW()
		WHERE session_id = $1 AND question_id = $2 AND answered_at IS NULL
	`,
		sessionID,
		questionID,
		answer,
		timeSpent,
		score,
		nullString(feedback),
	)
	if err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}

	return nil
}

// CompleteSession marks the session completed with its final outcome.
// Completing an already-completed or unknown session is a no-op.
func (r *PostgresRepository) CompleteSession(ctx context.Context, sessionID string, finalScore float64, summary string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET final_score = $2, summary = $3, status = $4, phase = $5, completed_at = NOW()
		WHERE id = $1 AND status = $6
	`,
		sessionID,
		finalScore,
		summary,
		string(models.StatusCompleted),
		string(models.PhaseCompleted),
		string(models.StatusIncomplete),
	)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	return nil
}

// ListSessions returns sessions for the dashboard. Question rows and
// transcripts are omitted from list results; GetSession loads the full
// detail.
func (r *PostgresRepository) ListSessions(ctx context.Context, filters models.ListFilters) ([]*models.Session, error) {
	query := `
		SELECT id, client_id, role, name, email, phone, current_question, phase, status, has_resumed, final_score, summary, transcript, created_at, completed_at
		FROM sessions
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filters.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filters.Status))
		argNum++
	}

	query += " ORDER BY " + sortColumn(filters.SortBy) + " " + sortDirection(filters.SortOrder)

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// sortColumn whitelists the dashboard sort keys
func sortColumn(sortBy string) string {
	switch sortBy {
	case "name":
		return "name"
	case "created_at":
		return "created_at"
	case "score":
		return "final_score"
	default:
		return "final_score"
	}
}

func sortDirection(order string) string {
	if order == "asc" {
		return "ASC NULLS FIRST"
	}
	return "DESC NULLS LAST"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var clientID, role, summary sql.NullString
	var phase, status string
	var finalScore sql.NullFloat64
	var transcriptJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&s.ID,
		&clientID,
		&role,
		&s.Profile.Name,
		&s.Profile.Email,
		&s.Profile.Phone,
		&s.CurrentQuestion,
		&phase,
		&status,
		&s.HasResumed,
		&finalScore,
		&summary,
		&transcriptJSON,
		&s.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ClientID = clientID.String
	s.Role = role.String
	s.Phase = models.Phase(phase)
	s.Status = models.Status(status)
	s.Summary = summary.String

	if finalScore.Valid {
		s.FinalScore = &finalScore.Float64
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	if len(transcriptJSON) > 0 {
		if err := json.Unmarshal(transcriptJSON, &s.Transcript); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
		}
	}

	return &s, nil
}

func (r *PostgresRepository) getQuestions(ctx context.Context, sessionID string) ([]*models.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id, text, difficulty, time_limit, answer, time_spent, score, feedback, answered_at
		FROM session_questions
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		var q models.Question
		var difficulty string
		var answer, feedback sql.NullString
		var score sql.NullInt32
		var answeredAt sql.NullTime

		err := rows.Scan(
			&q.ID,
			&q.Text,
			&difficulty,
			&q.TimeLimit,
			&answer,
			&q.TimeSpent,
			&score,
			&feedback,
			&answeredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		q.Difficulty = models.Difficulty(difficulty)
		q.Answer = answer.String
		q.Feedback = feedback.String
		if score.Valid {
			v := int(score.Int32)
			q.Score = &v
		}
		if answeredAt.Valid {
			q.AnsweredAt = &answeredAt.Time
		}

		questions = append(questions, &q)
	}

	return questions, rows.Err()
}

// GetClientByApiKey retrieves a dashboard API client by its key.
// Returns (nil, nil) if the key is unknown.
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&client.Permissions,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &client.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal client metadata: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed stamps the client's last_used_at
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}
	return nil
}

// Helpers for nullable columns

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
