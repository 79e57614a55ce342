package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crisp-labs/interview-engine/internal/interview"
	"github.com/crisp-labs/interview-engine/internal/models"
)

// Candidate handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ClientID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "client_id is required")
		return
	}

	session, err := s.orchestrator.StartSession(r.Context(), req)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// handleActiveSession returns the client's resumable session, if any.
// A null session means no resume offer should be shown.
func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "client_id is required")
		return
	}

	session, err := s.orchestrator.Active(r.Context(), clientID)
	if err != nil {
		slog.Error("failed to look up active session", "client_id", clientID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to look up active session")
		return
	}

	respondJSON(w, http.StatusOK, models.ActiveSessionResponse{Session: session})
}

// handleStartOver declines the resume offer for a client. The session
// record is kept; only the pointer is cleared.
func (s *Server) handleStartOver(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "client_id is required")
		return
	}

	if err := s.orchestrator.StartOver(r.Context(), clientID); err != nil {
		slog.Error("failed to start over", "client_id", clientID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to start over")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "active session cleared",
	})
}

func (s *Server) handleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	var req models.CompleteProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := s.orchestrator.CompleteProfile(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "not_found", "session not found")
		case errors.Is(err, interview.ErrProfileLocked):
			respondError(w, http.StatusConflict, "profile_locked", "profile can no longer be changed")
		case errors.Is(err, interview.ErrAlreadyCompleted):
			respondError(w, http.StatusConflict, "already_completed", "session is already completed")
		default:
			slog.Error("failed to complete profile", "error", err, "id", id)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to complete profile")
		}
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := s.orchestrator.Submit(r.Context(), id, req.Text); err != nil {
		switch {
		case errors.Is(err, interview.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "not_found", "session not found")
		case errors.Is(err, interview.ErrSubmissionInFlight):
			// Benign: the duplicate lost the race, the winning
			// submission carries on.
			respondError(w, http.StatusConflict, "submission_in_flight", "a submission is already being processed")
		case errors.Is(err, interview.ErrNoOpenQuestion):
			respondError(w, http.StatusConflict, "no_open_question", "no question is open for submission")
		case errors.Is(err, interview.ErrAlreadyCompleted):
			respondError(w, http.StatusConflict, "already_completed", "session is already completed")
		default:
			slog.Error("failed to submit answer", "error", err, "id", id)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to submit answer")
		}
		return
	}

	session, err := s.orchestrator.Get(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session after submit", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	session, err := s.orchestrator.Resume(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "not_found", "session not found")
		case errors.Is(err, interview.ErrNotResumable):
			respondError(w, http.StatusConflict, "not_resumable", "session cannot be resumed")
		default:
			slog.Error("failed to resume session", "error", err, "id", id)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to resume session")
		}
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	if err := s.orchestrator.Abandon(r.Context(), id); err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		slog.Error("failed to abandon session", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to abandon session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "session abandoned",
	})
}

// Dashboard handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filters := models.ListFilters{
		Search:    r.URL.Query().Get("search"),
		Status:    models.Status(r.URL.Query().Get("status")),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		Limit:     50, // default
		Offset:    0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	sessions, err := s.orchestrator.List(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	session, err := s.orchestrator.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		slog.Error("failed to get session", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get session")
		return
	}

	respondJSON(w, http.StatusOK, session)
}
