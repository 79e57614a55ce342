package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/crisp-labs/interview-engine/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Resume parsing

const maxResumeSize = 10 << 20 // 10 MiB

// handleParseResume proxies an uploaded resume document to the
// evaluator and returns the extracted contact fields for profile
// prefill. Extraction failures are non-fatal for the interview: the
// candidate falls back to typing their details.
func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	if s.resumeParser == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "resume parsing is not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
	if err := r.ParseMultipartForm(maxResumeSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "file is required")
		return
	}
	defer file.Close()

	profile, err := s.resumeParser.ParseResume(r.Context(), header.Filename, file)
	if err != nil {
		slog.Warn("resume parsing failed", "filename", header.Filename, "error", err)
		respondError(w, http.StatusBadGateway, "parse_failed", "resume could not be parsed")
		return
	}

	if len(profile.MissingFields) == 0 {
		candidate := models.CandidateProfile{
			Name:  profile.Name,
			Email: profile.Email,
			Phone: profile.Phone,
		}
		profile.MissingFields = candidate.MissingFields()
	}

	respondJSON(w, http.StatusOK, profile)
}
