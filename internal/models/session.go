package models

import (
	"strings"
	"time"
)

// QuestionCount is the fixed number of questions in an interview
const QuestionCount = 6

// Phase represents the orchestrator state of a session
type Phase string

const (
	PhaseProfileIncomplete Phase = "profile_incomplete" // waiting for name/email/phone
	PhaseQuestionOpen      Phase = "question_open"      // a question is open, timer ticking
	PhaseSubmitting        Phase = "submitting"         // answer recorded, score in flight
	PhaseCompleted         Phase = "completed"          // terminal
)

// Status is the durable completion status of a session
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusCompleted  Status = "completed"
)

// CandidateProfile holds the candidate's identity fields.
// Mutable only until the first question is shown.
type CandidateProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Complete returns true once all three profile fields are non-empty
func (p CandidateProfile) Complete() bool {
	return strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Email) != "" &&
		strings.TrimSpace(p.Phone) != ""
}

// MissingFields lists the profile fields that are still empty
func (p CandidateProfile) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// TranscriptEntry is one message of the interview transcript
// (greeting, question prompt, candidate answer, closing message).
type TranscriptEntry struct {
	Author string    `json:"author"` // "interviewer" or "candidate"
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

const (
	AuthorInterviewer = "interviewer"
	AuthorCandidate   = "candidate"
)

// Session is one candidate's interview attempt, start to finish or to
// abandonment. Mutated only by the orchestrator; the dashboard reads
// committed post-transition state.
type Session struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id,omitempty"`
	Role            string            `json:"role,omitempty"`
	Profile         CandidateProfile  `json:"profile"`
	Questions       []*Question       `json:"questions"`
	CurrentQuestion int               `json:"current_question"`
	Phase           Phase             `json:"phase"`
	Status          Status            `json:"status"`
	HasResumed      bool              `json:"has_resumed,omitempty"`
	FinalScore      *float64          `json:"final_score,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	Transcript      []TranscriptEntry `json:"transcript,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// Completed returns true if the session reached its terminal state
func (s *Session) Completed() bool {
	return s.Status == StatusCompleted
}

// Resumable reports whether the session can be offered for resume: it
// must be incomplete and carry a full question set. Sessions that fail
// this check are never offered (the resume prompt is withheld entirely
// rather than shown and failing later).
func (s *Session) Resumable() bool {
	return s.Status == StatusIncomplete &&
		len(s.Questions) == QuestionCount &&
		s.Phase != PhaseCompleted
}

// OpenQuestion returns the currently open question, or nil if the
// pointer is out of range or no set is attached.
func (s *Session) OpenQuestion() *Question {
	if s.CurrentQuestion < 0 || s.CurrentQuestion >= len(s.Questions) {
		return nil
	}
	return s.Questions[s.CurrentQuestion]
}

// ScoredCount returns how many questions have an evaluated score
func (s *Session) ScoredCount() int {
	n := 0
	for _, q := range s.Questions {
		if q.Scored() {
			n++
		}
	}
	return n
}

// CreateSessionRequest starts a new interview for a candidate
type CreateSessionRequest struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// CompleteProfileRequest fills in missing profile fields before the
// first question is shown
type CompleteProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SubmitAnswerRequest submits the answer for the currently open question
type SubmitAnswerRequest struct {
	Text string `json:"text"`
}

// ActiveSessionResponse is returned for the resume-offer lookup
type ActiveSessionResponse struct {
	Session *Session `json:"session,omitempty"`
}

// ListFilters defines filters for the dashboard session list
type ListFilters struct {
	Search    string // substring match on name or email
	Status    Status
	SortBy    string // "score", "name" or "created_at"
	SortOrder string // "asc" or "desc"
	Limit     int
	Offset    int
}
