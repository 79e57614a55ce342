package interview

import (
	"github.com/crisp-labs/interview-engine/internal/models"
)

// EventType identifies a session event pushed to subscribed clients
type EventType string

const (
	// EventTranscript carries a new transcript entry
	EventTranscript EventType = "transcript"
	// EventTick carries the remaining seconds of the open question
	EventTick EventType = "tick"
	// EventPhase signals a state-machine transition
	EventPhase EventType = "phase"
	// EventNotice carries a dismissible, non-fatal error message
	EventNotice EventType = "notice"
)

// Event is one session event. Transcript, tick and phase events follow
// committed state transitions; a subscriber never observes a
// mid-transition snapshot.
type Event struct {
	Type          EventType               `json:"type"`
	SessionID     string                  `json:"session_id"`
	Entry         *models.TranscriptEntry `json:"entry,omitempty"`
	QuestionIndex int                     `json:"question_index"`
	Remaining     int                     `json:"remaining,omitempty"`
	Phase         models.Phase            `json:"phase,omitempty"`
	Message       string                  `json:"message,omitempty"`
}

// subscriber channels are buffered; a slow consumer loses events rather
// than stalling the state machine
const eventBufferSize = 64
