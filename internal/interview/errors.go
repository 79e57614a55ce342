package interview

import (
	"errors"

	"github.com/crisp-labs/interview-engine/internal/storage"
)

// ErrSessionNotFound is re-exported so API handlers only need to check
// one package's sentinels.
var ErrSessionNotFound = storage.ErrSessionNotFound

var (
	// ErrProfileLocked is returned when a profile edit arrives after the
	// first question has been shown.
	ErrProfileLocked = errors.New("profile can no longer be changed")

	// ErrNoOpenQuestion is returned when a submission arrives while no
	// question is open (profile gate, transition pause, or completed).
	ErrNoOpenQuestion = errors.New("no question is open for submission")

	// ErrSubmissionInFlight is returned to the loser of a submit/expiry
	// race. The winning submission proceeds; this one is benign.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrNotResumable is returned when resume is requested for a session
	// that is completed or carries no usable question set.
	ErrNotResumable = errors.New("session cannot be resumed")

	// ErrAlreadyCompleted is returned for mutations on a completed session
	ErrAlreadyCompleted = errors.New("session is already completed")
)
