package interview

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/crisp-labs/interview-engine/internal/evaluator"
	"github.com/crisp-labs/interview-engine/internal/models"
)

const persistTimeout = 5 * time.Second

// runtime is the in-memory side of one session: the countdown clock,
// the single-flight submission guard, delayed transitions and event
// subscribers. All durable state lives in the Session and is persisted
// after every transition, so a runtime can be dropped at any time and
// rebuilt from the repository.
//
// Every transition holds mu. The seq counter is bumped on each
// transition; delayed callbacks capture seq when scheduled and no-op if
// it moved, so an interrupt or a racing submission silently cancels
// anything still pending.
type runtime struct {
	orc *Orchestrator

	mu         sync.Mutex
	session    *models.Session
	timer      *questionTimer
	openedAt   time.Time
	remaining  int
	guard      bool // set when a submission wins the race, cleared when the next question opens
	begun      bool // greeting emitted and question 0 scheduled; begin is one-shot
	seq        int
	detached   bool // no client attached: clock halted until resume
	closed     bool
	lastActive time.Time
	subs       map[chan Event]struct{}
}

func newRuntime(orc *Orchestrator, s *models.Session, detached bool) *runtime {
	return &runtime{
		orc:        orc,
		session:    s,
		detached:   detached,
		lastActive: time.Now(),
		subs:       make(map[chan Event]struct{}),
	}
}

// begin opens the interview for a session whose profile just became
// complete: greeting, then the first question after the greeting delay.
// One-shot: profile edits landing during the greeting window must not
// greet the candidate twice.
func (r *runtime) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.begun {
		return
	}
	r.begun = true

	r.seq++
	r.touchLocked()
	if len(r.session.Transcript) == 0 {
		r.appendTranscriptLocked(models.AuthorInterviewer, greetingText(r.session.Profile.Name))
	}
	r.persistLocked()
	r.scheduleLocked(r.orc.opts.GreetingDelay, func() {
		r.openQuestionLocked(0)
	})
}

// resume re-attaches a client to an interrupted session. The current
// question reopens with its full time limit; only the greeting changes
// on a resumed session.
func (r *runtime) resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.session.Resumable() {
		return ErrNotResumable
	}

	r.seq++
	r.detached = false
	r.guard = false
	r.stopClockLocked()
	r.touchLocked()

	r.session.HasResumed = true
	r.appendTranscriptLocked(models.AuthorInterviewer, welcomeBackText(r.session.Profile.Name))
	r.persistLocked()
	r.scheduleLocked(r.orc.opts.GreetingDelay, func() {
		r.reopenCurrentLocked()
	})

	return nil
}

// submit records the answer for the open question. auto marks a
// timer-expiry submission: the recorded time spent is the full limit
// and empty text becomes the no-answer sentinel. Exactly one submission
// wins per question; the loser of a submit/expiry race gets
// ErrSubmissionInFlight and must treat it as benign.
func (r *runtime) submit(text string, auto bool) error {
	r.mu.Lock()
	s := r.session

	if s.Completed() {
		r.mu.Unlock()
		return ErrAlreadyCompleted
	}
	if s.Phase != models.PhaseQuestionOpen {
		r.mu.Unlock()
		return ErrNoOpenQuestion
	}
	q := s.OpenQuestion()
	if q == nil {
		r.mu.Unlock()
		return ErrNoOpenQuestion
	}
	if r.detached {
		// No client attached (engine restart or idle release): the
		// clock is not running and openedAt is stale. The session must
		// be resumed before it accepts answers.
		r.mu.Unlock()
		return ErrNoOpenQuestion
	}
	if r.guard {
		r.mu.Unlock()
		return ErrSubmissionInFlight
	}

	r.guard = true
	r.seq++
	r.stopClockLocked()
	r.touchLocked()

	text = strings.TrimSpace(text)
	if text == "" {
		text = models.NoAnswerSentinel
	}

	timeSpent := time.Since(r.openedAt).Seconds()
	if auto || timeSpent > float64(q.TimeLimit) {
		timeSpent = float64(q.TimeLimit)
	}
	now := time.Now()
	q.Answer = text
	q.TimeSpent = timeSpent
	q.AnsweredAt = &now

	s.Phase = models.PhaseSubmitting
	index := s.CurrentQuestion
	r.appendTranscriptLocked(models.AuthorCandidate, text)
	r.broadcastLocked(Event{
		Type:          EventPhase,
		SessionID:     s.ID,
		Phase:         s.Phase,
		QuestionIndex: index,
	})

	req := evaluator.EvaluateAnswerRequest{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		AnswerText:   text,
		Difficulty:   string(q.Difficulty),
	}
	difficulty := q.Difficulty
	r.mu.Unlock()

	// Evaluation is a network call; the lock is released so reads and
	// (rejected) duplicate submissions stay responsive.
	score, feedback := r.orc.scoreAnswer(req, difficulty)

	r.mu.Lock()
	q.Score = &score
	q.Feedback = feedback
	r.recordAnswerLocked(q)
	r.persistLocked()

	if index < models.QuestionCount-1 {
		next := index + 1
		r.scheduleLocked(r.orc.opts.TransitionDelay, func() {
			r.openQuestionLocked(next)
		})
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.finalize()
	return nil
}

// finalize computes the final score and summary and closes the session.
// Also the recovery path when a restart lost the window between the
// last recorded answer and completion.
func (r *runtime) finalize() {
	r.mu.Lock()
	if r.session.Completed() {
		r.mu.Unlock()
		return
	}
	name := r.session.Profile.Name
	reports := answerReports(r.session.Questions)
	r.mu.Unlock()

	sum := r.orc.finalSummary(name, reports)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeLocked(sum)
}

func (r *runtime) completeLocked(sum *evaluator.Summary) {
	s := r.session
	if s.Completed() {
		return
	}

	r.seq++
	r.stopClockLocked()

	now := time.Now()
	s.FinalScore = &sum.FinalScore
	s.Summary = sum.Summary
	s.Status = models.StatusCompleted
	s.Phase = models.PhaseCompleted
	s.CompletedAt = &now

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.orc.repo.CompleteSession(ctx, s.ID, sum.FinalScore, sum.Summary); err != nil {
		slog.Error("failed to mark session completed", "session_id", s.ID, "error", err)
	}

	r.appendTranscriptLocked(models.AuthorInterviewer, closingText(s.Profile.Name, sum.FinalScore, sum.Summary))
	r.persistLocked()
	r.broadcastLocked(Event{Type: EventPhase, SessionID: s.ID, Phase: s.Phase, QuestionIndex: s.CurrentQuestion})

	clientID := s.ClientID
	sessionID := s.ID
	// Leave the closing message on screen before clearing the
	// active-session pointer and discarding the runtime.
	time.AfterFunc(r.orc.opts.CompletionDelay, func() {
		r.orc.deactivate(clientID, sessionID)
	})
}

// openQuestionLocked advances to question index and starts its clock.
// If no client is attached the pointer still advances and persists, but
// the prompt and the clock wait for resume.
func (r *runtime) openQuestionLocked(index int) {
	s := r.session
	if s.Completed() || index >= len(s.Questions) {
		return
	}

	r.seq++
	r.guard = false
	s.CurrentQuestion = index
	s.Phase = models.PhaseQuestionOpen

	if r.detached {
		r.persistLocked()
		return
	}

	q := s.Questions[index]
	r.appendTranscriptLocked(models.AuthorInterviewer, promptText(index, q))
	r.broadcastLocked(Event{Type: EventPhase, SessionID: s.ID, Phase: s.Phase, QuestionIndex: index})
	r.startClockLocked()
	r.persistLocked()
}

// reopenCurrentLocked re-presents the current question after a resume.
// If a restart left the current question already answered, the state
// machine moves forward instead of reopening it.
func (r *runtime) reopenCurrentLocked() {
	s := r.session
	if s.Completed() {
		return
	}
	q := s.OpenQuestion()
	if q == nil {
		return
	}

	if q.Answered() {
		if s.CurrentQuestion == len(s.Questions)-1 {
			go r.finalize()
			return
		}
		r.openQuestionLocked(s.CurrentQuestion + 1)
		return
	}

	r.seq++
	r.guard = false
	s.Phase = models.PhaseQuestionOpen
	r.appendTranscriptLocked(models.AuthorInterviewer, promptText(s.CurrentQuestion, q))
	r.broadcastLocked(Event{Type: EventPhase, SessionID: s.ID, Phase: s.Phase, QuestionIndex: s.CurrentQuestion})
	r.startClockLocked()
	r.persistLocked()
}

// startClockLocked replaces the question clock with a fresh one at the
// open question's full time limit.
func (r *runtime) startClockLocked() {
	r.stopClockLocked()

	q := r.session.OpenQuestion()
	if q == nil {
		return
	}

	t := newQuestionTimer()
	r.timer = t
	r.remaining = q.TimeLimit
	r.openedAt = time.Now()

	go t.run(r.orc.opts.TickInterval, r.onTick)
}

func (r *runtime) stopClockLocked() {
	if r.timer != nil {
		r.timer.cancel()
		r.timer = nil
	}
}

// onTick decrements the countdown and fires expiry when it reaches
// zero. Ticks from a replaced or cancelled clock are discarded by the
// handle-identity check.
func (r *runtime) onTick(t *questionTimer) {
	r.mu.Lock()
	if r.closed || r.timer != t {
		r.mu.Unlock()
		return
	}

	if r.remaining > 0 {
		r.remaining--
	}
	expired := r.remaining == 0 && !t.fired
	if expired {
		t.fired = true
	}
	r.touchLocked()
	r.broadcastLocked(Event{
		Type:          EventTick,
		SessionID:     r.session.ID,
		QuestionIndex: r.session.CurrentQuestion,
		Remaining:     r.remaining,
	})
	r.mu.Unlock()

	if expired {
		// Auto-submit; a concurrent user submission may win the guard,
		// in which case this is a no-op.
		_ = r.submit("", true)
	}
}

// interruptLocked detaches the client: the clock halts and pending
// transitions are cancelled. Durable state is already persisted, so the
// session resumes from the same question later.
func (r *runtime) interruptLocked() {
	r.seq++
	r.detached = true
	r.stopClockLocked()
}

// shutdown parks the runtime for good; a fresh one is rebuilt from the
// repository on the next touch.
func (r *runtime) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.closed = true
	r.stopClockLocked()
}

// subscribe attaches an event channel. The returned cancel detaches it;
// when the last subscriber leaves an unfinished session, the clock is
// interrupted until resume.
func (r *runtime) subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Event, eventBufferSize)
	r.subs[ch] = struct{}{}
	r.touchLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, ch)
			if len(r.subs) == 0 && !r.session.Completed() {
				r.interruptLocked()
			}
		})
	}
	return ch, cancel
}

// idle reports whether the runtime has no subscribers and has been
// untouched for longer than maxIdle.
func (r *runtime) idle(maxIdle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs) == 0 && time.Since(r.lastActive) > maxIdle
}

// scheduleLocked runs fn after d, with mu held, unless the session
// transitioned in the meantime.
func (r *runtime) scheduleLocked(d time.Duration, fn func()) {
	seq := r.seq
	time.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.seq != seq {
			return
		}
		fn()
	})
}

func (r *runtime) appendTranscriptLocked(author, text string) {
	entry := models.TranscriptEntry{Author: author, Text: text, At: time.Now()}
	r.session.Transcript = append(r.session.Transcript, entry)
	r.broadcastLocked(Event{
		Type:          EventTranscript,
		SessionID:     r.session.ID,
		Entry:         &entry,
		QuestionIndex: r.session.CurrentQuestion,
	})
}

// persistLocked writes the session through to the repository. A failed
// write is logged and surfaced as a notice; the interview continues on
// in-memory state.
func (r *runtime) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.orc.repo.UpdateSession(ctx, r.session); err != nil {
		slog.Error("failed to persist session", "session_id", r.session.ID, "error", err)
		r.noticeLocked("Your progress could not be saved. The interview continues.")
	}
}

func (r *runtime) recordAnswerLocked(q *models.Question) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := r.orc.repo.RecordAnswer(ctx, r.session.ID, q.ID, q.Answer, q.TimeSpent, *q.Score, q.Feedback)
	if err != nil {
		slog.Error("failed to record answer", "session_id", r.session.ID, "question_id", q.ID, "error", err)
		r.noticeLocked("Your answer could not be saved. The interview continues.")
	}
}

func (r *runtime) noticeLocked(msg string) {
	r.broadcastLocked(Event{Type: EventNotice, SessionID: r.session.ID, Message: msg})
}

func (r *runtime) broadcastLocked(ev Event) {
	if r.closed {
		return
	}
	for ch := range r.subs {
		select {
		case ch <- ev:
		default: // slow consumer, drop
		}
	}
}

func (r *runtime) touchLocked() {
	r.lastActive = time.Now()
}

func answerReports(questions []*models.Question) []evaluator.AnswerReport {
	reports := make([]evaluator.AnswerReport, 0, len(questions))
	for _, q := range questions {
		score := 0
		if q.Score != nil {
			score = *q.Score
		}
		reports = append(reports, evaluator.AnswerReport{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			AnswerText:   q.Answer,
			Difficulty:   string(q.Difficulty),
			Score:        score,
		})
	}
	return reports
}
