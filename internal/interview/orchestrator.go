package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crisp-labs/interview-engine/internal/evaluator"
	"github.com/crisp-labs/interview-engine/internal/models"
	"github.com/crisp-labs/interview-engine/internal/storage"
)

// Evaluator scores answers and produces the final summary. May be nil,
// in which case the local heuristics are used for everything.
type Evaluator interface {
	EvaluateAnswer(ctx context.Context, req evaluator.EvaluateAnswerRequest) (*evaluator.Evaluation, error)
	FinalSummary(ctx context.Context, candidateName string, answers []evaluator.AnswerReport) (*evaluator.Summary, error)
}

// QuestionSource supplies the frozen question set for a new session
type QuestionSource interface {
	Questions(ctx context.Context, role string) []models.Question
}

// ActiveTracker stores the per-client active-session pointer that
// drives resume offers.
type ActiveTracker interface {
	Set(ctx context.Context, clientID, sessionID string) error
	Get(ctx context.Context, clientID string) (string, error)
	Clear(ctx context.Context, clientID string) error
}

// Options holds the orchestrator's timing knobs. Zero values fall back
// to production defaults; tests shrink them to milliseconds.
type Options struct {
	TickInterval    time.Duration
	GreetingDelay   time.Duration
	TransitionDelay time.Duration
	CompletionDelay time.Duration
	DefaultRole     string
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.GreetingDelay <= 0 {
		o.GreetingDelay = 2 * time.Second
	}
	if o.TransitionDelay <= 0 {
		o.TransitionDelay = 1500 * time.Millisecond
	}
	if o.CompletionDelay <= 0 {
		o.CompletionDelay = 5 * time.Second
	}
	if o.DefaultRole == "" {
		o.DefaultRole = "Full Stack"
	}
	return o
}

// Orchestrator runs interview sessions: profile gating, the six timed
// questions, submission, evaluation and completion. It owns one runtime
// per live session; everything durable goes through the repository, so
// any runtime can be dropped and rebuilt.
type Orchestrator struct {
	repo      storage.Repository
	eval      Evaluator
	questions QuestionSource
	active    ActiveTracker
	opts      Options

	mu       sync.Mutex
	runtimes map[string]*runtime
}

// New creates an orchestrator. eval may be nil (heuristic-only mode).
func New(repo storage.Repository, eval Evaluator, questions QuestionSource, active ActiveTracker, opts Options) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		eval:      eval,
		questions: questions,
		active:    active,
		opts:      opts.withDefaults(),
		runtimes:  make(map[string]*runtime),
	}
}

// StartSession creates a new session for a candidate. The question set
// is chosen immediately and frozen for the session's lifetime. If the
// supplied profile is already complete the interview begins at once;
// otherwise the session waits in the profile gate.
func (o *Orchestrator) StartSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = o.opts.DefaultRole
	}

	set := o.questions.Questions(ctx, role)
	questions := make([]*models.Question, len(set))
	for i := range set {
		q := set[i]
		questions[i] = &q
	}

	s := &models.Session{
		ID:       uuid.New().String(),
		ClientID: strings.TrimSpace(req.ClientID),
		Role:     role,
		Profile: models.CandidateProfile{
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
		},
		Questions: questions,
		Phase:     models.PhaseProfileIncomplete,
		Status:    models.StatusIncomplete,
		CreatedAt: time.Now(),
	}

	if err := o.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	r := o.adopt(s)
	if s.Profile.Complete() {
		o.markActive(ctx, s.ClientID, s.ID)
		r.begin()
	}

	return o.Get(ctx, s.ID)
}

// CompleteProfile fills in missing profile fields. Allowed only while
// the session is still gated; once all three fields are present the
// interview begins.
func (o *Orchestrator) CompleteProfile(ctx context.Context, sessionID string, req models.CompleteProfileRequest) (*models.Session, error) {
	r, err := o.runtimeFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	s := r.session
	if s.Completed() {
		r.mu.Unlock()
		return nil, ErrAlreadyCompleted
	}
	if s.Phase != models.PhaseProfileIncomplete {
		r.mu.Unlock()
		return nil, ErrProfileLocked
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		s.Profile.Name = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		s.Profile.Email = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		s.Profile.Phone = v
	}
	complete := s.Profile.Complete()
	r.detached = false
	r.touchLocked()
	r.persistLocked()
	clientID := s.ClientID
	r.mu.Unlock()

	if complete {
		o.markActive(ctx, clientID, sessionID)
		r.begin()
	}

	return o.Get(ctx, sessionID)
}

// Submit records the candidate's answer for the open question. A
// duplicate submission (double click, or racing the expiry) returns
// ErrSubmissionInFlight.
func (o *Orchestrator) Submit(ctx context.Context, sessionID, text string) error {
	r, err := o.runtimeFor(ctx, sessionID)
	if err != nil {
		return err
	}
	return r.submit(text, false)
}

// Resume re-attaches a client to an interrupted session. The current
// question reopens with its full time limit.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*models.Session, error) {
	r, err := o.runtimeFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := r.resume(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	clientID := r.session.ClientID
	r.mu.Unlock()
	o.markActive(ctx, clientID, sessionID)

	return o.Get(ctx, sessionID)
}

// Active returns the client's resumable in-progress session, or nil if
// there is none. A pointer to a session that no longer qualifies is
// cleared rather than offered; on any doubt the offer is withheld.
func (o *Orchestrator) Active(ctx context.Context, clientID string) (*models.Session, error) {
	sessionID, err := o.active.Get(ctx, clientID)
	if err != nil {
		slog.Warn("active-session lookup failed", "client_id", clientID, "error", err)
		return nil, nil
	}
	if sessionID == "" {
		return nil, nil
	}

	s, err := o.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			o.clearActive(ctx, clientID)
			return nil, nil
		}
		slog.Warn("active-session load failed", "session_id", sessionID, "error", err)
		return nil, nil
	}

	if !s.Resumable() {
		o.clearActive(ctx, clientID)
		return nil, nil
	}

	return s, nil
}

// StartOver declines the resume offer: the active-session pointer is
// cleared and the parked runtime dropped. The session record itself is
// untouched and stays visible on the dashboard as incomplete.
func (o *Orchestrator) StartOver(ctx context.Context, clientID string) error {
	sessionID, err := o.active.Get(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to look up active session: %w", err)
	}
	if err := o.active.Clear(ctx, clientID); err != nil {
		return fmt.Errorf("failed to clear active session: %w", err)
	}
	if sessionID != "" {
		o.release(sessionID)
	}
	return nil
}

// Abandon interrupts a session by id and clears its client's pointer if
// it still points here. The record is untouched.
func (o *Orchestrator) Abandon(ctx context.Context, sessionID string) error {
	s, err := o.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	o.release(sessionID)

	if s.ClientID != "" {
		if cur, err := o.active.Get(ctx, s.ClientID); err == nil && cur == sessionID {
			o.clearActive(ctx, s.ClientID)
		}
	}
	return nil
}

// Subscribe attaches an event stream to a session, materializing a
// parked runtime if needed. The cancel func must be called when the
// consumer goes away.
func (o *Orchestrator) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	r, err := o.runtimeFor(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := r.subscribe()
	return ch, cancel, nil
}

// Get returns the committed state of a session
func (o *Orchestrator) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return o.repo.GetSession(ctx, sessionID)
}

// List returns sessions for the dashboard
func (o *Orchestrator) List(ctx context.Context, filters models.ListFilters) ([]*models.Session, error) {
	return o.repo.ListSessions(ctx, filters)
}

// ReleaseIdle drops runtimes with no subscribers and no recent
// activity. Their sessions stay resumable from the repository. Returns
// the released session ids.
func (o *Orchestrator) ReleaseIdle(maxIdle time.Duration) []string {
	o.mu.Lock()
	var victims []*runtime
	var ids []string
	for id, r := range o.runtimes {
		if r.idle(maxIdle) {
			delete(o.runtimes, id)
			victims = append(victims, r)
			ids = append(ids, id)
		}
	}
	o.mu.Unlock()

	for _, r := range victims {
		r.shutdown()
	}
	return ids
}

// Ping reports storage health
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.repo.Ping(ctx)
}

// Close shuts down all live runtimes
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	victims := make([]*runtime, 0, len(o.runtimes))
	for id, r := range o.runtimes {
		delete(o.runtimes, id)
		victims = append(victims, r)
	}
	o.mu.Unlock()

	for _, r := range victims {
		r.shutdown()
	}
	return nil
}

// adopt registers a runtime for a session the orchestrator just built
func (o *Orchestrator) adopt(s *models.Session) *runtime {
	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.runtimes[s.ID]; ok {
		return r
	}
	r := newRuntime(o, s, false)
	o.runtimes[s.ID] = r
	return r
}

// runtimeFor returns the live runtime for a session, loading it from
// the repository (parked, clock halted) if the engine restarted since
// the session was created.
func (o *Orchestrator) runtimeFor(ctx context.Context, sessionID string) (*runtime, error) {
	o.mu.Lock()
	if r, ok := o.runtimes[sessionID]; ok {
		o.mu.Unlock()
		return r, nil
	}
	o.mu.Unlock()

	s, err := o.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.runtimes[sessionID]; ok {
		return r, nil
	}
	r := newRuntime(o, s, true)
	o.runtimes[sessionID] = r
	return r, nil
}

// release drops a runtime and halts its clock
func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	r := o.runtimes[sessionID]
	delete(o.runtimes, sessionID)
	o.mu.Unlock()

	if r != nil {
		r.shutdown()
	}
}

// deactivate runs after the completion linger: the pointer is cleared
// (if it still points at this session) and the runtime dropped.
func (o *Orchestrator) deactivate(clientID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if clientID != "" {
		if cur, err := o.active.Get(ctx, clientID); err == nil && cur == sessionID {
			o.clearActive(ctx, clientID)
		}
	}
	o.release(sessionID)
}

func (o *Orchestrator) markActive(ctx context.Context, clientID, sessionID string) {
	if clientID == "" {
		return
	}
	if err := o.active.Set(ctx, clientID, sessionID); err != nil {
		slog.Warn("failed to set active-session pointer", "client_id", clientID, "session_id", sessionID, "error", err)
	}
}

func (o *Orchestrator) clearActive(ctx context.Context, clientID string) {
	if err := o.active.Clear(ctx, clientID); err != nil {
		slog.Warn("failed to clear active-session pointer", "client_id", clientID, "error", err)
	}
}

// scoreAnswer asks the evaluator for a score and falls back to the
// word-count heuristic on any failure. Scoring never fails.
func (o *Orchestrator) scoreAnswer(req evaluator.EvaluateAnswerRequest, difficulty models.Difficulty) (int, string) {
	if o.eval != nil {
		ev, err := o.eval.EvaluateAnswer(context.Background(), req)
		if err == nil {
			return ev.Score, ev.Feedback
		}
		slog.Warn("answer evaluation failed, using heuristic score", "question_id", req.QuestionID, "error", err)
	}
	return evaluator.HeuristicScore(req.AnswerText, difficulty), evaluator.FallbackFeedback
}

// finalSummary asks the evaluator for the final verdict and falls back
// to the mean of the per-question scores on any failure.
func (o *Orchestrator) finalSummary(name string, reports []evaluator.AnswerReport) *evaluator.Summary {
	if o.eval != nil {
		sum, err := o.eval.FinalSummary(context.Background(), name, reports)
		if err == nil {
			return sum
		}
		slog.Warn("final summary failed, using fallback", "error", err)
	}

	scores := make([]int, len(reports))
	for i, rep := range reports {
		scores[i] = rep.Score
	}
	return evaluator.FallbackSummary(scores)
}
