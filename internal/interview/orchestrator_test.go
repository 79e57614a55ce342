package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisp-labs/interview-engine/internal/evaluator"
	"github.com/crisp-labs/interview-engine/internal/models"
	"github.com/crisp-labs/interview-engine/internal/questions"
	"github.com/crisp-labs/interview-engine/internal/storage"
)

// Test evaluators

type stubEvaluator struct {
	score    int
	feedback string
	final    evaluator.Summary
}

func (e *stubEvaluator) EvaluateAnswer(ctx context.Context, req evaluator.EvaluateAnswerRequest) (*evaluator.Evaluation, error) {
	return &evaluator.Evaluation{Score: e.score, Feedback: e.feedback}, nil
}

func (e *stubEvaluator) FinalSummary(ctx context.Context, name string, answers []evaluator.AnswerReport) (*evaluator.Summary, error) {
	sum := e.final
	return &sum, nil
}

type failingEvaluator struct{}

func (failingEvaluator) EvaluateAnswer(ctx context.Context, req evaluator.EvaluateAnswerRequest) (*evaluator.Evaluation, error) {
	return nil, errors.New("evaluator down")
}

func (failingEvaluator) FinalSummary(ctx context.Context, name string, answers []evaluator.AnswerReport) (*evaluator.Summary, error) {
	return nil, errors.New("evaluator down")
}

// blockingEvaluator parks EvaluateAnswer until released, to pin the
// submission guard open.
type blockingEvaluator struct {
	entered chan struct{}
	release chan struct{}
}

func (e *blockingEvaluator) EvaluateAnswer(ctx context.Context, req evaluator.EvaluateAnswerRequest) (*evaluator.Evaluation, error) {
	e.entered <- struct{}{}
	<-e.release
	return &evaluator.Evaluation{Score: 5, Feedback: "ok"}, nil
}

func (e *blockingEvaluator) FinalSummary(ctx context.Context, name string, answers []evaluator.AnswerReport) (*evaluator.Summary, error) {
	return &evaluator.Summary{FinalScore: 5, Summary: "done"}, nil
}

// fixedSource hands out the same custom set for every session
type fixedSource struct {
	set []models.Question
}

func (s fixedSource) Questions(ctx context.Context, role string) []models.Question {
	out := make([]models.Question, len(s.set))
	copy(out, s.set)
	return out
}

// shortSet returns a valid-shaped set whose questions expire after just
// a few ticks.
func shortSet(limit int) []models.Question {
	set := questions.DefaultBank()
	for i := range set {
		set[i].TimeLimit = limit
	}
	return set
}

func testOptions() Options {
	return Options{
		TickInterval:    2 * time.Millisecond,
		GreetingDelay:   time.Millisecond,
		TransitionDelay: time.Millisecond,
		CompletionDelay: time.Millisecond,
	}
}

func newTestOrchestrator(t *testing.T, eval Evaluator, src QuestionSource) (*Orchestrator, *storage.MemoryRepository, *storage.MemoryActiveTracker) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	tracker := storage.NewMemoryActiveTracker()
	if src == nil {
		src = questions.NewSource(nil, questions.DefaultBank())
	}
	orc := New(repo, eval, src, tracker, testOptions())
	t.Cleanup(func() { orc.Close() })
	return orc, repo, tracker
}

func completeRequest(clientID string) models.CreateSessionRequest {
	return models.CreateSessionRequest{
		ClientID: clientID,
		Role:     "Backend",
		Name:     "Ada",
		Email:    "ada@example.com",
		Phone:    "+10000000",
	}
}

func waitFor(t *testing.T, orc *Orchestrator, id string, cond func(*models.Session) bool) *models.Session {
	t.Helper()
	var s *models.Session
	require.Eventually(t, func() bool {
		got, err := orc.Get(context.Background(), id)
		if err != nil || !cond(got) {
			return false
		}
		s = got
		return true
	}, 5*time.Second, 2*time.Millisecond)
	return s
}

func openAt(index int) func(*models.Session) bool {
	return func(s *models.Session) bool {
		return s.Phase == models.PhaseQuestionOpen && s.CurrentQuestion == index
	}
}

func TestStartSessionBeginsWhenProfileComplete(t *testing.T) {
	orc, _, tracker := newTestOrchestrator(t, nil, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	require.Len(t, s.Questions, models.QuestionCount)
	assert.Equal(t, models.StatusIncomplete, s.Status)

	s = waitFor(t, orc, s.ID, openAt(0))
	require.NotEmpty(t, s.Transcript)
	assert.Contains(t, s.Transcript[0].Text, "Hello Ada")
	assert.Contains(t, s.Transcript[len(s.Transcript)-1].Text, "Question 1/6")

	active, err := tracker.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, active)
}

func TestProfileGateHoldsQuestionsBack(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil, nil)
	ctx := context.Background()

	req := completeRequest("client-1")
	req.Phone = ""
	s, err := orc.StartSession(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseProfileIncomplete, s.Phase)
	assert.Equal(t, []string{"phone"}, s.Profile.MissingFields())

	// No question is open while the gate holds
	err = orc.Submit(ctx, s.ID, "eager answer")
	assert.ErrorIs(t, err, ErrNoOpenQuestion)

	// Still-partial update keeps the gate closed
	s, err = orc.CompleteProfile(ctx, s.ID, models.CompleteProfileRequest{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseProfileIncomplete, s.Phase)

	// Supplying the last field opens the interview
	_, err = orc.CompleteProfile(ctx, s.ID, models.CompleteProfileRequest{Phone: "+2000000"})
	require.NoError(t, err)
	waitFor(t, orc, s.ID, openAt(0))

	// Profile is frozen once the first question is shown
	_, err = orc.CompleteProfile(ctx, s.ID, models.CompleteProfileRequest{Name: "Eve"})
	assert.ErrorIs(t, err, ErrProfileLocked)
}

func TestInterviewCompletesWithRemoteScores(t *testing.T) {
	eval := &stubEvaluator{
		score:    7,
		feedback: "solid answer",
		final:    evaluator.Summary{FinalScore: 8.0, FinalPercent: 80, Summary: "Strong showing overall."},
	}
	orc, _, _ := newTestOrchestrator(t, eval, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)

	for i := 0; i < models.QuestionCount; i++ {
		waitFor(t, orc, s.ID, openAt(i))
		require.NoError(t, orc.Submit(ctx, s.ID, fmt.Sprintf("my answer to question %d", i+1)))
	}

	done := waitFor(t, orc, s.ID, (*models.Session).Completed)
	require.NotNil(t, done.FinalScore)
	assert.Equal(t, 8.0, *done.FinalScore)
	assert.Equal(t, "Strong showing overall.", done.Summary)
	assert.NotNil(t, done.CompletedAt)

	for _, q := range done.Questions {
		require.True(t, q.Answered())
		require.NotNil(t, q.Score)
		assert.Equal(t, 7, *q.Score)
		assert.Equal(t, "solid answer", q.Feedback)
	}

	closing := done.Transcript[len(done.Transcript)-1]
	assert.Equal(t, models.AuthorInterviewer, closing.Author)
	assert.Contains(t, closing.Text, "Thank you for completing the interview, Ada!")
	assert.Contains(t, closing.Text, "8.0/10")
}

func TestEvaluatorFailureFallsBackToHeuristics(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, failingEvaluator{}, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)

	answer := strings.TrimSpace(strings.Repeat("word ", 30))
	for i := 0; i < models.QuestionCount; i++ {
		waitFor(t, orc, s.ID, openAt(i))
		require.NoError(t, orc.Submit(ctx, s.ID, answer))
	}

	done := waitFor(t, orc, s.ID, (*models.Session).Completed)

	// 30 words: 3 for easy and medium, hard takes the short-answer
	// penalty down to the floor
	wantScores := []int{3, 3, 3, 3, 1, 1}
	for i, q := range done.Questions {
		require.NotNil(t, q.Score)
		assert.Equal(t, wantScores[i], *q.Score, "question %d", i)
		assert.Equal(t, evaluator.FallbackFeedback, q.Feedback)
	}

	// mean(3,3,3,3,1,1) = 14/6 -> 2.3
	require.NotNil(t, done.FinalScore)
	assert.Equal(t, 2.3, *done.FinalScore)
	assert.Contains(t, done.Summary, "AI summary unavailable")
}

func TestExpiryAutoSubmitsSentinel(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil, fixedSource{set: shortSet(2)})
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)

	// Never answer; every question must expire exactly once and the
	// interview still completes.
	done := waitFor(t, orc, s.ID, (*models.Session).Completed)

	for _, q := range done.Questions {
		require.True(t, q.Answered())
		assert.Equal(t, models.NoAnswerSentinel, q.Answer)
		assert.Equal(t, float64(q.TimeLimit), q.TimeSpent)
		require.NotNil(t, q.Score)
		assert.Equal(t, 1, *q.Score)
	}

	require.NotNil(t, done.FinalScore)
	assert.Equal(t, 1.0, *done.FinalScore)
}

func TestDuplicateSubmitLosesTheRace(t *testing.T) {
	eval := &blockingEvaluator{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	orc, _, _ := newTestOrchestrator(t, eval, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc, s.ID, openAt(0))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- orc.Submit(ctx, s.ID, "the real answer")
	}()

	<-eval.entered // first submission holds the guard

	err = orc.Submit(ctx, s.ID, "double click")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(eval.release)
	require.NoError(t, <-firstDone)

	done := waitFor(t, orc, s.ID, openAt(1))
	assert.Equal(t, "the real answer", done.Questions[0].Answer)
}

func TestBlankSubmitRecordsSentinel(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc, s.ID, openAt(0))

	require.NoError(t, orc.Submit(ctx, s.ID, "   "))

	done := waitFor(t, orc, s.ID, openAt(1))
	q := done.Questions[0]
	assert.Equal(t, models.NoAnswerSentinel, q.Answer)
	// User submission, not expiry: time spent is wall clock, not limit
	assert.Less(t, q.TimeSpent, float64(q.TimeLimit))
}

func TestResumeAfterRestart(t *testing.T) {
	repo := storage.NewMemoryRepository()
	tracker := storage.NewMemoryActiveTracker()
	src := questions.NewSource(nil, questions.DefaultBank())
	ctx := context.Background()

	orc1 := New(repo, nil, src, tracker, testOptions())
	s, err := orc1.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc1, s.ID, openAt(0))
	require.NoError(t, orc1.Submit(ctx, s.ID, "an answer before the crash"))
	waitFor(t, orc1, s.ID, openAt(1))
	require.NoError(t, orc1.Close())

	// Fresh orchestrator over the same storage: a restarted engine
	orc2 := New(repo, nil, src, tracker, testOptions())
	t.Cleanup(func() { orc2.Close() })

	offered, err := orc2.Active(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, offered)
	assert.Equal(t, s.ID, offered.ID)

	resumed, err := orc2.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, resumed.HasResumed)

	reopened := waitFor(t, orc2, s.ID, openAt(1))
	assert.Equal(t, "an answer before the crash", reopened.Questions[0].Answer)

	var welcomedBack bool
	for _, entry := range reopened.Transcript {
		if strings.Contains(entry.Text, "Welcome back, Ada!") {
			welcomedBack = true
		}
	}
	assert.True(t, welcomedBack)
}

func TestSubmitAfterRestartRequiresResume(t *testing.T) {
	repo := storage.NewMemoryRepository()
	tracker := storage.NewMemoryActiveTracker()
	src := questions.NewSource(nil, questions.DefaultBank())
	ctx := context.Background()

	orc1 := New(repo, nil, src, tracker, testOptions())
	s, err := orc1.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc1, s.ID, openAt(0))
	require.NoError(t, orc1.Close())

	orc2 := New(repo, nil, src, tracker, testOptions())
	t.Cleanup(func() { orc2.Close() })

	// A stale tab posting straight to the rebuilt engine: the parked
	// runtime has no running clock, so the submission is rejected
	// instead of recording garbage time
	err = orc2.Submit(ctx, s.ID, "answer from a stale tab")
	assert.ErrorIs(t, err, ErrNoOpenQuestion)

	kept, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, kept.Questions[0].Answered())

	// After resume the same submission lands, with sane time spent
	_, err = orc2.Resume(ctx, s.ID)
	require.NoError(t, err)
	waitFor(t, orc2, s.ID, openAt(0))
	require.NoError(t, orc2.Submit(ctx, s.ID, "answer after resuming"))

	done := waitFor(t, orc2, s.ID, openAt(1))
	q := done.Questions[0]
	assert.Equal(t, "answer after resuming", q.Answer)
	assert.GreaterOrEqual(t, q.TimeSpent, 0.0)
	assert.LessOrEqual(t, q.TimeSpent, float64(q.TimeLimit))
}

func TestRepeatedProfileCompletionGreetsOnce(t *testing.T) {
	repo := storage.NewMemoryRepository()
	tracker := storage.NewMemoryActiveTracker()
	src := questions.NewSource(nil, questions.DefaultBank())
	opts := testOptions()
	opts.GreetingDelay = 50 * time.Millisecond // keep the greeting window open
	orc := New(repo, nil, src, tracker, opts)
	t.Cleanup(func() { orc.Close() })
	ctx := context.Background()

	req := completeRequest("client-1")
	req.Phone = ""
	s, err := orc.StartSession(ctx, req)
	require.NoError(t, err)

	_, err = orc.CompleteProfile(ctx, s.ID, models.CompleteProfileRequest{Phone: "+2000000"})
	require.NoError(t, err)

	// Second completion arrives while the greeting is still on screen
	_, err = orc.CompleteProfile(ctx, s.ID, models.CompleteProfileRequest{Phone: "+3000000"})
	require.NoError(t, err)

	done := waitFor(t, orc, s.ID, openAt(0))
	assert.Equal(t, "+3000000", done.Profile.Phone)

	greetings := 0
	for _, entry := range done.Transcript {
		if strings.Contains(entry.Text, "Hello Ada") {
			greetings++
		}
	}
	assert.Equal(t, 1, greetings)
}

func TestResumeCompletedSessionFails(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil, fixedSource{set: shortSet(1)})
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc, s.ID, (*models.Session).Completed)

	_, err = orc.Resume(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestStartOverClearsPointerButKeepsRecord(t *testing.T) {
	orc, repo, tracker := newTestOrchestrator(t, nil, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc, s.ID, openAt(0))

	require.NoError(t, orc.StartOver(ctx, "client-1"))

	active, err := tracker.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	offered, err := orc.Active(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, offered)

	// The durable record survives for the dashboard
	kept, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncomplete, kept.Status)
}

func TestActiveClearsDanglingPointer(t *testing.T) {
	orc, _, tracker := newTestOrchestrator(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, tracker.Set(ctx, "client-9", "ghost-session"))

	offered, err := orc.Active(ctx, "client-9")
	require.NoError(t, err)
	assert.Nil(t, offered)

	active, err := tracker.Get(ctx, "client-9")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCompletionClearsActivePointer(t *testing.T) {
	orc, _, tracker := newTestOrchestrator(t, nil, fixedSource{set: shortSet(1)})
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc, s.ID, (*models.Session).Completed)

	require.Eventually(t, func() bool {
		active, err := tracker.Get(ctx, "client-1")
		return err == nil && active == ""
	}, 5*time.Second, 2*time.Millisecond)
}

func TestSubscribeStreamsEventsAndDetachHaltsClock(t *testing.T) {
	repo := storage.NewMemoryRepository()
	tracker := storage.NewMemoryActiveTracker()
	opts := testOptions()
	opts.GreetingDelay = 50 * time.Millisecond // room to subscribe before question 1 opens
	// Generous limits so the clock cannot expire under the test
	orc := New(repo, nil, fixedSource{set: shortSet(1000)}, tracker, opts)
	t.Cleanup(func() { orc.Close() })
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)

	events, cancel, err := orc.Subscribe(ctx, s.ID)
	require.NoError(t, err)

	seen := map[EventType]bool{}
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-events:
				seen[ev.Type] = true
			default:
				return seen[EventTranscript] && seen[EventPhase] && seen[EventTick]
			}
		}
	}, 5*time.Second, 2*time.Millisecond)

	waitFor(t, orc, s.ID, openAt(0))
	cancel()

	// With no subscribers left the countdown halts and nothing advances
	time.Sleep(100 * time.Millisecond)
	parked, err := orc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseQuestionOpen, parked.Phase)
	assert.Equal(t, 0, parked.CurrentQuestion)
	assert.False(t, parked.Questions[0].Answered())

	// Resume restarts the clock at the full limit
	_, err = orc.Resume(ctx, s.ID)
	require.NoError(t, err)
	waitFor(t, orc, s.ID, openAt(0))
}

func TestReleaseIdleParksAbandonedRuntimes(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil, nil)
	ctx := context.Background()

	s, err := orc.StartSession(ctx, completeRequest("client-1"))
	require.NoError(t, err)
	waitFor(t, orc, s.ID, openAt(0))

	// Detach so the clock (which refreshes activity) stops first
	events, cancel, err := orc.Subscribe(ctx, s.ID)
	require.NoError(t, err)
	_ = events
	cancel()

	require.Eventually(t, func() bool {
		return len(orc.ReleaseIdle(10*time.Millisecond)) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// Still resumable from storage afterwards
	resumed, err := orc.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, resumed.HasResumed)
}
