package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/crm-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) VerifyEmail(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type recorder struct {
	mu     sync.Mutex
	shown  []domain.Outcome
	routes []string
}

func (r *recorder) Show(o domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, o)
}

func (r *recorder) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) outcomes() []domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Outcome(nil), r.shown...)
}

func (r *recorder) navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, fn func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) armed() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTimer(nil), s.timers...)
}

// --- helpers ---

func query(token string) url.Values {
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	}
	return q
}

func newTestFlow(v Verifier) (*Flow, *recorder, *fakeScheduler) {
	rec := &recorder{}
	sched := &fakeScheduler{}
	f := New(v, rec, rec, WithScheduler(sched.schedule))
	return f, rec, sched
}

func waitDone(t *testing.T, f *Flow) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not reach a terminal outcome")
	}
}

// --- token extraction ---

func TestEvaluate_TokenMissing(t *testing.T) {
	v := &mockVerifier{}
	f, rec, sched := newTestFlow(v)

	f.Evaluate(url.Values{})
	waitDone(t, f)

	assert.Equal(t, domain.Failure(domain.KindTokenMissing, "Token missing in URL."), f.Outcome())
	assert.Equal(t, []domain.Outcome{domain.Failure(domain.KindTokenMissing, "Token missing in URL.")}, rec.outcomes())
	assert.Empty(t, sched.armed())
	v.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything)
}

func TestEvaluate_EmptyTokenCountsAsMissing(t *testing.T) {
	v := &mockVerifier{}
	f, _, _ := newTestFlow(v)

	f.Evaluate(url.Values{"token": {""}})
	waitDone(t, f)

	assert.Equal(t, domain.KindTokenMissing, f.Outcome().Kind)
	v.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything)
}

// --- verification outcomes ---

func TestEvaluate_Success_SchedulesLoginRedirect(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("Email verified successfully", nil).Once()
	f, rec, sched := newTestFlow(v)

	f.Evaluate(query("abc123"))
	waitDone(t, f)

	assert.Equal(t, []domain.Outcome{
		domain.Pending(),
		domain.Success("Email verified successfully"),
	}, rec.outcomes())

	timers := sched.armed()
	require.Len(t, timers, 1)
	assert.Equal(t, 2000*time.Millisecond, timers[0].d)
	assert.Empty(t, rec.navigations(), "navigation must wait for the timer")

	timers[0].fn()
	assert.Equal(t, []string{"/login"}, rec.navigations())
	v.AssertExpectations(t)
}

func TestEvaluate_RejectedWithDetail(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("", &domain.RejectedError{Status: 400, Detail: "Invalid token"})
	f, _, sched := newTestFlow(v)

	f.Evaluate(query("abc123"))
	waitDone(t, f)

	assert.Equal(t, domain.Failure(domain.KindTokenRejected, "Invalid token"), f.Outcome())
	assert.Empty(t, sched.armed())
}

func TestEvaluate_RejectedWithoutDetail(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("", &domain.RejectedError{Status: 500})
	f, _, _ := newTestFlow(v)

	f.Evaluate(query("abc123"))
	waitDone(t, f)

	assert.Equal(t, domain.Failure(domain.KindTokenRejectedNoDetail, "Invalid or expired token"), f.Outcome())
}

func TestEvaluate_Unreachable(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("", fmt.Errorf("GET /auth/verify-email: %w", domain.ErrUnreachable))
	f, rec, sched := newTestFlow(v)

	f.Evaluate(query("abc123"))
	waitDone(t, f)

	assert.Equal(t, domain.Failure(domain.KindUnreachable, "Server not reachable. Try again."), f.Outcome())
	assert.Len(t, rec.outcomes(), 2)
	assert.Empty(t, sched.armed())
}

// --- idempotence and re-arming ---

func TestEvaluate_SameTokenIsIdempotent(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("ok", nil).Once()
	f, rec, sched := newTestFlow(v)

	f.Evaluate(query("abc123"))
	waitDone(t, f)
	f.Evaluate(query("abc123"))
	f.Evaluate(query("abc123"))

	v.AssertNumberOfCalls(t, "VerifyEmail", 1)
	assert.Len(t, rec.outcomes(), 2)
	assert.Len(t, sched.armed(), 1)
}

func TestEvaluate_SameTokenWhilePendingIsIdempotent(t *testing.T) {
	release := make(chan struct{})
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").
		Run(func(mock.Arguments) { <-release }).
		Return("ok", nil).Once()
	f, _, _ := newTestFlow(v)

	f.Evaluate(query("abc123"))
	f.Evaluate(query("abc123"))
	close(release)
	waitDone(t, f)

	v.AssertNumberOfCalls(t, "VerifyEmail", 1)
}

func TestEvaluate_MissingTokenIsIdempotent(t *testing.T) {
	f, rec, _ := newTestFlow(&mockVerifier{})

	f.Evaluate(url.Values{})
	f.Evaluate(url.Values{})

	assert.Len(t, rec.outcomes(), 1)
}

func TestEvaluate_NewTokenRearms(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "first").Return("", &domain.RejectedError{Status: 400, Detail: "Invalid token"}).Once()
	v.On("VerifyEmail", mock.Anything, "second").Return("Email verified successfully", nil).Once()
	f, _, sched := newTestFlow(v)

	f.Evaluate(query("first"))
	waitDone(t, f)
	assert.Equal(t, domain.StateFailure, f.Outcome().State)

	f.Evaluate(query("second"))
	waitDone(t, f)
	assert.Equal(t, domain.Success("Email verified successfully"), f.Outcome())
	assert.Len(t, sched.armed(), 1)
	v.AssertExpectations(t)
}

func TestEvaluate_NewTokenCancelsPendingCallAndTimer(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "first").Return("ok", nil).Once()
	v.On("VerifyEmail", mock.Anything, "second").
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return("", context.Canceled).Once()
	f, rec, sched := newTestFlow(v)

	f.Evaluate(query("first"))
	waitDone(t, f)
	timers := sched.armed()
	require.Len(t, timers, 1)

	f.Evaluate(query("second"))
	assert.True(t, timers[0].stopped, "redirect for the previous token must be stopped")

	// A late fire of the old timer must not navigate.
	timers[0].fn()
	assert.Empty(t, rec.navigations())

	f.Dispose()
}

// --- cancellation ---

func TestDispose_WhileCallOutstanding(t *testing.T) {
	started := make(chan struct{})
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return("Email verified successfully", nil).Once()
	f, rec, sched := newTestFlow(v)

	f.Evaluate(query("abc123"))
	<-started
	f.Dispose()
	waitDone(t, f)

	// Give the verifier goroutine time to observe cancellation and return.
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, []domain.Outcome{domain.Pending()}, rec.outcomes())
	assert.Equal(t, domain.StatePending, f.Outcome().State)
	assert.Empty(t, sched.armed())
	assert.Empty(t, rec.navigations())
}

func TestDispose_StopsPendingRedirect(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("ok", nil).Once()
	f, rec, sched := newTestFlow(v)

	f.Evaluate(query("abc123"))
	waitDone(t, f)
	timers := sched.armed()
	require.Len(t, timers, 1)

	f.Dispose()
	assert.True(t, timers[0].stopped)

	timers[0].fn()
	assert.Empty(t, rec.navigations())
}

func TestDispose_Twice(t *testing.T) {
	f, _, _ := newTestFlow(&mockVerifier{})
	f.Dispose()
	assert.NotPanics(t, f.Dispose)
}

func TestEvaluate_AfterDisposeIsIgnored(t *testing.T) {
	v := &mockVerifier{}
	f, rec, _ := newTestFlow(v)
	f.Dispose()

	f.Evaluate(query("abc123"))

	assert.Empty(t, rec.outcomes())
	v.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything)
}

// --- real timer ---

func TestEvaluate_RealTimerNavigates(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyEmail", mock.Anything, "abc123").Return("ok", nil)
	nav := make(chan string, 1)
	f := New(v, navFunc(func(r string) { nav <- r }), nil,
		WithRedirectDelay(20*time.Millisecond), WithLoginRoute("/signin"))

	start := time.Now()
	f.Evaluate(query("abc123"))

	select {
	case route := <-nav:
		assert.Equal(t, "/signin", route)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("redirect did not fire")
	}
}

type navFunc func(string)

func (fn navFunc) Navigate(route string) { fn(route) }

// --- Classify ---

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.Success("done"), Classify("done", nil))
	assert.Equal(t, domain.Success(""), Classify("", nil))
	assert.Equal(t, domain.KindTokenRejected, Classify("", &domain.RejectedError{Status: 400, Detail: "x"}).Kind)
	assert.Equal(t, domain.KindTokenRejectedNoDetail, Classify("", fmt.Errorf("wrapped: %w", &domain.RejectedError{Status: 404})).Kind)
	assert.Equal(t, domain.KindUnreachable, Classify("", domain.ErrUnreachable).Kind)
	assert.Equal(t, domain.KindUnreachable, Classify("", errors.New("dial tcp: connection refused")).Kind)
}
