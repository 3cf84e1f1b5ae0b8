// Package verification runs the email-verification flow of one page view:
// read the token, resolve it against the backend once, show the outcome, and
// move on to the login page after a short delay when it succeeded.
package verification

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/crm-web/internal/domain"
	"go.uber.org/zap"
)

const DefaultRedirectDelay = 2000 * time.Millisecond

// Verifier resolves a token against the backend.
type Verifier interface {
	VerifyEmail(ctx context.Context, token string) (string, error)
}

// Navigator moves the hosting view to another route.
type Navigator interface {
	Navigate(route string)
}

// Display is the view's status line. Show is called with the flow's lock
// held and must not call back into the Flow.
type Display interface {
	Show(o domain.Outcome)
}

// Stopper is a scheduled one-shot task.
type Stopper interface {
	Stop() bool
}

// Scheduler arms fn to run once after d.
type Scheduler func(d time.Duration, fn func()) Stopper

func timeScheduler(d time.Duration, fn func()) Stopper { return time.AfterFunc(d, fn) }

type Option func(*Flow)

func WithRedirectDelay(d time.Duration) Option { return func(f *Flow) { f.delay = d } }

func WithLoginRoute(route string) Option { return func(f *Flow) { f.loginRoute = route } }

func WithLogger(l *zap.Logger) Option { return func(f *Flow) { f.log = l } }

func WithScheduler(s Scheduler) Option { return func(f *Flow) { f.schedule = s } }

// Flow is the verification state of one view. It issues at most one backend
// call per distinct token and drops every update once disposed.
type Flow struct {
	verifier   Verifier
	nav        Navigator
	display    Display
	delay      time.Duration
	loginRoute string
	schedule   Scheduler
	log        *zap.Logger

	mu       sync.Mutex
	armed    bool
	req      domain.VerificationRequest
	gen      uint64 // bumped on re-arm and dispose; stale continuations compare against it
	outcome  domain.Outcome
	cancel   context.CancelFunc
	redirect Stopper
	done     chan struct{}
	disposed bool
}

func New(v Verifier, nav Navigator, display Display, opts ...Option) *Flow {
	f := &Flow{
		verifier:   v,
		nav:        nav,
		display:    display,
		delay:      DefaultRedirectDelay,
		loginRoute: domain.RouteLogin,
		schedule:   timeScheduler,
		log:        zap.NewNop(),
		outcome:    domain.Pending(),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Evaluate is called whenever the view renders with its current query. The
// first call, and any call carrying a different token, arms the flow;
// repeated calls with the same token do nothing.
func (f *Flow) Evaluate(query url.Values) {
	req := domain.VerificationRequestFromQuery(query)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed {
		return
	}
	if f.armed && f.req == req {
		return
	}
	f.stopLocked()
	f.armed = true
	f.req = req
	f.gen++
	if f.outcome.Terminal() {
		f.done = make(chan struct{})
	}

	if !req.Present {
		f.log.Info("verification token missing")
		f.setLocked(domain.Failure(domain.KindTokenMissing, domain.MsgTokenMissing))
		return
	}

	f.setLocked(domain.Pending())
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.verify(ctx, f.gen, req.Token)
}

func (f *Flow) verify(ctx context.Context, gen uint64, token string) {
	msg, err := f.verifier.VerifyEmail(ctx, token)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed || gen != f.gen {
		f.log.Debug("dropping stale verification result", zap.Uint64("gen", gen))
		return
	}
	f.cancel()
	f.cancel = nil

	out := Classify(msg, err)
	if out.State == domain.StateFailure {
		f.log.Info("email verification failed", zap.String("kind", string(out.Kind)), zap.Error(err))
	} else {
		f.log.Info("email verified")
	}
	if out.State == domain.StateSuccess {
		// navigate takes f.mu, so the redirect cannot overtake the status update below.
		f.redirect = f.schedule(f.delay, func() { f.navigate(gen) })
	}
	f.setLocked(out)
}

func (f *Flow) navigate(gen uint64) {
	f.mu.Lock()
	if f.disposed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.redirect = nil
	route := f.loginRoute
	f.mu.Unlock()

	f.nav.Navigate(route)
}

// Outcome returns the current outcome.
func (f *Flow) Outcome() domain.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// Done is closed once the current attempt is terminal or the flow is disposed.
func (f *Flow) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Dispose tears the flow down with its view: the outstanding call is
// cancelled, the pending redirect is stopped, and no later update reaches the
// display or the navigator.
func (f *Flow) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed {
		return
	}
	f.disposed = true
	f.gen++
	f.stopLocked()
	if !f.outcome.Terminal() {
		close(f.done)
	}
}

func (f *Flow) stopLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.redirect != nil {
		f.redirect.Stop()
		f.redirect = nil
	}
}

func (f *Flow) setLocked(o domain.Outcome) {
	f.outcome = o
	if f.display != nil {
		f.display.Show(o)
	}
	if o.Terminal() {
		close(f.done)
	}
}

// Classify maps the result of a verify call to the outcome shown to the user.
func Classify(msg string, err error) domain.Outcome {
	if err == nil {
		return domain.Success(msg)
	}
	var rej *domain.RejectedError
	if errors.As(err, &rej) {
		if rej.Detail != "" {
			return domain.Failure(domain.KindTokenRejected, rej.Detail)
		}
		return domain.Failure(domain.KindTokenRejectedNoDetail, domain.MsgInvalidToken)
	}
	return domain.Failure(domain.KindUnreachable, domain.MsgUnreachable)
}
