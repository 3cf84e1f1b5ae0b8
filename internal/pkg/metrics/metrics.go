// Package metrics holds the prometheus collectors for verification views and
// backend calls.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/crm-web/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	outcomes     *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	activeViews  prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_web_verification_outcomes_total",
				Help: "Terminal verification outcomes shown to users",
			},
			[]string{"state", "kind"},
		),
		callDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_web_backend_call_duration_seconds",
				Help:    "Duration of calls to the CRM backend",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
			},
			[]string{"call", "result"},
		),
		activeViews: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "crm_web_verification_views_active",
				Help: "Open verification views",
			},
		),
	}
}

func (m *Metrics) ViewOpened() { m.activeViews.Inc() }
func (m *Metrics) ViewClosed() { m.activeViews.Dec() }

// Outcome counts o if it is terminal.
func (m *Metrics) Outcome(o domain.Outcome) {
	if !o.Terminal() {
		return
	}
	kind := string(o.Kind)
	if kind == "" {
		kind = "none"
	}
	m.outcomes.WithLabelValues(string(o.State), kind).Inc()
}

// ObserveCall records one backend call that started at start.
func (m *Metrics) ObserveCall(call string, start time.Time, err error) {
	m.callDuration.WithLabelValues(call, result(err)).Observe(time.Since(start).Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRejected):
		return "rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unreachable"
	}
}

// EmailVerifier is the backend call the verification flow makes.
type EmailVerifier interface {
	VerifyEmail(ctx context.Context, token string) (string, error)
}

type instrumentedVerifier struct {
	next EmailVerifier
	m    *Metrics
}

// InstrumentVerifier times every VerifyEmail call made through next.
func (m *Metrics) InstrumentVerifier(next EmailVerifier) EmailVerifier {
	return &instrumentedVerifier{next: next, m: m}
}

func (v *instrumentedVerifier) VerifyEmail(ctx context.Context, token string) (string, error) {
	start := time.Now()
	msg, err := v.next.VerifyEmail(ctx, token)
	v.m.ObserveCall("verify_email", start, err)
	return msg, err
}
