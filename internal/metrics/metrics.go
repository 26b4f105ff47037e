// Package metrics exports roast pipeline activity to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/edgard/roastme/internal/roast"
)

const namespace = "roastme"

// Recorder implements roast.Observer and records breaker and corpus state.
type Recorder struct {
	roasts          *prometheus.CounterVec
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	corpusSize      prometheus.Gauge
}

var _ roast.Observer = (*Recorder)(nil)

// NewRecorder registers the collectors with reg, reusing collectors that are
// already registered under the same names. A nil reg uses the default
// registerer.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{}
	var err error

	r.roasts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roasts_total",
		Help:      "Roasts returned, by the tier that produced them.",
	}, []string{"provenance", "roast_type"}))
	if err != nil {
		return nil, err
	}

	r.attempts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "attempts_total",
		Help:      "Generation attempts per credential and outcome.",
	}, []string{"credential", "outcome"}))
	if err != nil {
		return nil, err
	}

	r.attemptDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "attempt_duration_seconds",
		Help:      "Latency of generation attempts per credential.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
	}, []string{"credential"}))
	if err != nil {
		return nil, err
	}

	r.breakerState, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per credential (0 closed, 1 half-open, 2 open).",
	}, []string{"credential"}))
	if err != nil {
		return nil, err
	}

	r.corpusSize, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "corpus",
		Name:      "size",
		Help:      "Number of stored roasts at the last refresh.",
	}))
	if err != nil {
		return nil, err
	}

	return r, nil
}

// MustNewRecorder is like NewRecorder but panics on registration errors.
func MustNewRecorder(reg prometheus.Registerer) *Recorder {
	r, err := NewRecorder(reg)
	if err != nil {
		panic(err)
	}
	return r
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register collector: %w", err)
	}
	return c, nil
}

// ObserveAttempt implements roast.Observer.
func (r *Recorder) ObserveAttempt(credential, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(credential, outcome).Inc()
	r.attemptDuration.WithLabelValues(credential).Observe(elapsed.Seconds())
}

// ObserveResult implements roast.Observer.
func (r *Recorder) ObserveResult(provenance roast.Provenance, roastType roast.RoastType) {
	if r == nil {
		return
	}
	r.roasts.WithLabelValues(string(provenance), string(roastType)).Inc()
}

// BreakerStateChanged matches the breaker state-change callback signature.
func (r *Recorder) BreakerStateChanged(name string, _, to gobreaker.State) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(name).Set(float64(to))
}

// SetCorpusSize records the corpus size observed by the refresh task.
func (r *Recorder) SetCorpusSize(n int) {
	if r == nil {
		return
	}
	r.corpusSize.Set(float64(n))
}
