// Package resilience guards calls to the news provider with a circuit breaker
// and a request rate limiter.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/metrics"
)

// ErrOpen is returned without calling the provider while the breaker is open
// or the half-open probe budget is spent.
var ErrOpen = errors.New("provider circuit open")

// BreakerConfig holds the settings for a circuit breaker.
type BreakerConfig struct {
	// Name is used in logs and the breaker state gauge
	Name string

	// MaxRequests is the number of probe requests allowed while half-open
	MaxRequests uint32

	// Interval is the closed-state window after which counts are cleared
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker, e.g. 0.6
	FailureThreshold float64

	// MinRequests is the number of requests seen before the ratio applies
	MinRequests uint32
}

// BreakerConfigFrom maps the provider section of the config file.
func BreakerConfigFrom(name string, c config.BreakerConfig) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      c.MaxRequests,
		Interval:         c.Interval,
		Timeout:          c.Timeout,
		FailureThreshold: c.FailureThreshold,
		MinRequests:      c.MinRequests,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		// A superseded search abandons its context; that says nothing about
		// the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			debuglog.WithFields(map[string]interface{}{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warnf("circuit breaker state changed")
			metrics.RecordBreakerState(name, int(to))
		},
	}

	metrics.RecordBreakerState(cfg.Name, int(gobreaker.StateClosed))

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker. While open it returns an error
// wrapping ErrOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrOpen, err)
	}
	return err
}

func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
