// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package opac

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
	"github.com/tomtom215/readmark/internal/models"
)

const breakerName = "library-api"

var _ HistorySource = (*BreakerClient)(nil)

// BreakerClient wraps a HistorySource with a circuit breaker.
//
// The breaker uses real time for its interval and timeout, so tests drive it
// by request counts rather than by waiting.
type BreakerClient struct {
	source HistorySource
	cb     *gobreaker.CircuitBreaker[[]models.LoanItem]
}

// BreakerSettings tunes the breaker. Zero values take the defaults below.
type BreakerSettings struct {
	// MinRequests is the number of requests in a window before the breaker may trip.
	MinRequests uint32
	// FailureRatio trips the breaker once reached.
	FailureRatio float64
	Interval     time.Duration
	Timeout      time.Duration
}

// NewBreakerClient wraps source.
// Defaults:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 5 requests
func NewBreakerClient(source HistorySource, s BreakerSettings) *BreakerClient {
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.Timeout <= 0 {
		s.Timeout = 2 * time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.LoanItem](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureRatio {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening library API circuit")
				return true
			}
			return false
		},
		// A patron the library does not know is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAPI)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerClient{source: source, cb: cb}
}

// LoanHistory delegates to the wrapped source unless the circuit is open.
// Partial items gathered before a failure are still returned.
func (b *BreakerClient) LoanHistory(ctx context.Context, readerID string, readerType models.ReaderType, maxPages, pageSize int) ([]models.LoanItem, error) {
	var partial []models.LoanItem
	items, err := b.cb.Execute(func() ([]models.LoanItem, error) {
		got, err := b.source.LoanHistory(ctx, readerID, readerType, maxPages, pageSize)
		partial = got
		return got, err
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
			err = errors.Join(ErrUpstream, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, result).Inc()
		return partial, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return items, nil
}

// State reports the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
