package internal

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds how a failed call is retried
type RetryPolicy struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
}

// DefaultRetryPolicy allows three attempts of fifteen seconds each
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		AttemptTimeout:  15 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 1 {
		b.Multiplier = p.Multiplier
	}
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempts
// run out. Each attempt gets its own timeout. Only errors for which retryable
// returns true are retried.
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, op func(context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		actx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		err := op(actx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("attempt failed")
		return err
	}

	return backoff.Retry(operation, p.backOff(ctx))
}
