// Package retrylimit retries flaky remote calls behind an adaptive rate
// limiter. The limiter speeds up while calls succeed and backs off when the
// remote side reports overload.
//
//	lim := retrylimit.NewLimiter(retrylimit.Limits{Initial: 2, Min: 1, Max: 5})
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultPolicy("lrclib"), func(ctx context.Context) error {
//		return fetch(ctx)
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Limits configures a Limiter. Zero values fall back to sane defaults.
type Limits struct {
	Initial  rate.Limit    // requests per second at start
	Min, Max rate.Limit
	StepUp   rate.Limit    // added after each success
	StepDown float64       // multiplier applied on overload
	Cooldown time.Duration // no speed-up this long after an overload
}

func (l Limits) withDefaults() Limits {
	if l.Min < 1 {
		l.Min = 1
	}
	if l.Initial < l.Min {
		l.Initial = l.Min
	}
	if l.Max < l.Initial {
		l.Max = l.Initial
	}
	if l.StepUp <= 0 {
		l.StepUp = 1
	}
	if l.StepDown <= 0 || l.StepDown >= 1 {
		l.StepDown = 0.5
	}
	if l.Cooldown <= 0 {
		l.Cooldown = 10 * time.Second
	}
	return l
}

// Limiter is a token bucket whose rate follows call outcomes. Safe for
// concurrent use.
type Limiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	limits     Limits
	overloaded time.Time
	now        func() time.Time
}

func NewLimiter(l Limits) *Limiter {
	l = l.withDefaults()
	return &Limiter{
		bucket: rate.NewLimiter(l.Initial, max(1, int(l.Initial))),
		limits: l,
		now:    time.Now,
	}
}

// Wait blocks until a call may proceed.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Success raises the rate unless an overload happened recently.
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.overloaded) > l.limits.Cooldown {
		l.set(l.bucket.Limit() + l.limits.StepUp)
	}
}

// Overloaded lowers the rate.
func (l *Limiter) Overloaded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overloaded = l.now()
	l.set(rate.Limit(float64(l.bucket.Limit()) * l.limits.StepDown))
}

// Limit is the current rate in requests per second.
func (l *Limiter) Limit() rate.Limit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket.Limit()
}

func (l *Limiter) set(r rate.Limit) {
	r = min(max(r, l.limits.Min), l.limits.Max)
	if r == l.bucket.Limit() {
		return
	}
	l.bucket.SetLimit(r)
	l.bucket.SetBurst(max(1, int(r)))
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func statusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// Overload reports whether err means the remote side wants us to slow down.
func Overload(err error) bool {
	code := statusOf(err)
	return code == http.StatusTooManyRequests || code >= 500 && code < 600
}

// Policy describes how often and how patiently Do retries.
type Policy struct {
	Name           string // tags log lines
	Attempts       int
	Delay          time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RateLimitDelay time.Duration // replaces the backoff delay after a 429
}

// DefaultPolicy retries five times with exponential backoff from 500ms.
func DefaultPolicy(name string) Policy {
	return Policy{
		Name:           name,
		Attempts:       5,
		Delay:          500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2,
		Jitter:         true,
		RateLimitDelay: time.Second,
	}
}

// ErrAttemptsExhausted wraps the last error once the policy gives up.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Do calls fn until it succeeds, returns a Permanent error, ctx ends or the
// policy runs out of attempts. lim may be nil.
func Do(ctx context.Context, lim *Limiter, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	logger := log.With().Str("component", "retry").Str("op", p.Name).Logger()

	delay := p.Delay
	var last error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				logger.Debug().Int("attempt", attempt).Msg("Succeeded after retry")
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		last = err
		if attempt == p.Attempts {
			break
		}

		wait := delay
		if Overload(err) && lim != nil {
			lim.Overloaded()
		}
		if statusOf(err) == http.StatusTooManyRequests && p.RateLimitDelay > 0 {
			wait = p.RateLimitDelay
		} else if p.Jitter {
			wait = jitter(wait)
		}
		logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Call failed, retrying")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("%s: %w: %w", p.Name, ErrAttemptsExhausted, last)
}

// jitter adds up to a quarter of d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + rand.N(d/4)
}
