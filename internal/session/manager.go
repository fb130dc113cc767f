// Package session owns the lifecycle of Microsoft Graph workbook sessions:
// creation, guaranteed closure, and the backoff-retry loop wrapped around
// every session-scoped operation.
//
// A workbook session is a server-side editing context. Exactly one logical
// operation may hold it at a time, so WithSession serializes callers on a
// mutex: a concurrent call queues behind the running one rather than
// interleaving reads and writes inside the same session. One session spans
// exactly one operation: every Graph call the operation makes shares its
// token, and the session is closed on the way out, success or failure, never
// held across idle time. A failed close is swallowed because the server
// expires orphaned sessions on its own.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/skylinemro/ro-dashboard/internal/graph"
)

// API is the slice of the Graph client the manager needs.
type API interface {
	CreateSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, sessionID string) error
	FileMetadata(ctx context.Context) (json.RawMessage, error)
}

// Config tunes session lifetime and the retry loop.
type Config struct {
	// MaxAge is the server-side session lifetime. Each attempt runs under a
	// deadline of this length so an operation never keeps using a token the
	// server has already expired. Defaults to 30 minutes, matching the
	// server side.
	MaxAge time.Duration
	// MaxAttempts per operation, first try included. Defaults to 3.
	MaxAttempts int
	// BaseDelay before the first retry; doubles each attempt. Defaults to 500ms.
	BaseDelay time.Duration
	// Jitter is the backoff randomization factor, in (0,1). Defaults to
	// 0.3, which keeps consecutive delays strictly increasing: the shortest
	// possible next delay (0.7 x 2^k x base) still exceeds the longest
	// possible previous one (1.3 x 2^(k-1) x base).
	Jitter float64

	Logger zerolog.Logger
}

// Manager coordinates workbook sessions for one client. Safe for concurrent
// use; concurrent operations execute one at a time.
type Manager struct {
	api  API
	cfg  Config
	log  zerolog.Logger
	gate chan struct{} // capacity 1; FIFO-ish serialization of operations

	// Guarded by holding the gate. Non-empty only while an operation runs.
	token string

	// sleep is replaceable in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager builds a Manager around a Graph client.
func NewManager(api API, cfg Config) *Manager {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Minute
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Jitter <= 0 || cfg.Jitter >= 1 {
		cfg.Jitter = 0.3
	}
	m := &Manager{
		api:   api,
		cfg:   cfg,
		log:   cfg.Logger,
		gate:  make(chan struct{}, 1),
		sleep: sleepCtx,
	}
	return m
}

// WithSession runs fn inside a workbook session.
//
// It acquires the operation gate, creates a session, runs fn with the
// session token under a MaxAge deadline, and closes the session in a
// deferred path that runs whether fn succeeds, fails, or panics. Close
// failures are logged and swallowed; they never mask fn's outcome.
//
// Transient failures (per graph.IsRetryable) are retried with exponential
// backoff and jitter up to MaxAttempts, each attempt on a fresh session.
// Permanent failures surface immediately after the first attempt.
func (m *Manager) WithSession(ctx context.Context, fn func(ctx context.Context, sessionID string) error) error {
	select {
	case m.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.gate }()

	return m.retry(ctx, "with_session", func() error {
		return m.runOnce(ctx, fn)
	})
}

// CheckHealth verifies connectivity with a read-only metadata probe, under
// the same retry policy as write operations. It needs no session.
func (m *Manager) CheckHealth(ctx context.Context) error {
	return m.retry(ctx, "health", func() error {
		_, err := m.api.FileMetadata(ctx)
		return err
	})
}

// runOnce executes one attempt: acquire session, run fn, always close. The
// attempt is bounded by MaxAge, so fn cannot keep using a token past the
// point where the server has expired the session behind it.
func (m *Manager) runOnce(ctx context.Context, fn func(ctx context.Context, sessionID string) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.MaxAge)
	defer cancel()

	token, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer m.close(ctx)
	return fn(ctx, token)
}

// acquire creates the session for this attempt. The unconditional close in
// runOnce means no token ever survives between operations, so there is
// nothing to look for here; each attempt starts from scratch.
func (m *Manager) acquire(ctx context.Context) (string, error) {
	token, err := m.api.CreateSession(ctx)
	if err != nil {
		return "", err
	}
	m.token = token
	return token, nil
}

// close releases the current session unconditionally. Failures are swallowed:
// the server-side session expires on its own, and a close error must not
// override the operation's real outcome.
func (m *Manager) close(ctx context.Context) {
	token := m.token
	m.token = ""
	if token == "" {
		return
	}
	if err := m.api.CloseSession(ctx, token); err != nil {
		m.log.Debug().Err(err).Msg("session: close failed, leaving it to server-side expiry")
	}
}

// retry runs op up to MaxAttempts times, backing off exponentially between
// attempts. Only retryable errors are retried.
func (m *Manager) retry(ctx context.Context, name string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.BaseDelay
	bo.RandomizationFactor = m.cfg.Jitter
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // attempts are bounded by MaxAttempts, not wall time
	bo.Reset()

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !graph.IsRetryable(err) || attempt >= m.cfg.MaxAttempts {
			return err
		}
		delay := bo.NextBackOff()
		m.log.Warn().
			Err(err).
			Str("op", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("session: transient failure, retrying")
		if serr := m.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
