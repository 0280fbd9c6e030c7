package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/roach88/normativ/internal/store"
)

// Defaults for the engine options.
const (
	DefaultMaxEntries = 64
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second

	retryBaseDelay = 10 * time.Millisecond
)

// Engine composes and deletes normatives against a Store.
//
// Every request runs in a single transaction: it either commits completely
// or leaves the store untouched. Requests are safe to issue concurrently;
// racing composes for the same (rank, parameter set) converge on one
// normative.
type Engine struct {
	store        *store.Store
	policy       ConflictPolicy
	serializable bool
	maxEntries   int
	maxRetries   int
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *Metrics
	ids          RequestIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithConflictPolicy sets the policy used when a request doesn't name one.
// Default: PolicyReject.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithSerializable runs transactions at SERIALIZABLE isolation on backends
// that support choosing it. Default: READ COMMITTED.
func WithSerializable(serializable bool) Option {
	return func(e *Engine) { e.serializable = serializable }
}

// WithMaxEntries caps both the number of links and the number of entries in
// one compose request. Zero disables the cap.
func WithMaxEntries(n int) Option {
	return func(e *Engine) { e.maxEntries = n }
}

// WithMaxRetries sets how often a transaction is retried after a
// serialization failure or lock contention.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithTimeout bounds each request. Zero leaves the caller's context alone.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRequestIDGenerator sets the request id source. Default: UUIDv7Generator.
func WithRequestIDGenerator(g RequestIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		policy:     PolicyReject,
		maxEntries: DefaultMaxEntries,
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
		ids:        UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// withTimeout derives the request context.
func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// inTx runs fn in a transaction, retrying the whole transaction when the
// backend reports a retryable failure. fn must be safe to run again.
func (e *Engine) inTx(ctx context.Context, op, requestID string, fn func(*store.Tx) error) error {
	opts := store.TxOptions{Serializable: e.serializable}
	for attempt := 0; ; attempt++ {
		err := e.store.WithTx(ctx, opts, fn)
		if err == nil || !store.IsRetryable(err) || attempt >= e.maxRetries {
			return err
		}

		e.metrics.observeRetry(op)
		e.logger.Warn("retrying transaction",
			"op", op,
			"request_id", requestID,
			"attempt", attempt+1,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(retryBackoff(attempt)):
		}
	}
}

// retryBackoff doubles the delay per attempt and adds up to one base delay
// of jitter so that colliding requests spread out.
func retryBackoff(attempt int) time.Duration {
	d := retryBaseDelay << min(attempt, 6)
	return d + rand.N(retryBaseDelay)
}

// classify turns a failure into an engine Error stamped with the request id.
func classify(op, requestID string, err error) *Error {
	var ee *Error
	if !errors.As(err, &ee) {
		ee = newDatabaseError(op, err)
	}
	ee.RequestID = requestID
	return ee
}
