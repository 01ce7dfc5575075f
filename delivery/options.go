package delivery

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/usersync/observability"
)

// Engine defaults.
const (
	DefaultQueueSize       = 1024
	DefaultShutdownTimeout = 30 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer used for delivery spans.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithOutcomeHook registers fn to be called once per finished delivery task.
// fn runs on the worker, timer or submitting goroutine and must not block.
func WithOutcomeHook(fn func(Report)) Option {
	return func(e *Engine) { e.hook = fn }
}

// WithQueueSize sets the capacity of the pending queue.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithShutdownTimeout sets the grace period Shutdown gives queued and
// in-flight deliveries before abandoning them.
func WithShutdownTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.grace = d
		}
	}
}

// WithHTTPClient replaces the client built from the configured timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}
