package usersync

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/delivery"
	"github.com/xraph/usersync/observability"
	"github.com/xraph/usersync/payload"
	"github.com/xraph/usersync/tenant"
)

// Option configures a Syncer instance.
type Option func(*Syncer) error

// WithLookups sets the realm and user lookups used to enrich events.
func WithLookups(realms payload.RealmLookup, users payload.UserLookup) Option {
	return func(s *Syncer) error {
		s.realms = realms
		s.users = users
		return nil
	}
}

// WithDefaults lays values over the process-wide defaults. Later calls win
// key by key.
func WithDefaults(values map[string]string) Option {
	return func(s *Syncer) error {
		s.defaults = config.Merge(s.defaults, values)
		return nil
	}
}

// WithDefaultsFile loads defaults from a YAML file and USERSYNC_*
// environment variables. A missing file is not an error.
func WithDefaultsFile(path string) Option {
	return func(s *Syncer) error {
		values, err := config.LoadDefaults(path)
		if err != nil {
			return fmt.Errorf("usersync: load defaults: %w", err)
		}
		s.defaults = config.Merge(s.defaults, values)
		return nil
	}
}

// WithProvider sets where per-realm overrides come from.
func WithProvider(p tenant.Provider) Option {
	return func(s *Syncer) error {
		s.provider = p
		return nil
	}
}

// WithLogger sets the structured logger for the Syncer instance.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Syncer) error {
		s.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used for delivery spans.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Syncer) error {
		s.tracer = t
		return nil
	}
}

// WithHTTPClient replaces the per-realm clients built from the configured
// timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Syncer) error {
		s.client = c
		return nil
	}
}

// WithOutcomeHook registers fn to be called once per finished delivery.
func WithOutcomeHook(fn func(delivery.Report)) Option {
	return func(s *Syncer) error {
		s.hook = fn
		return nil
	}
}

// WithQueueSize sets the pending queue capacity of each realm's engine.
func WithQueueSize(n int) Option {
	return func(s *Syncer) error {
		s.queueSize = n
		return nil
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight deliveries on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Syncer) error {
		s.shutdownTimeout = d
		return nil
	}
}

func (s *Syncer) engineOptions(realmID string) []delivery.Option {
	opts := []delivery.Option{
		delivery.WithLogger(s.logger.With("realm_id", realmID)),
		delivery.WithMetrics(s.metrics),
		delivery.WithShutdownTimeout(s.shutdownTimeout),
	}
	if s.tracer != nil {
		opts = append(opts, delivery.WithTracer(s.tracer))
	}
	if s.client != nil {
		opts = append(opts, delivery.WithHTTPClient(s.client))
	}
	if s.hook != nil {
		opts = append(opts, delivery.WithOutcomeHook(s.hook))
	}
	if s.queueSize > 0 {
		opts = append(opts, delivery.WithQueueSize(s.queueSize))
	}
	return opts
}
