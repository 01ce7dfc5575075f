package usersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/delivery"
	"github.com/xraph/usersync/event"
	"github.com/xraph/usersync/filter"
	"github.com/xraph/usersync/observability"
	"github.com/xraph/usersync/payload"
	"github.com/xraph/usersync/tenant"
)

// Syncer is the event listener. It keeps one delivery engine per realm,
// built on first use from the realm's effective configuration.
type Syncer struct {
	defaults map[string]string
	provider tenant.Provider
	realms   payload.RealmLookup
	users    payload.UserLookup

	logger          *slog.Logger
	metrics         *observability.Metrics
	tracer          *observability.Tracer
	client          *http.Client
	hook            func(delivery.Report)
	queueSize       int
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	runtime map[string]*realmRuntime
	closed  bool
}

// realmRuntime is the configuration snapshot and engine for one realm.
type realmRuntime struct {
	cfg    config.Config
	engine *delivery.Engine
}

// New creates a Syncer with the given options.
func New(opts ...Option) (*Syncer, error) {
	s := &Syncer{
		defaults:        map[string]string{},
		logger:          slog.Default(),
		shutdownTimeout: delivery.DefaultShutdownTimeout,
		runtime:         make(map[string]*realmRuntime),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.realms == nil || s.users == nil {
		return nil, ErrNoLookups
	}
	if s.provider == nil {
		s.provider = tenant.NewStatic()
	}
	return s, nil
}

// OnEvent handles one identity event. It never blocks on network delivery
// and never panics; every failure is logged and the event dropped.
func (s *Syncer) OnEvent(ctx context.Context, evt event.RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "event handling panicked",
				"event_id", evt.ID, "realm_id", evt.RealmID, "panic", r)
		}
	}()
	_ = s.Handle(ctx, evt)
}

// Handle is OnEvent with the disposition returned:
//
//   - nil: the payload was handed to the realm's engine
//   - ErrFilteredOut: the event-type or client filter rejected it
//   - payload.ErrRealmNotFound / payload.ErrUserNotFound: enrichment
//     could not resolve the event
//   - payload.ErrExtractionFailed: a lookup failed unexpectedly
//   - delivery.ErrQueueFull / delivery.ErrEngineClosed: the engine refused it
//
// A realm without an endpoint is accepted here and reported by the engine
// as delivery.OutcomeDisabled. All errors are already logged.
func (s *Syncer) Handle(ctx context.Context, evt event.RawEvent) error {
	s.metrics.RecordReceived()

	rt, err := s.realm(ctx, evt.RealmID)
	if errors.Is(err, ErrClosed) {
		s.logger.WarnContext(ctx, "event after shutdown dropped", "event_id", evt.ID)
		return err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "resolve realm configuration failed",
			"event_id", evt.ID, "realm_id", evt.RealmID, "error", err)
		return err
	}

	if reason := filter.Evaluate(evt, rt.cfg); reason != filter.Accepted {
		s.metrics.RecordFiltered(reason.String())
		s.logger.DebugContext(ctx, "event filtered out",
			"event_id", evt.ID, "type", evt.Type, "client_id", evt.ClientID, "reason", reason)
		return fmt.Errorf("%w: %s", ErrFilteredOut, reason)
	}

	p, err := payload.Extract(ctx, evt, s.realms, s.users, rt.cfg)
	if err != nil {
		if payload.IsRejection(err) {
			s.metrics.RecordRejected(rejectionReason(err))
			s.logger.WarnContext(ctx, "event rejected",
				"event_id", evt.ID, "realm_id", evt.RealmID, "user_id", evt.UserID, "error", err)
		} else {
			s.metrics.RecordRejected("extraction_failed")
			s.logger.ErrorContext(ctx, "event extraction failed",
				"event_id", evt.ID, "realm_id", evt.RealmID, "user_id", evt.UserID, "error", err)
		}
		return err
	}

	delID, err := rt.engine.Submit(p)
	if errors.Is(err, delivery.ErrEngineClosed) {
		// A concurrent Reload retired the engine; hand the payload to its
		// replacement.
		if rt, err = s.realm(ctx, evt.RealmID); err != nil {
			return err
		}
		delID, err = rt.engine.Submit(p)
	}
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "event queued",
		"event_id", evt.ID, "delivery_id", delID, "type", evt.Type)
	return nil
}

func rejectionReason(err error) string {
	if errors.Is(err, payload.ErrRealmNotFound) {
		return "realm_not_found"
	}
	return "user_not_found"
}

// Config returns the effective configuration for realmID: the defaults with
// the realm's overrides laid over them.
func (s *Syncer) Config(ctx context.Context, realmID string) (config.Config, error) {
	overrides, err := s.provider.Overrides(ctx, realmID)
	if err != nil {
		return config.Config{}, fmt.Errorf("usersync: realm %s overrides: %w", realmID, err)
	}

	return config.FromMap(config.Merge(s.defaults, overrides)), nil
}

// realm returns the cached runtime for realmID, building and starting it on
// first use.
func (s *Syncer) realm(ctx context.Context, realmID string) (*realmRuntime, error) {
	s.mu.RLock()
	rt, ok := s.runtime[realmID]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return rt, nil
	}

	cfg, err := s.Config(ctx, realmID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if rt, ok := s.runtime[realmID]; ok {
		return rt, nil
	}

	rt = &realmRuntime{
		cfg:    cfg,
		engine: delivery.NewEngine(cfg, s.engineOptions(realmID)...),
	}
	rt.engine.Start()
	s.runtime[realmID] = rt

	s.logger.DebugContext(ctx, "realm runtime created",
		"realm_id", realmID, "enabled", cfg.Enabled(), "workers", cfg.WorkerCount)
	return rt, nil
}

// Reload drops the cached configuration of the given realms, or of every
// realm when none is named, so the next event rebuilds it. The replaced
// engines are shut down within ctx.
func (s *Syncer) Reload(ctx context.Context, realmIDs ...string) error {
	s.mu.Lock()
	var stale []*delivery.Engine
	if len(realmIDs) == 0 {
		for id, rt := range s.runtime {
			stale = append(stale, rt.engine)
			delete(s.runtime, id)
		}
	} else {
		for _, id := range realmIDs {
			if rt, ok := s.runtime[id]; ok {
				stale = append(stale, rt.engine)
				delete(s.runtime, id)
			}
		}
	}
	s.mu.Unlock()

	return shutdownAll(ctx, stale)
}

// Shutdown stops accepting events and shuts down every realm engine,
// waiting at most until ctx ends. Only the first call has any effect.
func (s *Syncer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	engines := make([]*delivery.Engine, 0, len(s.runtime))
	for _, rt := range s.runtime {
		engines = append(engines, rt.engine)
	}
	clear(s.runtime)
	s.mu.Unlock()

	err := shutdownAll(ctx, engines)
	s.logger.InfoContext(ctx, "usersync stopped", "realms", len(engines))
	return err
}

func shutdownAll(ctx context.Context, engines []*delivery.Engine) error {
	errs := make([]error, len(engines))
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.Shutdown(ctx)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
