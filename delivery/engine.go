package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/id"
	"github.com/xraph/usersync/observability"
	"github.com/xraph/usersync/payload"
	"github.com/xraph/usersync/ratelimit"
)

// requeueBackoff is the minimum wait before a deferred retry is re-offered
// to a full queue.
const requeueBackoff = 50 * time.Millisecond

// Engine is the delivery worker pool for one endpoint configuration.
//
// Submitted deliveries are queued and picked up by WorkerCount workers.
// A failed attempt with budget left is re-queued by a timer after the retry
// delay, so no worker sleeps while a retry is pending.
type Engine struct {
	cfg     config.Config
	sender  *Sender
	retrier *Retrier
	limiter *ratelimit.Limiter

	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	hook      func(Report)
	client    *http.Client
	queueSize int
	grace     time.Duration

	queue chan *Delivery
	quit  chan struct{}

	// ctx is cancelled once the shutdown grace period runs out.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	timers map[*Delivery]*time.Timer

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewEngine creates a delivery engine for cfg. Call Start to run workers.
func NewEngine(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg.Clone(),
		queueSize: DefaultQueueSize,
		grace:     DefaultShutdownTimeout,
		quit:      make(chan struct{}),
		timers:    make(map[*Delivery]*time.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = observability.NewTracer()
	}
	if e.cfg.WorkerCount < 1 {
		e.cfg.WorkerCount = config.DefaultWorkerCount
	}

	e.sender = NewSender(e.cfg, e.client)
	e.retrier = NewRetrier(e.cfg.Retry)
	e.limiter = ratelimit.New(e.cfg.RateLimit)
	e.queue = make(chan *Delivery, e.queueSize)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Config returns the engine's configuration snapshot.
func (e *Engine) Config() config.Config { return e.cfg.Clone() }

// Start launches the workers. It is a no-op after the first call or once
// Shutdown has begun.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.mu.RLock()
		defer e.mu.RUnlock()
		if e.closed {
			return
		}
		for range e.cfg.WorkerCount {
			e.wg.Add(1)
			go e.worker()
		}
		e.logger.Debug("delivery engine started",
			"endpoint", e.cfg.Endpoint, "workers", e.cfg.WorkerCount)
	})
}

// Submit queues p for delivery and returns without waiting on the network.
//
// After Shutdown it returns ErrEngineClosed, endpoint or not. With no
// endpoint configured nothing is queued and the task is reported as
// OutcomeDisabled. With a full queue it returns ErrQueueFull. Both
// rejections are logged.
func (e *Engine) Submit(p *payload.SyncPayload) (id.ID, error) {
	if p == nil {
		return id.Nil, ErrNilPayload
	}

	d := &Delivery{
		ID:          id.NewDeliveryID(),
		Payload:     p,
		MaxAttempts: e.retrier.Budget(),
	}

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		e.logger.Warn("submit after shutdown rejected",
			"delivery_id", d.ID, "event_id", p.EventID)
		return d.ID, ErrEngineClosed
	}

	if !e.cfg.Enabled() {
		e.logger.Debug("no endpoint configured, delivery skipped",
			"delivery_id", d.ID, "event_id", p.EventID)
		e.finish(d, OutcomeDisabled)
		return d.ID, nil
	}

	body, err := payload.Encode(p)
	if err != nil {
		e.logger.Error("encode payload failed",
			"delivery_id", d.ID, "event_id", p.EventID, "error", err)
		return id.Nil, fmt.Errorf("delivery: %w", err)
	}
	d.Body = body

	e.mu.RLock()
	closed = e.closed
	queued := false
	if !closed {
		select {
		case e.queue <- d:
			queued = true
		default:
		}
	}
	e.mu.RUnlock()

	switch {
	case closed:
		e.logger.Warn("submit after shutdown rejected",
			"delivery_id", d.ID, "event_id", p.EventID)
		return d.ID, ErrEngineClosed
	case !queued:
		e.logger.Error("delivery queue full, payload dropped",
			"delivery_id", d.ID, "event_id", p.EventID, "capacity", cap(e.queue))
		e.finish(d, OutcomeDropped)
		return d.ID, ErrQueueFull
	}
	e.metrics.SetQueueDepth(len(e.queue))
	return d.ID, nil
}

// Shutdown stops accepting work and waits for queued and in-flight
// deliveries. Pending retries are abandoned at once; whatever is still
// running when the grace period or ctx ends is abandoned too. Idle
// connections are released before it returns. Only the first call has any
// effect; it returns ctx.Err() if ctx ended before the workers did.
func (e *Engine) Shutdown(ctx context.Context) error {
	var err error
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		pending := make([]*Delivery, 0, len(e.timers))
		for d, t := range e.timers {
			t.Stop()
			pending = append(pending, d)
		}
		clear(e.timers)
		e.mu.Unlock()

		for _, d := range pending {
			e.logger.Warn("pending retry abandoned on shutdown",
				"delivery_id", d.ID, "attempts", d.Attempts)
			e.finish(d, OutcomeAbandoned)
		}

		close(e.quit)

		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()

		grace := time.NewTimer(e.grace)
		defer grace.Stop()

		select {
		case <-done:
		case <-grace.C:
			e.logger.Warn("shutdown grace period elapsed, abandoning deliveries")
			e.cancel()
			<-done
		case <-ctx.Done():
			err = ctx.Err()
			e.cancel()
			<-done
		}
		e.cancel()

		// Anything queued before workers ever started.
	drain:
		for {
			select {
			case d := <-e.queue:
				e.finish(d, OutcomeAbandoned)
			default:
				break drain
			}
		}
		e.metrics.SetQueueDepth(0)

		e.sender.Close()
		e.logger.Debug("delivery engine stopped", "endpoint", e.cfg.Endpoint)
	})
	return err
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case d := <-e.queue:
			e.process(d)
		case <-e.quit:
			for {
				select {
				case d := <-e.queue:
					e.process(d)
				default:
					return
				}
			}
		}
	}
}

// process makes one attempt and decides what happens next.
func (e *Engine) process(d *Delivery) {
	e.metrics.SetQueueDepth(len(e.queue))

	if e.ctx.Err() != nil {
		e.finish(d, OutcomeAbandoned)
		return
	}
	if err := e.limiter.Wait(e.ctx); err != nil {
		e.finish(d, OutcomeAbandoned)
		return
	}

	d.Attempts++
	ctx, span := e.tracer.StartDeliverySpan(e.ctx, d.ID.String(), d.Payload.EventID, d.Payload.RealmID, d.Attempts)
	result := e.sender.Send(ctx, d)
	e.tracer.EndDeliverySpan(span, result.StatusCode, result.LatencyMs, result.Error)
	d.Last = result

	latency := time.Duration(result.LatencyMs) * time.Millisecond

	switch e.retrier.Decide(result, d) {
	case Delivered:
		e.metrics.RecordAttempt("delivered", latency)
		e.logger.DebugContext(ctx, "delivered",
			"delivery_id", d.ID, "status", result.StatusCode, "attempt", d.Attempts, "latency_ms", result.LatencyMs)
		e.finish(d, OutcomeDelivered)

	case Retry:
		e.metrics.RecordAttempt("retry", latency)
		if e.ctx.Err() != nil {
			e.finish(d, OutcomeAbandoned)
			return
		}
		e.logger.WarnContext(ctx, "delivery attempt failed, retry scheduled",
			"delivery_id", d.ID, "attempt", d.Attempts, "max_attempts", d.MaxAttempts,
			"status", result.StatusCode, "error", result.Error, "delay", e.retrier.Delay())
		e.scheduleRetry(d)

	case Exhausted:
		e.metrics.RecordAttempt("failed", latency)
		if e.ctx.Err() != nil {
			e.finish(d, OutcomeAbandoned)
			return
		}
		e.logger.ErrorContext(ctx, "delivery failed, retries exhausted",
			"delivery_id", d.ID, "event_id", d.Payload.EventID, "attempts", d.Attempts,
			"status", result.StatusCode, "error", result.Error)
		e.finish(d, OutcomeExhausted)
	}
}

// scheduleRetry arms a timer that re-queues d after the retry delay.
func (e *Engine) scheduleRetry(d *Delivery) {
	e.mu.Lock()
	closed := e.closed
	if !closed {
		e.timers[d] = time.AfterFunc(e.retrier.Delay(), func() { e.requeue(d) })
	}
	e.mu.Unlock()

	if closed {
		e.logger.Warn("retry abandoned, engine shutting down",
			"delivery_id", d.ID, "attempts", d.Attempts)
		e.finish(d, OutcomeAbandoned)
	}
}

// requeue moves d from the timer set back onto the queue. If the queue is
// full the timer is re-armed rather than blocking the timer goroutine.
func (e *Engine) requeue(d *Delivery) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Shutdown already took it.
	if _, ok := e.timers[d]; !ok {
		return
	}
	delete(e.timers, d)

	select {
	case e.queue <- d:
		e.metrics.SetQueueDepth(len(e.queue))
	default:
		e.logger.Warn("delivery queue full, retry deferred", "delivery_id", d.ID)
		e.timers[d] = time.AfterFunc(max(e.retrier.Delay(), requeueBackoff), func() { e.requeue(d) })
	}
}

func (e *Engine) finish(d *Delivery, o Outcome) {
	e.metrics.RecordOutcome(o.String())
	if e.hook != nil {
		e.hook(d.report(o))
	}
}
