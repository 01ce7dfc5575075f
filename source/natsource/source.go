// Package natsource feeds identity events published on a NATS subject into
// an event handler.
//
// Messages carry one JSON-encoded event.RawEvent each. Messages that fail to
// decode are logged and dropped; the handler never sees them.
package natsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/xraph/usersync/event"
)

// ErrMissingRealm is returned by Decode for an event without a realm.
var ErrMissingRealm = errors.New("natsource: event has no realm id")

// Handler receives decoded events. It is called on the NATS delivery
// goroutine and should return promptly.
type Handler func(ctx context.Context, evt event.RawEvent)

// Option configures a Subscription.
type Option func(*Subscription)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Subscription) { s.logger = l }
}

// Subscription is an active NATS subscription feeding a Handler.
type Subscription struct {
	sub     *nats.Subscription
	handler Handler
	logger  *slog.Logger
}

// Subscribe starts delivering events from subject to h. A non-blank queue
// joins a queue group so that each event reaches one subscriber only.
func Subscribe(conn *nats.Conn, subject, queue string, h Handler, opts ...Option) (*Subscription, error) {
	if h == nil {
		return nil, errors.New("natsource: nil handler")
	}

	s := &Subscription{handler: h}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	var err error
	if queue != "" {
		s.sub, err = conn.QueueSubscribe(subject, queue, s.handle)
	} else {
		s.sub, err = conn.Subscribe(subject, s.handle)
	}
	if err != nil {
		return nil, fmt.Errorf("natsource: subscribe %s: %w", subject, err)
	}

	s.logger.Debug("subscribed to identity events", "subject", subject, "queue", queue)
	return s, nil
}

func (s *Subscription) handle(msg *nats.Msg) {
	evt, err := Decode(msg.Data)
	if err != nil {
		s.logger.Warn("dropping undecodable event message",
			"subject", msg.Subject, "error", err)
		return
	}
	s.handler(context.Background(), evt)
}

// Decode parses one message body. Known event-type names are normalized
// to their canonical upper-case form.
func Decode(data []byte) (event.RawEvent, error) {
	var evt event.RawEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return event.RawEvent{}, fmt.Errorf("natsource: decode event: %w", err)
	}
	if strings.TrimSpace(evt.RealmID) == "" {
		return event.RawEvent{}, ErrMissingRealm
	}
	if t, ok := event.ParseType(string(evt.Type)); ok {
		evt.Type = t
	}
	return evt, nil
}

// Close drains the subscription, letting queued messages reach the handler.
func (s *Subscription) Close() error {
	if err := s.sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("natsource: drain: %w", err)
	}
	return nil
}
