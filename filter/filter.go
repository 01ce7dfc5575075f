// Package filter decides whether an identity event should be dispatched.
package filter

import (
	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/event"
)

// Reason explains a filter decision.
type Reason int

const (
	// Accepted means both the event-type and client predicates passed.
	Accepted Reason = iota

	// EventTypeExcluded means the event type is outside the effective
	// event-type filter.
	EventTypeExcluded

	// ClientExcluded means the client is outside a non-empty client filter.
	ClientExcluded
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case EventTypeExcluded:
		return "event_type_excluded"
	case ClientExcluded:
		return "client_excluded"
	default:
		return "unknown"
	}
}

// ShouldDispatch reports whether evt passes both the event-type and client
// filters of cfg.
func ShouldDispatch(evt event.RawEvent, cfg config.Config) bool {
	return Evaluate(evt, cfg) == Accepted
}

// Evaluate is ShouldDispatch with the reason for a rejection.
//
// Rules:
//
//	event-type filter empty     → only REGISTER and LOGIN pass
//	event-type filter non-empty → the type must be listed
//	client filter empty         → any client passes
//	client filter non-empty     → the client must be listed
func Evaluate(evt event.RawEvent, cfg config.Config) Reason {
	if !matchType(evt.Type, cfg) {
		return EventTypeExcluded
	}
	if len(cfg.ClientIDs) > 0 && !cfg.HasClient(evt.ClientID) {
		return ClientExcluded
	}
	return Accepted
}

func matchType(t event.Type, cfg config.Config) bool {
	if len(cfg.EventTypes) == 0 {
		for _, d := range config.DefaultEventTypes {
			if t == d {
				return true
			}
		}
		return false
	}
	return cfg.HasEventType(t)
}
