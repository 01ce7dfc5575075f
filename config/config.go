// Package config holds the immutable dispatch settings for one realm.
//
// A Config is built once, either from Default or from a key/value snapshot
// via FromMap, and is then treated as read-only. Consumers that outlive the
// caller (the delivery engine, the filter chain) keep their own Clone.
package config

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/xraph/usersync/event"
)

// AuthType selects how the Authorization header is derived from the token.
type AuthType string

const (
	// AuthNone never sends an Authorization header.
	AuthNone AuthType = "None"
	// AuthBearer sends "Bearer <token>".
	AuthBearer AuthType = "Bearer"
	// AuthRaw sends the token verbatim.
	AuthRaw AuthType = "Raw"
)

// ParseAuthType maps a configured value to an AuthType. Blank selects
// Bearer; any unrecognized non-blank value is treated as a raw scheme.
func ParseAuthType(s string) AuthType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bearer":
		return AuthBearer
	case "none":
		return AuthNone
	default:
		return AuthRaw
	}
}

// Header returns the Authorization header value for token, or "" when no
// header should be sent.
func (a AuthType) Header(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	switch a {
	case AuthNone:
		return ""
	case AuthBearer:
		return "Bearer " + token
	default:
		return token
	}
}

// Retry is the fixed-delay retry policy.
type Retry struct {
	// Enabled turns retries on. When false every payload gets one attempt.
	Enabled bool

	// MaxAttempts is the number of retries after the first attempt.
	MaxAttempts int

	// Delay is the wait between a failed attempt and the next one.
	Delay time.Duration
}

// Config is the dispatch configuration snapshot for one realm.
type Config struct {
	// Endpoint is the target URL. Blank disables dispatch.
	Endpoint string

	AuthType  AuthType
	AuthToken string

	// Headers are static request headers applied before Authorization.
	Headers map[string]string

	// ClientIDs restricts dispatch to these clients. Empty matches all.
	ClientIDs map[string]struct{}

	// EventTypes restricts dispatch to these types. Empty means
	// DefaultEventTypes.
	EventTypes map[event.Type]struct{}

	// ExtraAttributes are user attribute names copied into each payload,
	// in order.
	ExtraAttributes []string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// WorkerCount bounds concurrent in-flight deliveries.
	WorkerCount int

	Retry Retry

	// SigningSecret enables HMAC signing of request bodies when non-blank.
	SigningSecret string

	// RateLimit caps delivery attempts per second. Zero means unlimited.
	RateLimit int
}

// DefaultEventTypes are dispatched when no event-type filter is configured.
var DefaultEventTypes = []event.Type{event.Register, event.Login}

// Default values.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultWorkerCount    = 5
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 5 * time.Second
)

// Default returns a Config with the documented defaults and no endpoint.
func Default() Config {
	return Config{
		AuthType:       AuthBearer,
		Headers:        map[string]string{},
		ClientIDs:      map[string]struct{}{},
		EventTypes:     map[event.Type]struct{}{},
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		WorkerCount:    DefaultWorkerCount,
		Retry: Retry{
			Enabled:     true,
			MaxAttempts: DefaultMaxRetries,
			Delay:       DefaultRetryDelay,
		},
	}
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Clone returns a deep copy that shares no mutable state with c.
func (c Config) Clone() Config {
	out := c
	out.Headers = maps.Clone(c.Headers)
	out.ClientIDs = maps.Clone(c.ClientIDs)
	out.EventTypes = maps.Clone(c.EventTypes)
	out.ExtraAttributes = slices.Clone(c.ExtraAttributes)
	return out
}

// HasClient reports whether clientID is in the client filter.
func (c Config) HasClient(clientID string) bool {
	_, ok := c.ClientIDs[clientID]
	return ok
}

// HasEventType reports whether t is in the event-type filter.
func (c Config) HasEventType(t event.Type) bool {
	_, ok := c.EventTypes[t]
	return ok
}
