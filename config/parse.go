package config

import (
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/usersync/event"
)

// Recognized snapshot keys.
const (
	KeyEndpoint        = "apiEndpoint"
	KeyToken           = "apiToken"
	KeyAuthType        = "apiAuthType"
	KeyClientIDs       = "clientIds"
	KeyEventTypes      = "eventTypes"
	KeyExtraAttributes = "additionalAttributes"
	KeyHeaders         = "apiHeaders"
	KeyConnectTimeout  = "connectionTimeout"
	KeyReadTimeout     = "readTimeout"
	KeyWorkerCount     = "threadPoolSize"
	KeyRetryEnabled    = "retryEnabled"
	KeyMaxRetries      = "maxRetries"
	KeyRetryDelay      = "retryDelay"
	KeySigningSecret   = "signingSecret"
	KeyRateLimit       = "rateLimit"
)

// Keys lists every recognized snapshot key.
var Keys = []string{
	KeyEndpoint, KeyToken, KeyAuthType, KeyClientIDs, KeyEventTypes,
	KeyExtraAttributes, KeyHeaders, KeyConnectTimeout, KeyReadTimeout,
	KeyWorkerCount, KeyRetryEnabled, KeyMaxRetries, KeyRetryDelay,
	KeySigningSecret, KeyRateLimit,
}

// Merge overlays overrides on top of defaults and returns a new map.
// Neither input is modified.
func Merge(defaults, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(overrides))
	maps.Copy(out, defaults)
	maps.Copy(out, overrides)
	return out
}

// FromMap builds a Config from a key/value snapshot. Missing, blank or
// malformed values fall back to their defaults; unknown event types and
// malformed header pairs are ignored. FromMap never fails.
func FromMap(m map[string]string) Config {
	cfg := Default()

	cfg.Endpoint = strings.TrimSpace(m[KeyEndpoint])
	cfg.AuthToken = strings.TrimSpace(m[KeyToken])
	cfg.AuthType = ParseAuthType(m[KeyAuthType])
	cfg.SigningSecret = strings.TrimSpace(m[KeySigningSecret])

	for _, c := range splitList(m[KeyClientIDs]) {
		cfg.ClientIDs[c] = struct{}{}
	}

	for _, name := range splitList(m[KeyEventTypes]) {
		if t, ok := event.ParseType(name); ok {
			cfg.EventTypes[t] = struct{}{}
		}
	}

	cfg.ExtraAttributes = splitList(m[KeyExtraAttributes])

	for _, pair := range splitList(m[KeyHeaders]) {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cfg.Headers[name] = strings.TrimSpace(value)
	}

	cfg.ConnectTimeout = parseSeconds(m[KeyConnectTimeout], DefaultConnectTimeout)
	cfg.ReadTimeout = parseSeconds(m[KeyReadTimeout], DefaultReadTimeout)

	cfg.WorkerCount = parseInt(m[KeyWorkerCount], DefaultWorkerCount)
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = DefaultWorkerCount
	}

	cfg.Retry.Enabled = parseBool(m[KeyRetryEnabled], true)
	cfg.Retry.MaxAttempts = max(parseInt(m[KeyMaxRetries], DefaultMaxRetries), 0)
	cfg.Retry.Delay = parseSeconds(m[KeyRetryDelay], DefaultRetryDelay)

	cfg.RateLimit = max(parseInt(m[KeyRateLimit], 0), 0)

	return cfg
}

// splitList splits a comma-separated value, trimming entries and dropping
// empty ones.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// parseBool is true only for "true" in any case. Any other non-blank value,
// including "1", is false.
func parseBool(s string, def bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return strings.EqualFold(s, "true")
}

const maxSeconds = math.MaxInt64 / int64(time.Second)

// parseSeconds reads an integer number of seconds or a Go duration string.
// Negative values and seconds beyond the range of time.Duration fall back
// to def.
func parseSeconds(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 || n > maxSeconds {
			return def
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
