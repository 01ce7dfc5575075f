package delivery

import (
	"time"

	"github.com/xraph/usersync/config"
)

// Decision is the outcome of evaluating a delivery attempt.
type Decision int

const (
	// Delivered means the delivery was successful (2xx).
	Delivered Decision = iota

	// Retry means the delivery should be attempted again after the delay.
	Retry

	// Exhausted means the attempt budget is spent.
	Exhausted
)

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// OK reports whether the attempt got a 2xx response.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Retrier applies a fixed-delay retry policy.
type Retrier struct {
	policy config.Retry
}

// NewRetrier creates a retrier for policy.
func NewRetrier(policy config.Retry) *Retrier {
	return &Retrier{policy: policy}
}

// Budget returns the total number of attempts a payload may receive.
func (r *Retrier) Budget() int {
	if r.policy.Enabled && r.policy.MaxAttempts > 0 {
		return 1 + r.policy.MaxAttempts
	}
	return 1
}

// Delay returns the wait before the next attempt.
func (r *Retrier) Delay() time.Duration {
	if r.policy.Delay < 0 {
		return 0
	}
	return r.policy.Delay
}

// Decide determines what to do with a delivery after an attempt.
//
// Decision matrix:
//   - 2xx → Delivered
//   - anything else, including a transport error (status 0) → Retry while
//     attempts remain, else Exhausted
func (r *Retrier) Decide(res Result, d *Delivery) Decision {
	if res.OK() {
		return Delivered
	}
	if d.Attempts < d.MaxAttempts {
		return Retry
	}
	return Exhausted
}
