// Package delivery sends sync payloads to the configured HTTP endpoint
// through a bounded worker pool with fixed-delay retry.
package delivery

import (
	"errors"

	"github.com/xraph/usersync/id"
	"github.com/xraph/usersync/payload"
)

var (
	// ErrEngineClosed is returned by Submit after Shutdown has begun.
	ErrEngineClosed = errors.New("delivery: engine closed")

	// ErrQueueFull is returned by Submit when the pending queue is at capacity.
	ErrQueueFull = errors.New("delivery: queue full")

	// ErrNilPayload is returned by Submit for a nil payload.
	ErrNilPayload = errors.New("delivery: nil payload")
)

// Outcome is the terminal state of a delivery task.
type Outcome int

const (
	// OutcomeDelivered means an attempt got a 2xx response.
	OutcomeDelivered Outcome = iota

	// OutcomeDisabled means no endpoint is configured and nothing was sent.
	OutcomeDisabled

	// OutcomeExhausted means every attempt in the retry budget failed.
	OutcomeExhausted

	// OutcomeAbandoned means shutdown stopped the task before it finished.
	OutcomeAbandoned

	// OutcomeDropped means the queue was full at submit time.
	OutcomeDropped
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Delivery is one payload and the state of its attempts. The body is
// encoded once at submit time and resent unchanged on every attempt.
type Delivery struct {
	// ID is the unique TypeID for this delivery task.
	ID id.ID

	// Payload is the record being delivered.
	Payload *payload.SyncPayload

	// Body is the encoded payload.
	Body []byte

	// Attempts is the number of attempts made so far.
	Attempts int

	// MaxAttempts is the total attempt budget, including the first.
	MaxAttempts int

	// Last is the result of the most recent attempt.
	Last Result
}

// Report describes a finished delivery task.
type Report struct {
	DeliveryID     id.ID
	EventID        string
	RealmID        string
	Outcome        Outcome
	Attempts       int
	LastStatusCode int
	LastError      string
}

func (d *Delivery) report(o Outcome) Report {
	r := Report{
		DeliveryID:     d.ID,
		Outcome:        o,
		Attempts:       d.Attempts,
		LastStatusCode: d.Last.StatusCode,
		LastError:      d.Last.Error,
	}
	if d.Payload != nil {
		r.EventID = d.Payload.EventID
		r.RealmID = d.Payload.RealmID
	}
	return r
}
