// Package id defines TypeID-based identifiers for delivery tasks.
//
// IDs are K-sortable (UUIDv7-based), globally unique and URL-safe in the
// format "prefix_suffix", which keeps them readable in logs and headers.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the kind of object encoded in a TypeID.
type Prefix string

// Prefix constants.
const (
	// PrefixDelivery tags one delivery task (a payload and all of its attempts).
	PrefixDelivery Prefix = "del"
)

// ID wraps a TypeID.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// NewDeliveryID generates a new delivery task ID.
func NewDeliveryID() ID { return New(PrefixDelivery) }

// Parse parses a TypeID string into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseDeliveryID parses a string and validates the "del" prefix.
func ParseDeliveryID(s string) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != PrefixDelivery {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", PrefixDelivery, parsed.Prefix())
	}
	return parsed, nil
}

// String returns the full TypeID string, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
