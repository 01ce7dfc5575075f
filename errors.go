package usersync

import "errors"

// Sentinel errors returned by Syncer operations.
var (
	// ErrNoLookups is returned when a Syncer is created without realm and
	// user lookups.
	ErrNoLookups = errors.New("usersync: realm and user lookups are required")

	// ErrFilteredOut is returned by Handle for an event rejected by the
	// event-type or client filter.
	ErrFilteredOut = errors.New("usersync: event filtered out")

	// ErrClosed is returned by Handle after Shutdown.
	ErrClosed = errors.New("usersync: syncer closed")
)
