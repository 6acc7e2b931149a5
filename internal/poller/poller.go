// Package poller implements the two refresh coordinators for an Electric
// Kiwi account: one for the account balance and one for the hour of power.
//
// Each poller owns the cached snapshot for its data domain and refreshes it
// on a fixed interval, or on demand through Refresh. A failed refresh never
// replaces the cached snapshot. Authentication failures are terminal: the
// poller stops and reports the error, so the caller can re-authorize.
package poller

import (
	"time"
)

const (
	// DefaultAccountInterval is how often the account balance is refreshed.
	DefaultAccountInterval = 6 * time.Hour
	// DefaultHopInterval is how often the hour of power selection is
	// refreshed.
	DefaultHopInterval = 2 * time.Hour

	fetchTimeout = 60 * time.Second
)
