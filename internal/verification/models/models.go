// Package models holds the data shapes shared by the verification
// attempt ledger's service and store layers.
package models

import "time"

// AttemptRecord is one identifier's invalid-attempt counter for the
// current verification cycle. ExpiresAt is fixed when the record is
// created and is never extended by later increments, so a cycle cannot
// be kept alive indefinitely by a stream of bad codes.
type AttemptRecord struct {
	Identifier string
	Attempts   int
	ExpiresAt  time.Time
}

// Expired reports whether the record's cycle has ended as of now.
func (r AttemptRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
