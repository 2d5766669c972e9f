// Package models holds the account shapes used by identity lookup.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the registered identity an OTP flow verifies against.
type Account struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}
