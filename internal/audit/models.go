// Package audit records security-relevant guard decisions. Events
// carry masked identifiers only; raw emails and full client IPs never
// leave the process.
package audit

import (
	"context"
	"time"
)

// Decision classifies the outcome of a guarded operation.
type Decision string

const (
	DecisionAllowed Decision = "allowed"
	DecisionDenied  Decision = "denied"
)

// Event is one audit record.
type Event struct {
	Action     string    `json:"action"`
	Flow       string    `json:"flow,omitempty"`
	Subject    string    `json:"subject"`
	ClientIP   string    `json:"client_ip,omitempty"`
	Decision   Decision  `json:"decision"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits audit events. Implementations must not block the
// request path; delivery is best effort.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
