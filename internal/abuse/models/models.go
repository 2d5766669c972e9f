// Package models defines the rate-limit window records shared by the
// abuse stores and services.
package models

import "time"

// Key identifies a fixed-window counter. Identity is an email or the
// sentinel "unknown" for unauthenticated-identity abuse tracking.
type Key struct {
	Route    string
	Identity string
	ClientIP string
}

// Status is the read-only view of a window returned to callers.
// RetryAfterSeconds is the time until the window expires, zero when the
// window is absent or already over.
type Status struct {
	Limited           bool
	Count             int
	RetryAfterSeconds int
}

// WindowStatus is the admin view of a single stored window.
type WindowStatus struct {
	Route             string    `json:"route"`
	Identity          string    `json:"identity"`
	ClientIP          string    `json:"client_ip"`
	Count             int       `json:"count"`
	RetryAfterSeconds int       `json:"retry_after_seconds"`
	WindowStart       time.Time `json:"window_start,omitzero"`
}
