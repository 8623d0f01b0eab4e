// Package model defines the core domain types of the triage decision core:
// perceived events, reasoning passes, multi-pass results, and action plans.
package model

import "time"

// SourceType identifies where a perceived event originated.
type SourceType string

// Known event sources.
const (
	SourceMail     SourceType = "mail"
	SourceChat     SourceType = "chat"
	SourceCalendar SourceType = "calendar"
)

// PerceivedEvent is a normalized input event produced by an external
// normalizer. Immutable once created; one event spawns exactly one analysis.
type PerceivedEvent struct {
	ID           string      `json:"id"`
	Source       SourceType  `json:"source"`
	Sender       string      `json:"sender"`
	Participants []string    `json:"participants,omitempty"`
	Subject      string      `json:"subject"`
	Body         string      `json:"body"`
	ReceivedAt   time.Time   `json:"received_at"`

	// Structured hints extracted by the normalizer, when present.
	Amount   *float64   `json:"amount,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}
