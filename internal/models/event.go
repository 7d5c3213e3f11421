package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind distinguishes the two step-event producers.
type EventKind string

const (
	KindOnboarding EventKind = "onboarding"
	KindTutorial   EventKind = "tutorial"
)

// Valid reports whether k is one of the known step-event kinds.
func (k EventKind) Valid() bool {
	return k == KindOnboarding || k == KindTutorial
}

// StepEvent is one funnel-stage emission from the onboarding or tutorial flow.
// Events are immutable once stored; there is no update or delete path.
type StepEvent struct {
	ID         uuid.UUID      `json:"id"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Kind       EventKind      `json:"kind"`
	Step       string         `json:"step"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// StepEventIngestRequest is the POST /events/{onboarding,tutorial} payload.
// occurred_at is optional; the server assigns ingest time when absent.
// session_id is optional; the server generates one when absent, at the cost
// of losing retry dedup for that attempt.
type StepEventIngestRequest struct {
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Step       string         `json:"step"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt string         `json:"occurred_at,omitempty"`
}

// IngestResponse is returned by every append endpoint.
type IngestResponse struct {
	ID string `json:"id"`
}
