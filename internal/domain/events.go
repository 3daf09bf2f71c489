package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventSessionOpened     EventType = "sessionOpened"
	EventSessionClosed     EventType = "sessionClosed"
	EventApprovalDecided   EventType = "approvalDecided"
	EventNomineeRevoked    EventType = "nomineeRevoked"
	EventEmergencyApproved EventType = "emergencyApproved"
)

// Event is a state-change notification relayed to external transports
// (push, realtime sync). The core never depends on delivery succeeding.
type Event struct {
	Type       EventType      `json:"type"`
	VaultID    string         `json:"vault_id"`
	UserID     string         `json:"user_id,omitempty"`
	SubjectID  string         `json:"subject_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Detail     map[string]any `json:"detail,omitempty"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
