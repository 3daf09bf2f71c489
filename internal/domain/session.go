package domain

import "time"

type Session struct {
	ID          string
	VaultID     string
	UserID      string
	StartedAt   time.Time
	ExpiresAt   time.Time
	IsActive    bool
	WasExtended bool
	ClosedAt    *time.Time
}

// Live reports whether the session should still grant access at the given
// instant. IsActive alone is not sufficient: a session whose ExpiresAt has
// passed is dead even if no sweep has updated the record yet.
func (s Session) Live(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// OpenState tells the caller what an open attempt produced.
type OpenState string

const (
	// OpenStateGranted means a session was created and access is live.
	OpenStateGranted OpenState = "granted"
	// OpenStateAwaitingApproval means a dual-key request is pending a
	// decision. It is a valid intermediate state, not a failure.
	OpenStateAwaitingApproval OpenState = "awaiting_approval"
)
