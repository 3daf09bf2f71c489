package domain

import "time"

type NomineeStatus string

const (
	NomineeStatusPending  NomineeStatus = "pending"
	NomineeStatusAccepted NomineeStatus = "accepted"
	NomineeStatusActive   NomineeStatus = "active"
	NomineeStatusInactive NomineeStatus = "inactive"
	NomineeStatusRevoked  NomineeStatus = "revoked"
)

type Nominee struct {
	ID                  string
	VaultID             string
	UserID              string // empty until the invitation is accepted
	Name                string
	Contact             string // email or phone
	Status              NomineeStatus
	IsSubsetAccess      bool
	SelectedDocumentIDs []string // meaningful only when IsSubsetAccess
	SessionExpiresAt    *time.Time
	// AccessWindow is the delegated-session length granted at invitation
	// time; SessionExpiresAt = AcceptedAt + AccessWindow once accepted.
	AccessWindow time.Duration
	InvitedAt    time.Time
	AcceptedAt   *time.Time
}

// AccessExpired reports whether a subset-access nominee's delegated window has
// lapsed. Expiry is authoritative even before any status update lands: callers
// must treat an expired nominee as revoked.
func (n Nominee) AccessExpired(now time.Time) bool {
	return n.IsSubsetAccess && n.SessionExpiresAt != nil && !now.Before(*n.SessionExpiresAt)
}

// Usable reports whether the nominee may access the vault at the given
// instant.
func (n Nominee) Usable(now time.Time) bool {
	switch n.Status {
	case NomineeStatusAccepted, NomineeStatusActive:
		return !n.AccessExpired(now)
	default:
		return false
	}
}
