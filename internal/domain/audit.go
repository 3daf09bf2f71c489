package domain

import "time"

const AuditChainVersion = "access_chain_v1"

type AccessType string

const (
	AccessOpened     AccessType = "opened"
	AccessClosed     AccessType = "closed"
	AccessUploaded   AccessType = "uploaded"
	AccessDownloaded AccessType = "downloaded"
	AccessViewed     AccessType = "viewed"
	AccessCreated    AccessType = "created"
	AccessPreviewed  AccessType = "previewed"
	AccessRedacted   AccessType = "redacted"
	AccessRevoked    AccessType = "revoked"
	AccessApproved   AccessType = "approved"
	AccessDenied     AccessType = "denied"
)

// SecurityRelevant reports whether entries of this type must be durably
// persisted before the triggering operation completes. Read-only events may
// be deferred and batched.
func (t AccessType) SecurityRelevant() bool {
	switch t {
	case AccessViewed, AccessPreviewed:
		return false
	default:
		return true
	}
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AccessLogEntry is append-only. Entries are never edited or deleted through
// the normal API surface; each vault's entries form a hash chain
// (Seq, PrevHash, EntryHash) so tampering is detectable.
type AccessLogEntry struct {
	ID         string
	VaultID    string
	Timestamp  time.Time
	AccessType AccessType
	UserID     string
	UserName   string
	DocumentID string
	DeviceInfo string
	Location   *Location
	Detail     map[string]any

	Seq       int64
	PrevHash  string
	EntryHash string
}
