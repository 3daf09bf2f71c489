package usecase

import (
	"context"
	"time"

	"keepsafe/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return realClock{} }

type VaultRepository interface {
	Create(ctx context.Context, vault domain.Vault) error
	GetByID(ctx context.Context, vaultID string) (*domain.Vault, error)
	UpdateStatus(ctx context.Context, vaultID string, status domain.VaultStatus) error
	TouchLastAccessed(ctx context.Context, vaultID string, at time.Time) error
}

type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	// GetActive returns the active session for the pair, if any. Callers must
	// still check Live: the record may be past its expiry.
	GetActive(ctx context.Context, vaultID, userID string) (*domain.Session, error)
	ListActiveByVault(ctx context.Context, vaultID string) ([]domain.Session, error)
	ListActive(ctx context.Context) ([]domain.Session, error)
	// Close marks the session inactive. It reports false when the session was
	// already inactive, so callers can keep close idempotent without
	// double-logging. Compare-and-swap on is_active.
	Close(ctx context.Context, sessionID string, closedAt time.Time) (bool, error)
	// MarkExtended sets the new expiry and was_extended in one guarded write;
	// it fails with ErrAlreadyExtended when the flag is already set.
	MarkExtended(ctx context.Context, sessionID string, expiresAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
}

type DualKeyRequestRepository interface {
	Create(ctx context.Context, req domain.DualKeyRequest) error
	GetByID(ctx context.Context, requestID string) (*domain.DualKeyRequest, error)
	// GetLatest returns the most recent request for the pair regardless of
	// status, or nil.
	GetLatest(ctx context.Context, vaultID, requesterID string) (*domain.DualKeyRequest, error)
	ListPendingByVault(ctx context.Context, vaultID string) ([]domain.DualKeyRequest, error)
	// Decide transitions pending -> approved|denied. Compare-and-swap on
	// status: deciding a terminal request fails with ErrAlreadyProcessed.
	Decide(ctx context.Context, requestID string, status domain.RequestStatus, method domain.DecisionMethod, approverID string, at time.Time) error
	// MarkConsumed records that an approved request has produced its session,
	// so a single approval cannot mint sessions forever.
	MarkConsumed(ctx context.Context, requestID string, at time.Time) error
	IsConsumed(ctx context.Context, requestID string) (bool, error)
}

type NomineeRepository interface {
	Create(ctx context.Context, nominee domain.Nominee, inviteTokenHash string) error
	GetByID(ctx context.Context, nomineeID string) (*domain.Nominee, error)
	GetByInviteTokenHash(ctx context.Context, tokenHash string) (*domain.Nominee, error)
	ListByVault(ctx context.Context, vaultID string) ([]domain.Nominee, error)
	// ListSubsetLive returns subset-access nominees in accepted/active state,
	// for the expiry monitor.
	ListSubsetLive(ctx context.Context) ([]domain.Nominee, error)
	// Accept transitions pending -> accepted; any other starting state fails
	// with ErrAlreadyProcessed.
	Accept(ctx context.Context, nomineeID, userID string, at time.Time) error
	SetStatus(ctx context.Context, nomineeID string, status domain.NomineeStatus) error
}

type EmergencyAccessRepository interface {
	Create(ctx context.Context, req domain.EmergencyAccessRequest) error
	GetByID(ctx context.Context, requestID string) (*domain.EmergencyAccessRequest, error)
	// Approve transitions pending -> approved, recording the approver, the
	// expiry and the pass-code digest. CAS on status.
	Approve(ctx context.Context, requestID, approverID string, at, expiresAt time.Time, passCodeHash string) error
	Deny(ctx context.Context, requestID, approverID string, at time.Time) error
	// Revoke transitions approved -> revoked.
	Revoke(ctx context.Context, requestID string, at time.Time) error
	ListApprovedByVault(ctx context.Context, vaultID string) ([]domain.EmergencyAccessRequest, error)
}

type AccessLogRepository interface {
	// Append persists the entry, assigning seq, prev_hash and entry_hash
	// within the vault's chain. Entries are never updated or deleted.
	Append(ctx context.Context, entry domain.AccessLogEntry) (domain.AccessLogEntry, error)
	ListByVault(ctx context.Context, vaultID string) ([]domain.AccessLogEntry, error)
	// ListByVaultAndUser returns the user's entries for the vault, newest
	// first, capped at limit. Used by the risk scorer.
	ListByVaultAndUser(ctx context.Context, vaultID, userID string, limit int) ([]domain.AccessLogEntry, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc domain.Document) error
	GetByID(ctx context.Context, documentID string) (*domain.Document, error)
	ListActiveByVault(ctx context.Context, vaultID string) ([]domain.Document, error)
}

// KeyManager hands out opaque refs to key material. The core never stores raw
// key bytes next to vault records.
type KeyManager interface {
	Mint(ctx context.Context) (domain.KeyRef, error)
	Get(ctx context.Context, ref domain.KeyRef) ([]byte, error)
}

// RiskScorer evaluates a dual-key request. Implementations must return a
// score in [0,1]; errors make the approval engine fail closed.
type RiskScorer interface {
	Score(ctx context.Context, vault domain.Vault, requesterID, reason string) (domain.RiskAssessment, error)
}

// PolicyGate is the optional OPA hook consulted before any session is opened.
// A nil gate means no policy bundle is configured.
type PolicyGate interface {
	Evaluate(ctx context.Context, input domain.AccessInput) (domain.PolicyResult, error)
}
