package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keepsafe/internal/domain"

	"github.com/google/uuid"
)

// SessionRegistry owns the session lifecycle for every vault. It is an
// injected instance, not a process-wide singleton: tests run several isolated
// registries side by side.
//
// Expiry is enforced twice. Run sweeps all active sessions on a fixed tick,
// and every read re-validates ExpiresAt before answering, so a suspended
// process whose timers never fired still denies stale sessions.
type SessionRegistry struct {
	Vaults    VaultRepository
	Sessions  SessionRepository
	Approvals *ApprovalEngine
	Audit     *AuditRecorder
	Events    domain.EventPublisher
	Gate      PolicyGate
	Clock     Clock

	TTL          time.Duration
	ExtensionTTL time.Duration

	// Operations on the same (vaultID, userID) pair are serialized; different
	// pairs proceed in parallel.
	pairMu sync.Mutex
	pairs  map[string]*sync.Mutex
}

const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultExtensionTTL  = 15 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

func NewSessionRegistry(vaults VaultRepository, sessions SessionRepository, approvals *ApprovalEngine, audit *AuditRecorder, events domain.EventPublisher, gate PolicyGate, clock Clock) *SessionRegistry {
	if clock == nil {
		clock = SystemClock()
	}
	return &SessionRegistry{
		Vaults:       vaults,
		Sessions:     sessions,
		Approvals:    approvals,
		Audit:        audit,
		Events:       events,
		Gate:         gate,
		Clock:        clock,
		TTL:          DefaultSessionTTL,
		ExtensionTTL: DefaultExtensionTTL,
		pairs:        make(map[string]*sync.Mutex),
	}
}

type OpenParams struct {
	VaultID    string
	UserID     string
	UserName   string
	Reason     string
	DeviceInfo string
	Location   *domain.Location
}

type OpenResult struct {
	State   domain.OpenState
	Session *domain.Session
	Request *domain.DualKeyRequest
}

// Open unlocks a vault for a user. Single-key vaults get a session
// immediately; dual-key vaults go through the approval engine and may come
// back as AwaitingApproval, which is a state for the caller to poll, not an
// error.
func (r *SessionRegistry) Open(ctx context.Context, p OpenParams) (*OpenResult, error) {
	unlock := r.lockPair(p.VaultID, p.UserID)
	defer unlock()

	vault, err := r.Vaults.GetByID(ctx, p.VaultID)
	if err != nil {
		return nil, err
	}

	if r.Gate != nil {
		result, err := r.Gate.Evaluate(ctx, domain.AccessInput{
			VaultID:       vault.ID,
			OwnerID:       vault.OwnerID,
			UserID:        p.UserID,
			KeyType:       vault.KeyType,
			IsBroadcast:   vault.IsBroadcast,
			IsSystemVault: vault.IsSystemVault,
		})
		if err != nil {
			// Policy errors fail closed.
			return nil, fmt.Errorf("%w: policy evaluation failed", domain.ErrUnauthorized)
		}
		if !result.Allow {
			_ = r.Audit.Record(ctx, domain.AccessLogEntry{
				VaultID:    vault.ID,
				AccessType: domain.AccessDenied,
				UserID:     p.UserID,
				UserName:   p.UserName,
				Detail:     map[string]any{"policy_deny": denyCodes(result.Deny)},
			})
			return nil, fmt.Errorf("%w: denied by access policy", domain.ErrUnauthorized)
		}
	}

	now := r.Clock.Now().UTC()
	existing, err := r.Sessions.GetActive(ctx, vault.ID, p.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Live(now) {
		_ = r.Vaults.TouchLastAccessed(ctx, vault.ID, now)
		return &OpenResult{State: domain.OpenStateGranted, Session: existing}, nil
	}

	var approvedRequest *domain.DualKeyRequest
	if vault.KeyType == domain.KeyTypeDual {
		req, err := r.Approvals.Resolve(ctx, *vault, p.UserID, p.Reason)
		if err != nil {
			return nil, err
		}
		if req.Status != domain.RequestStatusApproved {
			return &OpenResult{State: domain.OpenStateAwaitingApproval, Request: req}, nil
		}
		approvedRequest = req
	}

	// Supersede any stale active record for the pair before inserting.
	if existing != nil {
		if err := r.closeSession(ctx, *existing, now); err != nil {
			return nil, err
		}
	}

	session := domain.Session{
		ID:        uuid.NewString(),
		VaultID:   vault.ID,
		UserID:    p.UserID,
		StartedAt: now,
		ExpiresAt: now.Add(r.ttl()),
		IsActive:  true,
	}
	if err := r.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	// Security-relevant transition: the open is not complete until the audit
	// entry is durable. On append failure the session record is taken back
	// out so no partial state is visible.
	if err := r.Audit.RecordOpened(ctx, session.VaultID, p.UserID, p.UserName, p.DeviceInfo, p.Location); err != nil {
		_ = r.Sessions.Delete(ctx, session.ID)
		return nil, err
	}
	if approvedRequest != nil {
		if err := r.Approvals.Consume(ctx, approvedRequest.ID); err != nil {
			return nil, err
		}
	}

	_ = r.Vaults.UpdateStatus(ctx, vault.ID, domain.VaultStatusActive)
	_ = r.Vaults.TouchLastAccessed(ctx, vault.ID, now)
	r.publish(ctx, domain.EventSessionOpened, session.VaultID, session.UserID, session.ID)

	return &OpenResult{State: domain.OpenStateGranted, Session: &session}, nil
}

// Extend pushes the session's expiry out once. A second extension fails with
// ErrAlreadyExtended; an unknown or dead session fails with ErrNotFound.
func (r *SessionRegistry) Extend(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := r.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := r.Clock.Now().UTC()
	if !session.Live(now) {
		return nil, domain.ErrNotFound
	}
	if session.WasExtended {
		return nil, domain.ErrAlreadyExtended
	}
	if err := r.Sessions.MarkExtended(ctx, sessionID, now.Add(r.extensionTTL())); err != nil {
		return nil, err
	}
	return r.Sessions.GetByID(ctx, sessionID)
}

// Close locks the vault for the user. Closing an already-closed or missing
// session is a no-op, not an error, and does not double-log.
func (r *SessionRegistry) Close(ctx context.Context, vaultID, userID string) error {
	unlock := r.lockPair(vaultID, userID)
	defer unlock()

	session, err := r.Sessions.GetActive(ctx, vaultID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	return r.closeSession(ctx, *session, r.Clock.Now().UTC())
}

// HasActiveSession re-validates expiry on every read; it never trusts
// is_active alone.
func (r *SessionRegistry) HasActiveSession(ctx context.Context, vaultID string) (bool, error) {
	sessions, err := r.Sessions.ListActiveByVault(ctx, vaultID)
	if err != nil {
		return false, err
	}
	now := r.Clock.Now().UTC()
	for _, session := range sessions {
		if session.Live(now) {
			return true, nil
		}
	}
	return false, nil
}

// Run sweeps expired sessions until ctx is cancelled.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.SweepExpired(ctx)
		}
	}
}

// SweepExpired closes every active session whose expiry has passed. Exported
// so the daemon and tests can trigger a sweep directly.
func (r *SessionRegistry) SweepExpired(ctx context.Context) error {
	sessions, err := r.Sessions.ListActive(ctx)
	if err != nil {
		return err
	}
	now := r.Clock.Now().UTC()
	for _, session := range sessions {
		if session.Live(now) {
			continue
		}
		if err := r.closeSession(ctx, session, now); err != nil {
			return err
		}
	}
	return nil
}

// closeSession is the single way a session dies: CAS close, audit, event,
// vault-status refresh. The CAS makes double closes harmless.
func (r *SessionRegistry) closeSession(ctx context.Context, session domain.Session, now time.Time) error {
	closed, err := r.Sessions.Close(ctx, session.ID, now)
	if err != nil {
		return err
	}
	if !closed {
		return nil
	}
	if err := r.Audit.RecordClosed(ctx, session.VaultID, session.UserID); err != nil {
		return err
	}
	r.publish(ctx, domain.EventSessionClosed, session.VaultID, session.UserID, session.ID)
	return r.refreshVaultStatus(ctx, session.VaultID)
}

// refreshVaultStatus keeps the invariant: status == active iff at least one
// live session exists.
func (r *SessionRegistry) refreshVaultStatus(ctx context.Context, vaultID string) error {
	live, err := r.HasActiveSession(ctx, vaultID)
	if err != nil {
		return err
	}
	status := domain.VaultStatusLocked
	if live {
		status = domain.VaultStatusActive
	}
	return r.Vaults.UpdateStatus(ctx, vaultID, status)
}

func (r *SessionRegistry) publish(ctx context.Context, eventType domain.EventType, vaultID, userID, sessionID string) {
	if r.Events == nil {
		return
	}
	_ = r.Events.Publish(ctx, domain.Event{
		Type:       eventType,
		VaultID:    vaultID,
		UserID:     userID,
		SubjectID:  sessionID,
		OccurredAt: r.Clock.Now().UTC(),
	})
}

func (r *SessionRegistry) lockPair(vaultID, userID string) func() {
	key := vaultID + ":" + userID
	r.pairMu.Lock()
	mu, ok := r.pairs[key]
	if !ok {
		mu = &sync.Mutex{}
		r.pairs[key] = mu
	}
	r.pairMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (r *SessionRegistry) ttl() time.Duration {
	if r.TTL <= 0 {
		return DefaultSessionTTL
	}
	return r.TTL
}

func (r *SessionRegistry) extensionTTL() time.Duration {
	if r.ExtensionTTL <= 0 {
		return DefaultExtensionTTL
	}
	return r.ExtensionTTL
}

func denyCodes(denies []domain.PolicyDeny) []string {
	codes := make([]string, 0, len(denies))
	for _, deny := range denies {
		codes = append(codes, deny.Code)
	}
	return codes
}
