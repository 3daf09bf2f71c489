package usecase

import (
	"context"
	"fmt"
	"time"

	"keepsafe/internal/domain"

	"github.com/google/uuid"
)

// DelegationRegistry manages nominees: people the vault owner grants access
// to, optionally restricted to a subset of documents and a time window.
type DelegationRegistry struct {
	Vaults    VaultRepository
	Nominees  NomineeRepository
	Documents DocumentRepository
	Audit     *AuditRecorder
	Events    domain.EventPublisher
	Clock     Clock
}

const DefaultNomineeMonitorInterval = time.Minute

func NewDelegationRegistry(vaults VaultRepository, nominees NomineeRepository, documents DocumentRepository, audit *AuditRecorder, events domain.EventPublisher, clock Clock) *DelegationRegistry {
	if clock == nil {
		clock = SystemClock()
	}
	return &DelegationRegistry{
		Vaults:    vaults,
		Nominees:  nominees,
		Documents: documents,
		Audit:     audit,
		Events:    events,
		Clock:     clock,
	}
}

type InviteParams struct {
	VaultID             string
	CallerID            string
	Name                string
	Contact             string
	IsSubsetAccess      bool
	SelectedDocumentIDs []string
	// AccessWindow caps a subset nominee's delegated session, measured from
	// acceptance.
	AccessWindow time.Duration
}

// Invite creates a pending nominee and returns the one-time invitation token.
// Only the token's digest is stored.
func (d *DelegationRegistry) Invite(ctx context.Context, p InviteParams) (*domain.Nominee, string, error) {
	vault, err := d.Vaults.GetByID(ctx, p.VaultID)
	if err != nil {
		return nil, "", err
	}
	if vault.OwnerID != p.CallerID {
		return nil, "", domain.ErrForbidden
	}
	if p.Name == "" || p.Contact == "" {
		return nil, "", fmt.Errorf("%w: nominee name and contact are required", domain.ErrInvalidInput)
	}
	if p.IsSubsetAccess && len(p.SelectedDocumentIDs) == 0 {
		return nil, "", fmt.Errorf("%w: subset access requires selected documents", domain.ErrInvalidInput)
	}

	token, err := NewSecret(24)
	if err != nil {
		return nil, "", err
	}
	now := d.Clock.Now().UTC()
	nominee := domain.Nominee{
		ID:                  uuid.NewString(),
		VaultID:             p.VaultID,
		Name:                p.Name,
		Contact:             p.Contact,
		Status:              domain.NomineeStatusPending,
		IsSubsetAccess:      p.IsSubsetAccess,
		SelectedDocumentIDs: p.SelectedDocumentIDs,
		AccessWindow:        p.AccessWindow,
		InvitedAt:           now,
	}
	if err := d.Nominees.Create(ctx, nominee, HashSecret(token)); err != nil {
		return nil, "", err
	}
	err = d.Audit.Record(ctx, domain.AccessLogEntry{
		VaultID:    p.VaultID,
		AccessType: domain.AccessCreated,
		UserID:     p.CallerID,
		Detail:     map[string]any{"nominee_id": nominee.ID, "subset_access": p.IsSubsetAccess},
	})
	if err != nil {
		return nil, "", err
	}
	return &nominee, token, nil
}

// AcceptInvitation consumes an invite token. Accepting anything but a pending
// invitation fails with ErrAlreadyProcessed.
func (d *DelegationRegistry) AcceptInvitation(ctx context.Context, token, userID string) (*domain.Nominee, error) {
	nominee, err := d.Nominees.GetByInviteTokenHash(ctx, HashSecret(token))
	if err != nil {
		return nil, err
	}
	if nominee.Status != domain.NomineeStatusPending {
		return nil, domain.ErrAlreadyProcessed
	}
	if err := d.Nominees.Accept(ctx, nominee.ID, userID, d.Clock.Now().UTC()); err != nil {
		return nil, err
	}
	return d.Nominees.GetByID(ctx, nominee.ID)
}

// Revoke removes a nominee's access. Only the owner of the nominee's vault
// may revoke. Permanent revocation is final; temporary revocation (inactive)
// leaves the nominee re-invitable.
func (d *DelegationRegistry) Revoke(ctx context.Context, nomineeID, callerID string, permanently bool) error {
	nominee, err := d.Nominees.GetByID(ctx, nomineeID)
	if err != nil {
		return err
	}
	vault, err := d.Vaults.GetByID(ctx, nominee.VaultID)
	if err != nil {
		return err
	}
	if vault.OwnerID != callerID {
		return domain.ErrForbidden
	}
	return d.revoke(ctx, nomineeID, permanently, "owner_revoked")
}

func (d *DelegationRegistry) revoke(ctx context.Context, nomineeID string, permanently bool, cause string) error {
	nominee, err := d.Nominees.GetByID(ctx, nomineeID)
	if err != nil {
		return err
	}
	status := domain.NomineeStatusInactive
	if permanently {
		status = domain.NomineeStatusRevoked
	}
	if err := d.Nominees.SetStatus(ctx, nomineeID, status); err != nil {
		return err
	}
	if err := d.Audit.RecordRevoked(ctx, nominee.VaultID, nominee.UserID, map[string]any{
		"nominee_id": nomineeID,
		"permanent":  permanently,
		"cause":      cause,
	}); err != nil {
		return err
	}
	if d.Events != nil {
		_ = d.Events.Publish(ctx, domain.Event{
			Type:       domain.EventNomineeRevoked,
			VaultID:    nominee.VaultID,
			UserID:     nominee.UserID,
			SubjectID:  nomineeID,
			OccurredAt: d.Clock.Now().UTC(),
			Detail:     map[string]any{"permanent": permanently, "cause": cause},
		})
	}
	return nil
}

// CheckAccess is the lazy half of nominee expiry: it runs on every access
// attempt, and an expired delegated window revokes the nominee right there,
// whether or not the monitor loop got to it first.
func (d *DelegationRegistry) CheckAccess(ctx context.Context, nomineeID string) (*domain.Nominee, error) {
	nominee, err := d.Nominees.GetByID(ctx, nomineeID)
	if err != nil {
		return nil, err
	}
	now := d.Clock.Now().UTC()
	if nominee.AccessExpired(now) {
		switch nominee.Status {
		case domain.NomineeStatusAccepted, domain.NomineeStatusActive:
			if err := d.revoke(ctx, nomineeID, false, "session_expired"); err != nil {
				return nil, err
			}
		}
		return nil, domain.ErrSessionExpired
	}
	if !nominee.Usable(now) {
		return nil, domain.ErrUnauthorized
	}
	return nominee, nil
}

// VisibleDocuments returns what the nominee may see: the vault's active
// documents, intersected with the selected set for subset grants.
func (d *DelegationRegistry) VisibleDocuments(ctx context.Context, nomineeID string) ([]domain.Document, error) {
	nominee, err := d.CheckAccess(ctx, nomineeID)
	if err != nil {
		return nil, err
	}
	docs, err := d.Documents.ListActiveByVault(ctx, nominee.VaultID)
	if err != nil {
		return nil, err
	}
	if !nominee.IsSubsetAccess {
		return docs, nil
	}
	selected := make(map[string]struct{}, len(nominee.SelectedDocumentIDs))
	for _, id := range nominee.SelectedDocumentIDs {
		selected[id] = struct{}{}
	}
	visible := docs[:0]
	for _, doc := range docs {
		if _, ok := selected[doc.ID]; ok {
			visible = append(visible, doc)
		}
	}
	return visible, nil
}

// Run is the eager half of nominee expiry: a periodic pass over live
// subset-access nominees.
func (d *DelegationRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultNomineeMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.SweepExpired(ctx)
		}
	}
}

// SweepExpired revokes every live subset nominee whose window has lapsed.
func (d *DelegationRegistry) SweepExpired(ctx context.Context) error {
	nominees, err := d.Nominees.ListSubsetLive(ctx)
	if err != nil {
		return err
	}
	now := d.Clock.Now().UTC()
	for _, nominee := range nominees {
		if !nominee.AccessExpired(now) {
			continue
		}
		if err := d.revoke(ctx, nominee.ID, false, "session_expired"); err != nil {
			return err
		}
	}
	return nil
}
