package usecase

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"keepsafe/internal/domain"

	"github.com/google/uuid"
)

// EmergencyService runs the break-glass channel: request, owner decision,
// pass-code issuance and verification. It is independent of the normal
// session flow and time-boxed on its own clock.
type EmergencyService struct {
	Vaults   VaultRepository
	Requests EmergencyAccessRepository
	Audit    *AuditRecorder
	Events   domain.EventPublisher
	Clock    Clock

	// AccessTTL bounds an approved grant; pass codes die with it.
	AccessTTL time.Duration
}

const DefaultEmergencyAccessTTL = 24 * time.Hour

func NewEmergencyService(vaults VaultRepository, requests EmergencyAccessRepository, audit *AuditRecorder, events domain.EventPublisher, clock Clock) *EmergencyService {
	if clock == nil {
		clock = SystemClock()
	}
	return &EmergencyService{
		Vaults:    vaults,
		Requests:  requests,
		Audit:     audit,
		Events:    events,
		Clock:     clock,
		AccessTTL: DefaultEmergencyAccessTTL,
	}
}

func (s *EmergencyService) Request(ctx context.Context, vaultID, requesterID, reason string, urgency domain.Urgency) (*domain.EmergencyAccessRequest, error) {
	if _, err := s.Vaults.GetByID(ctx, vaultID); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: emergency request requires a reason", domain.ErrInvalidInput)
	}
	switch urgency {
	case domain.UrgencyLow, domain.UrgencyMedium, domain.UrgencyHigh, domain.UrgencyCritical:
	default:
		return nil, fmt.Errorf("%w: unknown urgency", domain.ErrInvalidInput)
	}

	req := domain.EmergencyAccessRequest{
		ID:          uuid.NewString(),
		VaultID:     vaultID,
		RequesterID: requesterID,
		Reason:      reason,
		Urgency:     urgency,
		Status:      domain.EmergencyStatusPending,
		CreatedAt:   s.Clock.Now().UTC(),
	}
	if err := s.Requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Approve issues the pass code. The plaintext code exists only in this return
// value; the record keeps its digest.
func (s *EmergencyService) Approve(ctx context.Context, requestID, approverID string) (*domain.EmergencyAccessRequest, string, error) {
	req, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	if err := s.requireOwner(ctx, req.VaultID, approverID); err != nil {
		return nil, "", err
	}
	if req.Status != domain.EmergencyStatusPending {
		return nil, "", domain.ErrAlreadyProcessed
	}

	code, err := NewSecret(20)
	if err != nil {
		return nil, "", err
	}
	now := s.Clock.Now().UTC()
	expiresAt := now.Add(s.ttl())
	if err := s.Requests.Approve(ctx, requestID, approverID, now, expiresAt, HashSecret(code)); err != nil {
		return nil, "", err
	}
	req, err = s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	err = s.Audit.Record(ctx, domain.AccessLogEntry{
		VaultID:    req.VaultID,
		AccessType: domain.AccessApproved,
		UserID:     req.RequesterID,
		Detail:     map[string]any{"emergency_request_id": req.ID, "urgency": string(req.Urgency)},
	})
	if err != nil {
		return nil, "", err
	}
	if s.Events != nil {
		_ = s.Events.Publish(ctx, domain.Event{
			Type:       domain.EventEmergencyApproved,
			VaultID:    req.VaultID,
			UserID:     req.RequesterID,
			SubjectID:  req.ID,
			OccurredAt: now,
		})
	}
	return req, code, nil
}

func (s *EmergencyService) Deny(ctx context.Context, requestID, approverID string) (*domain.EmergencyAccessRequest, error) {
	req, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, req.VaultID, approverID); err != nil {
		return nil, err
	}
	if req.Status != domain.EmergencyStatusPending {
		return nil, domain.ErrAlreadyProcessed
	}
	now := s.Clock.Now().UTC()
	if err := s.Requests.Deny(ctx, requestID, approverID, now); err != nil {
		return nil, err
	}
	err = s.Audit.Record(ctx, domain.AccessLogEntry{
		VaultID:    req.VaultID,
		AccessType: domain.AccessDenied,
		UserID:     req.RequesterID,
		Detail:     map[string]any{"emergency_request_id": req.ID},
	})
	if err != nil {
		return nil, err
	}
	return s.Requests.GetByID(ctx, requestID)
}

// VerifyPassCode returns the matching approved, unexpired request, or nil.
// Wrong code, expired grant, denied or revoked request all look identical to
// the caller: nothing comes back, and nothing says why.
func (s *EmergencyService) VerifyPassCode(ctx context.Context, code, vaultID string) (*domain.EmergencyAccessRequest, error) {
	if code == "" || vaultID == "" {
		return nil, nil
	}
	approved, err := s.Requests.ListApprovedByVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	codeHash := HashSecret(code)
	now := s.Clock.Now().UTC()
	for i := range approved {
		req := approved[i]
		if subtle.ConstantTimeCompare([]byte(req.PassCodeHash), []byte(codeHash)) != 1 {
			continue
		}
		if !req.Grants(now) {
			return nil, nil
		}
		err = s.Audit.Record(ctx, domain.AccessLogEntry{
			VaultID:    vaultID,
			AccessType: domain.AccessOpened,
			UserID:     req.RequesterID,
			Detail:     map[string]any{"emergency_request_id": req.ID, "channel": "emergency"},
		})
		if err != nil {
			return nil, err
		}
		return &req, nil
	}
	return nil, nil
}

// Revoke kills an approved grant before its natural expiry. The pass code
// stops verifying immediately.
func (s *EmergencyService) Revoke(ctx context.Context, requestID, callerID string) error {
	req, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, req.VaultID, callerID); err != nil {
		return err
	}
	if req.Status != domain.EmergencyStatusApproved {
		return domain.ErrAlreadyProcessed
	}
	now := s.Clock.Now().UTC()
	if err := s.Requests.Revoke(ctx, requestID, now); err != nil {
		return err
	}
	return s.Audit.RecordRevoked(ctx, req.VaultID, req.RequesterID, map[string]any{
		"emergency_request_id": requestID,
	})
}

func (s *EmergencyService) requireOwner(ctx context.Context, vaultID, callerID string) error {
	vault, err := s.Vaults.GetByID(ctx, vaultID)
	if err != nil {
		return err
	}
	if vault.OwnerID != callerID {
		return domain.ErrForbidden
	}
	return nil
}

func (s *EmergencyService) ttl() time.Duration {
	if s.AccessTTL <= 0 {
		return DefaultEmergencyAccessTTL
	}
	return s.AccessTTL
}
