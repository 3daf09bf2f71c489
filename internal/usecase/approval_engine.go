package usecase

import (
	"context"
	"errors"
	"fmt"

	"keepsafe/internal/domain"

	"github.com/google/uuid"
)

// ApprovalEngine owns the dual-key request lifecycle. A request moves
// pending -> approved|denied and never back; an approved request mints
// exactly one session.
type ApprovalEngine struct {
	Vaults   VaultRepository
	Requests DualKeyRequestRepository
	Scorer   RiskScorer
	Audit    *AuditRecorder
	Events   domain.EventPublisher
	Clock    Clock

	// AutoApproveThreshold: scores at or below it approve without a human.
	AutoApproveThreshold float64
	// AllowAutoFallback approves requests when no scorer is configured at
	// all. Off by default; every fallback approval is audited as such.
	AllowAutoFallback bool
}

func NewApprovalEngine(vaults VaultRepository, requests DualKeyRequestRepository, scorer RiskScorer, audit *AuditRecorder, events domain.EventPublisher, clock Clock) *ApprovalEngine {
	if clock == nil {
		clock = SystemClock()
	}
	return &ApprovalEngine{
		Vaults:               vaults,
		Requests:             requests,
		Scorer:               scorer,
		Audit:                audit,
		Events:               events,
		Clock:                clock,
		AutoApproveThreshold: 0.3,
	}
}

// Resolve returns the request that governs an open attempt on a dual-key
// vault. An existing pending request is reused, never duplicated; an
// approved-but-unconsumed request passes through so the caller can mint the
// session. Otherwise a new request is created and scored.
//
// Scoring failures are recovered here, not surfaced: the request is scored
// 1.0, marked ml_auto_error and left pending for a human. Failing closed is
// the whole point of the error path.
func (e *ApprovalEngine) Resolve(ctx context.Context, vault domain.Vault, requesterID, reason string) (*domain.DualKeyRequest, error) {
	latest, err := e.Requests.GetLatest(ctx, vault.ID, requesterID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		switch latest.Status {
		case domain.RequestStatusPending:
			return latest, nil
		case domain.RequestStatusApproved:
			consumed, err := e.Requests.IsConsumed(ctx, latest.ID)
			if err != nil {
				return nil, err
			}
			if !consumed {
				return latest, nil
			}
		}
	}

	now := e.Clock.Now().UTC()
	req := domain.DualKeyRequest{
		ID:          uuid.NewString(),
		VaultID:     vault.ID,
		RequesterID: requesterID,
		RequestedAt: now,
		Status:      domain.RequestStatusPending,
		Reason:      reason,
	}

	switch {
	case e.Scorer == nil && e.AllowAutoFallback:
		req.Status = domain.RequestStatusApproved
		req.DecisionMethod = domain.DecisionAutoFallback
		req.Reasoning = "no risk scorer configured; auto_fallback enabled by operator"
		req.ApprovedAt = &now
	case e.Scorer == nil:
		req.Reasoning = "no risk scorer configured; awaiting manual decision"
	default:
		assessment, err := e.Scorer.Score(ctx, vault, requesterID, reason)
		if err != nil {
			req.RiskScore = 1.0
			req.DecisionMethod = domain.DecisionMLAutoError
			req.Reasoning = fmt.Sprintf("risk scoring failed, failing closed: %v", err)
		} else {
			req.RiskScore = assessment.Score
			req.Reasoning = assessment.Reasoning
			if assessment.Score <= e.AutoApproveThreshold {
				req.Status = domain.RequestStatusApproved
				req.DecisionMethod = domain.DecisionMLAuto
				req.ApprovedAt = &now
			}
		}
	}

	if err := e.Requests.Create(ctx, req); err != nil {
		return nil, err
	}
	if req.Status == domain.RequestStatusApproved {
		if err := e.Audit.RecordDecision(ctx, req); err != nil {
			return nil, err
		}
		e.publishDecision(ctx, req)
	}
	return &req, nil
}

// Approve records a manual approval by the vault owner.
func (e *ApprovalEngine) Approve(ctx context.Context, requestID, approverID string) (*domain.DualKeyRequest, error) {
	return e.decide(ctx, requestID, approverID, domain.RequestStatusApproved)
}

// Deny records a manual denial by the vault owner.
func (e *ApprovalEngine) Deny(ctx context.Context, requestID, approverID string) (*domain.DualKeyRequest, error) {
	return e.decide(ctx, requestID, approverID, domain.RequestStatusDenied)
}

func (e *ApprovalEngine) decide(ctx context.Context, requestID, approverID string, status domain.RequestStatus) (*domain.DualKeyRequest, error) {
	req, err := e.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	vault, err := e.Vaults.GetByID(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}
	if vault.OwnerID != approverID {
		return nil, domain.ErrForbidden
	}
	if req.Terminal() {
		return nil, domain.ErrAlreadyProcessed
	}

	now := e.Clock.Now().UTC()
	if err := e.Requests.Decide(ctx, requestID, status, domain.DecisionManual, approverID, now); err != nil {
		return nil, err
	}
	req, err = e.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.Audit.RecordDecision(ctx, *req); err != nil {
		return nil, err
	}
	e.publishDecision(ctx, *req)
	return req, nil
}

// Consume marks an approved request as spent once its session exists.
func (e *ApprovalEngine) Consume(ctx context.Context, requestID string) error {
	return e.Requests.MarkConsumed(ctx, requestID, e.Clock.Now().UTC())
}

// Pending lists a vault's open requests for its owner.
func (e *ApprovalEngine) Pending(ctx context.Context, vaultID, callerID string) ([]domain.DualKeyRequest, error) {
	vault, err := e.Vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	return e.Requests.ListPendingByVault(ctx, vaultID)
}

func (e *ApprovalEngine) publishDecision(ctx context.Context, req domain.DualKeyRequest) {
	if e.Events == nil {
		return
	}
	_ = e.Events.Publish(ctx, domain.Event{
		Type:       domain.EventApprovalDecided,
		VaultID:    req.VaultID,
		UserID:     req.RequesterID,
		SubjectID:  req.ID,
		OccurredAt: e.Clock.Now().UTC(),
		Detail: map[string]any{
			"status":          string(req.Status),
			"decision_method": string(req.DecisionMethod),
		},
	})
}
