package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/usecase"
)

type failingScorer struct{}

func (failingScorer) Score(context.Context, domain.Vault, string, string) (domain.RiskAssessment, error) {
	return domain.RiskAssessment{}, errors.New("scoring backend unreachable")
}

func TestDualKeyOpenAwaitsApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.State != domain.OpenStateAwaitingApproval {
		t.Fatalf("state = %q, want awaiting_approval", result.State)
	}
	if result.Request == nil || result.Request.Status != domain.RequestStatusPending {
		t.Fatalf("expected a pending request, got %+v", result.Request)
	}
	if result.Session != nil {
		t.Fatal("no session may exist before approval")
	}

	// A second attempt reuses the pending request instead of stacking a new
	// one.
	again, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.Request.ID != result.Request.ID {
		t.Fatalf("second open created request %s, want reuse of %s", again.Request.ID, result.Request.ID)
	}
	pending, err := e.approvals.Pending(ctx, vault.ID, "owner-1")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending requests = %d, want 1", len(pending))
	}
}

func TestDualKeyAutoApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)
	e.seedHistory(t, vault.ID, "rita", baseTime.Add(-2*time.Hour))

	result, err := e.sessions.Open(ctx, usecase.OpenParams{
		VaultID: vault.ID,
		UserID:  "rita",
		Reason:  "quarterly insurance review",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.State != domain.OpenStateGranted {
		t.Fatalf("state = %q, want granted", result.State)
	}
	if result.Session == nil {
		t.Fatal("granted open must carry a session")
	}

	req, err := e.store.DualKeyRequests().GetLatest(ctx, vault.ID, "rita")
	if err != nil {
		t.Fatalf("get latest request: %v", err)
	}
	if req.Status != domain.RequestStatusApproved {
		t.Fatalf("request status = %q, want approved", req.Status)
	}
	if req.DecisionMethod != domain.DecisionMLAuto {
		t.Fatalf("decision method = %q, want ml_auto", req.DecisionMethod)
	}
	consumed, err := e.store.DualKeyRequests().IsConsumed(ctx, req.ID)
	if err != nil {
		t.Fatalf("is consumed: %v", err)
	}
	if !consumed {
		t.Fatal("approved request must be consumed by the minted session")
	}
}

func TestConsumedApprovalDoesNotMintTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)
	e.seedHistory(t, vault.ID, "rita", baseTime.Add(-2*time.Hour))

	first, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita", Reason: "quarterly insurance review"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	firstReq, err := e.store.DualKeyRequests().GetLatest(ctx, vault.ID, "rita")
	if err != nil {
		t.Fatalf("get latest request: %v", err)
	}
	if err := e.sessions.Close(ctx, vault.ID, "rita"); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The original approval is spent; the next open needs a fresh request.
	second, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita", Reason: "quarterly insurance review"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.State != domain.OpenStateGranted {
		t.Fatalf("state = %q, want granted", second.State)
	}
	if first.Session.ID == second.Session.ID {
		t.Fatal("closed session was reused")
	}
	secondReq, err := e.store.DualKeyRequests().GetLatest(ctx, vault.ID, "rita")
	if err != nil {
		t.Fatalf("get latest request: %v", err)
	}
	if secondReq.ID == firstReq.ID {
		t.Fatal("expected a fresh request for the second open")
	}
}

func TestScorerFailureFailsClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)
	e.approvals.Scorer = failingScorer{}

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.State != domain.OpenStateAwaitingApproval {
		t.Fatalf("state = %q, want awaiting_approval", result.State)
	}
	req := result.Request
	if req.Status != domain.RequestStatusPending {
		t.Fatalf("request status = %q, want pending", req.Status)
	}
	if req.RiskScore != 1.0 {
		t.Fatalf("risk score = %v, want 1.0", req.RiskScore)
	}
	if req.DecisionMethod != domain.DecisionMLAutoError {
		t.Fatalf("decision method = %q, want ml_auto_error", req.DecisionMethod)
	}
}

func TestNoScorerDefaultsToPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)
	e.approvals.Scorer = nil

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.State != domain.OpenStateAwaitingApproval {
		t.Fatalf("state = %q, want awaiting_approval", result.State)
	}
}

func TestNoScorerAutoFallbackOptIn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)
	e.approvals.Scorer = nil
	e.approvals.AllowAutoFallback = true

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.State != domain.OpenStateGranted {
		t.Fatalf("state = %q, want granted", result.State)
	}
	req, err := e.store.DualKeyRequests().GetLatest(ctx, vault.ID, "rita")
	if err != nil {
		t.Fatalf("get latest request: %v", err)
	}
	if req.DecisionMethod != domain.DecisionAutoFallback {
		t.Fatalf("decision method = %q, want auto_fallback", req.DecisionMethod)
	}
	// The fallback decision leaves an audit trail naming itself.
	entry := e.lastEntry(t, vault.ID)
	if entry.AccessType != domain.AccessOpened {
		t.Fatalf("last entry type = %q, want opened", entry.AccessType)
	}
	if e.countEntries(t, vault.ID, domain.AccessApproved) != 1 {
		t.Fatal("fallback approval was not audited")
	}
}

func TestManualDecisionLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	requestID := result.Request.ID

	if _, err := e.approvals.Approve(ctx, requestID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-owner approve: got %v, want ErrForbidden", err)
	}

	req, err := e.approvals.Approve(ctx, requestID, "owner-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req.Status != domain.RequestStatusApproved || req.DecisionMethod != domain.DecisionManual {
		t.Fatalf("got status %q method %q, want approved/manual", req.Status, req.DecisionMethod)
	}
	if req.ApproverID != "owner-1" {
		t.Fatalf("approver = %q, want owner-1", req.ApproverID)
	}

	// Terminal requests are immutable.
	if _, err := e.approvals.Deny(ctx, requestID, "owner-1"); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("decide twice: got %v, want ErrAlreadyProcessed", err)
	}

	granted, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open after approval: %v", err)
	}
	if granted.State != domain.OpenStateGranted {
		t.Fatalf("state = %q, want granted", granted.State)
	}

	decided := e.events.ByType(domain.EventApprovalDecided)
	if len(decided) != 1 {
		t.Fatalf("approvalDecided events = %d, want 1", len(decided))
	}
	if decided[0].SubjectID != requestID {
		t.Fatalf("event subject = %q, want %q", decided[0].SubjectID, requestID)
	}
}

func TestManualDenyBlocksOpen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := e.approvals.Deny(ctx, result.Request.ID, "owner-1"); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if e.countEntries(t, vault.ID, domain.AccessDenied) != 1 {
		t.Fatal("denial was not audited")
	}

	// A denied request does not pass through; a fresh one is created. The
	// scorer is dropped so the new request stays pending.
	e.approvals.Scorer = nil
	again, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "rita"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.State != domain.OpenStateAwaitingApproval {
		t.Fatalf("state = %q, want awaiting_approval", again.State)
	}
	if again.Request.ID == result.Request.ID {
		t.Fatal("denied request was reused")
	}
}

func TestPendingRequiresOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeDual)

	if _, err := e.approvals.Pending(ctx, vault.ID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}
