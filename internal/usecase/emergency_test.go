package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/usecase"
)

func TestEmergencyRequestValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	if _, err := e.emergency.Request(ctx, "missing", "rita", "hospitalized", domain.UrgencyHigh); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown vault: got %v, want ErrNotFound", err)
	}
	if _, err := e.emergency.Request(ctx, vault.ID, "rita", "", domain.UrgencyHigh); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty reason: got %v, want ErrInvalidInput", err)
	}
	if _, err := e.emergency.Request(ctx, vault.ID, "rita", "hospitalized", "extreme"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown urgency: got %v, want ErrInvalidInput", err)
	}

	req, err := e.emergency.Request(ctx, vault.ID, "rita", "owner hospitalized", domain.UrgencyCritical)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Status != domain.EmergencyStatusPending {
		t.Fatalf("status = %q, want pending", req.Status)
	}
}

func TestEmergencyApproveIssuesPassCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)
	req, err := e.emergency.Request(ctx, vault.ID, "rita", "owner hospitalized", domain.UrgencyCritical)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, _, err := e.emergency.Approve(ctx, req.ID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-owner approve: got %v, want ErrForbidden", err)
	}

	approved, code, err := e.emergency.Approve(ctx, req.ID, "owner-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if code == "" {
		t.Fatal("approve returned no pass code")
	}
	if approved.Status != domain.EmergencyStatusApproved {
		t.Fatalf("status = %q, want approved", approved.Status)
	}
	if approved.PassCodeHash == "" || approved.PassCodeHash == code {
		t.Fatal("record must hold the code digest, never the plaintext")
	}
	if approved.PassCodeHash != usecase.HashSecret(code) {
		t.Fatal("stored digest does not match the issued code")
	}
	want := baseTime.Add(usecase.DefaultEmergencyAccessTTL)
	if approved.ExpiresAt == nil || !approved.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", approved.ExpiresAt, want)
	}
	if e.countEntries(t, vault.ID, domain.AccessApproved) != 1 {
		t.Fatal("approval was not audited")
	}
	if len(e.events.ByType(domain.EventEmergencyApproved)) != 1 {
		t.Fatal("emergencyApproved event not published")
	}

	if _, _, err := e.emergency.Approve(ctx, req.ID, "owner-1"); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("approve twice: got %v, want ErrAlreadyProcessed", err)
	}
}

func TestEmergencyPassCodeVerification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)
	req, err := e.emergency.Request(ctx, vault.ID, "rita", "owner hospitalized", domain.UrgencyCritical)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	_, code, err := e.emergency.Approve(ctx, req.ID, "owner-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Wrong code and wrong vault both come back empty, with no hint why.
	if grant, err := e.emergency.VerifyPassCode(ctx, "not-the-code", vault.ID); err != nil || grant != nil {
		t.Fatalf("wrong code: got (%v, %v), want (nil, nil)", grant, err)
	}
	if grant, err := e.emergency.VerifyPassCode(ctx, code, "other-vault"); err != nil || grant != nil {
		t.Fatalf("wrong vault: got (%v, %v), want (nil, nil)", grant, err)
	}

	e.clock.Advance(23 * time.Hour)
	grant, err := e.emergency.VerifyPassCode(ctx, code, vault.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if grant == nil || grant.ID != req.ID {
		t.Fatalf("grant = %+v, want request %s", grant, req.ID)
	}
	entry := e.lastEntry(t, vault.ID)
	if entry.AccessType != domain.AccessOpened {
		t.Fatalf("last entry type = %q, want opened", entry.AccessType)
	}
	if channel, _ := entry.Detail["channel"].(string); channel != "emergency" {
		t.Fatalf("entry channel = %q, want emergency", channel)
	}

	e.clock.Advance(2 * time.Hour)
	if grant, err := e.emergency.VerifyPassCode(ctx, code, vault.ID); err != nil || grant != nil {
		t.Fatalf("expired code: got (%v, %v), want (nil, nil)", grant, err)
	}
}

func TestEmergencyRevokeKillsPassCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)
	req, err := e.emergency.Request(ctx, vault.ID, "rita", "owner hospitalized", domain.UrgencyHigh)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := e.emergency.Revoke(ctx, req.ID, "owner-1"); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("revoke pending: got %v, want ErrAlreadyProcessed", err)
	}

	_, code, err := e.emergency.Approve(ctx, req.ID, "owner-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	e.clock.Advance(time.Hour)
	if err := e.emergency.Revoke(ctx, req.ID, "owner-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if grant, err := e.emergency.VerifyPassCode(ctx, code, vault.ID); err != nil || grant != nil {
		t.Fatalf("revoked code: got (%v, %v), want (nil, nil)", grant, err)
	}
	if e.countEntries(t, vault.ID, domain.AccessRevoked) != 1 {
		t.Fatal("revocation was not audited")
	}
}

func TestEmergencyDenyIsTerminal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)
	req, err := e.emergency.Request(ctx, vault.ID, "rita", "owner hospitalized", domain.UrgencyMedium)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	denied, err := e.emergency.Deny(ctx, req.ID, "owner-1")
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if denied.Status != domain.EmergencyStatusDenied {
		t.Fatalf("status = %q, want denied", denied.Status)
	}
	if _, _, err := e.emergency.Approve(ctx, req.ID, "owner-1"); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("approve after deny: got %v, want ErrAlreadyProcessed", err)
	}
}
