package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/usecase"
)

func TestSingleKeyOpenGrantsImmediately(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	result, err := e.sessions.Open(ctx, usecase.OpenParams{
		VaultID:  vault.ID,
		UserID:   "owner-1",
		UserName: "Olive",
		Location: &domain.Location{Lat: 40.7, Lon: -74.0},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.State != domain.OpenStateGranted {
		t.Fatalf("state = %q, want granted", result.State)
	}
	session := result.Session
	if !session.IsActive {
		t.Fatal("session not active")
	}
	if want := baseTime.Add(usecase.DefaultSessionTTL); !session.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", session.ExpiresAt, want)
	}

	got, err := e.vaults.Get(ctx, vault.ID)
	if err != nil {
		t.Fatalf("get vault: %v", err)
	}
	if got.Status != domain.VaultStatusActive {
		t.Fatalf("vault status = %q, want active", got.Status)
	}
	if got.LastAccessedAt == nil {
		t.Fatal("last accessed not touched")
	}
	if e.countEntries(t, vault.ID, domain.AccessOpened) != 1 {
		t.Fatal("open was not audited")
	}
	if len(e.events.ByType(domain.EventSessionOpened)) != 1 {
		t.Fatal("sessionOpened event not published")
	}
}

func TestOpenReusesLiveSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	first, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e.clock.Advance(5 * time.Minute)
	second, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.Session.ID != first.Session.ID {
		t.Fatalf("live session was not reused: %s vs %s", second.Session.ID, first.Session.ID)
	}
	if e.countEntries(t, vault.ID, domain.AccessOpened) != 1 {
		t.Fatal("reuse must not double-log the open")
	}
}

func TestOpenUnknownVault(t *testing.T) {
	e := newEnv(t)
	_, err := e.sessions.Open(context.Background(), usecase.OpenParams{VaultID: "nope", UserID: "owner-1"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestExtendOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e.clock.Advance(25 * time.Minute)

	extended, err := e.sessions.Extend(ctx, result.Session.ID)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	want := baseTime.Add(25 * time.Minute).Add(usecase.DefaultExtensionTTL)
	if !extended.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", extended.ExpiresAt, want)
	}
	if !extended.WasExtended {
		t.Fatal("WasExtended not set")
	}

	if _, err := e.sessions.Extend(ctx, result.Session.ID); !errors.Is(err, domain.ErrAlreadyExtended) {
		t.Fatalf("second extend: got %v, want ErrAlreadyExtended", err)
	}
}

func TestExtendDeadSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	if _, err := e.sessions.Extend(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown session: got %v, want ErrNotFound", err)
	}

	result, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e.clock.Advance(usecase.DefaultSessionTTL + time.Minute)
	if _, err := e.sessions.Extend(ctx, result.Session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired session: got %v, want ErrNotFound", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	if _, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := e.sessions.Close(ctx, vault.ID, "owner-1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.sessions.Close(ctx, vault.ID, "owner-1"); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if e.countEntries(t, vault.ID, domain.AccessClosed) != 1 {
		t.Fatal("close must be logged exactly once")
	}

	got, err := e.vaults.Get(ctx, vault.ID)
	if err != nil {
		t.Fatalf("get vault: %v", err)
	}
	if got.Status != domain.VaultStatusLocked {
		t.Fatalf("vault status = %q, want locked", got.Status)
	}
}

func TestExpiryIsEnforcedLazily(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	if _, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	e.clock.Advance(usecase.DefaultSessionTTL + time.Second)

	// No sweep has run, yet the session no longer answers as live.
	live, err := e.sessions.HasActiveSession(ctx, vault.ID)
	if err != nil {
		t.Fatalf("has active session: %v", err)
	}
	if live {
		t.Fatal("expired session still reported live")
	}
}

func TestSweepClosesExpiredSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	if _, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	e.clock.Advance(usecase.DefaultSessionTTL + time.Second)

	if err := e.sessions.SweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if e.countEntries(t, vault.ID, domain.AccessClosed) != 1 {
		t.Fatal("sweep did not log the close")
	}
	got, err := e.vaults.Get(ctx, vault.ID)
	if err != nil {
		t.Fatalf("get vault: %v", err)
	}
	if got.Status != domain.VaultStatusLocked {
		t.Fatalf("vault status = %q, want locked", got.Status)
	}
	if len(e.events.ByType(domain.EventSessionClosed)) != 1 {
		t.Fatal("sessionClosed event not published")
	}

	// A sweep over a clean registry is a no-op.
	if err := e.sessions.SweepExpired(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if e.countEntries(t, vault.ID, domain.AccessClosed) != 1 {
		t.Fatal("second sweep double-logged the close")
	}
}

func TestOpenSupersedesStaleSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vault := e.createVault(t, "owner-1", domain.KeyTypeSingle)

	first, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e.clock.Advance(usecase.DefaultSessionTTL + time.Minute)

	second, err := e.sessions.Open(ctx, usecase.OpenParams{VaultID: vault.ID, UserID: "owner-1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.Session.ID == first.Session.ID {
		t.Fatal("stale session record was handed back out")
	}
	if e.countEntries(t, vault.ID, domain.AccessClosed) != 1 {
		t.Fatal("stale session was not closed on the way")
	}
	if e.countEntries(t, vault.ID, domain.AccessOpened) != 2 {
		t.Fatal("fresh open was not logged")
	}
}
