package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/infra/keys/soft"
	"keepsafe/internal/infra/memstore"
	"keepsafe/internal/infra/notify"
	"keepsafe/internal/usecase"
)

// baseTime is mid-afternoon UTC so hour-consistency vectors are easy to
// reason about.
var baseTime = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// env wires the full service set over the in-memory store, the way the
// daemon does it without Postgres.
type env struct {
	store      *memstore.Store
	events     *notify.MemoryPublisher
	clock      *fakeClock
	audit      *usecase.AuditRecorder
	vaults     *usecase.VaultService
	approvals  *usecase.ApprovalEngine
	sessions   *usecase.SessionRegistry
	delegation *usecase.DelegationRegistry
	emergency  *usecase.EmergencyService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	clock := newFakeClock(baseTime)
	events := notify.NewMemoryPublisher()
	audit := usecase.NewAuditRecorder(store.AccessLogs(), clock)
	scorer := usecase.NewHeuristicRiskScorer(store.AccessLogs(), clock)
	approvals := usecase.NewApprovalEngine(store, store.DualKeyRequests(), scorer, audit, events, clock)
	return &env{
		store:      store,
		events:     events,
		clock:      clock,
		audit:      audit,
		vaults:     usecase.NewVaultService(store, store.Documents(), soft.New(), audit, clock),
		approvals:  approvals,
		sessions:   usecase.NewSessionRegistry(store, store.Sessions(), approvals, audit, events, nil, clock),
		delegation: usecase.NewDelegationRegistry(store, store.Nominees(), store.Documents(), audit, events, clock),
		emergency:  usecase.NewEmergencyService(store, store.EmergencyRequests(), audit, events, clock),
	}
}

func (e *env) createVault(t *testing.T, ownerID string, keyType domain.KeyType) *domain.Vault {
	t.Helper()
	vault, err := e.vaults.Create(context.Background(), usecase.CreateVaultParams{
		OwnerID:   ownerID,
		Name:      "family-records",
		KeyType:   keyType,
		VaultType: domain.VaultTypeBoth,
	})
	if err != nil {
		t.Fatalf("create vault: %v", err)
	}
	return vault
}

func (e *env) addDocument(t *testing.T, vaultID, ownerID, name string) *domain.Document {
	t.Helper()
	doc, err := e.vaults.AddDocument(context.Background(), vaultID, name, ownerID)
	if err != nil {
		t.Fatalf("add document %q: %v", name, err)
	}
	return doc
}

// seedHistory appends opened entries directly so scorer inputs carry exact
// timestamps.
func (e *env) seedHistory(t *testing.T, vaultID, userID string, timestamps ...time.Time) {
	t.Helper()
	for i, ts := range timestamps {
		_, err := e.store.AccessLogs().Append(context.Background(), domain.AccessLogEntry{
			ID:         fmt.Sprintf("seed-%s-%d", userID, i),
			VaultID:    vaultID,
			AccessType: domain.AccessOpened,
			UserID:     userID,
			Timestamp:  ts,
		})
		if err != nil {
			t.Fatalf("seed history entry %d: %v", i, err)
		}
	}
}

func (e *env) lastEntry(t *testing.T, vaultID string) domain.AccessLogEntry {
	t.Helper()
	entries, err := e.store.AccessLogs().ListByVault(context.Background(), vaultID)
	if err != nil {
		t.Fatalf("list access log: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("access log is empty")
	}
	return entries[len(entries)-1]
}

func (e *env) countEntries(t *testing.T, vaultID string, accessType domain.AccessType) int {
	t.Helper()
	entries, err := e.store.AccessLogs().ListByVault(context.Background(), vaultID)
	if err != nil {
		t.Fatalf("list access log: %v", err)
	}
	n := 0
	for _, entry := range entries {
		if entry.AccessType == accessType {
			n++
		}
	}
	return n
}
