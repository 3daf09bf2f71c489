// Package memstore is the in-memory repository set, used by tests and by the
// daemon's no-db mode. Semantics mirror the Postgres repositories, including
// the access-log hash chain and the compare-and-swap transitions.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/usecase"
)

type Store struct {
	mu sync.Mutex

	vaults    map[string]domain.Vault
	sessions  map[string]domain.Session
	requests  map[string]domain.DualKeyRequest
	consumed  map[string]time.Time
	nominees  map[string]domain.Nominee
	invites   map[string]string // invite token hash -> nominee ID
	emergency map[string]domain.EmergencyAccessRequest
	documents map[string]domain.Document
	logs      map[string][]domain.AccessLogEntry // vault ID -> chain order
}

func New() *Store {
	return &Store{
		vaults:    make(map[string]domain.Vault),
		sessions:  make(map[string]domain.Session),
		requests:  make(map[string]domain.DualKeyRequest),
		consumed:  make(map[string]time.Time),
		nominees:  make(map[string]domain.Nominee),
		invites:   make(map[string]string),
		emergency: make(map[string]domain.EmergencyAccessRequest),
		documents: make(map[string]domain.Document),
		logs:      make(map[string][]domain.AccessLogEntry),
	}
}

// --- VaultRepository ---

func (s *Store) Create(ctx context.Context, vault domain.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaults[vault.ID] = vault
	return nil
}

func (s *Store) GetByID(ctx context.Context, vaultID string) (*domain.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vault, ok := s.vaults[vaultID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &vault, nil
}

func (s *Store) UpdateStatus(ctx context.Context, vaultID string, status domain.VaultStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vault, ok := s.vaults[vaultID]
	if !ok {
		return domain.ErrNotFound
	}
	vault.Status = status
	s.vaults[vaultID] = vault
	return nil
}

func (s *Store) TouchLastAccessed(ctx context.Context, vaultID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vault, ok := s.vaults[vaultID]
	if !ok {
		return domain.ErrNotFound
	}
	vault.LastAccessedAt = &at
	s.vaults[vaultID] = vault
	return nil
}

var _ usecase.VaultRepository = (*Store)(nil)

// --- SessionRepository ---

type sessions struct{ *Store }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() usecase.SessionRepository { return sessions{s} }

func (s sessions) Create(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.sessions[session.ID] = session
	return nil
}

func (s sessions) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.Store.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

func (s sessions) GetActive(ctx context.Context, vaultID, userID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.Store.sessions {
		if session.IsActive && session.VaultID == vaultID && session.UserID == userID {
			out := session
			return &out, nil
		}
	}
	return nil, nil
}

func (s sessions) ListActiveByVault(ctx context.Context, vaultID string) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Session
	for _, session := range s.Store.sessions {
		if session.IsActive && session.VaultID == vaultID {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s sessions) ListActive(ctx context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Session
	for _, session := range s.Store.sessions {
		if session.IsActive {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s sessions) Close(ctx context.Context, sessionID string, closedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.Store.sessions[sessionID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	session.ClosedAt = &closedAt
	s.Store.sessions[sessionID] = session
	return true, nil
}

func (s sessions) MarkExtended(ctx context.Context, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.Store.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if session.WasExtended {
		return domain.ErrAlreadyExtended
	}
	session.WasExtended = true
	session.ExpiresAt = expiresAt
	s.Store.sessions[sessionID] = session
	return nil
}

func (s sessions) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Store.sessions, sessionID)
	return nil
}

// --- DualKeyRequestRepository ---

type dualKeyRequests struct{ *Store }

func (s *Store) DualKeyRequests() usecase.DualKeyRequestRepository { return dualKeyRequests{s} }

func (s dualKeyRequests) Create(ctx context.Context, req domain.DualKeyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s dualKeyRequests) GetByID(ctx context.Context, requestID string) (*domain.DualKeyRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (s dualKeyRequests) GetLatest(ctx context.Context, vaultID, requesterID string) (*domain.DualKeyRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.DualKeyRequest
	for _, req := range s.requests {
		if req.VaultID != vaultID || req.RequesterID != requesterID {
			continue
		}
		if latest == nil || req.RequestedAt.After(latest.RequestedAt) {
			out := req
			latest = &out
		}
	}
	return latest, nil
}

func (s dualKeyRequests) ListPendingByVault(ctx context.Context, vaultID string) ([]domain.DualKeyRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DualKeyRequest
	for _, req := range s.requests {
		if req.VaultID == vaultID && req.Status == domain.RequestStatusPending {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (s dualKeyRequests) Decide(ctx context.Context, requestID string, status domain.RequestStatus, method domain.DecisionMethod, approverID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status != domain.RequestStatusPending {
		return domain.ErrAlreadyProcessed
	}
	req.Status = status
	req.DecisionMethod = method
	req.ApproverID = approverID
	if status == domain.RequestStatusApproved {
		req.ApprovedAt = &at
	}
	s.requests[requestID] = req
	return nil
}

func (s dualKeyRequests) MarkConsumed(ctx context.Context, requestID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return domain.ErrNotFound
	}
	s.consumed[requestID] = at
	return nil
}

func (s dualKeyRequests) IsConsumed(ctx context.Context, requestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.consumed[requestID]
	return ok, nil
}

// --- NomineeRepository ---

type nominees struct{ *Store }

func (s *Store) Nominees() usecase.NomineeRepository { return nominees{s} }

func (s nominees) Create(ctx context.Context, nominee domain.Nominee, inviteTokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.nominees[nominee.ID] = nominee
	s.invites[inviteTokenHash] = nominee.ID
	return nil
}

func (s nominees) GetByID(ctx context.Context, nomineeID string) (*domain.Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nominee, ok := s.Store.nominees[nomineeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &nominee, nil
}

func (s nominees) GetByInviteTokenHash(ctx context.Context, tokenHash string) (*domain.Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nomineeID, ok := s.invites[tokenHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	nominee := s.Store.nominees[nomineeID]
	return &nominee, nil
}

func (s nominees) ListByVault(ctx context.Context, vaultID string) ([]domain.Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Nominee
	for _, nominee := range s.Store.nominees {
		if nominee.VaultID == vaultID {
			out = append(out, nominee)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (s nominees) ListSubsetLive(ctx context.Context) ([]domain.Nominee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Nominee
	for _, nominee := range s.Store.nominees {
		if !nominee.IsSubsetAccess {
			continue
		}
		switch nominee.Status {
		case domain.NomineeStatusAccepted, domain.NomineeStatusActive:
			out = append(out, nominee)
		}
	}
	return out, nil
}

func (s nominees) Accept(ctx context.Context, nomineeID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nominee, ok := s.Store.nominees[nomineeID]
	if !ok {
		return domain.ErrNotFound
	}
	if nominee.Status != domain.NomineeStatusPending {
		return domain.ErrAlreadyProcessed
	}
	nominee.Status = domain.NomineeStatusAccepted
	nominee.UserID = userID
	nominee.AcceptedAt = &at
	if nominee.IsSubsetAccess && nominee.AccessWindow > 0 {
		expiry := at.Add(nominee.AccessWindow)
		nominee.SessionExpiresAt = &expiry
	}
	s.Store.nominees[nomineeID] = nominee
	return nil
}

func (s nominees) SetStatus(ctx context.Context, nomineeID string, status domain.NomineeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nominee, ok := s.Store.nominees[nomineeID]
	if !ok {
		return domain.ErrNotFound
	}
	nominee.Status = status
	s.Store.nominees[nomineeID] = nominee
	return nil
}

// SetNomineeExpiry overrides a nominee's delegated-session expiry. Test
// helper for exercising the lazy expiry path.
func (s *Store) SetNomineeExpiry(nomineeID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nominee, ok := s.nominees[nomineeID]
	if !ok {
		return
	}
	nominee.SessionExpiresAt = &at
	s.nominees[nomineeID] = nominee
}

// --- EmergencyAccessRepository ---

type emergencyRequests struct{ *Store }

func (s *Store) EmergencyRequests() usecase.EmergencyAccessRepository { return emergencyRequests{s} }

func (s emergencyRequests) Create(ctx context.Context, req domain.EmergencyAccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergency[req.ID] = req
	return nil
}

func (s emergencyRequests) GetByID(ctx context.Context, requestID string) (*domain.EmergencyAccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.emergency[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (s emergencyRequests) Approve(ctx context.Context, requestID, approverID string, at, expiresAt time.Time, passCodeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.emergency[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status != domain.EmergencyStatusPending {
		return domain.ErrAlreadyProcessed
	}
	req.Status = domain.EmergencyStatusApproved
	req.ApproverID = approverID
	req.ApprovedAt = &at
	req.ExpiresAt = &expiresAt
	req.PassCodeHash = passCodeHash
	s.emergency[requestID] = req
	return nil
}

func (s emergencyRequests) Deny(ctx context.Context, requestID, approverID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.emergency[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status != domain.EmergencyStatusPending {
		return domain.ErrAlreadyProcessed
	}
	req.Status = domain.EmergencyStatusDenied
	req.ApproverID = approverID
	s.emergency[requestID] = req
	return nil
}

func (s emergencyRequests) Revoke(ctx context.Context, requestID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.emergency[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status != domain.EmergencyStatusApproved {
		return domain.ErrAlreadyProcessed
	}
	req.Status = domain.EmergencyStatusRevoked
	s.emergency[requestID] = req
	return nil
}

func (s emergencyRequests) ListApprovedByVault(ctx context.Context, vaultID string) ([]domain.EmergencyAccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EmergencyAccessRequest
	for _, req := range s.emergency {
		if req.VaultID == vaultID && req.Status == domain.EmergencyStatusApproved {
			out = append(out, req)
		}
	}
	return out, nil
}

// --- AccessLogRepository ---

type accessLogs struct{ *Store }

func (s *Store) AccessLogs() usecase.AccessLogRepository { return accessLogs{s} }

func (s accessLogs) Append(ctx context.Context, entry domain.AccessLogEntry) (domain.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.logs[entry.VaultID]
	entry.Seq = int64(len(chain)) + 1
	if len(chain) == 0 {
		entry.PrevHash = usecase.ZeroChainHash()
	} else {
		entry.PrevHash = chain[len(chain)-1].EntryHash
	}
	hash, err := usecase.ChainEntryHash(entry)
	if err != nil {
		return domain.AccessLogEntry{}, err
	}
	entry.EntryHash = hash
	s.logs[entry.VaultID] = append(chain, entry)
	return entry, nil
}

func (s accessLogs) ListByVault(ctx context.Context, vaultID string) ([]domain.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.logs[vaultID]
	out := make([]domain.AccessLogEntry, len(chain))
	copy(out, chain)
	return out, nil
}

func (s accessLogs) ListByVaultAndUser(ctx context.Context, vaultID, userID string, limit int) ([]domain.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AccessLogEntry
	chain := s.logs[vaultID]
	for i := len(chain) - 1; i >= 0 && len(out) < limit; i-- {
		if chain[i].UserID == userID {
			out = append(out, chain[i])
		}
	}
	return out, nil
}

// TamperEntry rewrites a stored entry's user ID without rehashing. Test
// helper for chain verification.
func (s *Store) TamperEntry(vaultID string, seq int64, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.logs[vaultID]
	for i := range chain {
		if chain[i].Seq == seq {
			chain[i].UserID = userID
		}
	}
}

// --- DocumentRepository ---

type documents struct{ *Store }

func (s *Store) Documents() usecase.DocumentRepository { return documents{s} }

func (s documents) Create(ctx context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.documents[doc.ID] = doc
	return nil
}

func (s documents) GetByID(ctx context.Context, documentID string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.Store.documents[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (s documents) ListActiveByVault(ctx context.Context, vaultID string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Document
	for _, doc := range s.Store.documents {
		if doc.VaultID == vaultID && doc.IsActive {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
