package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"keepsafe/internal/domain"
)

// Each vault's access log is a hash chain: entry N carries the hash of entry
// N-1 and a hash over its own canonical form. A mutated, dropped or reordered
// entry breaks every hash after it.

const zeroChainHash = "0000000000000000000000000000000000000000000000000000000000000000"

func ZeroChainHash() string { return zeroChainHash }

// chainEnvelope is the canonical form that gets hashed. Field order is fixed
// by the struct; encoding/json preserves declaration order, which makes the
// digest stable across processes.
type chainEnvelope struct {
	Version     string `json:"v"`
	VaultID     string `json:"vault_id"`
	Seq         int64  `json:"seq"`
	AccessType  string `json:"access_type"`
	UserID      string `json:"user_id"`
	DocumentID  string `json:"document_id,omitempty"`
	Timestamp   string `json:"ts"`
	PayloadHash string `json:"payload_hash"`
	PrevHash    string `json:"prev_hash"`
}

// EntryPayloadHash digests the free-form parts of an entry (detail, device,
// location, user name) so the chain hash stays small and canonical.
func EntryPayloadHash(entry domain.AccessLogEntry) (string, error) {
	payload := struct {
		UserName   string           `json:"user_name,omitempty"`
		DeviceInfo string           `json:"device_info,omitempty"`
		Location   *domain.Location `json:"location,omitempty"`
		Detail     map[string]any   `json:"detail,omitempty"`
	}{
		UserName:   entry.UserName,
		DeviceInfo: entry.DeviceInfo,
		Location:   entry.Location,
		Detail:     entry.Detail,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return sha256Hex(raw), nil
}

// ChainEntryHash computes the tamper-evidence hash for an entry whose Seq and
// PrevHash are already assigned.
func ChainEntryHash(entry domain.AccessLogEntry) (string, error) {
	if entry.VaultID == "" || entry.AccessType == "" {
		return "", errors.New("access log entry missing vault_id or access_type")
	}
	if entry.PrevHash == "" {
		return "", errors.New("access log entry missing prev_hash")
	}
	payloadHash, err := EntryPayloadHash(entry)
	if err != nil {
		return "", err
	}
	envelope := chainEnvelope{
		Version:     domain.AuditChainVersion,
		VaultID:     entry.VaultID,
		Seq:         entry.Seq,
		AccessType:  string(entry.AccessType),
		UserID:      entry.UserID,
		DocumentID:  entry.DocumentID,
		Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339Nano),
		PayloadHash: payloadHash,
		PrevHash:    entry.PrevHash,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return sha256Hex(raw), nil
}

// VerifyVaultChain re-walks a vault's access log and fails on the first entry
// whose sequence, back-pointer or hash does not line up.
func VerifyVaultChain(ctx context.Context, repo AccessLogRepository, vaultID string) error {
	if repo == nil {
		return errors.New("access log repository required")
	}
	if vaultID == "" {
		return errors.New("vault id required")
	}
	entries, err := repo.ListByVault(ctx, vaultID)
	if err != nil {
		return err
	}

	expectedSeq := int64(1)
	prevHash := zeroChainHash
	for _, entry := range entries {
		if entry.VaultID != vaultID {
			return fmt.Errorf("access chain vault mismatch at seq %d", entry.Seq)
		}
		if entry.Seq != expectedSeq {
			return fmt.Errorf("access chain seq mismatch: expected %d got %d", expectedSeq, entry.Seq)
		}
		if entry.PrevHash != prevHash {
			return fmt.Errorf("access chain prev hash mismatch at seq %d", entry.Seq)
		}
		if entry.Timestamp.IsZero() {
			return fmt.Errorf("access chain missing timestamp at seq %d", entry.Seq)
		}
		expectedHash, err := ChainEntryHash(entry)
		if err != nil {
			return fmt.Errorf("access chain hash compute failed at seq %d: %w", entry.Seq, err)
		}
		if expectedHash != entry.EntryHash {
			return fmt.Errorf("access chain hash mismatch at seq %d", entry.Seq)
		}
		prevHash = entry.EntryHash
		expectedSeq++
	}
	return nil
}

func sha256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}
