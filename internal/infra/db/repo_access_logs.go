package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/usecase"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// Append assigns the next sequence number in the vault's chain, links the
// entry to its predecessor and persists it, all inside one transaction. The
// per-vault row lock in nextAccessSeq serializes concurrent appends so two
// entries can never claim the same slot.
func (r *AccessLogRepository) Append(ctx context.Context, entry domain.AccessLogEntry) (domain.AccessLogEntry, error) {
	if r.db == nil {
		return domain.AccessLogEntry{}, errDBUnavailable
	}
	if entry.VaultID == "" {
		return domain.AccessLogEntry{}, errors.New("vault_id is required")
	}
	if entry.AccessType == "" {
		return domain.AccessLogEntry{}, errors.New("access_type is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Microsecond)

	var out domain.AccessLogEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, prevHash, err := nextAccessSeq(ctx, tx, entry.VaultID)
		if err != nil {
			return err
		}
		entry.Seq = seq
		entry.PrevHash = prevHash

		entryHash, err := usecase.ChainEntryHash(entry)
		if err != nil {
			return err
		}
		entry.EntryHash = entryHash

		model, err := accessLogModelFromDomain(entry)
		if err != nil {
			return err
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return domain.AccessLogEntry{}, err
	}
	return out, nil
}

func (r *AccessLogRepository) ListByVault(ctx context.Context, vaultID string) ([]domain.AccessLogEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AccessLogModel
	if err := r.db.WithContext(ctx).
		Where("vault_id = ?", vaultID).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return accessLogsFromModels(models)
}

func (r *AccessLogRepository) ListByVaultAndUser(ctx context.Context, vaultID, userID string, limit int) ([]domain.AccessLogEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).
		Where("vault_id = ? AND user_id = ?", vaultID, userID).
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []AccessLogModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return accessLogsFromModels(models)
}

func nextAccessSeq(ctx context.Context, tx *gorm.DB, vaultID string) (int64, string, error) {
	if err := tx.WithContext(ctx).Exec(
		"INSERT INTO vault_access_seq (vault_id, seq) VALUES (?, 0) ON CONFLICT (vault_id) DO NOTHING",
		vaultID,
	).Error; err != nil {
		return 0, "", err
	}

	var currentSeq int64
	if err := tx.WithContext(ctx).Raw(
		"SELECT seq FROM vault_access_seq WHERE vault_id = ? FOR UPDATE",
		vaultID,
	).Scan(&currentSeq).Error; err != nil {
		return 0, "", err
	}
	nextSeq := currentSeq + 1
	if err := tx.WithContext(ctx).Exec(
		"UPDATE vault_access_seq SET seq = ? WHERE vault_id = ?",
		nextSeq,
		vaultID,
	).Error; err != nil {
		return 0, "", err
	}

	prevHash := usecase.ZeroChainHash()
	if currentSeq > 0 {
		var prev AccessLogModel
		if err := tx.WithContext(ctx).
			Where("vault_id = ? AND seq = ?", vaultID, currentSeq).
			Take(&prev).Error; err != nil {
			return 0, "", err
		}
		prevHash = prev.EntryHash
	}
	if prevHash == "" {
		return 0, "", fmt.Errorf("missing previous entry hash for vault %s", vaultID)
	}
	return nextSeq, prevHash, nil
}

func accessLogModelFromDomain(entry domain.AccessLogEntry) (AccessLogModel, error) {
	locationJSON, err := marshalOrNil(entry.Location)
	if err != nil {
		return AccessLogModel{}, err
	}
	var detailJSON []byte
	if len(entry.Detail) > 0 {
		detailJSON, err = json.Marshal(entry.Detail)
		if err != nil {
			return AccessLogModel{}, err
		}
	}
	return AccessLogModel{
		ID:           entry.ID,
		VaultID:      entry.VaultID,
		Seq:          entry.Seq,
		Timestamp:    entry.Timestamp.UTC(),
		AccessType:   string(entry.AccessType),
		UserID:       entry.UserID,
		UserName:     stringPtrIfNotEmpty(entry.UserName),
		DocumentID:   stringPtrIfNotEmpty(entry.DocumentID),
		DeviceInfo:   stringPtrIfNotEmpty(entry.DeviceInfo),
		LocationJSON: locationJSON,
		DetailJSON:   detailJSON,
		PrevHash:     entry.PrevHash,
		EntryHash:    entry.EntryHash,
	}, nil
}

func accessLogFromModel(model AccessLogModel) (domain.AccessLogEntry, error) {
	var location *domain.Location
	if len(model.LocationJSON) > 0 && string(model.LocationJSON) != "null" {
		location = &domain.Location{}
		if err := json.Unmarshal(model.LocationJSON, location); err != nil {
			return domain.AccessLogEntry{}, err
		}
	}
	var detail map[string]any
	if len(model.DetailJSON) > 0 {
		if err := json.Unmarshal(model.DetailJSON, &detail); err != nil {
			return domain.AccessLogEntry{}, err
		}
	}
	return domain.AccessLogEntry{
		ID:         model.ID,
		VaultID:    model.VaultID,
		Timestamp:  model.Timestamp.UTC(),
		AccessType: domain.AccessType(model.AccessType),
		UserID:     model.UserID,
		UserName:   stringValue(model.UserName),
		DocumentID: stringValue(model.DocumentID),
		DeviceInfo: stringValue(model.DeviceInfo),
		Location:   location,
		Detail:     detail,
		Seq:        model.Seq,
		PrevHash:   model.PrevHash,
		EntryHash:  model.EntryHash,
	}, nil
}

func accessLogsFromModels(models []AccessLogModel) ([]domain.AccessLogEntry, error) {
	out := make([]domain.AccessLogEntry, 0, len(models))
	for _, model := range models {
		entry, err := accessLogFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
