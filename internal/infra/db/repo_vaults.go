package db

import (
	"context"
	"errors"
	"time"

	"keepsafe/internal/domain"

	"gorm.io/gorm"
)

type VaultRepository struct {
	db *gorm.DB
}

func NewVaultRepository(db *gorm.DB) *VaultRepository {
	return &VaultRepository{db: db}
}

func (r *VaultRepository) Create(ctx context.Context, vault domain.Vault) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := vaultModelFromDomain(vault)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *VaultRepository) GetByID(ctx context.Context, vaultID string) (*domain.Vault, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VaultModel
	err := r.db.WithContext(ctx).Where("id = ?", vaultID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	vault := vaultFromModel(model)
	return &vault, nil
}

func (r *VaultRepository) UpdateStatus(ctx context.Context, vaultID string, status domain.VaultStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&VaultModel{}).
		Where("id = ?", vaultID).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *VaultRepository) TouchLastAccessed(ctx context.Context, vaultID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&VaultModel{}).
		Where("id = ?", vaultID).
		Update("last_accessed_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func vaultModelFromDomain(vault domain.Vault) VaultModel {
	return VaultModel{
		ID:               vault.ID,
		OwnerID:          vault.OwnerID,
		Name:             vault.Name,
		KeyType:          string(vault.KeyType),
		VaultType:        string(vault.VaultType),
		Status:           string(vault.Status),
		EncryptionKeyRef: string(vault.EncryptionKeyRef),
		IsSystemVault:    vault.IsSystemVault,
		IsBroadcast:      vault.IsBroadcast,
		CreatedAt:        vault.CreatedAt.UTC(),
		LastAccessedAt:   vault.LastAccessedAt,
	}
}

func vaultFromModel(model VaultModel) domain.Vault {
	return domain.Vault{
		ID:               model.ID,
		OwnerID:          model.OwnerID,
		Name:             model.Name,
		KeyType:          domain.KeyType(model.KeyType),
		VaultType:        domain.VaultType(model.VaultType),
		Status:           domain.VaultStatus(model.Status),
		EncryptionKeyRef: domain.KeyRef(model.EncryptionKeyRef),
		IsSystemVault:    model.IsSystemVault,
		IsBroadcast:      model.IsBroadcast,
		CreatedAt:        model.CreatedAt.UTC(),
		LastAccessedAt:   model.LastAccessedAt,
	}
}
