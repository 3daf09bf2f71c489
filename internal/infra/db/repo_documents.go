package db

import (
	"context"
	"errors"

	"keepsafe/internal/domain"

	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc domain.Document) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := DocumentModel{
		ID:        doc.ID,
		VaultID:   doc.VaultID,
		Name:      doc.Name,
		IsActive:  doc.IsActive,
		CreatedAt: doc.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, documentID string) (*domain.Document, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DocumentModel
	err := r.db.WithContext(ctx).Where("id = ?", documentID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc := documentFromModel(model)
	return &doc, nil
}

func (r *DocumentRepository) ListActiveByVault(ctx context.Context, vaultID string) ([]domain.Document, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DocumentModel
	if err := r.db.WithContext(ctx).
		Where("vault_id = ? AND is_active = ?", vaultID, true).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Document, 0, len(models))
	for _, model := range models {
		out = append(out, documentFromModel(model))
	}
	return out, nil
}

func documentFromModel(model DocumentModel) domain.Document {
	return domain.Document{
		ID:        model.ID,
		VaultID:   model.VaultID,
		Name:      model.Name,
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt.UTC(),
	}
}
