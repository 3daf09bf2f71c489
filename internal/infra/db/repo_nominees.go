package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"keepsafe/internal/domain"

	"gorm.io/gorm"
)

type NomineeRepository struct {
	db *gorm.DB
}

func NewNomineeRepository(db *gorm.DB) *NomineeRepository {
	return &NomineeRepository{db: db}
}

func (r *NomineeRepository) Create(ctx context.Context, nominee domain.Nominee, inviteTokenHash string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := nomineeModelFromDomain(nominee, inviteTokenHash)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *NomineeRepository) GetByID(ctx context.Context, nomineeID string) (*domain.Nominee, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model NomineeModel
	err := r.db.WithContext(ctx).Where("id = ?", nomineeID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nomineeFromModel(model)
}

func (r *NomineeRepository) GetByInviteTokenHash(ctx context.Context, tokenHash string) (*domain.Nominee, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model NomineeModel
	err := r.db.WithContext(ctx).Where("invite_token_hash = ?", tokenHash).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return nomineeFromModel(model)
}

func (r *NomineeRepository) ListByVault(ctx context.Context, vaultID string) ([]domain.Nominee, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []NomineeModel
	if err := r.db.WithContext(ctx).
		Where("vault_id = ?", vaultID).
		Order("invited_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return nomineesFromModels(models)
}

func (r *NomineeRepository) ListSubsetLive(ctx context.Context) ([]domain.Nominee, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []NomineeModel
	if err := r.db.WithContext(ctx).
		Where("is_subset_access = ? AND status IN ?", true, []string{
			string(domain.NomineeStatusAccepted),
			string(domain.NomineeStatusActive),
		}).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return nomineesFromModels(models)
}

func (r *NomineeRepository) Accept(ctx context.Context, nomineeID, userID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model NomineeModel
		err := tx.Where("id = ?", nomineeID).Take(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		updates := map[string]any{
			"status":      string(domain.NomineeStatusAccepted),
			"user_id":     stringPtrIfNotEmpty(userID),
			"accepted_at": at.UTC(),
		}
		if model.IsSubsetAccess && model.AccessWindowSecs > 0 {
			updates["session_expires_at"] = at.UTC().Add(time.Duration(model.AccessWindowSecs) * time.Second)
		}
		res := tx.Model(&NomineeModel{}).
			Where("id = ? AND status = ?", nomineeID, string(domain.NomineeStatusPending)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAlreadyProcessed
		}
		return nil
	})
}

func (r *NomineeRepository) SetStatus(ctx context.Context, nomineeID string, status domain.NomineeStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&NomineeModel{}).
		Where("id = ?", nomineeID).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nomineeModelFromDomain(nominee domain.Nominee, inviteTokenHash string) (NomineeModel, error) {
	docsJSON, err := marshalOrNil(nominee.SelectedDocumentIDs)
	if err != nil {
		return NomineeModel{}, err
	}
	return NomineeModel{
		ID:               nominee.ID,
		VaultID:          nominee.VaultID,
		UserID:           stringPtrIfNotEmpty(nominee.UserID),
		Name:             nominee.Name,
		Contact:          nominee.Contact,
		Status:           string(nominee.Status),
		IsSubsetAccess:   nominee.IsSubsetAccess,
		SelectedDocsJSON: docsJSON,
		SessionExpiresAt: nominee.SessionExpiresAt,
		AccessWindowSecs: int64(nominee.AccessWindow / time.Second),
		InviteTokenHash:  inviteTokenHash,
		InvitedAt:        nominee.InvitedAt.UTC(),
		AcceptedAt:       nominee.AcceptedAt,
	}, nil
}

func nomineeFromModel(model NomineeModel) (*domain.Nominee, error) {
	var docIDs []string
	if len(model.SelectedDocsJSON) > 0 {
		if err := json.Unmarshal(model.SelectedDocsJSON, &docIDs); err != nil {
			return nil, err
		}
	}
	return &domain.Nominee{
		ID:                  model.ID,
		VaultID:             model.VaultID,
		UserID:              stringValue(model.UserID),
		Name:                model.Name,
		Contact:             model.Contact,
		Status:              domain.NomineeStatus(model.Status),
		IsSubsetAccess:      model.IsSubsetAccess,
		SelectedDocumentIDs: docIDs,
		SessionExpiresAt:    model.SessionExpiresAt,
		AccessWindow:        time.Duration(model.AccessWindowSecs) * time.Second,
		InvitedAt:           model.InvitedAt.UTC(),
		AcceptedAt:          model.AcceptedAt,
	}, nil
}

func nomineesFromModels(models []NomineeModel) ([]domain.Nominee, error) {
	out := make([]domain.Nominee, 0, len(models))
	for _, model := range models {
		nominee, err := nomineeFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, *nominee)
	}
	return out, nil
}
