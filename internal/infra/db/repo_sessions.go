package db

import (
	"context"
	"errors"
	"time"

	"keepsafe/internal/domain"

	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := sessionModelFromDomain(session)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SessionModel
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	session := sessionFromModel(model)
	return &session, nil
}

func (r *SessionRepository) GetActive(ctx context.Context, vaultID, userID string) (*domain.Session, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SessionModel
	err := r.db.WithContext(ctx).
		Where("vault_id = ? AND user_id = ? AND is_active = ?", vaultID, userID, true).
		Order("started_at DESC").
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session := sessionFromModel(model)
	return &session, nil
}

func (r *SessionRepository) ListActiveByVault(ctx context.Context, vaultID string) ([]domain.Session, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SessionModel
	if err := r.db.WithContext(ctx).
		Where("vault_id = ? AND is_active = ?", vaultID, true).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return sessionsFromModels(models), nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]domain.Session, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SessionModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return sessionsFromModels(models), nil
}

// Close flips is_active in a single guarded update. The is_active predicate
// makes concurrent closes race-safe: only one caller observes true.
func (r *SessionRepository) Close(ctx context.Context, sessionID string, closedAt time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]any{
			"is_active": false,
			"closed_at": closedAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ?", sessionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *SessionRepository) MarkExtended(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ? AND was_extended = ?", sessionID, false).
		Updates(map[string]any{
			"was_extended": true,
			"expires_at":   expiresAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ?", sessionID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyExtended
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		Delete(&SessionModel{}).Error
}

func sessionModelFromDomain(session domain.Session) SessionModel {
	return SessionModel{
		ID:          session.ID,
		VaultID:     session.VaultID,
		UserID:      session.UserID,
		StartedAt:   session.StartedAt.UTC(),
		ExpiresAt:   session.ExpiresAt.UTC(),
		IsActive:    session.IsActive,
		WasExtended: session.WasExtended,
		ClosedAt:    session.ClosedAt,
	}
}

func sessionFromModel(model SessionModel) domain.Session {
	return domain.Session{
		ID:          model.ID,
		VaultID:     model.VaultID,
		UserID:      model.UserID,
		StartedAt:   model.StartedAt.UTC(),
		ExpiresAt:   model.ExpiresAt.UTC(),
		IsActive:    model.IsActive,
		WasExtended: model.WasExtended,
		ClosedAt:    model.ClosedAt,
	}
}

func sessionsFromModels(models []SessionModel) []domain.Session {
	out := make([]domain.Session, 0, len(models))
	for _, model := range models {
		out = append(out, sessionFromModel(model))
	}
	return out
}
