package db

import (
	"context"
	"errors"
	"time"

	"keepsafe/internal/domain"

	"gorm.io/gorm"
)

type EmergencyAccessRepository struct {
	db *gorm.DB
}

func NewEmergencyAccessRepository(db *gorm.DB) *EmergencyAccessRepository {
	return &EmergencyAccessRepository{db: db}
}

func (r *EmergencyAccessRepository) Create(ctx context.Context, req domain.EmergencyAccessRequest) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := emergencyModelFromDomain(req)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *EmergencyAccessRepository) GetByID(ctx context.Context, requestID string) (*domain.EmergencyAccessRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model EmergencyAccessRequestModel
	err := r.db.WithContext(ctx).Where("id = ?", requestID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	req := emergencyFromModel(model)
	return &req, nil
}

func (r *EmergencyAccessRepository) Approve(ctx context.Context, requestID, approverID string, at, expiresAt time.Time, passCodeHash string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&EmergencyAccessRequestModel{}).
		Where("id = ? AND status = ?", requestID, string(domain.EmergencyStatusPending)).
		Updates(map[string]any{
			"status":         string(domain.EmergencyStatusApproved),
			"approver_id":    stringPtrIfNotEmpty(approverID),
			"approved_at":    at.UTC(),
			"expires_at":     expiresAt.UTC(),
			"pass_code_hash": passCodeHash,
		})
	return casResult(r.db, ctx, res, requestID)
}

func (r *EmergencyAccessRepository) Deny(ctx context.Context, requestID, approverID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&EmergencyAccessRequestModel{}).
		Where("id = ? AND status = ?", requestID, string(domain.EmergencyStatusPending)).
		Updates(map[string]any{
			"status":      string(domain.EmergencyStatusDenied),
			"approver_id": stringPtrIfNotEmpty(approverID),
		})
	return casResult(r.db, ctx, res, requestID)
}

func (r *EmergencyAccessRepository) Revoke(ctx context.Context, requestID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&EmergencyAccessRequestModel{}).
		Where("id = ? AND status = ?", requestID, string(domain.EmergencyStatusApproved)).
		Update("status", string(domain.EmergencyStatusRevoked))
	return casResult(r.db, ctx, res, requestID)
}

func (r *EmergencyAccessRepository) ListApprovedByVault(ctx context.Context, vaultID string) ([]domain.EmergencyAccessRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []EmergencyAccessRequestModel
	if err := r.db.WithContext(ctx).
		Where("vault_id = ? AND status = ?", vaultID, string(domain.EmergencyStatusApproved)).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EmergencyAccessRequest, 0, len(models))
	for _, model := range models {
		out = append(out, emergencyFromModel(model))
	}
	return out, nil
}

// casResult maps a zero-row guarded update to the right sentinel: missing row
// or already-transitioned row.
func casResult(db *gorm.DB, ctx context.Context, res *gorm.DB, requestID string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).
		Model(&EmergencyAccessRequestModel{}).
		Where("id = ?", requestID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyProcessed
}

func emergencyModelFromDomain(req domain.EmergencyAccessRequest) EmergencyAccessRequestModel {
	return EmergencyAccessRequestModel{
		ID:               req.ID,
		VaultID:          req.VaultID,
		RequesterID:      req.RequesterID,
		Reason:           req.Reason,
		Urgency:          string(req.Urgency),
		Status:           string(req.Status),
		ApproverID:       stringPtrIfNotEmpty(req.ApproverID),
		ApprovedAt:       req.ApprovedAt,
		ExpiresAt:        req.ExpiresAt,
		PassCodeHash:     stringPtrIfNotEmpty(req.PassCodeHash),
		MLScore:          req.MLScore,
		MLRecommendation: stringPtrIfNotEmpty(req.MLRecommendation),
		CreatedAt:        req.CreatedAt.UTC(),
	}
}

func emergencyFromModel(model EmergencyAccessRequestModel) domain.EmergencyAccessRequest {
	return domain.EmergencyAccessRequest{
		ID:               model.ID,
		VaultID:          model.VaultID,
		RequesterID:      model.RequesterID,
		Reason:           model.Reason,
		Urgency:          domain.Urgency(model.Urgency),
		Status:           domain.EmergencyStatus(model.Status),
		ApproverID:       stringValue(model.ApproverID),
		ApprovedAt:       model.ApprovedAt,
		ExpiresAt:        model.ExpiresAt,
		PassCodeHash:     stringValue(model.PassCodeHash),
		MLScore:          model.MLScore,
		MLRecommendation: stringValue(model.MLRecommendation),
		CreatedAt:        model.CreatedAt.UTC(),
	}
}
