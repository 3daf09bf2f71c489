package db

import (
	"context"
	"errors"
	"time"

	"keepsafe/internal/domain"

	"gorm.io/gorm"
)

type DualKeyRequestRepository struct {
	db *gorm.DB
}

func NewDualKeyRequestRepository(db *gorm.DB) *DualKeyRequestRepository {
	return &DualKeyRequestRepository{db: db}
}

func (r *DualKeyRequestRepository) Create(ctx context.Context, req domain.DualKeyRequest) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := dualKeyRequestModelFromDomain(req)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *DualKeyRequestRepository) GetByID(ctx context.Context, requestID string) (*domain.DualKeyRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DualKeyRequestModel
	err := r.db.WithContext(ctx).Where("id = ?", requestID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	req := dualKeyRequestFromModel(model)
	return &req, nil
}

func (r *DualKeyRequestRepository) GetLatest(ctx context.Context, vaultID, requesterID string) (*domain.DualKeyRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DualKeyRequestModel
	err := r.db.WithContext(ctx).
		Where("vault_id = ? AND requester_id = ?", vaultID, requesterID).
		Order("requested_at DESC").
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	req := dualKeyRequestFromModel(model)
	return &req, nil
}

func (r *DualKeyRequestRepository) ListPendingByVault(ctx context.Context, vaultID string) ([]domain.DualKeyRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DualKeyRequestModel
	if err := r.db.WithContext(ctx).
		Where("vault_id = ? AND status = ?", vaultID, string(domain.RequestStatusPending)).
		Order("requested_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DualKeyRequest, 0, len(models))
	for _, model := range models {
		out = append(out, dualKeyRequestFromModel(model))
	}
	return out, nil
}

// Decide is a guarded transition out of pending. The status predicate keeps
// two concurrent deciders from both winning.
func (r *DualKeyRequestRepository) Decide(ctx context.Context, requestID string, status domain.RequestStatus, method domain.DecisionMethod, approverID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	updates := map[string]any{
		"status":          string(status),
		"decision_method": string(method),
		"approver_id":     stringPtrIfNotEmpty(approverID),
	}
	if status == domain.RequestStatusApproved {
		updates["approved_at"] = at.UTC()
	}
	res := r.db.WithContext(ctx).
		Model(&DualKeyRequestModel{}).
		Where("id = ? AND status = ?", requestID, string(domain.RequestStatusPending)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&DualKeyRequestModel{}).
		Where("id = ?", requestID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyProcessed
}

func (r *DualKeyRequestRepository) MarkConsumed(ctx context.Context, requestID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&DualKeyRequestModel{}).
		Where("id = ?", requestID).
		Update("consumed_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DualKeyRequestRepository) IsConsumed(ctx context.Context, requestID string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var model DualKeyRequestModel
	err := r.db.WithContext(ctx).Where("id = ?", requestID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return model.ConsumedAt != nil, nil
}

func dualKeyRequestModelFromDomain(req domain.DualKeyRequest) DualKeyRequestModel {
	return DualKeyRequestModel{
		ID:             req.ID,
		VaultID:        req.VaultID,
		RequesterID:    req.RequesterID,
		RequestedAt:    req.RequestedAt.UTC(),
		Status:         string(req.Status),
		Reason:         req.Reason,
		RiskScore:      req.RiskScore,
		Reasoning:      req.Reasoning,
		DecisionMethod: string(req.DecisionMethod),
		ApprovedAt:     req.ApprovedAt,
		ApproverID:     stringPtrIfNotEmpty(req.ApproverID),
	}
}

func dualKeyRequestFromModel(model DualKeyRequestModel) domain.DualKeyRequest {
	return domain.DualKeyRequest{
		ID:             model.ID,
		VaultID:        model.VaultID,
		RequesterID:    model.RequesterID,
		RequestedAt:    model.RequestedAt.UTC(),
		Status:         domain.RequestStatus(model.Status),
		Reason:         model.Reason,
		RiskScore:      model.RiskScore,
		Reasoning:      model.Reasoning,
		DecisionMethod: domain.DecisionMethod(model.DecisionMethod),
		ApprovedAt:     model.ApprovedAt,
		ApproverID:     stringValue(model.ApproverID),
	}
}
