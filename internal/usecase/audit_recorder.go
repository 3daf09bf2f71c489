package usecase

import (
	"context"
	"errors"
	"time"

	"keepsafe/internal/domain"

	"github.com/google/uuid"
)

// AuditRecorder writes access-log entries. Security-relevant transitions are
// appended synchronously: the triggering operation is not complete until the
// entry is durable. View/preview entries go through a bounded buffer and are
// flushed in the background; a full buffer drops them rather than slowing the
// caller down.
type AuditRecorder struct {
	Repo  AccessLogRepository
	Clock Clock

	buf chan domain.AccessLogEntry
}

func NewAuditRecorder(repo AccessLogRepository, clock Clock) *AuditRecorder {
	if clock == nil {
		clock = SystemClock()
	}
	return &AuditRecorder{
		Repo:  repo,
		Clock: clock,
		buf:   make(chan domain.AccessLogEntry, 256),
	}
}

func (r *AuditRecorder) Record(ctx context.Context, entry domain.AccessLogEntry) error {
	if r == nil || r.Repo == nil {
		return errors.New("access log repository required")
	}
	if entry.VaultID == "" || entry.AccessType == "" {
		return errors.New("access log entry missing vault_id or access_type")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.Clock.Now().UTC()
	} else {
		entry.Timestamp = entry.Timestamp.UTC()
	}

	if entry.AccessType.SecurityRelevant() {
		_, err := r.Repo.Append(ctx, entry)
		return err
	}

	select {
	case r.buf <- entry:
	default:
		// Buffer full. Read-only events are best-effort; dropping beats
		// blocking the viewer.
	}
	return nil
}

// Run drains the best-effort buffer until ctx is cancelled.
func (r *AuditRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.Flush(context.Background())
			return
		case entry := <-r.buf:
			r.append(entry)
		}
	}
}

// Flush synchronously drains whatever is buffered. Used on shutdown and by
// tests that need deferred entries visible.
func (r *AuditRecorder) Flush(ctx context.Context) {
	for {
		select {
		case entry := <-r.buf:
			_, _ = r.Repo.Append(ctx, entry)
		default:
			return
		}
	}
}

func (r *AuditRecorder) append(entry domain.AccessLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = r.Repo.Append(ctx, entry)
}

func (r *AuditRecorder) RecordOpened(ctx context.Context, vaultID, userID, userName, deviceInfo string, loc *domain.Location) error {
	return r.Record(ctx, domain.AccessLogEntry{
		VaultID:    vaultID,
		AccessType: domain.AccessOpened,
		UserID:     userID,
		UserName:   userName,
		DeviceInfo: deviceInfo,
		Location:   loc,
	})
}

func (r *AuditRecorder) RecordClosed(ctx context.Context, vaultID, userID string) error {
	return r.Record(ctx, domain.AccessLogEntry{
		VaultID:    vaultID,
		AccessType: domain.AccessClosed,
		UserID:     userID,
	})
}

func (r *AuditRecorder) RecordDecision(ctx context.Context, req domain.DualKeyRequest) error {
	accessType := domain.AccessApproved
	if req.Status == domain.RequestStatusDenied {
		accessType = domain.AccessDenied
	}
	return r.Record(ctx, domain.AccessLogEntry{
		VaultID:    req.VaultID,
		AccessType: accessType,
		UserID:     req.RequesterID,
		Detail: map[string]any{
			"request_id":      req.ID,
			"decision_method": string(req.DecisionMethod),
			"risk_score":      req.RiskScore,
		},
	})
}

func (r *AuditRecorder) RecordRevoked(ctx context.Context, vaultID, userID string, detail map[string]any) error {
	return r.Record(ctx, domain.AccessLogEntry{
		VaultID:    vaultID,
		AccessType: domain.AccessRevoked,
		UserID:     userID,
		Detail:     detail,
	})
}

// RecordRedaction persists the redaction summary reported by the external
// PHI-detection collaborator.
func (r *AuditRecorder) RecordRedaction(ctx context.Context, vaultID, documentID, userID string, areaCount, matchCount int, verified bool) error {
	return r.Record(ctx, domain.AccessLogEntry{
		VaultID:    vaultID,
		AccessType: domain.AccessRedacted,
		UserID:     userID,
		DocumentID: documentID,
		Detail: map[string]any{
			"area_count":  areaCount,
			"match_count": matchCount,
			"verified":    verified,
		},
	})
}
