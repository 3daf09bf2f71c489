package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

type DecisionMethod string

const (
	// DecisionMLAuto: the risk scorer ran and the score cleared the
	// auto-approval threshold.
	DecisionMLAuto DecisionMethod = "ml_auto"
	// DecisionMLAutoError: the scorer failed; the request was scored 1.0 and
	// left pending. Scoring failures never auto-approve.
	DecisionMLAutoError DecisionMethod = "ml_auto_error"
	// DecisionManual: the vault owner decided explicitly.
	DecisionManual DecisionMethod = "manual"
	// DecisionAutoFallback: no scorer is configured and the operator opted in
	// to fallback approval. An escape hatch, always audited as such.
	DecisionAutoFallback DecisionMethod = "auto_fallback"
)

type DualKeyRequest struct {
	ID             string
	VaultID        string
	RequesterID    string
	RequestedAt    time.Time
	Status         RequestStatus
	Reason         string
	RiskScore      float64
	Reasoning      string
	DecisionMethod DecisionMethod
	ApprovedAt     *time.Time
	ApproverID     string
}

// Terminal reports whether the request has reached a final state. Terminal
// requests are immutable.
func (r DualKeyRequest) Terminal() bool {
	return r.Status != RequestStatusPending
}

// RiskAssessment is the scorer's output: a score in [0,1] and a
// human-readable trace of which factors fired and in which direction.
type RiskAssessment struct {
	Score     float64
	Reasoning string
}
