package domain

import "time"

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

type EmergencyStatus string

const (
	EmergencyStatusPending  EmergencyStatus = "pending"
	EmergencyStatusApproved EmergencyStatus = "approved"
	EmergencyStatusDenied   EmergencyStatus = "denied"
	EmergencyStatusRevoked  EmergencyStatus = "revoked"
)

type EmergencyAccessRequest struct {
	ID          string
	VaultID     string
	RequesterID string
	Reason      string
	Urgency     Urgency
	Status      EmergencyStatus
	ApproverID  string
	ApprovedAt  *time.Time
	ExpiresAt   *time.Time
	// PassCodeHash is the SHA-256 digest of the bearer code. The plaintext
	// code exists only in the Approve response.
	PassCodeHash     string
	MLScore          *float64
	MLRecommendation string
	CreatedAt        time.Time
}

// Grants reports whether the request currently authorizes access.
func (r EmergencyAccessRequest) Grants(now time.Time) bool {
	return r.Status == EmergencyStatusApproved && r.ExpiresAt != nil && now.Before(*r.ExpiresAt)
}
