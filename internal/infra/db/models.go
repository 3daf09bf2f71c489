package db

import "time"

type VaultModel struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	OwnerID          string    `gorm:"type:uuid;index;not null"`
	Name             string    `gorm:"not null"`
	KeyType          string    `gorm:"not null"`
	VaultType        string    `gorm:"not null"`
	Status           string    `gorm:"not null"`
	EncryptionKeyRef string    `gorm:"not null"`
	IsSystemVault    bool      `gorm:"not null;default:false"`
	IsBroadcast      bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"not null"`
	LastAccessedAt   *time.Time
}

func (VaultModel) TableName() string { return "vaults" }

type SessionModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	VaultID     string    `gorm:"type:uuid;index;not null"`
	UserID      string    `gorm:"type:uuid;index;not null"`
	StartedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	IsActive    bool      `gorm:"index;not null"`
	WasExtended bool      `gorm:"not null;default:false"`
	ClosedAt    *time.Time
}

func (SessionModel) TableName() string { return "vault_sessions" }

type DualKeyRequestModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	VaultID        string    `gorm:"type:uuid;index;not null"`
	RequesterID    string    `gorm:"type:uuid;index;not null"`
	RequestedAt    time.Time `gorm:"index;not null"`
	Status         string    `gorm:"index;not null"`
	Reason         string
	RiskScore      float64
	Reasoning      string
	DecisionMethod string
	ApprovedAt     *time.Time
	ApproverID     *string `gorm:"type:uuid"`
	ConsumedAt     *time.Time
}

func (DualKeyRequestModel) TableName() string { return "dual_key_requests" }

type NomineeModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	VaultID          string  `gorm:"type:uuid;index;not null"`
	UserID           *string `gorm:"type:uuid;index"`
	Name             string  `gorm:"not null"`
	Contact          string  `gorm:"not null"`
	Status           string  `gorm:"index;not null"`
	IsSubsetAccess   bool    `gorm:"not null;default:false"`
	SelectedDocsJSON []byte  `gorm:"type:jsonb"`
	SessionExpiresAt *time.Time
	AccessWindowSecs int64     `gorm:"not null;default:0"`
	InviteTokenHash  string    `gorm:"uniqueIndex;not null"`
	InvitedAt        time.Time `gorm:"not null"`
	AcceptedAt       *time.Time
}

func (NomineeModel) TableName() string { return "nominees" }

type EmergencyAccessRequestModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	VaultID          string  `gorm:"type:uuid;index;not null"`
	RequesterID      string  `gorm:"type:uuid;index;not null"`
	Reason           string  `gorm:"not null"`
	Urgency          string  `gorm:"not null"`
	Status           string  `gorm:"index;not null"`
	ApproverID       *string `gorm:"type:uuid"`
	ApprovedAt       *time.Time
	ExpiresAt        *time.Time
	PassCodeHash     *string
	MLScore          *float64
	MLRecommendation *string
	CreatedAt        time.Time `gorm:"not null"`
}

func (EmergencyAccessRequestModel) TableName() string { return "emergency_access_requests" }

type AccessLogModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	VaultID      string    `gorm:"type:uuid;index:idx_access_logs_vault_seq,unique;not null"`
	Seq          int64     `gorm:"index:idx_access_logs_vault_seq,unique;not null"`
	Timestamp    time.Time `gorm:"index;not null"`
	AccessType   string    `gorm:"not null"`
	UserID       string    `gorm:"type:uuid;index;not null"`
	UserName     *string
	DocumentID   *string `gorm:"type:uuid;index"`
	DeviceInfo   *string
	LocationJSON []byte `gorm:"type:jsonb"`
	DetailJSON   []byte `gorm:"type:jsonb"`
	PrevHash     string `gorm:"not null"`
	EntryHash    string `gorm:"not null"`
}

func (AccessLogModel) TableName() string { return "access_logs" }

type DocumentModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	VaultID   string    `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"not null"`
	IsActive  bool      `gorm:"index;not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

func (DocumentModel) TableName() string { return "documents" }
