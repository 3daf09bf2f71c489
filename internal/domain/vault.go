package domain

import "time"

type KeyType string

const (
	KeyTypeSingle KeyType = "single"
	KeyTypeDual   KeyType = "dual"
)

type VaultType string

const (
	VaultTypeSource VaultType = "source"
	VaultTypeSink   VaultType = "sink"
	VaultTypeBoth   VaultType = "both"
)

type VaultStatus string

const (
	VaultStatusLocked VaultStatus = "locked"
	VaultStatusActive VaultStatus = "active"
)

// KeyRef is an opaque handle to key material held by a key store. The raw key
// bytes never travel through vault records, audit payloads or logs.
type KeyRef string

type Vault struct {
	ID               string
	OwnerID          string
	Name             string
	KeyType          KeyType
	VaultType        VaultType
	Status           VaultStatus
	EncryptionKeyRef KeyRef
	IsSystemVault    bool
	IsBroadcast      bool
	CreatedAt        time.Time
	LastAccessedAt   *time.Time
}

// Document is the slice of document metadata the core needs for nominee
// subset grants; content handling lives with the storage collaborator.
type Document struct {
	ID        string
	VaultID   string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
