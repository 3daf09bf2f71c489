package usecase

import (
	"context"
	"fmt"

	"keepsafe/internal/domain"

	"github.com/google/uuid"
)

// VaultService creates vaults and answers key-ref lookups for the storage
// collaborator. Key material stays behind the KeyManager; the vault record
// only ever carries the opaque ref.
type VaultService struct {
	Vaults    VaultRepository
	Documents DocumentRepository
	Keys      KeyManager
	Audit     *AuditRecorder
	Clock     Clock
}

func NewVaultService(vaults VaultRepository, documents DocumentRepository, keys KeyManager, audit *AuditRecorder, clock Clock) *VaultService {
	if clock == nil {
		clock = SystemClock()
	}
	return &VaultService{
		Vaults:    vaults,
		Documents: documents,
		Keys:      keys,
		Audit:     audit,
		Clock:     clock,
	}
}

type CreateVaultParams struct {
	OwnerID       string
	Name          string
	KeyType       domain.KeyType
	VaultType     domain.VaultType
	IsBroadcast   bool
	IsSystemVault bool
}

func (s *VaultService) Create(ctx context.Context, p CreateVaultParams) (*domain.Vault, error) {
	if p.OwnerID == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: vault owner and name are required", domain.ErrInvalidInput)
	}
	switch p.KeyType {
	case domain.KeyTypeSingle, domain.KeyTypeDual:
	default:
		return nil, fmt.Errorf("%w: unknown key type", domain.ErrInvalidInput)
	}
	switch p.VaultType {
	case domain.VaultTypeSource, domain.VaultTypeSink, domain.VaultTypeBoth:
	default:
		return nil, fmt.Errorf("%w: unknown vault type", domain.ErrInvalidInput)
	}

	ref, err := s.Keys.Mint(ctx)
	if err != nil {
		return nil, err
	}
	vault := domain.Vault{
		ID:               uuid.NewString(),
		OwnerID:          p.OwnerID,
		Name:             p.Name,
		KeyType:          p.KeyType,
		VaultType:        p.VaultType,
		Status:           domain.VaultStatusLocked,
		EncryptionKeyRef: ref,
		IsSystemVault:    p.IsSystemVault,
		IsBroadcast:      p.IsBroadcast,
		CreatedAt:        s.Clock.Now().UTC(),
	}
	if err := s.Vaults.Create(ctx, vault); err != nil {
		return nil, err
	}
	err = s.Audit.Record(ctx, domain.AccessLogEntry{
		VaultID:    vault.ID,
		AccessType: domain.AccessCreated,
		UserID:     p.OwnerID,
		Detail:     map[string]any{"key_type": string(p.KeyType), "vault_type": string(p.VaultType)},
	})
	if err != nil {
		return nil, err
	}
	return &vault, nil
}

func (s *VaultService) Get(ctx context.Context, vaultID string) (*domain.Vault, error) {
	return s.Vaults.GetByID(ctx, vaultID)
}

// KeyRef resolves the vault's opaque encryption key handle.
func (s *VaultService) KeyRef(ctx context.Context, vaultID string) (domain.KeyRef, error) {
	vault, err := s.Vaults.GetByID(ctx, vaultID)
	if err != nil {
		return "", err
	}
	return vault.EncryptionKeyRef, nil
}

// KeyRefForDocument resolves a document's key handle through its vault.
// Documents share the vault-scoped key.
func (s *VaultService) KeyRefForDocument(ctx context.Context, documentID string) (domain.KeyRef, error) {
	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	return s.KeyRef(ctx, doc.VaultID)
}

// AddDocument registers document metadata. Content bytes live with the
// storage collaborator; the core only tracks identity and active state.
func (s *VaultService) AddDocument(ctx context.Context, vaultID, name, callerID string) (*domain.Document, error) {
	vault, err := s.Vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	doc := domain.Document{
		ID:        uuid.NewString(),
		VaultID:   vaultID,
		Name:      name,
		IsActive:  true,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	err = s.Audit.Record(ctx, domain.AccessLogEntry{
		VaultID:    vaultID,
		AccessType: domain.AccessUploaded,
		UserID:     callerID,
		DocumentID: doc.ID,
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
