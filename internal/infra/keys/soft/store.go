// Package soft holds key material in process memory behind opaque refs.
// Suitable for single-node deployments and tests; an HSM-backed manager can
// replace it without touching the core.
package soft

import (
	"context"
	"sync"

	"keepsafe/internal/domain"
	cryptoinfra "keepsafe/internal/infra/crypto"
	"keepsafe/internal/usecase"

	"github.com/google/uuid"
)

type Store struct {
	mu   sync.RWMutex
	keys map[domain.KeyRef][]byte
}

func New() *Store {
	return &Store{keys: make(map[domain.KeyRef][]byte)}
}

func (s *Store) Mint(ctx context.Context) (domain.KeyRef, error) {
	key, err := cryptoinfra.GenerateKey()
	if err != nil {
		return "", err
	}
	ref := domain.KeyRef(uuid.NewString())
	s.mu.Lock()
	s.keys[ref] = key
	s.mu.Unlock()
	return ref, nil
}

func (s *Store) Get(ctx context.Context, ref domain.KeyRef) ([]byte, error) {
	s.mu.RLock()
	key, ok := s.keys[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}

// Put registers externally derived material (e.g. a passphrase-derived vault
// key) under a fresh ref.
func (s *Store) Put(ctx context.Context, key []byte) (domain.KeyRef, error) {
	stored := make([]byte, len(key))
	copy(stored, key)
	ref := domain.KeyRef(uuid.NewString())
	s.mu.Lock()
	s.keys[ref] = stored
	s.mu.Unlock()
	return ref, nil
}

var _ usecase.KeyManager = (*Store)(nil)
