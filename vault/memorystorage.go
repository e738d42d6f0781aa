package vault

import (
	"context"
	"sort"
	"sync"

	"github.com/0xPolygonHermez/zkevm-swap-service/db/memtx"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

type vaultKey struct {
	chainID uint64
	id      common.Hash
}

// MemoryStorage keeps vaults and consumed secrets in process. Writes made
// through a transaction are undone on Rollback.
type MemoryStorage struct {
	mu      sync.RWMutex
	vaults  map[vaultKey]*Vault
	order   []vaultKey
	secrets map[vaultKey]*ConsumedSecret
}

// NewMemoryStorage returns an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		vaults:  make(map[vaultKey]*Vault),
		secrets: make(map[vaultKey]*ConsumedSecret),
	}
}

// BeginDBTransaction starts a journaled transaction
func (s *MemoryStorage) BeginDBTransaction(context.Context) (pgx.Tx, error) {
	return memtx.Begin(), nil
}

// Commit commits dbTx
func (s *MemoryStorage) Commit(ctx context.Context, dbTx pgx.Tx) error {
	if dbTx == nil {
		return gerror.ErrNilDBTransaction
	}
	return dbTx.Commit(ctx)
}

// Rollback undoes the writes of dbTx
func (s *MemoryStorage) Rollback(ctx context.Context, dbTx pgx.Tx) error {
	if dbTx == nil {
		return gerror.ErrNilDBTransaction
	}
	return dbTx.Rollback(ctx)
}

// AddVault stores a new vault
func (s *MemoryStorage) AddVault(_ context.Context, v *Vault, dbTx pgx.Tx) error {
	k := vaultKey{v.ChainID, v.ID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaults[k]; ok {
		return gerror.ErrAlreadyExists
	}
	s.vaults[k] = v.Copy()
	s.order = append(s.order, k)
	memtx.Journal(dbTx, func() {
		s.mu.Lock()
		delete(s.vaults, k)
		for i := len(s.order) - 1; i >= 0; i-- {
			if s.order[i] == k {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	})
	return nil
}

// UpdateVault replaces a stored vault
func (s *MemoryStorage) UpdateVault(_ context.Context, v *Vault, dbTx pgx.Tx) error {
	k := vaultKey{v.ChainID, v.ID}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.vaults[k]
	if !ok {
		return gerror.ErrStorageNotFound
	}
	s.vaults[k] = v.Copy()
	memtx.Journal(dbTx, func() {
		s.mu.Lock()
		s.vaults[k] = prev
		s.mu.Unlock()
	})
	return nil
}

// GetVault returns a copy of a stored vault
func (s *MemoryStorage) GetVault(_ context.Context, chainID uint64, id common.Hash, _ pgx.Tx) (*Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vaults[vaultKey{chainID, id}]
	if !ok {
		return nil, gerror.ErrStorageNotFound
	}
	return v.Copy(), nil
}

// GetVaults pages through the vaults of a chain in insertion order
func (s *MemoryStorage) GetVaults(_ context.Context, chainID uint64, state State, limit, offset uint, _ pgx.Tx) ([]*Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*Vault
	for _, k := range s.order {
		v := s.vaults[k]
		if k.chainID != chainID || (state != "" && v.State != state) {
			continue
		}
		matched = append(matched, v)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if offset >= uint(len(matched)) {
		return []*Vault{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < uint(len(matched)) {
		matched = matched[:limit]
	}
	out := make([]*Vault, 0, len(matched))
	for _, v := range matched {
		out = append(out, v.Copy())
	}
	return out, nil
}

// AddConsumedSecret appends to the consumed secrets registry
func (s *MemoryStorage) AddConsumedSecret(_ context.Context, c *ConsumedSecret, dbTx pgx.Tx) error {
	k := vaultKey{c.ChainID, c.SecretHash}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secrets[k]; ok {
		return gerror.ErrAlreadyExists
	}
	entry := *c
	s.secrets[k] = &entry
	memtx.Journal(dbTx, func() {
		s.mu.Lock()
		delete(s.secrets, k)
		s.mu.Unlock()
	})
	return nil
}

// GetConsumedSecret looks a secret up in the registry
func (s *MemoryStorage) GetConsumedSecret(_ context.Context, chainID uint64, secretHash common.Hash, _ pgx.Tx) (*ConsumedSecret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.secrets[vaultKey{chainID, secretHash}]
	if !ok {
		return nil, gerror.ErrStorageNotFound
	}
	entry := *c
	return &entry, nil
}
