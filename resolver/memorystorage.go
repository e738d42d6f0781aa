package resolver

import (
	"bytes"
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

// MemoryStorage keeps resolvers and bids in process
type MemoryStorage struct {
	mu        sync.RWMutex
	resolvers map[common.Address]*ValidatorInfo
	bids      map[string][]*ExecutionBid
}

// NewMemoryStorage returns an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		resolvers: make(map[common.Address]*ValidatorInfo),
		bids:      make(map[string][]*ExecutionBid),
	}
}

// AddResolver stores a new resolver
func (s *MemoryStorage) AddResolver(_ context.Context, v *ValidatorInfo, _ pgx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resolvers[v.Address]; ok {
		return gerror.ErrAlreadyExists
	}
	s.resolvers[v.Address] = v.copy()
	return nil
}

// UpdateResolver replaces a stored resolver
func (s *MemoryStorage) UpdateResolver(_ context.Context, v *ValidatorInfo, _ pgx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resolvers[v.Address]; !ok {
		return gerror.ErrStorageNotFound
	}
	s.resolvers[v.Address] = v.copy()
	return nil
}

// GetResolver returns a copy of a stored resolver
func (s *MemoryStorage) GetResolver(_ context.Context, addr common.Address, _ pgx.Tx) (*ValidatorInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.resolvers[addr]
	if !ok {
		return nil, gerror.ErrStorageNotFound
	}
	return v.copy(), nil
}

// GetResolvers lists resolvers sorted by address
func (s *MemoryStorage) GetResolvers(_ context.Context, activeOnly bool, _ pgx.Tx) ([]*ValidatorInfo, error) {
	s.mu.RLock()
	out := make([]*ValidatorInfo, 0, len(s.resolvers))
	for _, v := range s.resolvers {
		if activeOnly && !v.IsActive {
			continue
		}
		out = append(out, v.copy())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0 })
	return out, nil
}

// AddBid appends a bid
func (s *MemoryStorage) AddBid(_ context.Context, bid *ExecutionBid, _ pgx.Tx) error {
	b := *bid
	b.BidAmount = new(big.Int).Set(bid.BidAmount)
	s.mu.Lock()
	s.bids[bid.OrderID] = append(s.bids[bid.OrderID], &b)
	s.mu.Unlock()
	return nil
}

// GetBids returns the bids on an order in submission order
func (s *MemoryStorage) GetBids(_ context.Context, orderID string, _ pgx.Tx) ([]*ExecutionBid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ExecutionBid, 0, len(s.bids[orderID]))
	for _, b := range s.bids[orderID] {
		c := *b
		c.BidAmount = new(big.Int).Set(b.BidAmount)
		out = append(out, &c)
	}
	return out, nil
}
