package swapctrl

import (
	"context"
	"sync"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/jackc/pgx/v4"
)

// MemoryStorage keeps orders in process
type MemoryStorage struct {
	mu     sync.RWMutex
	orders map[string]*Order
	ids    []string
}

// NewMemoryStorage returns an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{orders: make(map[string]*Order)}
}

// AddOrder stores a new order
func (s *MemoryStorage) AddOrder(_ context.Context, o *Order, _ pgx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return gerror.ErrAlreadyExists
	}
	s.orders[o.ID] = o.Copy()
	s.ids = append(s.ids, o.ID)
	return nil
}

// UpdateOrder replaces a stored order
func (s *MemoryStorage) UpdateOrder(_ context.Context, o *Order, _ pgx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return gerror.ErrStorageNotFound
	}
	s.orders[o.ID] = o.Copy()
	return nil
}

// GetOrder returns a copy of a stored order
func (s *MemoryStorage) GetOrder(_ context.Context, id string, _ pgx.Tx) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, gerror.ErrStorageNotFound
	}
	return o.Copy(), nil
}

// GetOrders pages through orders in creation order
func (s *MemoryStorage) GetOrders(_ context.Context, status Status, limit, offset uint, _ pgx.Tx) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Order{}
	var skipped uint
	for _, id := range s.ids {
		o := s.orders[id]
		if status != "" && o.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && uint(len(out)) >= limit {
			break
		}
		out = append(out, o.Copy())
	}
	return out, nil
}
