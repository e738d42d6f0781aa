package security

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore keeps the guard state in process
type MemoryStore struct {
	mu        sync.RWMutex
	inFlight  map[string]time.Time
	paused    bool
	resolvers map[common.Address]struct{}
	clock     utils.TimeProvider
}

// NewMemoryStore returns an empty store using clock for in-flight expiry
func NewMemoryStore(clock utils.TimeProvider) *MemoryStore {
	if clock == nil {
		clock = utils.TimeProviderSystemLocalTime{}
	}
	return &MemoryStore{
		inFlight:  make(map[string]time.Time),
		resolvers: make(map[common.Address]struct{}),
		clock:     clock,
	}
}

// MarkInFlight implements Store
func (s *MemoryStore) MarkInFlight(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if until, ok := s.inFlight[key]; ok && now.Before(until) {
		return false, nil
	}
	s.inFlight[key] = now.Add(ttl)
	return true, nil
}

// ClearInFlight implements Store
func (s *MemoryStore) ClearInFlight(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
	return nil
}

// SetPaused implements Store
func (s *MemoryStore) SetPaused(_ context.Context, paused bool) error {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	return nil
}

// IsPaused implements Store
func (s *MemoryStore) IsPaused(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused, nil
}

// AddResolver implements Store
func (s *MemoryStore) AddResolver(_ context.Context, resolver common.Address) error {
	s.mu.Lock()
	s.resolvers[resolver] = struct{}{}
	s.mu.Unlock()
	return nil
}

// RemoveResolver implements Store
func (s *MemoryStore) RemoveResolver(_ context.Context, resolver common.Address) error {
	s.mu.Lock()
	delete(s.resolvers, resolver)
	s.mu.Unlock()
	return nil
}

// Resolvers implements Store, sorted by address
func (s *MemoryStore) Resolvers(_ context.Context) ([]common.Address, error) {
	s.mu.RLock()
	list := make([]common.Address, 0, len(s.resolvers))
	for r := range s.resolvers {
		list = append(list, r)
	}
	s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return bytes.Compare(list[i][:], list[j][:]) < 0 })
	return list, nil
}
