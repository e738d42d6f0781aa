package pushtask

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/metrics"
)

const (
	blockNumTaskInterval = 5 * time.Second
	blockNumTaskLockKey  = "swap_block_num_lock_%d"
)

// BlockNumTask tracks the latest block of every chain the service trades on
type BlockNumTask struct {
	chains   map[uint64]ChainReader
	locker   locker
	interval time.Duration

	mu     sync.Mutex
	latest map[uint64]uint64
}

// NewBlockNumTask creates the task. A zero interval uses the default
func NewBlockNumTask(chains map[uint64]ChainReader, l locker, interval time.Duration) *BlockNumTask {
	if interval == 0 {
		interval = blockNumTaskInterval
	}
	return &BlockNumTask{
		chains:   chains,
		locker:   l,
		interval: interval,
		latest:   make(map[uint64]uint64, len(chains)),
	}
}

// Start runs the task until ctx is done
func (t *BlockNumTask) Start(ctx context.Context) {
	log.Debugf("Starting BlockNumTask, interval:%v", t.interval)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for chainID := range t.chains {
				t.doTask(ctx, chainID)
			}
		}
	}
}

// Latest returns the last block seen on chainID
func (t *BlockNumTask) Latest(chainID uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[chainID]
}

func (t *BlockNumTask) doTask(ctx context.Context, chainID uint64) {
	key := fmt.Sprintf(blockNumTaskLockKey, chainID)
	ok, err := t.locker.MarkInFlight(ctx, key, t.interval)
	if err != nil {
		log.Errorf("TryLock key[%v] error: %v", key, err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := t.locker.ClearInFlight(ctx, key); err != nil {
			log.Errorf("ReleaseLock key[%v] error: %v", key, err)
		}
	}()

	blockNum, err := t.chains[chainID].BlockNumber(ctx)
	if err != nil {
		log.Errorf("chain %d: eth_blockNumber error: %v", chainID, err)
		return
	}

	t.mu.Lock()
	old := t.latest[chainID]
	if blockNum > old {
		t.latest[chainID] = blockNum
	}
	t.mu.Unlock()
	if blockNum <= old {
		return
	}
	metrics.SetLatestBlockNum(chainID, blockNum)
	log.Debugf("chain %d: latest block %d", chainID, blockNum)
}
