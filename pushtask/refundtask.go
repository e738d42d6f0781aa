package pushtask

import (
	"context"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/pkg/errors"
)

const (
	refundTaskInterval = 30 * time.Second
	refundTaskLockKey  = "swap_refund_task_lock"
	refundTaskPageSize = 100
)

// RefundTask returns the funds of orders whose source timelock passed without a settlement
type RefundTask struct {
	sweeper      orderSweeper
	locker       locker
	timeProvider utils.TimeProvider
	interval     time.Duration
}

// NewRefundTask creates the task. A zero interval uses the default
func NewRefundTask(sweeper orderSweeper, l locker, timeProvider utils.TimeProvider, interval time.Duration) *RefundTask {
	if interval == 0 {
		interval = refundTaskInterval
	}
	if timeProvider == nil {
		timeProvider = utils.NewTimeProviderSystemLocalTime()
	}
	return &RefundTask{sweeper: sweeper, locker: l, timeProvider: timeProvider, interval: interval}
}

// Start runs the task until ctx is done
func (t *RefundTask) Start(ctx context.Context) {
	log.Debugf("Starting RefundTask, interval:%v", t.interval)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.doTask(ctx)
		}
	}
}

// doTask refunds every expired order it can and returns how many it refunded
func (t *RefundTask) doTask(ctx context.Context) int {
	ok, err := t.locker.MarkInFlight(ctx, refundTaskLockKey, t.interval)
	if err != nil {
		log.Errorf("TryLock key[%v] error: %v", refundTaskLockKey, err)
		return 0
	}
	if !ok {
		return 0
	}
	defer func() {
		if err := t.locker.ClearInFlight(ctx, refundTaskLockKey); err != nil {
			log.Errorf("ReleaseLock key[%v] error: %v", refundTaskLockKey, err)
		}
	}()

	ctx = utils.WithTraceID(ctx)
	refunded := 0
	for _, status := range []swapctrl.Status{swapctrl.StatusFilled, swapctrl.StatusExpired} {
		candidates, err := t.candidates(ctx, status)
		if err != nil {
			log.Errorf("RefundTask list %s orders error: %v", status, err)
			continue
		}
		for _, id := range candidates {
			if _, err := t.sweeper.Refund(ctx, id); err != nil {
				if errors.Is(err, gerror.ErrSystemPaused) {
					log.Warnf("RefundTask stopped: %v", err)
					return refunded
				}
				log.Errorf("RefundTask refund order %s error: %v", id, err)
				continue
			}
			refunded++
		}
	}
	if refunded > 0 {
		log.Infof("RefundTask refunded %d orders", refunded)
	}
	return refunded
}

// candidates pages through orders in status and keeps the ones past their source timelock.
// Ids are collected before refunding since a refund moves filled orders out of their page.
func (t *RefundTask) candidates(ctx context.Context, status swapctrl.Status) ([]string, error) {
	now := t.timeProvider.Now()
	var ids []string
	for offset := uint(0); ; offset += refundTaskPageSize {
		orders, err := t.sweeper.ListOrders(ctx, status, refundTaskPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			if o.Outcome != swapctrl.OutcomeNone && o.Outcome != swapctrl.OutcomeCancelled {
				continue
			}
			// the resolver claimed the source, Finish settles the rest
			if o.FinishedAt != nil {
				continue
			}
			if now.After(o.Expiration) {
				ids = append(ids, o.ID)
			}
		}
		if len(orders) < refundTaskPageSize {
			return ids, nil
		}
	}
}
