package swapctrl

import (
	"context"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MonitorAuction re-evaluates the rate of an order every interval and fills it for resolver
// as soon as it covers cost. It returns when the order is filled by anyone, when it can no
// longer be filled, when Cancel stops it or when ctx is done.
func (c *Coordinator) MonitorAuction(ctx context.Context, orderID string, resolver common.Address, cost decimal.Decimal, interval time.Duration) (*Order, error) {
	if interval <= 0 {
		interval = c.cfg.MonitorInterval.Duration
	}
	ctx, stop := c.registerMonitor(ctx, orderID)
	defer stop()

	logger := log.WithFields("order", orderID, "resolver", resolver.Hex())
	logger.Debugf("auction monitor started, interval %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		o, err := c.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		switch {
		case o.Status == StatusFilled:
			return o, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s already filled by %s", o.ID, o.Resolver.Hex())
		case o.Status == StatusExpired:
			return o, errors.Wrapf(gerror.ErrOrderExpired, "order %s", o.ID)
		}

		filled, err := c.Fill(ctx, FillRequest{OrderID: orderID, Resolver: resolver, Cost: cost})
		switch {
		case err == nil:
			logger.Info("auction monitor filled order")
			return filled, nil
		case errors.Is(err, gerror.ErrNotProfitable), errors.Is(err, gerror.ErrReentrantCall):
			logger.Debugf("not filling yet: %v", err)
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			logger.Debug("auction monitor stopped")
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) registerMonitor(ctx context.Context, orderID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	c.monitorsMu.Lock()
	c.monitorSeq++
	seq := c.monitorSeq
	if c.monitors[orderID] == nil {
		c.monitors[orderID] = make(map[uint64]context.CancelFunc)
	}
	c.monitors[orderID][seq] = cancel
	c.monitorsMu.Unlock()

	return ctx, func() {
		cancel()
		c.monitorsMu.Lock()
		delete(c.monitors[orderID], seq)
		if len(c.monitors[orderID]) == 0 {
			delete(c.monitors, orderID)
		}
		c.monitorsMu.Unlock()
	}
}

// stopMonitors cancels every monitor of orderID
func (c *Coordinator) stopMonitors(orderID string) {
	c.monitorsMu.Lock()
	defer c.monitorsMu.Unlock()
	for _, cancel := range c.monitors[orderID] {
		cancel()
	}
}

// activeMonitors returns the number of running monitors of orderID
func (c *Coordinator) activeMonitors(orderID string) int {
	c.monitorsMu.Lock()
	defer c.monitorsMu.Unlock()
	return len(c.monitors[orderID])
}
