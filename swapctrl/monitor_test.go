package swapctrl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type monitorResult struct {
	order *Order
	err   error
}

func startMonitor(env *testEnv, orderID string, cost decimal.Decimal) <-chan monitorResult {
	done := make(chan monitorResult, 1)
	go func() {
		o, err := env.coord.MonitorAuction(context.Background(), orderID, taker, cost, 0)
		done <- monitorResult{o, err}
	}()
	return done
}

func TestMonitorFillsProfitableOrder(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	res := <-startMonitor(env, o.ID, decimal.NewFromInt(2))
	require.NoError(t, res.err)
	assert.Equal(t, StatusFilled, res.order.Status)
	assert.Equal(t, 0, env.coord.activeMonitors(o.ID))
}

func TestMonitorStopsWhenCancelled(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	done := startMonitor(env, o.ID, decimal.NewFromInt(5))
	require.Eventually(t, func() bool { return env.coord.activeMonitors(o.ID) == 1 }, time.Second, time.Millisecond)

	_, err := env.coord.Cancel(context.Background(), maker, o.ID)
	require.NoError(t, err)

	select {
	case res := <-done:
		assert.True(t, errors.Is(res.err, context.Canceled) || errors.Is(res.err, gerror.ErrOrderExpired) ||
			errors.Is(res.err, gerror.ErrInvalidOrderStatus), res.err)
	case <-time.After(time.Second):
		t.Fatal("monitor still running after cancel")
	}
	assert.Equal(t, 0, env.coord.activeMonitors(o.ID))
}

func TestMonitorStopsWhenAuctionEnds(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	done := startMonitor(env, o.ID, decimal.NewFromInt(5))
	require.Eventually(t, func() bool { return env.coord.activeMonitors(o.ID) == 1 }, time.Second, time.Millisecond)
	env.clock.Advance(12 * time.Minute)

	select {
	case res := <-done:
		assert.ErrorIs(t, res.err, gerror.ErrOrderExpired)
		require.NotNil(t, res.order)
		assert.Equal(t, StatusExpired, res.order.Status)
	case <-time.After(time.Second):
		t.Fatal("monitor still running after auction end")
	}
}

func TestMonitorLosesRace(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	done := startMonitor(env, o.ID, decimal.NewFromInt(5))
	require.Eventually(t, func() bool { return env.coord.activeMonitors(o.ID) == 1 }, time.Second, time.Millisecond)
	env.fill(t, o.ID)

	select {
	case res := <-done:
		assert.Error(t, res.err)
	case <-time.After(time.Second):
		t.Fatal("monitor still running after fill")
	}
}
