package redisstorage

import (
	"context"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	resolver = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	other    = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func newTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStorage(Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNewRedisStorageWithoutAddress(t *testing.T) {
	_, err := NewRedisStorage(Config{})
	assert.Error(t, err)
}

func TestInFlight(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	ok, err := s.MarkInFlight(ctx, "fill:order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MarkInFlight(ctx, "fill:order-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("swap:inflight:fill:order-1"))

	mr.FastForward(2 * time.Minute)
	ok, err = s.MarkInFlight(ctx, "fill:order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "mark expires with its ttl")

	require.NoError(t, s.ClearInFlight(ctx, "fill:order-1"))
	ok, err = s.MarkInFlight(ctx, "fill:order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPauseFlag(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	paused, err := s.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	require.NoError(t, s.SetPaused(ctx, true))
	paused, err = s.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, s.SetPaused(ctx, false))
	paused, err = s.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestResolverSet(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	require.NoError(t, s.AddResolver(ctx, resolver))
	require.NoError(t, s.AddResolver(ctx, other))
	require.NoError(t, s.AddResolver(ctx, other))
	_, err := mr.SAdd("swap:resolvers", "garbage")
	require.NoError(t, err)

	list, err := s.Resolvers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{other, resolver}, list)

	require.NoError(t, s.RemoveResolver(ctx, other))
	list, err = s.Resolvers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{resolver}, list)
}

func TestGuardOverRedis(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	guard, err := security.NewGuard(ctx, security.Config{Admins: []common.Address{admin}, Resolvers: []common.Address{resolver}}, s)
	require.NoError(t, err)

	// a second replica sees the state written by the first
	replica, err := security.NewGuard(ctx, security.Config{Admins: []common.Address{admin}}, s)
	require.NoError(t, err)

	ok, err := replica.IsWhitelisted(ctx, resolver)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, guard.EmergencyPause(ctx, admin))
	assert.ErrorIs(t, replica.EnsureNotPaused(ctx), gerror.ErrSystemPaused)
	require.NoError(t, replica.EmergencyResume(ctx, admin))
	assert.NoError(t, guard.EnsureNotPaused(ctx))

	ok, err = guard.CheckReentrancy(ctx, "fill:o")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = replica.CheckReentrancy(ctx, "fill:o")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, guard.ReleaseReentrancy(ctx, "fill:o"))
	ok, err = replica.CheckReentrancy(ctx, "fill:o")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCoinPrices(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	prices, err := s.GetCoinPrices(ctx)
	require.NoError(t, err)
	assert.Empty(t, prices)

	require.NoError(t, s.SetCoinPrices(ctx, map[uint64]decimal.Decimal{
		1:    decimal.RequireFromString("2450.5"),
		1101: decimal.RequireFromString("2450.5"),
	}))
	require.NoError(t, s.SetCoinPrices(ctx, map[uint64]decimal.Decimal{1101: decimal.RequireFromString("0.75")}))
	mr.HSet("swap:"+coinPriceKey, "garbage", "1")
	mr.HSet("swap:"+coinPriceKey, "5", "not-a-number")

	prices, err = s.GetCoinPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.True(t, decimal.RequireFromString("2450.5").Equal(prices[1]))
	assert.True(t, decimal.RequireFromString("0.75").Equal(prices[1101]))
}
