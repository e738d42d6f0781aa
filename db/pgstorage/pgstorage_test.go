package pgstorage

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/auction"
	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	maker = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	taker = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func newTestStorage(t *testing.T) *PostgresStorage {
	if _, ok := os.LookupEnv("ZKEVM_SWAP_DATABASE_HOST"); !ok {
		t.Skip("ZKEVM_SWAP_DATABASE_HOST not set")
	}
	dbCfg := NewConfigFromEnv()
	require.NoError(t, InitOrReset(dbCfg))
	store, err := NewPostgresStorage(dbCfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func testVault(id byte, created time.Time) *vault.Vault {
	return &vault.Vault{
		ID:              common.BytesToHash([]byte{id}),
		ChainID:         1,
		Initiator:       maker,
		TotalAmount:     new(big.Int).Lsh(big.NewInt(1), 200),
		RemainingAmount: new(big.Int).Lsh(big.NewInt(1), 200),
		Commitment:      common.HexToHash("0xaa"),
		Expiration:      created.Add(time.Hour),
		State:           vault.StateSecured,
		ExternalRef:     "order-1",
		CreatedAt:       created,
	}
}

func TestVaultStorage(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	v := testVault(1, now)
	require.NoError(t, store.AddVault(ctx, v, nil))
	assert.ErrorIs(t, store.AddVault(ctx, v, nil), gerror.ErrAlreadyExists)

	got, err := store.GetVault(ctx, 1, v.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, v.TotalAmount, got.TotalAmount)
	assert.Equal(t, maker, got.Initiator)
	assert.Equal(t, common.Address{}, got.Counterparty)
	assert.True(t, got.IsOpen())
	assert.True(t, v.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.SettledAt)

	_, err = store.GetVault(ctx, 2, v.ID, nil)
	assert.ErrorIs(t, err, gerror.ErrStorageNotFound)

	v.RemainingAmount = big.NewInt(0)
	v.State = vault.StateClaimed
	v.SettledAt = &now
	v.RevealedSecret = []byte("secret")
	require.NoError(t, store.UpdateVault(ctx, v, nil))
	got, err = store.GetVault(ctx, 1, v.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, vault.StateClaimed, got.State)
	assert.Equal(t, int64(0), got.RemainingAmount.Int64())
	assert.Equal(t, []byte("secret"), got.RevealedSecret)
	require.NotNil(t, got.SettledAt)

	require.NoError(t, store.AddVault(ctx, testVault(2, now.Add(time.Second)), nil))
	require.NoError(t, store.AddVault(ctx, testVault(3, now.Add(2*time.Second)), nil))
	all, err := store.GetVaults(ctx, 1, "", 0, 0, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	secured, err := store.GetVaults(ctx, 1, vault.StateSecured, 1, 1, nil)
	require.NoError(t, err)
	require.Len(t, secured, 1)
	assert.Equal(t, common.BytesToHash([]byte{3}), secured[0].ID)
}

func TestConsumedSecretTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	now := time.Now().UTC()
	v := testVault(1, now)
	require.NoError(t, store.AddVault(ctx, v, nil))
	secret := &vault.ConsumedSecret{ChainID: 1, SecretHash: common.HexToHash("0xbb"), VaultID: v.ID, ConsumedAt: now}

	dbTx, err := store.BeginDBTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, store.AddConsumedSecret(ctx, secret, dbTx))
	_, err = store.GetConsumedSecret(ctx, 1, secret.SecretHash, dbTx)
	require.NoError(t, err)
	require.NoError(t, store.Rollback(ctx, dbTx))

	_, err = store.GetConsumedSecret(ctx, 1, secret.SecretHash, nil)
	assert.ErrorIs(t, err, gerror.ErrStorageNotFound)

	require.NoError(t, store.AddConsumedSecret(ctx, secret, nil))
	assert.ErrorIs(t, store.AddConsumedSecret(ctx, secret, nil), gerror.ErrAlreadyExists)
	got, err := store.GetConsumedSecret(ctx, 1, secret.SecretHash, nil)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.VaultID)

	assert.ErrorIs(t, store.Commit(ctx, nil), gerror.ErrNilDBTransaction)
}

func TestOrderStorage(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	o := &swapctrl.Order{
		ID:                "order-1",
		Maker:             maker,
		SourceChain:       1,
		DestinationChain:  1101,
		SourceAmount:      big.NewInt(1000),
		DestinationAmount: big.NewInt(1800),
		Auction: auction.Config{
			StartDelay:            types.NewDuration(time.Minute),
			Duration:              types.NewDuration(10 * time.Minute),
			StartMultiplier:       decimal.RequireFromString("1.1"),
			DecreaseRatePerMinute: decimal.RequireFromString("0.02"),
			MinimumReturnRate:     decimal.RequireFromString("0.9"),
		},
		MarketRate: decimal.RequireFromString("2.5"),
		Commitment: common.HexToHash("0xcc"),
		Status:     swapctrl.StatusPending,
		Outcome:    swapctrl.OutcomeNone,
		CreatedAt:  now,
		Expiration: now.Add(2 * time.Hour),
	}
	require.NoError(t, store.AddOrder(ctx, o, nil))
	assert.ErrorIs(t, store.AddOrder(ctx, o, nil), gerror.ErrAlreadyExists)

	got, err := store.GetOrder(ctx, o.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, o.Auction, got.Auction)
	assert.True(t, o.MarketRate.Equal(got.MarketRate))
	assert.Nil(t, got.SafetyDeposit)
	assert.Nil(t, got.FilledAt)

	o.Status = swapctrl.StatusFilled
	o.Resolver = taker
	o.FillRate = decimal.RequireFromString("2.75")
	o.FilledAt = &now
	o.DestinationVaultID = common.HexToHash("0xdd")
	o.DestinationBlock = 12
	o.SafetyDeposit = &safetydeposit.Deposit{OrderID: o.ID, ChainID: 1101, Resolver: taker, Amount: big.NewInt(180),
		Status: safetydeposit.StatusPosted, PostedAt: now}
	require.NoError(t, store.UpdateOrder(ctx, o, nil))

	got, err = store.GetOrder(ctx, o.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, swapctrl.StatusFilled, got.Status)
	assert.Equal(t, taker, got.Resolver)
	assert.True(t, o.FillRate.Equal(got.FillRate))
	require.NotNil(t, got.SafetyDeposit)
	assert.Equal(t, big.NewInt(180), got.SafetyDeposit.Amount)
	assert.Equal(t, safetydeposit.StatusPosted, got.SafetyDeposit.Status)
	assert.Equal(t, common.Address{}, got.SafetyDeposit.Beneficiary)
	assert.True(t, got.SafetyDeposit.SettledAt.IsZero())

	orders, err := store.GetOrders(ctx, swapctrl.StatusFilled, 10, 0, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	orders, err = store.GetOrders(ctx, swapctrl.StatusPending, 10, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)

	missing := *o
	missing.ID = "missing"
	assert.ErrorIs(t, store.UpdateOrder(ctx, &missing, nil), gerror.ErrStorageNotFound)
}

func TestResolverStorage(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	now := time.Now().UTC()

	v := &resolver.ValidatorInfo{Address: taker, StakedAmount: big.NewInt(100), Reputation: 10, IsActive: true, RegisteredAt: now}
	require.NoError(t, store.AddResolver(ctx, v, nil))
	require.NoError(t, store.AddResolver(ctx, &resolver.ValidatorInfo{Address: maker, StakedAmount: big.NewInt(1), RegisteredAt: now}, nil))

	v.ExecutedOrders = 2
	v.Reputation = 12
	require.NoError(t, store.UpdateResolver(ctx, v, nil))
	got, err := store.GetResolver(ctx, taker, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ExecutedOrders)
	assert.Equal(t, int64(12), got.Reputation)

	active, err := store.GetResolvers(ctx, true, nil)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := store.GetResolvers(ctx, false, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.AddBid(ctx, &resolver.ExecutionBid{OrderID: "o", Resolver: taker, BidAmount: big.NewInt(5), Timestamp: now}, nil))
	require.NoError(t, store.AddBid(ctx, &resolver.ExecutionBid{OrderID: "o", Resolver: maker, BidAmount: big.NewInt(7), Timestamp: now}, nil))
	bids, err := store.GetBids(ctx, "o", nil)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, taker, bids[0].Resolver)
	assert.Equal(t, big.NewInt(7), bids[1].BidAmount)
}
