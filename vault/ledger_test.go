package vault

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/commitment"
	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = 11155111

var (
	maker    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	taker    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	stranger = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
	guardian = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	custody  = common.HexToAddress("0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc")
)

type bank struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	fail     bool
	txs      uint64
}

func newBank() *bank {
	return &bank{balances: map[common.Address]*big.Int{
		maker: big.NewInt(1_000_000),
	}}
}

func (b *bank) SubmitTransfer(_ context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return common.Hash{}, errors.New("rpc unavailable")
	}
	bal := b.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return common.Hash{}, errors.New("insufficient funds")
	}
	b.balances[from] = new(big.Int).Sub(bal, amount)
	if b.balances[to] == nil {
		b.balances[to] = new(big.Int)
	}
	b.balances[to] = new(big.Int).Add(b.balances[to], amount)
	n := atomic.AddUint64(&b.txs, 1)
	return common.BigToHash(new(big.Int).SetUint64(n)), nil
}

func (b *bank) balance(a common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[a] == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.balances[a])
}

type testEnv struct {
	ledger   *Ledger
	storage  *MemoryStorage
	bank     *bank
	clock    *utils.TimeProviderFixedTime
	recorder *events.Recorder
	guard    *security.Guard
}

func newTestEnv(t *testing.T) *testEnv {
	clock := utils.NewTimeProviderFixedTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	guard, err := security.NewGuard(context.Background(), security.Config{PauseGuardian: guardian}, security.NewMemoryStore(clock))
	require.NoError(t, err)
	env := &testEnv{
		storage:  NewMemoryStorage(),
		bank:     newBank(),
		clock:    clock,
		recorder: &events.Recorder{},
		guard:    guard,
	}
	env.ledger = NewLedger(testChainID, custody, env.storage, env.bank, guard, env.recorder, clock)
	return env
}

func (e *testEnv) establish(t *testing.T, amount int64, secret string, counterparty common.Address) common.Hash {
	c, err := commitment.Commit([]byte(secret))
	require.NoError(t, err)
	id, err := e.ledger.Establish(context.Background(), EstablishRequest{
		Initiator:    maker,
		Counterparty: counterparty,
		Amount:       big.NewInt(amount),
		Expiration:   e.clock.Now().Add(time.Hour),
		Commitment:   c,
		ExternalRef:  "order-1",
	})
	require.NoError(t, err)
	return id
}

func TestEstablishValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c, err := commitment.Commit([]byte("s1"))
	require.NoError(t, err)
	now := env.clock.Now()

	tcs := []struct {
		name string
		req  EstablishRequest
		err  error
	}{
		{"zero amount", EstablishRequest{Initiator: maker, Amount: big.NewInt(0), Expiration: now.Add(time.Hour), Commitment: c}, gerror.ErrInvalidAmount},
		{"negative amount", EstablishRequest{Initiator: maker, Amount: big.NewInt(-1), Expiration: now.Add(time.Hour), Commitment: c}, gerror.ErrInvalidAmount},
		{"nil amount", EstablishRequest{Initiator: maker, Expiration: now.Add(time.Hour), Commitment: c}, gerror.ErrInvalidAmount},
		{"past expiration", EstablishRequest{Initiator: maker, Amount: big.NewInt(1), Expiration: now.Add(-2 * time.Minute), Commitment: c}, gerror.ErrInvalidExpiration},
		{"far expiration", EstablishRequest{Initiator: maker, Amount: big.NewInt(1), Expiration: now.Add(8 * 24 * time.Hour), Commitment: c}, gerror.ErrInvalidExpiration},
		{"empty commitment", EstablishRequest{Initiator: maker, Amount: big.NewInt(1), Expiration: now.Add(time.Hour)}, gerror.ErrInvalidCommitment},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.ledger.Establish(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	vaults, err := env.ledger.ListVaults(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, vaults)
	assert.Equal(t, big.NewInt(1_000_000), env.bank.balance(maker))
	assert.Empty(t, env.recorder.Events())
}

func TestEstablishLocksFunds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateSecured, v.State)
	assert.Equal(t, big.NewInt(1000), v.TotalAmount)
	assert.Equal(t, big.NewInt(1000), v.RemainingAmount)
	assert.Equal(t, uint64(testChainID), v.ChainID)
	assert.Equal(t, "order-1", v.ExternalRef)
	assert.Empty(t, v.RevealedSecret)
	assert.Equal(t, big.NewInt(1000), env.bank.balance(custody))
	assert.Equal(t, big.NewInt(999_000), env.bank.balance(maker))

	evs := env.recorder.OfType(events.VaultEstablished)
	require.Len(t, evs, 1)
	assert.Equal(t, id.Hex(), evs[0].VaultID)
	assert.Equal(t, "1000", evs[0].Amount)
	assert.Equal(t, uint64(testChainID), evs[0].ChainID)

	other := env.establish(t, 1000, "s1", taker)
	assert.NotEqual(t, id, other, "identical requests get distinct ids")
}

func TestEstablishRollsBackWhenTransferFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.bank.fail = true
	c, _ := commitment.Commit([]byte("s1"))
	_, err := env.ledger.Establish(ctx, EstablishRequest{
		Initiator: maker, Amount: big.NewInt(10), Expiration: env.clock.Now().Add(time.Hour), Commitment: c,
	})
	require.Error(t, err)
	vaults, err := env.ledger.ListVaults(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, vaults)
}

func TestScenarioAFullClaim(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	paid, err := env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), paid)

	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateClaimed, v.State)
	assert.Equal(t, 0, v.RemainingAmount.Sign())
	assert.Equal(t, []byte("s1"), v.RevealedSecret)
	require.NotNil(t, v.SettledAt)
	assert.Equal(t, big.NewInt(1000), env.bank.balance(taker))

	evs := env.recorder.OfType(events.VaultClaimed)
	require.Len(t, evs, 1)
	assert.Equal(t, "0", evs[0].Remaining)
	assert.Equal(t, events.FormatSecret([]byte("s1")), evs[0].Secret)
}

func TestScenarioBWrongSecret(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)
	before, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)

	_, err = env.ledger.Claim(ctx, taker, id, []byte("wrong"), big.NewInt(1000))
	assert.ErrorIs(t, err, gerror.ErrInvalidSecret)
	assert.Equal(t, gerror.KindCryptographic, gerror.KindOf(err))

	after, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	consumed, err := env.ledger.IsSecretConsumed(ctx, []byte("wrong"))
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestScenarioCRecoverAfterExpiration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	env.clock.Advance(time.Hour + time.Second)
	got, err := env.ledger.RecoverExpired(ctx, maker, id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), got)
	assert.Equal(t, big.NewInt(1_000_000), env.bank.balance(maker))

	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateTerminated, v.State)

	_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), nil)
	require.Error(t, err)
	_, err = env.ledger.RecoverExpired(ctx, maker, id)
	assert.ErrorIs(t, err, gerror.ErrVaultSettled)
	assert.Len(t, env.recorder.OfType(events.VaultRecovered), 1)
}

func TestClaimAfterExpirationFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)
	env.clock.Advance(time.Hour)
	_, err := env.ledger.Claim(ctx, taker, id, []byte("s1"), nil)
	assert.ErrorIs(t, err, gerror.ErrVaultExpired)
}

func TestScenarioDPartialClaims(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 5000, "s1", common.Address{})

	paid, err := env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(2000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2000), paid)
	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3000), v.RemainingAmount)
	assert.Equal(t, StateSecured, v.State)

	paid, err = env.ledger.Claim(ctx, stranger, id, []byte("s1"), big.NewInt(3000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3000), paid)
	v, err = env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, v.RemainingAmount.Sign())
	assert.Equal(t, StateClaimed, v.State)

	for _, amount := range []*big.Int{nil, big.NewInt(1), big.NewInt(0)} {
		_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), amount)
		assert.ErrorIs(t, err, gerror.ErrVaultSettled)
	}
	env.clock.Advance(2 * time.Hour)
	_, err = env.ledger.RecoverExpired(ctx, maker, id)
	assert.ErrorIs(t, err, gerror.ErrVaultSettled)
}

func TestScenarioESecretReplayAcrossVaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.establish(t, 1000, "s1", common.Address{})
	second := env.establish(t, 1000, "s2", common.Address{})

	_, err := env.ledger.Claim(ctx, taker, first, []byte("s1"), nil)
	require.NoError(t, err)

	_, err = env.ledger.Claim(ctx, taker, second, []byte("s1"), nil)
	assert.ErrorIs(t, err, gerror.ErrSecretConsumed)
	consumed, err := env.ledger.IsSecretConsumed(ctx, []byte("s1"))
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestConsumedSecretCannotOpenSecondVaultWithSameCommitment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.establish(t, 1000, "s1", common.Address{})
	second := env.establish(t, 1000, "s1", common.Address{})

	_, err := env.ledger.Claim(ctx, taker, first, []byte("s1"), big.NewInt(10))
	require.NoError(t, err)
	_, err = env.ledger.Claim(ctx, taker, second, []byte("s1"), nil)
	assert.ErrorIs(t, err, gerror.ErrSecretConsumed)
	_, err = env.ledger.Claim(ctx, taker, first, []byte("s1"), big.NewInt(10))
	assert.NoError(t, err, "the vault that consumed the secret accepts further partial claims")
}

func TestClaimValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	_, err := env.ledger.Claim(ctx, stranger, id, []byte("s1"), nil)
	assert.ErrorIs(t, err, gerror.ErrUnauthorized)
	_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(0))
	assert.ErrorIs(t, err, gerror.ErrInvalidWithdrawalAmount)
	_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(1001))
	assert.ErrorIs(t, err, gerror.ErrInsufficientBalance)
	_, err = env.ledger.Claim(ctx, taker, id, nil, nil)
	assert.ErrorIs(t, err, gerror.ErrInvalidSecret)
	_, err = env.ledger.Claim(ctx, taker, common.HexToHash("0x1234"), []byte("s1"), nil)
	assert.ErrorIs(t, err, gerror.ErrStorageNotFound)

	// failed claims must leave the registry untouched
	consumed, err := env.ledger.IsSecretConsumed(ctx, []byte("s1"))
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestClaimRollsBackWhenTransferFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	env.bank.fail = true
	_, err := env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(400))
	require.Error(t, err)

	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), v.RemainingAmount)
	assert.Empty(t, v.RevealedSecret)
	consumed, err := env.ledger.IsSecretConsumed(ctx, []byte("s1"))
	require.NoError(t, err)
	assert.False(t, consumed)

	env.bank.fail = false
	_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(400))
	require.NoError(t, err)
}

func TestRecoverRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	for _, caller := range []common.Address{maker, taker, stranger} {
		_, err := env.ledger.RecoverExpired(ctx, caller, id)
		assert.ErrorIs(t, err, gerror.ErrVaultNotExpired)
	}

	_, err := env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(300))
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	_, err = env.ledger.RecoverExpired(ctx, stranger, id)
	assert.ErrorIs(t, err, gerror.ErrUnauthorized)

	got, err := env.ledger.RecoverExpired(ctx, maker, id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(700), got, "recovery returns only what remains")
}

func TestTerminateExpired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	assert.ErrorIs(t, env.ledger.TerminateExpired(ctx, id), gerror.ErrVaultNotExpired)

	env.clock.Advance(time.Hour)
	require.NoError(t, env.ledger.TerminateExpired(ctx, id))
	require.NoError(t, env.ledger.TerminateExpired(ctx, id))
	assert.Len(t, env.recorder.OfType(events.VaultExpired), 1)

	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, v.State)
	assert.Equal(t, big.NewInt(1000), env.bank.balance(custody), "termination moves no funds")

	expired, err := env.ledger.ListVaults(ctx, StateExpired, 10, 0)
	require.NoError(t, err)
	assert.Len(t, expired, 1)

	got, err := env.ledger.RecoverExpired(ctx, maker, id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), got)
	assert.ErrorIs(t, env.ledger.TerminateExpired(ctx, id), gerror.ErrVaultSettled)
}

func TestPausedLedgerRefusesMutations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 1000, "s1", taker)

	require.NoError(t, env.guard.EmergencyPause(ctx, guardian))
	c, _ := commitment.Commit([]byte("s9"))
	_, err := env.ledger.Establish(ctx, EstablishRequest{Initiator: maker, Amount: big.NewInt(1), Expiration: env.clock.Now().Add(time.Hour), Commitment: c})
	assert.ErrorIs(t, err, gerror.ErrSystemPaused)
	_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), nil)
	assert.ErrorIs(t, err, gerror.ErrSystemPaused)
	assert.ErrorIs(t, env.ledger.TerminateExpired(ctx, id), gerror.ErrSystemPaused)
	_, err = env.ledger.RecoverExpired(ctx, maker, id)
	assert.ErrorIs(t, err, gerror.ErrSystemPaused)

	_, err = env.ledger.GetVault(ctx, id)
	require.NoError(t, err, "reads are allowed while paused")

	require.NoError(t, env.guard.EmergencyResume(ctx, guardian))
	_, err = env.ledger.Claim(ctx, taker, id, []byte("s1"), nil)
	require.NoError(t, err)
}

func TestRemainingIsMonotonic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 100, "s1", common.Address{})

	prev := big.NewInt(100)
	for _, amount := range []int64{10, 0, 200, 25, 1, 64, 5} {
		_, _ = env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(amount))
		v, err := env.ledger.GetVault(ctx, id)
		require.NoError(t, err)
		assert.True(t, v.RemainingAmount.Cmp(prev) <= 0)
		assert.True(t, v.RemainingAmount.Cmp(v.TotalAmount) <= 0)
		prev = v.RemainingAmount
	}
	v, err := env.ledger.GetVault(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, v.RemainingAmount.Sign())
	assert.Equal(t, StateClaimed, v.State)
}

func TestConcurrentClaimsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.establish(t, 500, "s1", common.Address{})

	var wg sync.WaitGroup
	var succeeded int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.ledger.Claim(ctx, taker, id, []byte("s1"), big.NewInt(100)); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(5), succeeded)
	assert.Equal(t, big.NewInt(500), env.bank.balance(taker))
}

func TestListVaultsPaging(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	var ids []common.Hash
	for i := 0; i < 5; i++ {
		ids = append(ids, env.establish(t, 10, "s1", taker))
		env.clock.Advance(time.Second)
	}
	page, err := env.ledger.ListVaults(ctx, StateSecured, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	page, err = env.ledger.ListVaults(ctx, StateSecured, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = env.ledger.ListVaults(ctx, StateClaimed, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page)
}
