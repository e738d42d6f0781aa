package etherman

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	block    uint64
	nonce    uint64
	gasPrice *big.Int
	sent     []*types.Transaction
}

func (n *fakeNode) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (n *fakeNode) StorageAt(context.Context, common.Address, common.Hash, *big.Int) ([]byte, error) {
	return nil, nil
}

func (n *fakeNode) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func (n *fakeNode) NonceAt(context.Context, common.Address, *big.Int) (uint64, error) {
	return n.nonce, nil
}

func (n *fakeNode) PendingBalanceAt(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (n *fakeNode) PendingStorageAt(context.Context, common.Address, common.Hash) ([]byte, error) {
	return nil, nil
}

func (n *fakeNode) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return nil, nil
}

func (n *fakeNode) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return n.nonce, nil
}

func (n *fakeNode) PendingTransactionCount(context.Context) (uint, error) {
	return 0, nil
}

func (n *fakeNode) SendTransaction(_ context.Context, tx *types.Transaction) error {
	n.sent = append(n.sent, tx)
	n.nonce++
	return nil
}

func (n *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	return n.gasPrice, nil
}

func (n *fakeNode) BlockNumber(context.Context) (uint64, error) {
	return n.block, nil
}

func TestClientSubmitTransfer(t *testing.T) {
	const password = "testonly"
	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.NewAccount(password)
	require.NoError(t, err)

	node := &fakeNode{block: 17, nonce: 3, gasPrice: big.NewInt(1_000_000_000)}
	c := newClient(ChainConfig{ChainID: 1442, KeystorePassword: password}, node, ks)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(17), n)

	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	hash, err := c.SubmitTransfer(context.Background(), account.Address, to, big.NewInt(500))
	require.NoError(t, err)
	require.Len(t, node.sent, 1)
	tx := node.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(transferGas), tx.Gas())
	assert.Equal(t, big.NewInt(500), tx.Value())
	assert.Equal(t, to, *tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1442)), tx)
	require.NoError(t, err)
	assert.Equal(t, account.Address, sender)

	_, err = c.SubmitTransfer(context.Background(), to, account.Address, big.NewInt(1))
	assert.ErrorIs(t, err, gerror.ErrUnauthorized)
}

func TestClientWithoutKeystore(t *testing.T) {
	c := newClient(ChainConfig{ChainID: 1}, &fakeNode{gasPrice: big.NewInt(1)}, nil)
	_, err := c.SubmitTransfer(context.Background(), common.HexToAddress("0x1"), common.HexToAddress("0x2"), big.NewInt(1))
	assert.ErrorIs(t, err, gerror.ErrUnauthorized)
}

func TestSimulatedChain(t *testing.T) {
	ctx := context.Background()
	alice := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	sc, err := NewSimulatedChainFromConfig(ChainConfig{
		ChainID:        1,
		SimulatedFunds: []Funding{{Address: alice, Amount: "1000"}},
	})
	require.NoError(t, err)

	h1, err := sc.SubmitTransfer(ctx, alice, bob, big.NewInt(400))
	require.NoError(t, err)
	h2, err := sc.SubmitTransfer(ctx, alice, bob, big.NewInt(400))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, err = sc.SubmitTransfer(ctx, alice, bob, big.NewInt(400))
	assert.ErrorIs(t, err, gerror.ErrInsufficientBalance)

	bal, err := sc.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(800), bal)

	n, err := sc.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	sc.Mine(10)
	n, _ = sc.BlockNumber(ctx)
	assert.Equal(t, uint64(12), n)

	rpcDown := errors.New("rpc down")
	sc.FailTransfers(rpcDown)
	_, err = sc.SubmitTransfer(ctx, bob, alice, big.NewInt(1))
	assert.ErrorIs(t, err, rpcDown)
	sc.FailTransfers(nil)
	_, err = sc.SubmitTransfer(ctx, bob, alice, big.NewInt(1))
	assert.NoError(t, err)
}

func TestSimulatedChainBadFunding(t *testing.T) {
	_, err := NewSimulatedChainFromConfig(ChainConfig{SimulatedFunds: []Funding{{Amount: "lots"}}})
	assert.ErrorIs(t, err, gerror.ErrInvalidConfig)
}
