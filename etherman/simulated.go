package etherman

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SimulatedChain is an in-process chain of native balances. Every accepted
// transfer is mined in its own block.
type SimulatedChain struct {
	mu       sync.Mutex
	chainID  uint64
	block    uint64
	nonce    uint64
	balances map[common.Address]*big.Int
	failing  error
}

// NewSimulatedChain returns an empty chain at block 0
func NewSimulatedChain(chainID uint64) *SimulatedChain {
	return &SimulatedChain{chainID: chainID, balances: make(map[common.Address]*big.Int)}
}

// NewSimulatedChainFromConfig returns a chain funded with cfg.SimulatedFunds
func NewSimulatedChainFromConfig(cfg ChainConfig) (*SimulatedChain, error) {
	sc := NewSimulatedChain(cfg.ChainID)
	for _, f := range cfg.SimulatedFunds {
		amount, ok := new(big.Int).SetString(f.Amount, 10) //nolint:gomnd
		if !ok || amount.Sign() < 0 {
			return nil, errors.Wrapf(gerror.ErrInvalidConfig, "funding %q of %s", f.Amount, f.Address.Hex())
		}
		sc.Fund(f.Address, amount)
	}
	return sc, nil
}

// ChainID of the chain
func (sc *SimulatedChain) ChainID() uint64 {
	return sc.chainID
}

// Fund credits account
func (sc *SimulatedChain) Fund(account common.Address, amount *big.Int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.balanceOf(account).Add(sc.balances[account], amount)
}

// Mine advances the chain n blocks
func (sc *SimulatedChain) Mine(n uint64) {
	sc.mu.Lock()
	sc.block += n
	sc.mu.Unlock()
}

// FailTransfers makes every following transfer fail with err, nil restores the chain
func (sc *SimulatedChain) FailTransfers(err error) {
	sc.mu.Lock()
	sc.failing = err
	sc.mu.Unlock()
}

// Balance returns the balance of account
func (sc *SimulatedChain) Balance(_ context.Context, account common.Address) (*big.Int, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return new(big.Int).Set(sc.balanceOf(account)), nil
}

// BlockNumber returns the current height
func (sc *SimulatedChain) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.block, nil
}

// SubmitTransfer moves amount from from to to and mines a block
func (sc *SimulatedChain) SubmitTransfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if amount == nil || amount.Sign() < 0 {
		return common.Hash{}, gerror.ErrInvalidAmount
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.failing != nil {
		return common.Hash{}, sc.failing
	}
	balance := sc.balanceOf(from)
	if balance.Cmp(amount) < 0 {
		return common.Hash{}, errors.Wrapf(gerror.ErrInsufficientBalance, "%s holds %s, needs %s", from.Hex(), balance, amount)
	}
	balance.Sub(balance, amount)
	sc.balanceOf(to).Add(sc.balances[to], amount)
	sc.block++
	sc.nonce++

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], sc.chainID)
	binary.BigEndian.PutUint64(buf[8:], sc.nonce)
	return crypto.Keccak256Hash(buf[:], from.Bytes(), to.Bytes(), amount.Bytes()), nil
}

func (sc *SimulatedChain) balanceOf(account common.Address) *big.Int {
	b, ok := sc.balances[account]
	if !ok {
		b = new(big.Int)
		sc.balances[account] = b
	}
	return b
}
