// Package safetydeposit computes the collateral resolvers post next to the
// principal they lock, and tracks whether it was returned or forfeited.
package safetydeposit

import (
	"math/big"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultRate is used when the configuration leaves the rate empty
var DefaultRate = decimal.RequireFromString("0.1")

// Manager computes deposits
type Manager struct {
	rate     decimal.Decimal
	minimums map[uint64]decimal.Decimal
}

// NewManager validates cfg and returns a Manager
func NewManager(cfg Config) (*Manager, error) {
	rate := cfg.Rate
	if rate.IsZero() {
		rate = DefaultRate
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Wrapf(gerror.ErrInvalidConfig, "safety deposit rate %s not in (0,1]", rate)
	}
	minimums := make(map[uint64]decimal.Decimal, len(cfg.Minimums))
	for _, m := range cfg.Minimums {
		if m.Amount.IsNegative() {
			return nil, errors.Wrapf(gerror.ErrInvalidConfig, "negative minimum deposit for chain %d", m.ChainID)
		}
		minimums[m.ChainID] = m.Amount.Floor()
	}
	return &Manager{rate: rate, minimums: minimums}, nil
}

// Rate returns the configured deposit rate
func (m *Manager) Rate() decimal.Decimal {
	return m.rate
}

// Calculate returns floor(escrowAmount*rate), raised to the chain minimum if one is set
func (m *Manager) Calculate(chainID uint64, escrowAmount *big.Int) (*big.Int, error) {
	if escrowAmount == nil || escrowAmount.Sign() <= 0 {
		return nil, gerror.ErrInvalidAmount
	}
	deposit := decimal.NewFromBigInt(escrowAmount, 0).Mul(m.rate).Floor()
	if min, ok := m.minimums[chainID]; ok && deposit.LessThan(min) {
		deposit = min
	}
	return deposit.BigInt(), nil
}

// EscrowWithDeposit is what a resolver must lock to take an order
type EscrowWithDeposit struct {
	Resolver common.Address
	ChainID  uint64
	// Principal is the amount owed to the counterparty
	Principal *big.Int
	// Deposit is the collateral
	Deposit *big.Int
	// Total is Principal+Deposit
	Total *big.Int
}

// CreateEscrowWithDeposit returns the principal plus collateral the resolver has to post
func (m *Manager) CreateEscrowWithDeposit(chainID uint64, amount *big.Int, resolver common.Address) (*EscrowWithDeposit, error) {
	deposit, err := m.Calculate(chainID, amount)
	if err != nil {
		return nil, err
	}
	return &EscrowWithDeposit{
		Resolver:  resolver,
		ChainID:   chainID,
		Principal: new(big.Int).Set(amount),
		Deposit:   deposit,
		Total:     new(big.Int).Add(amount, deposit),
	}, nil
}
