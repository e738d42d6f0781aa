package safetydeposit

import (
	"math/big"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Status of a posted deposit
type Status string

const (
	// StatusPosted means the deposit is held in escrow
	StatusPosted Status = "posted"
	// StatusReturned means the resolver completed and got the deposit back
	StatusReturned Status = "returned"
	// StatusForfeited means the resolver failed and the deposit went to the counterparty
	StatusForfeited Status = "forfeited"
)

// Deposit is the collateral posted by one resolver for one order
type Deposit struct {
	OrderID     string
	ChainID     uint64
	Resolver    common.Address
	Amount      *big.Int
	Status      Status
	Beneficiary common.Address
	PostedAt    time.Time
	SettledAt   time.Time
}

// Post records a deposit posted for an order
func Post(orderID string, escrow *EscrowWithDeposit, now time.Time) *Deposit {
	return &Deposit{
		OrderID:  orderID,
		ChainID:  escrow.ChainID,
		Resolver: escrow.Resolver,
		Amount:   new(big.Int).Set(escrow.Deposit),
		Status:   StatusPosted,
		PostedAt: now,
	}
}

// Return hands the deposit back to the resolver
func (d *Deposit) Return(now time.Time) error {
	return d.settle(StatusReturned, d.Resolver, now)
}

// Forfeit pays the deposit to beneficiary
func (d *Deposit) Forfeit(beneficiary common.Address, now time.Time) error {
	return d.settle(StatusForfeited, beneficiary, now)
}

func (d *Deposit) settle(status Status, beneficiary common.Address, now time.Time) error {
	if d.Status != StatusPosted {
		return errors.Wrapf(gerror.ErrDepositSettled, "order %s deposit is %s", d.OrderID, d.Status)
	}
	d.Status = status
	d.Beneficiary = beneficiary
	d.SettledAt = now
	return nil
}
