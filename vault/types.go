package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State of a vault
type State string

const (
	// StateInitialized is a vault recorded but not yet funded
	StateInitialized State = "initialized"
	// StateSecured is a funded vault waiting for a claim or its expiration
	StateSecured State = "secured"
	// StateClaimed is a vault fully drained by claims
	StateClaimed State = "claimed"
	// StateExpired marks a vault past its expiration that nobody recovered yet
	StateExpired State = "expired"
	// StateTerminated is a vault whose remainder went back to the initiator
	StateTerminated State = "terminated"
)

// IsSettled reports whether no funds can leave the vault anymore
func (s State) IsSettled() bool {
	return s == StateClaimed || s == StateTerminated
}

// Vault is one hash time locked escrow on one chain
type Vault struct {
	ID              common.Hash
	ChainID         uint64
	Initiator       common.Address
	Counterparty    common.Address
	TotalAmount     *big.Int
	RemainingAmount *big.Int
	Commitment      common.Hash
	Expiration      time.Time
	State           State
	ExternalRef     string
	CreatedAt       time.Time
	SettledAt       *time.Time
	RevealedSecret  []byte
}

// IsOpen reports whether anyone holding the secret may claim
func (v *Vault) IsOpen() bool {
	return v.Counterparty == (common.Address{})
}

// Copy returns a deep copy
func (v *Vault) Copy() *Vault {
	c := *v
	c.TotalAmount = new(big.Int).Set(v.TotalAmount)
	c.RemainingAmount = new(big.Int).Set(v.RemainingAmount)
	if v.SettledAt != nil {
		t := *v.SettledAt
		c.SettledAt = &t
	}
	if v.RevealedSecret != nil {
		c.RevealedSecret = append([]byte(nil), v.RevealedSecret...)
	}
	return &c
}

// EstablishRequest carries the parameters of a new vault
type EstablishRequest struct {
	Initiator common.Address
	// Counterparty may claim. The zero address lets anyone with the secret claim
	Counterparty common.Address
	Amount       *big.Int
	Expiration   time.Time
	Commitment   common.Hash
	ExternalRef  string
}

// ConsumedSecret is an entry of the consumed secrets registry
type ConsumedSecret struct {
	ChainID    uint64
	SecretHash common.Hash
	VaultID    common.Hash
	ConsumedAt time.Time
}
