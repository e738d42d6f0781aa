package server

import (
	"math/big"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/auction"
	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Response is the envelope of every API answer
type Response struct {
	Code int64       `json:"code"`
	Msg  string      `json:"msg,omitempty"`
	Kind string      `json:"kind,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// CreateOrderRequest opens a new order
type CreateOrderRequest struct {
	Maker             common.Address  `json:"maker"`
	SourceChain       uint64          `json:"sourceChain"`
	DestinationChain  uint64          `json:"destinationChain"`
	SourceAmount      string          `json:"sourceAmount"`
	DestinationAmount string          `json:"destinationAmount"`
	MarketRate        decimal.Decimal `json:"marketRate"`
	Auction           *AuctionConfig  `json:"auction,omitempty"`
	Commitment        common.Hash     `json:"commitment,omitempty"`
	Expiration        *time.Time      `json:"expiration,omitempty"`
	DestinationRef    string          `json:"destinationRef,omitempty"`
}

// AuctionConfig is the curve of an order
type AuctionConfig struct {
	StartDelay            types.Duration  `json:"startDelay"`
	Duration              types.Duration  `json:"duration"`
	StartMultiplier       decimal.Decimal `json:"startMultiplier"`
	DecreaseRatePerMinute decimal.Decimal `json:"decreaseRatePerMinute"`
	MinimumReturnRate     decimal.Decimal `json:"minimumReturnRate"`
}

// FillOrderRequest is a resolver taking an order
type FillOrderRequest struct {
	Resolver common.Address  `json:"resolver"`
	Cost     decimal.Decimal `json:"cost"`
}

// SecretRequest carries a revealed secret
type SecretRequest struct {
	Secret hexutil.Bytes `json:"secret"`
}

// CallerRequest identifies who asks for a privileged operation
type CallerRequest struct {
	Caller common.Address `json:"caller"`
}

// ReleaseSecretRequest asks for the secret of a filled order
type ReleaseSecretRequest struct {
	Resolver common.Address `json:"resolver"`
}

// RegisterResolverRequest stakes a new resolver
type RegisterResolverRequest struct {
	Caller  common.Address `json:"caller"`
	Address common.Address `json:"address"`
	Stake   string         `json:"stake"`
}

// BidRequest is a resolver bid on an order
type BidRequest struct {
	Resolver common.Address `json:"resolver"`
	Amount   string         `json:"amount"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID                 string           `json:"id"`
	Maker              common.Address   `json:"maker"`
	SourceChain        uint64           `json:"sourceChain"`
	DestinationChain   uint64           `json:"destinationChain"`
	SourceAmount       string           `json:"sourceAmount"`
	DestinationAmount  string           `json:"destinationAmount"`
	MarketRate         decimal.Decimal  `json:"marketRate"`
	Auction            AuctionConfig    `json:"auction"`
	Commitment         common.Hash      `json:"commitment"`
	MerkleRoot         *common.Hash     `json:"merkleRoot,omitempty"`
	Status             string           `json:"status"`
	Outcome            string           `json:"outcome"`
	CreatedAt          time.Time        `json:"createdAt"`
	Expiration         time.Time        `json:"expiration"`
	DestinationRef     string           `json:"destinationRef,omitempty"`
	SourceVaultID      common.Hash      `json:"sourceVaultId"`
	DestinationVaultID *common.Hash     `json:"destinationVaultId,omitempty"`
	Resolver           *common.Address  `json:"resolver,omitempty"`
	FillRate           *decimal.Decimal `json:"fillRate,omitempty"`
	SafetyDeposit      *DepositResponse `json:"safetyDeposit,omitempty"`
	FilledAt           *time.Time       `json:"filledAt,omitempty"`
	FulfilledAt        *time.Time       `json:"fulfilledAt,omitempty"`
	FinishedAt         *time.Time       `json:"finishedAt,omitempty"`
	SettledAt          *time.Time       `json:"settledAt,omitempty"`
}

// DepositResponse is the API view of a safety deposit
type DepositResponse struct {
	ChainID     uint64          `json:"chainId"`
	Resolver    common.Address  `json:"resolver"`
	Amount      string          `json:"amount"`
	Status      string          `json:"status"`
	Beneficiary *common.Address `json:"beneficiary,omitempty"`
	PostedAt    time.Time       `json:"postedAt"`
	SettledAt   *time.Time      `json:"settledAt,omitempty"`
}

// RateResponse is the auction rate of an order now
type RateResponse struct {
	OrderID string          `json:"orderId"`
	Rate    decimal.Decimal `json:"rate"`
	Status  string          `json:"status"`
}

// VaultResponse is the API view of a vault
type VaultResponse struct {
	ID              common.Hash     `json:"id"`
	ChainID         uint64          `json:"chainId"`
	Initiator       common.Address  `json:"initiator"`
	Counterparty    *common.Address `json:"counterparty,omitempty"`
	TotalAmount     string          `json:"totalAmount"`
	RemainingAmount string          `json:"remainingAmount"`
	Commitment      common.Hash     `json:"commitment"`
	Expiration      time.Time       `json:"expiration"`
	State           string          `json:"state"`
	ExternalRef     string          `json:"externalRef,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	SettledAt       *time.Time      `json:"settledAt,omitempty"`
	RevealedSecret  hexutil.Bytes   `json:"revealedSecret,omitempty"`
}

// ReleasedSecretResponse is a secret handed to the resolver of an order
type ReleasedSecretResponse struct {
	OrderID    string         `json:"orderId"`
	Secret     hexutil.Bytes  `json:"secret"`
	Resolver   common.Address `json:"resolver"`
	ReleasedAt time.Time      `json:"releasedAt"`
	Index      uint64         `json:"index"`
	Proof      []common.Hash  `json:"proof"`
	MerkleRoot common.Hash    `json:"merkleRoot"`
}

// ResolverResponse is the API view of a resolver
type ResolverResponse struct {
	Address        common.Address `json:"address"`
	StakedAmount   string         `json:"stakedAmount"`
	Reputation     int64          `json:"reputation"`
	IsActive       bool           `json:"isActive"`
	ExecutedOrders uint64         `json:"executedOrders"`
	FailedOrders   uint64         `json:"failedOrders"`
	RegisteredAt   time.Time      `json:"registeredAt"`
}

// BidResponse is the API view of a bid
type BidResponse struct {
	OrderID   string         `json:"orderId"`
	Resolver  common.Address `json:"resolver"`
	Amount    string         `json:"amount"`
	Timestamp time.Time      `json:"timestamp"`
}

// PauseResponse is the state of the emergency switch
type PauseResponse struct {
	Paused bool `json:"paused"`
}

func (c AuctionConfig) toAuction() auction.Config {
	return auction.Config{
		StartDelay:            c.StartDelay,
		Duration:              c.Duration,
		StartMultiplier:       c.StartMultiplier,
		DecreaseRatePerMinute: c.DecreaseRatePerMinute,
		MinimumReturnRate:     c.MinimumReturnRate,
	}
}

func newAuctionConfig(c auction.Config) AuctionConfig {
	return AuctionConfig{
		StartDelay:            c.StartDelay,
		Duration:              c.Duration,
		StartMultiplier:       c.StartMultiplier,
		DecreaseRatePerMinute: c.DecreaseRatePerMinute,
		MinimumReturnRate:     c.MinimumReturnRate,
	}
}

func newOrderResponse(o *swapctrl.Order) *OrderResponse {
	r := &OrderResponse{
		ID:                o.ID,
		Maker:             o.Maker,
		SourceChain:       o.SourceChain,
		DestinationChain:  o.DestinationChain,
		SourceAmount:      amountString(o.SourceAmount),
		DestinationAmount: amountString(o.DestinationAmount),
		MarketRate:        o.MarketRate,
		Auction:           newAuctionConfig(o.Auction),
		Commitment:        o.Commitment,
		Status:            string(o.Status),
		Outcome:           string(o.Outcome),
		CreatedAt:         o.CreatedAt,
		Expiration:        o.Expiration,
		DestinationRef:    o.DestinationRef,
		SourceVaultID:     o.SourceVaultID,
		FilledAt:          o.FilledAt,
		FulfilledAt:       o.FulfilledAt,
		FinishedAt:        o.FinishedAt,
		SettledAt:         o.SettledAt,
	}
	if o.MerkleRoot != (common.Hash{}) {
		root := o.MerkleRoot
		r.MerkleRoot = &root
	}
	if o.DestinationVaultID != (common.Hash{}) {
		id := o.DestinationVaultID
		r.DestinationVaultID = &id
	}
	if o.Resolver != (common.Address{}) {
		res := o.Resolver
		rate := o.FillRate
		r.Resolver = &res
		r.FillRate = &rate
	}
	if o.SafetyDeposit != nil {
		r.SafetyDeposit = newDepositResponse(o.SafetyDeposit)
	}
	return r
}

func newDepositResponse(d *safetydeposit.Deposit) *DepositResponse {
	r := &DepositResponse{
		ChainID:  d.ChainID,
		Resolver: d.Resolver,
		Amount:   amountString(d.Amount),
		Status:   string(d.Status),
		PostedAt: d.PostedAt,
	}
	if d.Beneficiary != (common.Address{}) {
		b := d.Beneficiary
		r.Beneficiary = &b
	}
	if !d.SettledAt.IsZero() {
		t := d.SettledAt
		r.SettledAt = &t
	}
	return r
}

func newVaultResponse(v *vault.Vault) *VaultResponse {
	r := &VaultResponse{
		ID:              v.ID,
		ChainID:         v.ChainID,
		Initiator:       v.Initiator,
		TotalAmount:     amountString(v.TotalAmount),
		RemainingAmount: amountString(v.RemainingAmount),
		Commitment:      v.Commitment,
		Expiration:      v.Expiration,
		State:           string(v.State),
		ExternalRef:     v.ExternalRef,
		CreatedAt:       v.CreatedAt,
		SettledAt:       v.SettledAt,
		RevealedSecret:  v.RevealedSecret,
	}
	if !v.IsOpen() {
		c := v.Counterparty
		r.Counterparty = &c
	}
	return r
}

func newResolverResponse(v *resolver.ValidatorInfo) *ResolverResponse {
	return &ResolverResponse{
		Address:        v.Address,
		StakedAmount:   amountString(v.StakedAmount),
		Reputation:     v.Reputation,
		IsActive:       v.IsActive,
		ExecutedOrders: v.ExecutedOrders,
		FailedOrders:   v.FailedOrders,
		RegisteredAt:   v.RegisteredAt,
	}
}

func newBidResponse(b *resolver.ExecutionBid) *BidResponse {
	return &BidResponse{
		OrderID:   b.OrderID,
		Resolver:  b.Resolver,
		Amount:    amountString(b.BidAmount),
		Timestamp: b.Timestamp,
	}
}

func amountString(a *big.Int) string {
	if a == nil {
		return "0"
	}
	return a.String()
}
