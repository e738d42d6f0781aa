package pgstorage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, maker, source_chain, destination_chain, source_amount::TEXT, destination_amount::TEXT, auction,
	market_rate::TEXT, commitment, merkle_root, status, outcome, created_at, expiration, destination_ref,
	source_vault_id, source_block, destination_vault_id, destination_block, resolver, fill_rate::TEXT,
	filled_at, fulfilled_at, finished_at, settled_at,
	deposit_chain, deposit_amount::TEXT, deposit_status, deposit_beneficiary, deposit_posted_at, deposit_settled_at`

// orderRow flattens an order into column values, in orderColumns order
func orderRow(o *swapctrl.Order) ([]interface{}, error) {
	auctionCfg, err := json.Marshal(o.Auction)
	if err != nil {
		return nil, err
	}
	var (
		depositChain       *uint64
		depositAmount      *string
		depositStatus      *string
		depositBeneficiary []byte
		depositPostedAt    *time.Time
		depositSettledAt   *time.Time
	)
	if d := o.SafetyDeposit; d != nil {
		chainID, status, postedAt := d.ChainID, string(d.Status), d.PostedAt
		depositChain, depositStatus, depositPostedAt = &chainID, &status, &postedAt
		depositAmount = amountText(d.Amount)
		if d.Beneficiary != (common.Address{}) {
			depositBeneficiary = d.Beneficiary.Bytes()
		}
		if !d.SettledAt.IsZero() {
			settledAt := d.SettledAt
			depositSettledAt = &settledAt
		}
	}
	return []interface{}{
		o.ID, o.Maker, o.SourceChain, o.DestinationChain, amountText(o.SourceAmount), amountText(o.DestinationAmount), auctionCfg,
		o.MarketRate.String(), o.Commitment, o.MerkleRoot, string(o.Status), string(o.Outcome), o.CreatedAt, o.Expiration, o.DestinationRef,
		o.SourceVaultID, o.SourceBlock, o.DestinationVaultID, o.DestinationBlock, o.Resolver, o.FillRate.String(),
		o.FilledAt, o.FulfilledAt, o.FinishedAt, o.SettledAt,
		depositChain, depositAmount, depositStatus, depositBeneficiary, depositPostedAt, depositSettledAt,
	}, nil
}

// AddOrder stores a new order
func (p *PostgresStorage) AddOrder(ctx context.Context, o *swapctrl.Order, dbTx pgx.Tx) error {
	const addOrderSQL = `INSERT INTO swap.orders (id, maker, source_chain, destination_chain, source_amount, destination_amount, auction,
		market_rate, commitment, merkle_root, status, outcome, created_at, expiration, destination_ref,
		source_vault_id, source_block, destination_vault_id, destination_block, resolver, fill_rate,
		filled_at, fulfilled_at, finished_at, settled_at,
		deposit_chain, deposit_amount, deposit_status, deposit_beneficiary, deposit_posted_at, deposit_settled_at)
		VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8::NUMERIC, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21::NUMERIC, $22, $23, $24, $25, $26, $27::NUMERIC, $28, $29, $30, $31)`
	args, err := orderRow(o)
	if err != nil {
		return err
	}
	e := p.getExecQuerier(dbTx)
	_, err = e.Exec(ctx, addOrderSQL, args...)
	return alreadyExists(err)
}

// UpdateOrder stores every field of an order
func (p *PostgresStorage) UpdateOrder(ctx context.Context, o *swapctrl.Order, dbTx pgx.Tx) error {
	const updateOrderSQL = `UPDATE swap.orders SET maker = $2, source_chain = $3, destination_chain = $4,
		source_amount = $5::NUMERIC, destination_amount = $6::NUMERIC, auction = $7, market_rate = $8::NUMERIC,
		commitment = $9, merkle_root = $10, status = $11, outcome = $12, created_at = $13, expiration = $14, destination_ref = $15,
		source_vault_id = $16, source_block = $17, destination_vault_id = $18, destination_block = $19, resolver = $20,
		fill_rate = $21::NUMERIC, filled_at = $22, fulfilled_at = $23, finished_at = $24, settled_at = $25,
		deposit_chain = $26, deposit_amount = $27::NUMERIC, deposit_status = $28, deposit_beneficiary = $29,
		deposit_posted_at = $30, deposit_settled_at = $31
		WHERE id = $1`
	args, err := orderRow(o)
	if err != nil {
		return err
	}
	e := p.getExecQuerier(dbTx)
	return exactlyOne(e.Exec(ctx, updateOrderSQL, args...))
}

// GetOrder reads an order
func (p *PostgresStorage) GetOrder(ctx context.Context, id string, dbTx pgx.Tx) (*swapctrl.Order, error) {
	getOrderSQL := "SELECT " + orderColumns + " FROM swap.orders WHERE id = $1"
	e := p.getExecQuerier(dbTx)
	o, err := scanOrder(e.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// GetOrders pages through orders in creation order, all statuses when status is empty
func (p *PostgresStorage) GetOrders(ctx context.Context, status swapctrl.Status, limit, offset uint, dbTx pgx.Tx) ([]*swapctrl.Order, error) {
	getOrdersSQL := "SELECT " + orderColumns + ` FROM swap.orders WHERE ($1 = '' OR status = $1)
		ORDER BY created_at, id LIMIT NULLIF($2, 0) OFFSET $3`
	e := p.getExecQuerier(dbTx)
	rows, err := e.Query(ctx, getOrdersSQL, string(status), int64(limit), int64(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []*swapctrl.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*swapctrl.Order, error) {
	var (
		o                              swapctrl.Order
		sourceAmount, destAmount       string
		marketRate, fillRate           string
		status, outcome                string
		auctionCfg                     []byte
		depositChain                   *uint64
		depositAmount, depositStatus   *string
		depositBeneficiary             []byte
		depositPostedAt, depositSettle *time.Time
	)
	err := row.Scan(&o.ID, &o.Maker, &o.SourceChain, &o.DestinationChain, &sourceAmount, &destAmount, &auctionCfg,
		&marketRate, &o.Commitment, &o.MerkleRoot, &status, &outcome, &o.CreatedAt, &o.Expiration, &o.DestinationRef,
		&o.SourceVaultID, &o.SourceBlock, &o.DestinationVaultID, &o.DestinationBlock, &o.Resolver, &fillRate,
		&o.FilledAt, &o.FulfilledAt, &o.FinishedAt, &o.SettledAt,
		&depositChain, &depositAmount, &depositStatus, &depositBeneficiary, &depositPostedAt, &depositSettle)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(auctionCfg, &o.Auction); err != nil {
		return nil, err
	}
	if o.SourceAmount, err = parseAmount(sourceAmount); err != nil {
		return nil, err
	}
	if o.DestinationAmount, err = parseAmount(destAmount); err != nil {
		return nil, err
	}
	if o.MarketRate, err = decimal.NewFromString(marketRate); err != nil {
		return nil, err
	}
	if o.FillRate, err = decimal.NewFromString(fillRate); err != nil {
		return nil, err
	}
	o.Status = swapctrl.Status(status)
	o.Outcome = swapctrl.Outcome(outcome)

	if depositChain != nil && depositAmount != nil && depositStatus != nil {
		d := &safetydeposit.Deposit{
			OrderID:  o.ID,
			ChainID:  *depositChain,
			Resolver: o.Resolver,
			Status:   safetydeposit.Status(*depositStatus),
		}
		if d.Amount, err = parseAmount(*depositAmount); err != nil {
			return nil, err
		}
		if len(depositBeneficiary) > 0 {
			d.Beneficiary = common.BytesToAddress(depositBeneficiary)
		}
		if depositPostedAt != nil {
			d.PostedAt = *depositPostedAt
		}
		if depositSettle != nil {
			d.SettledAt = *depositSettle
		}
		o.SafetyDeposit = d
	}
	return &o, nil
}
