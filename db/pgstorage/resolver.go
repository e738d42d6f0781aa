package pgstorage

import (
	"context"

	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

const resolverColumns = "address, staked_amount::TEXT, reputation, is_active, executed_orders, failed_orders, registered_at"

// AddResolver stores a new resolver registration
func (p *PostgresStorage) AddResolver(ctx context.Context, v *resolver.ValidatorInfo, dbTx pgx.Tx) error {
	const addResolverSQL = `INSERT INTO swap.resolver (address, staked_amount, reputation, is_active, executed_orders, failed_orders, registered_at)
		VALUES ($1, $2::NUMERIC, $3, $4, $5, $6, $7)`
	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addResolverSQL, v.Address, amountText(v.StakedAmount), v.Reputation, v.IsActive, v.ExecutedOrders, v.FailedOrders, v.RegisteredAt)
	return alreadyExists(err)
}

// UpdateResolver stores the mutable fields of a registration
func (p *PostgresStorage) UpdateResolver(ctx context.Context, v *resolver.ValidatorInfo, dbTx pgx.Tx) error {
	const updateResolverSQL = `UPDATE swap.resolver SET staked_amount = $2::NUMERIC, reputation = $3, is_active = $4,
		executed_orders = $5, failed_orders = $6 WHERE address = $1`
	e := p.getExecQuerier(dbTx)
	return exactlyOne(e.Exec(ctx, updateResolverSQL, v.Address, amountText(v.StakedAmount), v.Reputation, v.IsActive, v.ExecutedOrders, v.FailedOrders))
}

// GetResolver reads a registration
func (p *PostgresStorage) GetResolver(ctx context.Context, addr common.Address, dbTx pgx.Tx) (*resolver.ValidatorInfo, error) {
	getResolverSQL := "SELECT " + resolverColumns + " FROM swap.resolver WHERE address = $1"
	e := p.getExecQuerier(dbTx)
	v, err := scanResolver(e.QueryRow(ctx, getResolverSQL, addr))
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

// GetResolvers lists registrations sorted by address
func (p *PostgresStorage) GetResolvers(ctx context.Context, activeOnly bool, dbTx pgx.Tx) ([]*resolver.ValidatorInfo, error) {
	getResolversSQL := "SELECT " + resolverColumns + " FROM swap.resolver WHERE is_active OR NOT $1 ORDER BY address"
	e := p.getExecQuerier(dbTx)
	rows, err := e.Query(ctx, getResolversSQL, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*resolver.ValidatorInfo{}
	for rows.Next() {
		v, err := scanResolver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AddBid appends a bid
func (p *PostgresStorage) AddBid(ctx context.Context, bid *resolver.ExecutionBid, dbTx pgx.Tx) error {
	const addBidSQL = "INSERT INTO swap.bid (order_id, resolver, bid_amount, created_at) VALUES ($1, $2, $3::NUMERIC, $4)"
	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addBidSQL, bid.OrderID, bid.Resolver, amountText(bid.BidAmount), bid.Timestamp)
	return err
}

// GetBids returns the bids on an order in submission order
func (p *PostgresStorage) GetBids(ctx context.Context, orderID string, dbTx pgx.Tx) ([]*resolver.ExecutionBid, error) {
	const getBidsSQL = "SELECT order_id, resolver, bid_amount::TEXT, created_at FROM swap.bid WHERE order_id = $1 ORDER BY id"
	e := p.getExecQuerier(dbTx)
	rows, err := e.Query(ctx, getBidsSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bids := []*resolver.ExecutionBid{}
	for rows.Next() {
		var (
			b      resolver.ExecutionBid
			amount string
		)
		if err := rows.Scan(&b.OrderID, &b.Resolver, &amount, &b.Timestamp); err != nil {
			return nil, err
		}
		if b.BidAmount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}

func scanResolver(row pgx.Row) (*resolver.ValidatorInfo, error) {
	var (
		v     resolver.ValidatorInfo
		stake string
	)
	if err := row.Scan(&v.Address, &stake, &v.Reputation, &v.IsActive, &v.ExecutedOrders, &v.FailedOrders, &v.RegisteredAt); err != nil {
		return nil, err
	}
	var err error
	if v.StakedAmount, err = parseAmount(stake); err != nil {
		return nil, err
	}
	return &v, nil
}
