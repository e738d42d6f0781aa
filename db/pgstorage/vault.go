package pgstorage

import (
	"context"

	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

const vaultColumns = `id, chain_id, initiator, counterparty, total_amount::TEXT, remaining_amount::TEXT, commitment,
	expiration, state, external_ref, created_at, settled_at, revealed_secret`

// AddVault stores a new vault
func (p *PostgresStorage) AddVault(ctx context.Context, v *vault.Vault, dbTx pgx.Tx) error {
	const addVaultSQL = `INSERT INTO swap.vault (id, chain_id, initiator, counterparty, total_amount, remaining_amount, commitment,
		expiration, state, external_ref, created_at, settled_at, revealed_secret)
		VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, $9, $10, $11, $12, $13)`
	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addVaultSQL, v.ID, v.ChainID, v.Initiator, v.Counterparty, amountText(v.TotalAmount), amountText(v.RemainingAmount),
		v.Commitment, v.Expiration, string(v.State), v.ExternalRef, v.CreatedAt, v.SettledAt, v.RevealedSecret)
	return alreadyExists(err)
}

// UpdateVault stores the mutable fields of a vault
func (p *PostgresStorage) UpdateVault(ctx context.Context, v *vault.Vault, dbTx pgx.Tx) error {
	const updateVaultSQL = `UPDATE swap.vault SET remaining_amount = $3::NUMERIC, state = $4, settled_at = $5, revealed_secret = $6
		WHERE chain_id = $1 AND id = $2`
	e := p.getExecQuerier(dbTx)
	return exactlyOne(e.Exec(ctx, updateVaultSQL, v.ChainID, v.ID, amountText(v.RemainingAmount), string(v.State), v.SettledAt, v.RevealedSecret))
}

// GetVault reads a vault
func (p *PostgresStorage) GetVault(ctx context.Context, chainID uint64, id common.Hash, dbTx pgx.Tx) (*vault.Vault, error) {
	getVaultSQL := "SELECT " + vaultColumns + " FROM swap.vault WHERE chain_id = $1 AND id = $2"
	e := p.getExecQuerier(dbTx)
	v, err := scanVault(e.QueryRow(ctx, getVaultSQL, chainID, id))
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

// GetVaults pages through the vaults of a chain, all states when state is empty
func (p *PostgresStorage) GetVaults(ctx context.Context, chainID uint64, state vault.State, limit, offset uint, dbTx pgx.Tx) ([]*vault.Vault, error) {
	getVaultsSQL := "SELECT " + vaultColumns + ` FROM swap.vault WHERE chain_id = $1 AND ($2 = '' OR state = $2)
		ORDER BY created_at, id LIMIT NULLIF($3, 0) OFFSET $4`
	e := p.getExecQuerier(dbTx)
	rows, err := e.Query(ctx, getVaultsSQL, chainID, string(state), int64(limit), int64(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vaults := []*vault.Vault{}
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, v)
	}
	return vaults, rows.Err()
}

// AddConsumedSecret appends to the consumed secrets registry
func (p *PostgresStorage) AddConsumedSecret(ctx context.Context, s *vault.ConsumedSecret, dbTx pgx.Tx) error {
	const addConsumedSecretSQL = "INSERT INTO swap.consumed_secret (chain_id, secret_hash, vault_id, consumed_at) VALUES ($1, $2, $3, $4)"
	e := p.getExecQuerier(dbTx)
	_, err := e.Exec(ctx, addConsumedSecretSQL, s.ChainID, s.SecretHash, s.VaultID, s.ConsumedAt)
	return alreadyExists(err)
}

// GetConsumedSecret looks a secret hash up in the registry of chainID
func (p *PostgresStorage) GetConsumedSecret(ctx context.Context, chainID uint64, secretHash common.Hash, dbTx pgx.Tx) (*vault.ConsumedSecret, error) {
	const getConsumedSecretSQL = "SELECT chain_id, secret_hash, vault_id, consumed_at FROM swap.consumed_secret WHERE chain_id = $1 AND secret_hash = $2"
	var s vault.ConsumedSecret
	e := p.getExecQuerier(dbTx)
	err := e.QueryRow(ctx, getConsumedSecretSQL, chainID, secretHash).Scan(&s.ChainID, &s.SecretHash, &s.VaultID, &s.ConsumedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func scanVault(row pgx.Row) (*vault.Vault, error) {
	var (
		v                vault.Vault
		state            string
		total, remaining string
	)
	err := row.Scan(&v.ID, &v.ChainID, &v.Initiator, &v.Counterparty, &total, &remaining, &v.Commitment,
		&v.Expiration, &state, &v.ExternalRef, &v.CreatedAt, &v.SettledAt, &v.RevealedSecret)
	if err != nil {
		return nil, err
	}
	if v.TotalAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	if v.RemainingAmount, err = parseAmount(remaining); err != nil {
		return nil, err
	}
	v.State = vault.State(state)
	return &v, nil
}
