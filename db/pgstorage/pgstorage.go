package pgstorage

import (
	"context"
	"fmt"
	"math/big"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
)

type execQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresStorage implements the vault, order and resolver storages
type PostgresStorage struct {
	*pgxpool.Pool
}

// getExecQuerier determines which execQuerier to use, dbTx or the main pgxpool
func (p *PostgresStorage) getExecQuerier(dbTx pgx.Tx) execQuerier {
	if dbTx != nil {
		return &execQuerierWrapper{dbTx}
	}
	return &execQuerierWrapper{p.Pool}
}

// NewPostgresStorage creates a new Storage DB
func NewPostgresStorage(cfg Config) (*PostgresStorage, error) {
	log.Debugf("Create PostgresStorage with host %s:%s db %s", cfg.Host, cfg.Port, cfg.Name)
	config, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%s/%s?pool_max_conns=%d", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.MaxConns))
	if err != nil {
		log.Errorf("Unable to parse DB config: %v", err)
		return nil, err
	}
	db, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		log.Errorf("Unable to connect to database: %v", err)
		return nil, err
	}
	return &PostgresStorage{db}, nil
}

// Rollback rollbacks a db transaction.
func (p *PostgresStorage) Rollback(ctx context.Context, dbTx pgx.Tx) error {
	if dbTx != nil {
		return dbTx.Rollback(ctx)
	}
	return gerror.ErrNilDBTransaction
}

// Commit commits a db transaction.
func (p *PostgresStorage) Commit(ctx context.Context, dbTx pgx.Tx) error {
	if dbTx != nil {
		return dbTx.Commit(ctx)
	}
	return gerror.ErrNilDBTransaction
}

// BeginDBTransaction starts a transaction block.
func (p *PostgresStorage) BeginDBTransaction(ctx context.Context) (pgx.Tx, error) {
	return p.Begin(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return gerror.ErrStorageNotFound
	}
	return err
}

// exactlyOne maps an update that touched no row to ErrStorageNotFound
func exactlyOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return gerror.ErrStorageNotFound
	}
	return nil
}

// alreadyExists maps unique violations to ErrAlreadyExists
func alreadyExists(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errors.Wrap(gerror.ErrAlreadyExists, pgErr.Detail)
	}
	return err
}

// Amounts travel as text to keep NUMERIC(78,0) exact

func amountText(a *big.Int) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

func parseAmount(s string) (*big.Int, error) {
	a, ok := new(big.Int).SetString(s, 10) //nolint:gomnd
	if !ok {
		return nil, fmt.Errorf("invalid stored amount %q", s)
	}
	return a, nil
}
