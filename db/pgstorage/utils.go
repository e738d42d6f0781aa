package pgstorage

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/gobuffalo/packr/v2"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

// RunMigrations will execute pending migrations if needed to keep
// the database updated with the latest changes
func RunMigrations(cfg Config) error {
	c, err := pgx.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%s/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name))
	if err != nil {
		return err
	}
	db := stdlib.OpenDB(*c)
	defer db.Close()

	var migrations = &migrate.PackrMigrationSource{Box: packr.New("zkevm-swap-db-migrations", "./migrations")}
	nMigrations, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return err
	}

	log.Info("successfully ran ", nMigrations, " migrations Up")
	return nil
}

// InitOrReset drops the swap schema and the migrations table and migrates again
func InitOrReset(cfg Config) error {
	pgStorage, err := NewPostgresStorage(cfg)
	if err != nil {
		return err
	}
	defer pgStorage.Close()

	for _, stmt := range []string{"DROP TABLE IF EXISTS gorp_migrations CASCADE;", "DROP SCHEMA IF EXISTS swap CASCADE;"} {
		if _, err := pgStorage.Exec(context.Background(), stmt); err != nil {
			return err
		}
	}
	return RunMigrations(cfg)
}

// NewConfigFromEnv creates config from standard postgres environment variables,
func NewConfigFromEnv() Config {
	maxConns, _ := strconv.Atoi(getEnv("ZKEVM_SWAP_DATABASE_MAXCONNS", "20"))
	return Config{
		User:     getEnv("ZKEVM_SWAP_DATABASE_USER", "test_user"),
		Password: getEnv("ZKEVM_SWAP_DATABASE_PASSWORD", "test_password"),
		Name:     getEnv("ZKEVM_SWAP_DATABASE_NAME", "test_db"),
		Host:     getEnv("ZKEVM_SWAP_DATABASE_HOST", "localhost"),
		Port:     getEnv("ZKEVM_SWAP_DATABASE_PORT", "5432"),
		MaxConns: maxConns,
	}
}

func getEnv(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if exists {
		return value
	}
	return defaultValue
}
