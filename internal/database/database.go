package database

import (
	"context"
	"fmt"

	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Database struct {
	pool  *pgxpool.Pool
	store *store.Postgres
}

func New(cfg *config.DatabaseConfig) (*Database, error) {
	pool, err := pgxpool.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Activate and test the connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		pool:  pool,
		store: store.NewPostgres(pool),
	}, nil
}

func (d *Database) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *Database) Store() *store.Postgres {
	return d.store
}

func (d *Database) Pool() *pgxpool.Pool {
	return d.pool
}
