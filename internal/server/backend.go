package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/reelkeeper/internal/dbx"
	"github.com/dmitrijs2005/reelkeeper/internal/server/config"
	"github.com/dmitrijs2005/reelkeeper/internal/server/hashing"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/repomanager"
)

// Backend bundles the storage pieces every component is built from.
type Backend struct {
	TxManager dbx.TxManager
	Repos     repomanager.RepositoryManager

	db *sql.DB
}

// OpenBackend connects to PostgreSQL and applies migrations, or sets up the
// in-memory store when cfg asks for it.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.UsesMemoryStore() {
		m := memory.NewManager()
		return &Backend{TxManager: m, Repos: m}, nil
	}

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Backend{TxManager: dbx.NewSQLTxManager(db), Repos: rm, db: db}, nil
}

// Close releases the database pool, if any.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("db close: %w", err)
	}
	return nil
}

// NewHasher builds the argon2id hasher configured by cfg.
func NewHasher(cfg *config.Config) *hashing.Argon2idHasher {
	return hashing.NewArgon2idHasher(hashing.Params{
		Memory:      cfg.HashMemoryKiB,
		Iterations:  cfg.HashIterations,
		Parallelism: cfg.HashParallelism,
	})
}
