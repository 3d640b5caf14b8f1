// Package memory provides a process-local account store for development and
// tests. It satisfies both repomanager.RepositoryManager and dbx.TxManager.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/dmitrijs2005/reelkeeper/internal/dbx"
	"github.com/dmitrijs2005/reelkeeper/internal/server/models"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

// Manager owns the in-memory account table. Units of work passed to WithTx
// run one at a time; there is no rollback, so fn should only Save once it
// has decided to commit.
type Manager struct {
	txMu sync.Mutex

	mu   sync.RWMutex
	byID map[string]*models.Account
	now  func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		byID: make(map[string]*models.Account),
		now:  time.Now,
	}
}

// RunMigrations is a no-op; the schema is implicit.
func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

// Accounts ignores db: every repository shares the manager's table.
func (m *Manager) Accounts(db dbx.DBTX) accounts.Repository {
	return &repository{m: m}
}

// DB returns nil; memory repositories do not use a handle.
func (m *Manager) DB() dbx.DBTX {
	return nil
}

func (m *Manager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, nil)
}

type repository struct {
	m *Manager
}

func (r *repository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, a := range r.m.byID {
		if a.Username == account.Username || a.Email == account.Email {
			return nil, common.ErrorAlreadyExists
		}
	}

	account.ID = uuid.NewString()
	account.CreatedAt = r.m.now().UTC()
	if account.Tokens == nil {
		account.Tokens = []models.TokenRecord{}
	}
	r.m.byID[account.ID] = account.Clone()
	return account, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id })
}

// GetByIDForUpdate needs no lock of its own: writers are serialized by
// Manager.WithTx.
func (r *repository) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Username == username })
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *repository) Save(ctx context.Context, account *models.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.byID[account.ID]; !ok {
		return common.ErrorNotFound
	}
	for id, a := range r.m.byID {
		if id != account.ID && (a.Username == account.Username || a.Email == account.Email) {
			return common.ErrorAlreadyExists
		}
	}
	r.m.byID[account.ID] = account.Clone()
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.byID, id)
	return nil
}

func (r *repository) find(match func(*models.Account) bool) (*models.Account, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, a := range r.m.byID {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}
