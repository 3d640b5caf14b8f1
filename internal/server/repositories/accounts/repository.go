// Package accounts declares the persistence contract for account records
// and its PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/reelkeeper/internal/server/models"
)

// Repository stores accounts together with their token lists. Lookups of
// absent rows return common.ErrorNotFound; Create returns
// common.ErrorAlreadyExists when the username or email is taken.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetByIDForUpdate loads the account and locks it until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error)

	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// Save overwrites every mutable column of an existing account,
	// including the full token list.
	Save(ctx context.Context, account *models.Account) error

	Delete(ctx context.Context, id string) error
}
