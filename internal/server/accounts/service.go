// Package accounts implements account administration: creating accounts,
// changing their identity or password, toggling the disabled flag and
// deleting them.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/dmitrijs2005/reelkeeper/internal/dbx"
	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/hashing"
	"github.com/dmitrijs2005/reelkeeper/internal/server/models"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/repomanager"
)

// Update lists the fields to change; nil fields are left alone.
type Update struct {
	Username *string
	Email    *string
	Password *string
}

type Service struct {
	tx     dbx.TxManager
	repos  repomanager.RepositoryManager
	hasher hashing.Hasher
	log    logging.Logger
}

func NewService(tx dbx.TxManager, repos repomanager.RepositoryManager, hasher hashing.Hasher, log logging.Logger) *Service {
	return &Service{
		tx:     tx,
		repos:  repos,
		hasher: hasher,
		log:    log.With("module", "accounts"),
	}
}

// Create registers a new account. Both username and email must be unused.
func (s *Service) Create(ctx context.Context, username, email, password string) (*models.Account, error) {
	if err := validateIdentity(username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *models.Account
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		if err := ensureFree(ctx, repo.GetByUsername, username); err != nil {
			return err
		}
		if err := ensureFree(ctx, repo.GetByEmail, email); err != nil {
			return err
		}

		created, err = repo.Create(ctx, &models.Account{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Tokens:       []models.TokenRecord{},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account created", "username", username, "account_id", created.ID)
	return created, nil
}

// Get looks an account up by username.
func (s *Service) Get(ctx context.Context, username string) (*models.Account, error) {
	return s.repos.Accounts(s.tx.DB()).GetByUsername(ctx, username)
}

// Update applies u to the account. Changing the password keeps existing
// tokens; callers that want to end sessions revoke them separately.
func (s *Service) Update(ctx context.Context, id string, u Update) (*models.Account, error) {
	var hash string
	if u.Password != nil {
		h, err := s.hasher.Hash(*u.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	var updated *models.Account
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if u.Username != nil && *u.Username != account.Username {
			if err := ensureFree(ctx, repo.GetByUsername, *u.Username); err != nil {
				return err
			}
			account.Username = *u.Username
		}
		if u.Email != nil && *u.Email != account.Email {
			if err := ensureFree(ctx, repo.GetByEmail, *u.Email); err != nil {
				return err
			}
			account.Email = *u.Email
		}
		if err := validateIdentity(account.Username, account.Email); err != nil {
			return err
		}
		if hash != "" {
			account.PasswordHash = hash
		}

		updated = account
		return repo.Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account updated", "account_id", id)
	return updated, nil
}

// SetDisabled blocks or unblocks the account. Tokens are kept; a disabled
// account's tokens still verify but are refused authorization.
func (s *Service) SetDisabled(ctx context.Context, id string, disabled bool) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if account.Disabled == disabled {
			return nil
		}
		account.Disabled = disabled
		return repo.Save(ctx, account)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "account disabled flag set", "account_id", id, "disabled", disabled)
	return nil
}

// Delete removes the account together with its tokens and profiles.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repos.Accounts(s.tx.DB()).Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "account deleted", "account_id", id)
	return nil
}

func validateIdentity(username, email string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username must not be empty", common.ErrorValidation)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	return nil
}

func ensureFree(ctx context.Context, get func(context.Context, string) (*models.Account, error), key string) error {
	_, err := get(ctx, key)
	switch {
	case err == nil:
		return common.ErrorAlreadyExists
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return err
	}
}
