// Package credentials keeps the per-account list of hashed bearer tokens.
// A raw token is never stored; membership is decided by verifying the
// presented token against each stored hash.
package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/reelkeeper/internal/dbx"
	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/hashing"
	"github.com/dmitrijs2005/reelkeeper/internal/server/models"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/repomanager"
)

// Store mutates token lists. Every mutation is one read-modify-write unit
// of work on a single account, so concurrent logins and logouts for the
// same account never lose each other's changes.
type Store struct {
	tx     dbx.TxManager
	repos  repomanager.RepositoryManager
	hasher hashing.Hasher
	now    func() time.Time
	log    logging.Logger
}

func NewStore(tx dbx.TxManager, repos repomanager.RepositoryManager, hasher hashing.Hasher, log logging.Logger) *Store {
	return &Store{
		tx:     tx,
		repos:  repos,
		hasher: hasher,
		now:    time.Now,
		log:    log.With("module", "credentials"),
	}
}

// Register hashes rawToken and appends it to the account's list.
// Registering the same token twice stores two records.
func (s *Store) Register(ctx context.Context, accountID, rawToken string) error {
	hash, err := s.hasher.Hash(rawToken)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}

	return s.update(ctx, accountID, func(a *models.Account) bool {
		a.AddToken(hash, s.now().UTC())
		return true
	})
}

// Check reports whether rawToken matches any stored record of account.
func (s *Store) Check(account *models.Account, rawToken string) bool {
	return account.FindToken(s.matcher(rawToken)) >= 0
}

// Revoke removes the first record matching rawToken. An unknown token is
// not an error and causes no write.
func (s *Store) Revoke(ctx context.Context, accountID, rawToken string) error {
	match := s.matcher(rawToken)
	return s.update(ctx, accountID, func(a *models.Account) bool {
		i := a.FindToken(match)
		if i < 0 {
			return false
		}
		a.RemoveTokenAt(i)
		return true
	})
}

// RevokeAll drops every record of the account.
func (s *Store) RevokeAll(ctx context.Context, accountID string) error {
	return s.update(ctx, accountID, func(a *models.Account) bool {
		a.ClearTokens()
		return true
	})
}

// PruneExpired removes the records for which isExpired returns true and
// reports how many were removed.
func (s *Store) PruneExpired(ctx context.Context, accountID string, isExpired func(models.TokenRecord) bool) (int, error) {
	removed := 0
	err := s.update(ctx, accountID, func(a *models.Account) bool {
		kept := make([]models.TokenRecord, 0, len(a.Tokens))
		for _, rec := range a.Tokens {
			if isExpired(rec) {
				continue
			}
			kept = append(kept, rec)
		}
		removed = len(a.Tokens) - len(kept)
		if removed == 0 {
			return false
		}
		a.Tokens = kept
		return true
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) matcher(rawToken string) func(string) bool {
	return func(hash string) bool {
		return s.hasher.Verify(hash, rawToken)
	}
}

// update loads the account under lock, applies mutate and saves the result
// when mutate reports a change.
func (s *Store) update(ctx context.Context, accountID string, mutate func(*models.Account) bool) error {
	return s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		account, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		if !mutate(account) {
			return nil
		}

		if err := repo.Save(ctx, account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}

		s.log.Debug(ctx, "token list updated", "account_id", accountID, "tokens", len(account.Tokens))
		return nil
	})
}
