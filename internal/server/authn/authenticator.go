// Package authn turns credentials into bearer tokens and bearer tokens back
// into sessions. Login and request verification both live here; the token
// lists themselves are owned by the credentials package.
package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/dmitrijs2005/reelkeeper/internal/dbx"
	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/auth"
	"github.com/dmitrijs2005/reelkeeper/internal/server/config"
	"github.com/dmitrijs2005/reelkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/reelkeeper/internal/server/hashing"
	"github.com/dmitrijs2005/reelkeeper/internal/server/models"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/repomanager"
)

// rehasher is implemented by hashers that can tell when a stored password
// hash should be upgraded.
type rehasher interface {
	NeedsRehash(hash string) bool
}

// Authenticator checks username/password pairs and issues access tokens.
type Authenticator struct {
	tx       dbx.TxManager
	repos    repomanager.RepositoryManager
	hasher   hashing.Hasher
	store    *credentials.Store
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
	log      logging.Logger

	// dummyHash is verified when the username is unknown so that both
	// failure paths cost one hash verification.
	dummyHash string
}

func NewAuthenticator(
	tx dbx.TxManager,
	repos repomanager.RepositoryManager,
	hasher hashing.Hasher,
	store *credentials.Store,
	cfg *config.Config,
	log logging.Logger,
) (*Authenticator, error) {
	secret, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("dummy secret: %w", err)
	}
	dummy, err := hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &Authenticator{
		tx:        tx,
		repos:     repos,
		hasher:    hasher,
		store:     store,
		secret:    []byte(cfg.SecretKey),
		lifetime:  cfg.AccessTokenValidityDuration,
		now:       time.Now,
		log:       log.With("module", "authenticator"),
		dummyHash: dummy,
	}, nil
}

// Authenticate returns the account when password matches. An unknown
// username and a wrong password both yield common.ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := a.repos.Accounts(a.tx.DB()).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.hasher.Verify(a.dummyHash, password)
			a.log.Info(ctx, "login failed", "username", username, "reason", "unknown user")
			return nil, common.ErrInvalidCredentials
		}
		a.log.Error(ctx, "account lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	if !a.hasher.Verify(account.PasswordHash, password) {
		a.log.Info(ctx, "login failed", "username", username, "reason", "bad password")
		return nil, common.ErrInvalidCredentials
	}

	return account, nil
}

// IssueToken signs a fresh access token for account. It does not record
// the token anywhere.
func (a *Authenticator) IssueToken(account *models.Account) (string, error) {
	return auth.GenerateToken(account.Username, a.secret, a.lifetime, a.now())
}

// Login authenticates the user, issues a token and registers it as active.
// Expired records of the account are pruned and legacy password hashes are
// upgraded on the way; failures of those two steps are logged only.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	account, err := a.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	token, err := a.IssueToken(account)
	if err != nil {
		a.log.Error(ctx, "token signing failed", "username", username, "error", err)
		return "", common.ErrorInternal
	}

	if n, err := a.store.PruneExpired(ctx, account.ID, a.expired); err != nil {
		a.log.Warn(ctx, "prune expired tokens failed", "username", username, "error", err)
	} else if n > 0 {
		a.log.Debug(ctx, "pruned expired tokens", "username", username, "count", n)
	}

	if err := a.store.Register(ctx, account.ID, token); err != nil {
		a.log.Error(ctx, "token registration failed", "username", username, "error", err)
		return "", common.ErrorInternal
	}

	a.upgradePasswordHash(ctx, account, password)

	a.log.Info(ctx, "login succeeded", "username", username)
	return token, nil
}

// expired reports whether a token recorded at r.IssuedAt has outlived the
// configured lifetime.
func (a *Authenticator) expired(r models.TokenRecord) bool {
	return !a.now().Before(r.IssuedAt.Add(a.lifetime))
}

func (a *Authenticator) upgradePasswordHash(ctx context.Context, account *models.Account, password string) {
	rh, ok := a.hasher.(rehasher)
	if !ok || !rh.NeedsRehash(account.PasswordHash) {
		return
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		a.log.Warn(ctx, "password rehash failed", "username", account.Username, "error", err)
		return
	}

	err = a.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.repos.Accounts(tx)
		fresh, err := repo.GetByIDForUpdate(ctx, account.ID)
		if err != nil {
			return err
		}
		if fresh.PasswordHash != account.PasswordHash {
			return nil
		}
		fresh.PasswordHash = hash
		return repo.Save(ctx, fresh)
	})
	if err != nil {
		a.log.Warn(ctx, "password rehash failed", "username", account.Username, "error", err)
		return
	}
	a.log.Info(ctx, "password hash upgraded", "username", account.Username)
}
