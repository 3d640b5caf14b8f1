package authn

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/dmitrijs2005/reelkeeper/internal/dbx"
	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/auth"
	"github.com/dmitrijs2005/reelkeeper/internal/server/config"
	"github.com/dmitrijs2005/reelkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/reelkeeper/internal/server/models"
	"github.com/dmitrijs2005/reelkeeper/internal/server/repositories/repomanager"
)

// Stage is a step of bearer token verification.
type Stage int

const (
	StagePresented Stage = iota
	StageDecoded
	StageExpiryChecked
	StageMembershipChecked
	StageGranted
	StageDenied
)

func (s Stage) String() string {
	switch s {
	case StagePresented:
		return "presented"
	case StageDecoded:
		return "decoded"
	case StageExpiryChecked:
		return "expiry_checked"
	case StageMembershipChecked:
		return "membership_checked"
	case StageGranted:
		return "granted"
	case StageDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// AccessDecision carries policy facts evaluated after identity is proven.
type AccessDecision struct {
	Disabled bool
}

// Session is the result of a granted verification.
type Session struct {
	Account  *models.Account
	Token    string
	Decision AccessDecision
}

// Authorize returns common.ErrAccountDisabled when the account may not use
// the service even though its token is valid.
func (s *Session) Authorize() error {
	if s.Decision.Disabled {
		return common.ErrAccountDisabled
	}
	return nil
}

// Verifier validates presented bearer tokens against the signing secret
// and the account's token list. Nothing is cached between calls.
type Verifier struct {
	tx     dbx.TxManager
	repos  repomanager.RepositoryManager
	store  *credentials.Store
	secret []byte
	now    func() time.Time
	log    logging.Logger
}

func NewVerifier(tx dbx.TxManager, repos repomanager.RepositoryManager, store *credentials.Store, cfg *config.Config, log logging.Logger) *Verifier {
	return &Verifier{
		tx:     tx,
		repos:  repos,
		store:  store,
		secret: []byte(cfg.SecretKey),
		now:    time.Now,
		log:    log.With("module", "verifier"),
	}
}

// Verify decodes token, checks its expiry and then its membership in the
// subject's token list. Expired tokens fail with common.ErrTokenExpired
// whether or not they are still stored; every other rejection is
// common.ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := auth.ParseToken(token, v.secret, v.now())
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, v.deny(ctx, StageExpiryChecked, "", common.ErrTokenExpired)
		}
		return nil, v.deny(ctx, StageDecoded, "", common.ErrInvalidToken)
	}
	username := claims.Subject

	account, err := v.repos.Accounts(v.tx.DB()).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, v.deny(ctx, StageMembershipChecked, username, common.ErrInvalidToken)
		}
		v.log.Error(ctx, "account lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	if !v.store.Check(account, token) {
		return nil, v.deny(ctx, StageMembershipChecked, username, common.ErrInvalidToken)
	}

	v.log.Debug(ctx, "token verified", "username", username, "stage", StageGranted.String())
	return &Session{
		Account:  account,
		Token:    token,
		Decision: AccessDecision{Disabled: account.Disabled},
	}, nil
}

// Logout revokes the token the session was verified with.
func (v *Verifier) Logout(ctx context.Context, s *Session) error {
	if err := v.store.Revoke(ctx, s.Account.ID, s.Token); err != nil {
		return err
	}
	v.log.Info(ctx, "logout", "username", s.Account.Username)
	return nil
}

// LogoutAll revokes every token of the session's account.
func (v *Verifier) LogoutAll(ctx context.Context, s *Session) error {
	if err := v.store.RevokeAll(ctx, s.Account.ID); err != nil {
		return err
	}
	v.log.Info(ctx, "logout from all sessions", "username", s.Account.Username)
	return nil
}

// deny logs the stage at which verification failed and returns err.
func (v *Verifier) deny(ctx context.Context, failed Stage, username string, err error) error {
	v.log.Info(ctx, "token rejected",
		"username", username,
		"stage", StageDenied.String(),
		"failed_at", failed.String(),
		"reason", err)
	return err
}
