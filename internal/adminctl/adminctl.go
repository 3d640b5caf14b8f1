// Package adminctl implements the account administration commands used by
// cmd/accounts: create, disable, enable, delete and revoke-all.
package adminctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/reelkeeper/internal/server/accounts"
	"github.com/dmitrijs2005/reelkeeper/internal/server/credentials"
)

// ErrUsage is returned for unknown commands or wrong arguments.
var ErrUsage = errors.New("usage error")

const usage = `usage: accounts [server flags] <command> [args]

commands:
  create <username> <email>   create an account (password is prompted)
  disable <username>          block the account
  enable <username>           unblock the account
  delete <username>           delete the account and its profiles
  revoke-all <username>       log the account out of every session
`

// Commands executes administration commands against the given services.
type Commands struct {
	Accounts *accounts.Service
	Store    *credentials.Store
	Out      io.Writer
}

// SplitArgs separates server flags from the command and its arguments.
// The command is the first argument that names a known command.
func SplitArgs(args []string) (flags []string, cmd []string) {
	for i, a := range args {
		if _, ok := commandNames[a]; ok {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

var commandNames = map[string]struct{}{
	"create": {}, "disable": {}, "enable": {}, "delete": {}, "revoke-all": {},
}

// Run executes cmd, whose first element is the command name.
func (c *Commands) Run(ctx context.Context, cmd []string) error {
	if len(cmd) == 0 {
		fmt.Fprint(c.Out, usage)
		return ErrUsage
	}

	fs := flag.NewFlagSet(cmd[0], flag.ContinueOnError)
	fs.SetOutput(c.Out)
	if err := fs.Parse(cmd[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	args := fs.Args()

	switch cmd[0] {
	case "create":
		if len(args) != 2 {
			return c.usageErr("create <username> <email>")
		}
		return c.create(ctx, args[0], args[1])
	case "disable", "enable", "delete", "revoke-all":
		if len(args) != 1 {
			return c.usageErr(cmd[0] + " <username>")
		}
		return c.byUsername(ctx, cmd[0], args[0])
	default:
		fmt.Fprint(c.Out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd[0])
	}
}

func (c *Commands) create(ctx context.Context, username, email string) error {
	password, err := promptPassword(c.Out)
	if err != nil {
		return err
	}

	account, err := c.Accounts.Create(ctx, username, email, password)
	if err != nil {
		return fmt.Errorf("create %s: %w", username, err)
	}

	fmt.Fprintf(c.Out, "created account %s (%s)\n", account.Username, account.ID)
	return nil
}

func (c *Commands) byUsername(ctx context.Context, command, username string) error {
	account, err := c.Accounts.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("%s %s: %w", command, username, err)
	}

	switch command {
	case "disable":
		err = c.Accounts.SetDisabled(ctx, account.ID, true)
	case "enable":
		err = c.Accounts.SetDisabled(ctx, account.ID, false)
	case "delete":
		err = c.Accounts.Delete(ctx, account.ID)
	case "revoke-all":
		err = c.Store.RevokeAll(ctx, account.ID)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", command, username, err)
	}

	fmt.Fprintf(c.Out, "%s: %s done\n", username, command)
	return nil
}

func (c *Commands) usageErr(form string) error {
	fmt.Fprintf(c.Out, "usage: accounts %s\n", form)
	return ErrUsage
}
