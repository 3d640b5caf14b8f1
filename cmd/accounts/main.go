package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/reelkeeper/internal/adminctl"
	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server"
	"github.com/dmitrijs2005/reelkeeper/internal/server/accounts"
	"github.com/dmitrijs2005/reelkeeper/internal/server/config"
	"github.com/dmitrijs2005/reelkeeper/internal/server/credentials"
)

func main() {

	ctx := context.Background()
	flags, cmd := adminctl.SplitArgs(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("%v", err)
	}

	backend, err := server.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer backend.Close()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	hasher := server.NewHasher(cfg)

	c := &adminctl.Commands{
		Accounts: accounts.NewService(backend.TxManager, backend.Repos, hasher, logger),
		Store:    credentials.NewStore(backend.TxManager, backend.Repos, hasher, logger),
		Out:      os.Stdout,
	}

	if err := c.Run(ctx, cmd); err != nil {
		if !errors.Is(err, adminctl.ErrUsage) {
			log.Print(err)
		}
		backend.Close()
		os.Exit(1)
	}
}
