package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/reelkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":8000")
//	-d string     PostgreSQL DSN, or "memory"
//	-s string     token signing secret
//	-t duration   access token validity (e.g. "8760h")
//	-l string     log level
//	-f string     log format ("json" or "text")
//	-hash-memory uint       argon2id memory in KiB
//	-hash-iterations uint   argon2id passes
//	-hash-parallelism uint  argon2id lanes
//
// Arguments that belong to other components are filtered out first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-d", "-s", "-t", "-l", "-f",
		"-hash-memory", "-hash-iterations", "-hash-parallelism",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	memory := fs.Uint("hash-memory", uint(config.HashMemoryKiB), "argon2id memory (KiB)")
	iterations := fs.Uint("hash-iterations", uint(config.HashIterations), "argon2id iterations")
	parallelism := fs.Uint("hash-parallelism", uint(config.HashParallelism), "argon2id parallelism")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *parallelism > 255 {
		return fmt.Errorf("parse flags: hash parallelism %d exceeds 255", *parallelism)
	}

	config.HashMemoryKiB = uint32(*memory)
	config.HashIterations = uint32(*iterations)
	config.HashParallelism = uint8(*parallelism)
	return nil
}
