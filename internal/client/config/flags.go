package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/mindshift/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string   local database file
//	-b string   remote backend: memory, postgres or redis
//	-dsn string postgres connection string
//	-r string   redis address
//	-log string log format: console or json
//	-debug      enable debug logging
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// components do not break parsing. It panics on malformed values.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-dsn", "-r", "-log"}, "-debug")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database file")
	fs.StringVar(&cfg.RemoteBackend, "b", cfg.RemoteBackend, "remote backend: memory, postgres or redis")
	fs.StringVar(&cfg.PostgresDSN, "dsn", cfg.PostgresDSN, "postgres connection string")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.LogFormat, "log", cfg.LogFormat, "log format: console or json")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
