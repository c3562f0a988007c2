package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/buildinfo"
	"github.com/dmitrijs2005/mindshift/internal/client/auth"
	"github.com/dmitrijs2005/mindshift/internal/client/cli"
	"github.com/dmitrijs2005/mindshift/internal/client/config"
	"github.com/dmitrijs2005/mindshift/internal/client/localdb"
	"github.com/dmitrijs2005/mindshift/internal/client/persist"
	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/client/remote/memory"
	"github.com/dmitrijs2005/mindshift/internal/client/remote/postgres"
	"github.com/dmitrijs2005/mindshift/internal/client/remote/redis"
	"github.com/dmitrijs2005/mindshift/internal/client/remotesync"
	"github.com/dmitrijs2005/mindshift/internal/client/repositories/snapshot"
	"github.com/dmitrijs2005/mindshift/internal/client/services"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
	"github.com/dmitrijs2005/mindshift/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.Debug)

	db, err := localdb.Open(ctx, cfg.LocalDBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := snapshot.NewSQLiteRepository(db)

	initial := persist.Load(ctx, repo, logger)
	st := store.New(initial)

	writer := persist.NewWriter(repo, logger)
	writer.Seed(st.Get())
	unregister := writer.Register(st)
	defer func() {
		unregister()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := writer.Close(ctx); err != nil {
			logger.Warn(ctx, "persist writer close", "error", err)
		}
	}()

	docs, err := openRemote(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer docs.Close()

	var app *cli.App
	opts := remotesync.DefaultOptions()
	opts.QueueSize = cfg.QueueSize
	opts.MaxAttempts = cfg.PushMaxAttempts
	opts.BackoffBase = cfg.PushBackoffBase
	opts.BackoffMax = cfg.PushBackoffMax
	opts.ResubscribeAttempts = cfg.ResubscribeAttempts
	opts.OnBusy = services.SyncingReporter(st)
	opts.OnFailure = func(f remotesync.SyncFailure) { app.ReportFailure(f) }
	adapter := remotesync.New(docs, services.ApplyRemote(st), logger, opts)

	provider := auth.NewTokenProvider([]byte(cfg.TokenSecret), cfg.SessionTTL)
	manager := auth.NewManager(provider, auth.NewRepoTokenStore(repo), logger)
	defer manager.Close()

	coord := services.NewCoordinator(st, adapter, logger)
	coord.Bind(manager)
	defer coord.Close()

	account := services.NewAccountService(st, adapter, logger)
	app = cli.NewApp(st, manager, provider, account)

	if err := manager.Start(ctx); err != nil {
		logger.Warn(ctx, "silent sign-in failed", "error", err)
	}

	app.Run(ctx)
	return nil
}

func openRemote(ctx context.Context, cfg *config.Config, logger logging.Logger) (remote.DocumentStore, error) {
	switch cfg.RemoteBackend {
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN, logger)
	case config.BackendRedis:
		return redis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	case config.BackendMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown remote backend %q", cfg.RemoteBackend)
}
