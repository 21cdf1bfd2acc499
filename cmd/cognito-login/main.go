// Command cognito-login runs the demo HTTP front end for the
// authentication core, grounded on the teacher's cmd/server/main.go
// wiring: load config, open the durable store, construct the pool,
// serve, shut down on signal.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cognitosrp/internal/authflow"
	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/config"
	"cognitosrp/internal/server"
	"cognitosrp/internal/tokenstore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.PoolConfigFromEnv()
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	store, err := tokenstore.OpenSQLiteStore(cfg.TokenStorePath)
	if err != nil {
		logger.Error("opening token store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	facade := cognitorpc.NewHTTPFacade(cfg.Endpoint, &http.Client{}, 5, 10)
	facade.Logger = logger

	ts := tokenstore.New(store)
	ts.Logger = logger

	pool, err := authflow.NewPool(cfg.ClientID, cfg.PoolIDSuffix, cfg.Paranoia, facade, ts)
	if err != nil {
		logger.Error("constructing pool", "error", err)
		os.Exit(1)
	}
	pool.Logger = logger

	srv := server.New(pool, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.Address()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
