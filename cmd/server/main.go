package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-pick/internal/config"
	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/httpapi"
	"github.com/DoyleJ11/lol-pick/internal/hub"
	"github.com/DoyleJ11/lol-pick/internal/logging"
	"github.com/DoyleJ11/lol-pick/internal/metrics"
	"github.com/DoyleJ11/lol-pick/internal/rng"
	"github.com/DoyleJ11/lol-pick/internal/store"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	h := hub.NewHub(ctx, hub.Options{
		Store:       st,
		NewRand:     randFactory(cfg.Seed),
		Log:         logger,
		Metrics:     m,
		IdleTimeout: cfg.LobbyIdle,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, logger, m),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store.Driver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	h.Inbox() <- hub.ShutdownHub{}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.StoreFile:
		st, err := store.NewFile(cfg.Dir)
		return st, func() {}, err
	case config.StorePostgres:
		st, err := store.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// randFactory hands every lobby its own source. With a fixed seed each lobby
// replays the same sequence, which keeps demos reproducible.
func randFactory(seed *uint64) func() engine.Rand {
	if seed == nil {
		return func() engine.Rand { return rng.Random() }
	}
	s := *seed
	return func() engine.Rand { return rng.Seeded(s) }
}
