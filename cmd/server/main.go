package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/tabletop/internal/config"
	"github.com/playperu/tabletop/internal/database"
	"github.com/playperu/tabletop/internal/handler/health"
	"github.com/playperu/tabletop/internal/hub"
	"github.com/playperu/tabletop/internal/migrations"
	"github.com/playperu/tabletop/internal/persist"
	"github.com/playperu/tabletop/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Storage ---
	adapter, checks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	store := persist.LoadOrCreate(ctx, adapter, logger)
	writer := persist.NewWriter(store, adapter, logger, cfg.PersistTimeout)

	// --- Hub + HTTP Server ---
	h := hub.New(store, writer, logger)
	srv := server.New(server.Options{
		Addr:       cfg.HTTPAddr,
		CORSOrigin: cfg.CORSOrigin,
		PeerBuffer: cfg.PeerBuffer,
		Checks:     checks,
		StaticDir:  cfg.StaticDir,
	}, logger, h, store)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return h.Run(gctx)
	})

	g.Go(func() error {
		return writer.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// openStore connects the configured backend. The returned close func is
// always safe to call.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (persist.Adapter, map[string]health.Checker, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendLibSQL:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to libsql: %w", err)
		}
		if err := migrations.Run(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to libsql", "path", cfg.DBPath)

		s := persist.NewSQLite(db)
		return s, map[string]health.Checker{"libsql": s}, func() { db.Close() }, nil

	case config.BackendRedis:
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("connected to redis", "key", cfg.RedisKey)

		r := persist.NewRedis(rdb, cfg.RedisKey)
		return r, map[string]health.Checker{"redis": r}, func() { rdb.Close() }, nil

	default:
		logger.Warn("using in-memory storage, the playground will not survive a restart")
		return persist.NewMemory(), nil, func() {}, nil
	}
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
