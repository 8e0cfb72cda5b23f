package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "charm.land/log/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/ridematch/ridematch/config"
	"github.com/ridematch/ridematch/postgres"
	"github.com/ridematch/ridematch/postgres/migrator"
	"github.com/ridematch/ridematch/pubsub"
	"github.com/ridematch/ridematch/service"
	"github.com/ridematch/ridematch/web"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	errLogger := slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	}))
	infoLogger := slog.New(charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		ReportTimestamp: true,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("open postgres connection pool: %w", err)
	}

	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	migrationStart := time.Now()
	infoLogger.Info("starting postgres migrations")

	if err := migrator.Migrate(ctx, dbPool, postgres.MigrationsFS); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}

	infoLogger.Info("finished postgres migrations", "took", time.Since(migrationStart))

	var ps pubsub.PubSub = pubsub.NewInmem()
	if cfg.NatsURL != "" {
		natsConn, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}

		defer natsConn.Close()

		ps = pubsub.NewNats(natsConn)
		infoLogger.Info("using nats for realtime events", "url", cfg.NatsURL)
	}

	svc := service.New(&service.Config{
		Postgres:          postgres.New(dbPool),
		PubSub:            ps,
		Logger:            infoLogger,
		BaseCtx:           context.Background(),
		BackgroundTimeout: cfg.BackgroundTimeout,
	})

	go func() {
		for err := range svc.Errs() {
			errLogger.Error("service error", "error", err)
		}
	}()

	handler := &web.Handler{
		Service:     svc,
		ErrorLogger: errLogger,
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		infoLogger.Info("starting ridematch server", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start ridematch server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		t := time.NewTicker(cfg.ExpireInterval)
		defer t.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if _, err := svc.ExpireOldRequests(gctx); err != nil {
					errLogger.Error("expire old requests", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		t := time.NewTicker(cfg.SoftDeleteInterval)
		defer t.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if _, err := svc.SoftDeleteExpiredRequests(gctx); err != nil {
					errLogger.Error("soft delete expired requests", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	return svc.Close()
}
