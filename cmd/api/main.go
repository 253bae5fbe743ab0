// Command api runs the multi-tenant production management HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"vbsplatform.org/internal/auth"
	"vbsplatform.org/internal/config"
	"vbsplatform.org/internal/httpapi"
	"vbsplatform.org/internal/obs"
	"vbsplatform.org/internal/store"
	"vbsplatform.org/internal/store/fs"
	"vbsplatform.org/internal/store/pg"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	obs.Init()
	obs.InitBuildInfo(version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		st store.Store
		db *sql.DB
	)
	if settings.PGDSN != "" {
		db, err = sql.Open("pgx", settings.PGDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		pgStore := pg.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		st = pgStore
		obs.Logger().Println(`{"level":"info","msg":"using postgres store"}`)
	} else {
		fsStore, err := fs.New(settings.DataDir)
		if err != nil {
			return fmt.Errorf("open data dir: %w", err)
		}
		defer fsStore.Close()
		st = fsStore
		obs.Logger().Println(`{"level":"info","msg":"using file store","data_dir":"` + settings.DataDir + `"}`)
	}

	codec, err := auth.NewCodec(settings.JWTSecretKey, auth.WithTTL(settings.TokenTTL()))
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(st, codec, auth.WithBcryptCost(settings.BcryptRounds))
	if err != nil {
		return err
	}

	api := httpapi.New(st, authSvc, httpapi.ReadyProbe{DB: db, DataDir: settings.DataDir}, version, settings.CORSOrigins)

	srv := &http.Server{
		Addr:              settings.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv, grpcHealth := httpapi.NewGRPCServer()
	if settings.GRPCAddr != "" {
		lis, err := net.Listen("tcp", settings.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		go func() {
			obs.Logger().Println(`{"level":"info","msg":"grpc listening","addr":"` + settings.GRPCAddr + `"}`)
			if err := grpcSrv.Serve(lis); err != nil {
				obs.Logger().Println(`{"level":"error","msg":"grpc serve failed","error":"` + err.Error() + `"}`)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		obs.Logger().Println(`{"level":"info","msg":"http listening","addr":"` + settings.Addr() + `"}`)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	obs.SetReady(true)
	httpapi.SetServing(grpcHealth, true)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	obs.SetReady(false)
	httpapi.SetServing(grpcHealth, false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if settings.GRPCAddr != "" {
		grpcSrv.GracefulStop()
	}
	obs.Logger().Println(`{"level":"info","msg":"shutdown complete"}`)
	return nil
}
