package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/backend"
	"sheetshare.org/internal/config"
	"sheetshare.org/internal/fileshare"
	"sheetshare.org/internal/httpapi"
	"sheetshare.org/internal/lockout"
	"sheetshare.org/internal/obs"
	"sheetshare.org/internal/policy"
	"sheetshare.org/internal/service"
	"sheetshare.org/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHEETSHARE_CONFIG"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.ObsLog("sheetshare-api"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := obs.InitTracing(ctx, cfg.ObsTracing("sheetshare-api"))
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	grid, closeGrid, err := backend.OpenGrid(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeGrid() }()
	st := store.New(grid)

	sinks := []audit.Sink{audit.SheetSink{Store: st}, audit.LogSink{Logger: logger.Named("audit")}}
	var db *sql.DB
	if db, err = backend.OpenAuditDB(ctx, cfg); err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		sqlSink, err := audit.NewSQLSink(ctx, db)
		if err != nil {
			return err
		}
		sinks = append(sinks, sqlSink)
	}
	recorder := audit.NewRecorder(logger, sinks...)

	limiter, closeLimiter, err := backend.OpenLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLimiter() }()

	granter, err := backend.OpenGranter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pol := policy.New(cfg.Auth.RootLoginID)
	svc, err := buildServices(st, recorder, granter, limiter, pol, logger)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessionCodec(cfg.Session.Password, cfg.Session.TTL)
	if err != nil {
		return err
	}

	api, err := httpapi.New(svc, sessions, httpapi.Config{
		Version:             version,
		CookieSecure:        cfg.HTTP.CookieSecure,
		AllowedOrigins:      cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:        cfg.HTTP.MaxBodyBytes,
		LoginRate:           cfg.HTTP.LoginRate,
		LoginBurst:          cfg.HTTP.LoginBurst,
		ServiceAccountEmail: cfg.ServiceAccountEmail(),
		Ready:               httpapi.ReadyProbe{Grid: grid, DB: db},
		Logger:              logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       orDuration(cfg.HTTP.ReadTimeout, 15*time.Second),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      orDuration(cfg.HTTP.WriteTimeout, 30*time.Second),
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting sheetshare-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("store", cfg.Store.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func buildServices(st *store.Store, recorder *audit.Recorder, granter fileshare.Granter, limiter lockout.Limiter, pol policy.Policy, logger *zap.Logger) (httpapi.Services, error) {
	facilities, err := service.NewFacilities(st, recorder, pol)
	if err != nil {
		return httpapi.Services{}, err
	}
	users, err := service.NewUsers(st, st, recorder, pol,
		service.WithLimiter(limiter),
		service.WithUserLogger(logger),
	)
	if err != nil {
		return httpapi.Services{}, err
	}
	records, err := service.NewRecords(st, st, st, recorder, pol, logger)
	if err != nil {
		return httpapi.Services{}, err
	}
	access, err := service.NewAccess(st, st, st, granter, pol, logger)
	if err != nil {
		return httpapi.Services{}, err
	}
	return httpapi.Services{
		Facilities: facilities,
		Users:      users,
		Records:    records,
		Access:     access,
	}, nil
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
