// Package backend opens the external resources a process is configured for.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sheetshare.org/internal/config"
	"sheetshare.org/internal/fileshare"
	"sheetshare.org/internal/lockout"
	"sheetshare.org/internal/store"
	"sheetshare.org/internal/store/sheets"
	"sheetshare.org/internal/store/xlsx"
)

// CloseFunc releases a resource.
type CloseFunc func() error

func noClose() error { return nil }

// OpenGrid returns the grid for cfg.Store.Driver.
func OpenGrid(ctx context.Context, cfg *config.Config) (store.Grid, CloseFunc, error) {
	switch cfg.Store.Driver {
	case config.DriverSheets:
		creds, err := cfg.GoogleCredentials(ctx, sheets.Scope)
		if err != nil {
			return nil, nil, err
		}
		g, err := sheets.New(ctx, cfg.Store.SpreadsheetID, creds)
		if err != nil {
			return nil, nil, err
		}
		return g, noClose, nil
	case config.DriverXLSX:
		g, err := xlsx.Open(cfg.Store.XLSXPath)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	case config.DriverMemory:
		return store.NewSchemaMemoryGrid(), noClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenGranter returns the Drive granter. Outside the sheets driver, with no
// Google credentials configured, grants are only logged.
func OpenGranter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (fileshare.Granter, error) {
	if cfg.Store.Driver != config.DriverSheets && cfg.Google.CredentialsFile == "" && cfg.Google.PrivateKey == "" {
		logger.Warn("google credentials not configured; file grants are logged only")
		return fileshare.GranterFunc(func(_ context.Context, fileID, email string, level fileshare.Level) error {
			logger.Info("file grant skipped",
				zap.String("file_id", fileID),
				zap.String("email", email),
				zap.String("level", string(level)),
			)
			return nil
		}), nil
	}
	creds, err := cfg.GoogleCredentials(ctx, fileshare.DriveScope)
	if err != nil {
		return nil, err
	}
	return fileshare.NewGoogleDrive(ctx, creds)
}

// OpenLimiter returns a Redis-backed lockout when Redis is configured and an
// in-process one otherwise.
func OpenLimiter(ctx context.Context, cfg *config.Config) (lockout.Limiter, CloseFunc, error) {
	lc := lockout.Config{MaxAttempts: cfg.Auth.LockoutMaxAttempts, Window: cfg.Auth.LockoutWindow}
	if cfg.Redis.Addr == "" {
		return lockout.NewMemory(lc), noClose, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return lockout.NewRedis(client, lc), client.Close, nil
}

// OpenAuditDB opens the Postgres audit mirror, or returns nil when none is
// configured.
func OpenAuditDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Audit.PostgresDSN == "" {
		return nil, nil
	}
	db, err := sql.Open("pgx", cfg.Audit.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	return db, nil
}
