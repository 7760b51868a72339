package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"sheetshare.org/internal/audit"
	"sheetshare.org/internal/backend"
	"sheetshare.org/internal/config"
	"sheetshare.org/internal/migrate"
	"sheetshare.org/internal/obs"
	"sheetshare.org/internal/store"
)

func main() {
	log.SetFlags(0)
	var (
		configPath = flag.String("config", os.Getenv("SHEETSHARE_CONFIG"), "Path to YAML config")
		loginID    = flag.String("login", "", "Login ID for reset-admin (defaults to the configured root admin)")
		password   = flag.String("password", "", "Password for reset-admin (random when empty)")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: sheetctl [up|status|reset-admin]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.ObsLog("sheetctl"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	grid, closeGrid, err := backend.OpenGrid(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = closeGrid() }()

	st := store.New(grid)
	mgr := migrate.NewManager(grid,
		migrate.WithLogger(logger),
		migrate.WithAuditor(audit.NewRecorder(logger, audit.SheetSink{Store: st}, audit.LogSink{Logger: logger.Named("audit")})),
	)

	switch flag.Arg(0) {
	case "up":
		err = up(ctx, mgr)
	case "status":
		err = status(ctx, mgr)
	case "reset-admin":
		login := *loginID
		if login == "" {
			login = cfg.Auth.RootLoginID
		}
		err = resetAdmin(ctx, mgr, st, login, *password)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

func up(ctx context.Context, mgr *migrate.Manager) error {
	changes, err := mgr.Up(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println("schema up to date")
		return nil
	}
	for _, c := range changes {
		var parts []string
		if c.Created {
			parts = append(parts, "created")
		}
		if len(c.AddedColumns) > 0 {
			parts = append(parts, "added "+strings.Join(c.AddedColumns, ","))
		}
		if c.Backfilled > 0 {
			parts = append(parts, fmt.Sprintf("backfilled %d", c.Backfilled))
		}
		fmt.Printf("%s: %s\n", c.Sheet, strings.Join(parts, "; "))
	}
	return nil
}

func status(ctx context.Context, mgr *migrate.Manager) error {
	sheets, err := mgr.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		switch {
		case !s.Exists:
			fmt.Printf("%s\tmissing\n", s.Name)
		case !s.OK():
			fmt.Printf("%s\t%d rows\tmissing columns: %s\n", s.Name, s.Rows, strings.Join(s.MissingColumns, ","))
		default:
			fmt.Printf("%s\t%d rows\tok\n", s.Name, s.Rows)
		}
	}
	return nil
}

func resetAdmin(ctx context.Context, mgr *migrate.Manager, st *store.Store, loginID, password string) error {
	res, err := mgr.ResetRootAdmin(ctx, st, loginID, password)
	if err != nil {
		return err
	}
	verb := "reset"
	if res.Created {
		verb = "created"
	}
	fmt.Printf("admin %s: login_id=%s user_id=%s\n", verb, res.LoginID, res.UserID)
	if password == "" {
		fmt.Printf("generated password: %s\n", res.Password)
	}
	return nil
}
