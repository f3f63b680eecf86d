// Command vyapari-import copies the legacy MySQL database into a data
// directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/audit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/legacy"
	"github.com/vyaparitrack/vyaparitrack/internal/utils"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "vyapari-import: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	dsn := flag.String("dsn", "", "MySQL DSN, used verbatim (overrides -mysql-*)")
	addr := flag.String("mysql-addr", "localhost:3306", "MySQL host:port")
	user := flag.String("mysql-user", "root", "MySQL user")
	dbName := flag.String("mysql-db", "vyaparitrack", "MySQL database name")
	dataDir := flag.String("data-dir", "./data", "Data directory to import into")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	skipUsers := flag.Bool("skip-users", false, "Do not import user accounts")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	ll := &slog.LevelVar{}
	slog.SetDefault(utils.NewLogger(os.Stderr, ll))
	if err := utils.SetLevel(ll, *logLevel); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dsn == "" {
		// The password is never taken from a flag so it stays out of ps.
		*dsn = legacy.DSN(*addr, *user, os.Getenv("MYSQL_PASSWORD"), *dbName)
	}
	src, err := legacy.OpenSQL(ctx, *dsn)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	cfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load server_config.json: %w", err)
	}
	dbDir := filepath.Join(*dataDir, "db")
	store, err := inventory.Open(dbDir)
	if err != nil {
		return err
	}
	if store.Vendors.Len() != 0 {
		return errors.New("the data directory already holds vendors; import into an empty one")
	}
	var users *identity.UserService
	if !*skipUsers {
		if users, err = identity.NewUserService(filepath.Join(dbDir, "users.jsonl"), cfg.Quotas.MaxUsers); err != nil {
			return err
		}
	}
	repo, err := audit.Open(dbDir)
	if err != nil {
		return err
	}

	report, err := legacy.NewImporter(src, store, users).Run(ctx)
	if err != nil {
		return err
	}
	if _, err := repo.Commit(ctx, audit.Author{}, "import legacy MySQL data"); err != nil {
		return err
	}
	for _, t := range report.Tables {
		fmt.Printf("%-16s imported %5d  skipped %5d\n", t.Table, t.Imported, t.Skipped)
	}
	if n := report.Skipped(); n != 0 {
		slog.WarnContext(ctx, "some rows were skipped, see the warnings above", "count", n)
	}
	return nil
}
