// Package main is the entry point for the VyapariTrack server.
//
// It serves the inventory REST API over JSONL tables kept in a data
// directory, records every change in a git history of that directory and
// exposes Prometheus metrics. Configuration is read from CLI flags, a .env
// file (for OAuth) and server_config.json (for JWT secret, VAPID keys,
// quotas and rate limits).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vyaparitrack/vyaparitrack/internal/analytics"
	"github.com/vyaparitrack/vyaparitrack/internal/server"
	"github.com/vyaparitrack/vyaparitrack/internal/server/handlers"
	"github.com/vyaparitrack/vyaparitrack/internal/server/ipgeo"
	"github.com/vyaparitrack/vyaparitrack/internal/server/metrics"
	"github.com/vyaparitrack/vyaparitrack/internal/server/ratelimit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/audit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
	"github.com/vyaparitrack/vyaparitrack/internal/utils"
	"github.com/vyaparitrack/vyaparitrack/internal/viewcfg"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "vyaparitrack: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	baseURL := flag.String("base-url", "http://localhost", "Base URL for OAuth callbacks (e.g., https://example.com)")
	googleClientID := flag.String("google-client-id", "", "Google OAuth client ID")
	googleClientSecret := flag.String("google-client-secret", "", "Google OAuth client secret")
	msClientID := flag.String("ms-client-id", "", "Microsoft OAuth client ID")
	msClientSecret := flag.String("ms-client-secret", "", "Microsoft OAuth client secret")
	geoDB := flag.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	ll := &slog.LevelVar{}
	slog.SetDefault(utils.NewLogger(os.Stderr, ll))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := utils.LoadDotEnv(filepath.Join(*dataDir, ".env"))
	if err != nil {
		return err
	}
	// .env values apply to flags not set explicitly.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	for name, p := range map[string]*string{
		"http":                 httpAddr,
		"log-level":            logLevel,
		"base-url":             baseURL,
		"google-client-id":     googleClientID,
		"google-client-secret": googleClientSecret,
		"ms-client-id":         msClientID,
		"ms-client-secret":     msClientSecret,
		"geo-db":               geoDB,
	} {
		if !set[name] {
			if v := env[strings.ToUpper(strings.ReplaceAll(name, "-", "_"))]; v != "" {
				*p = v
			}
		}
	}
	if err := utils.SetLevel(ll, *logLevel); err != nil {
		return err
	}
	if (*googleClientID == "") != (*googleClientSecret == "") {
		return errors.New("google-client-id and google-client-secret must both be set or both be empty")
	}
	if (*msClientID == "") != (*msClientSecret == "") {
		return errors.New("ms-client-id and ms-client-secret must both be set or both be empty")
	}

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	// Append port to base URL if localhost and no port specified
	if u, err := url.Parse(*baseURL); err == nil && u.Port() == "" && u.Hostname() == "localhost" {
		if _, p, err := net.SplitHostPort(addr); err == nil {
			u.Host = net.JoinHostPort(u.Hostname(), p)
			*baseURL = u.String()
		}
	}

	serverCfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load server_config.json: %w", err)
	}
	views, err := viewcfg.Load(*dataDir)
	if err != nil {
		return err
	}
	if err := handlers.CheckViews(views); err != nil {
		return fmt.Errorf("%s: %w", viewcfg.FileName, err)
	}

	dbDir := filepath.Join(*dataDir, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create db directory: %w", err)
	}
	store, err := inventory.Open(dbDir)
	if err != nil {
		return fmt.Errorf("failed to initialize inventory: %w", err)
	}
	userService, err := identity.NewUserService(filepath.Join(dbDir, "users.jsonl"), serverCfg.Quotas.MaxUsers)
	if err != nil {
		return fmt.Errorf("failed to initialize user service: %w", err)
	}
	sessionService, err := identity.NewSessionService(filepath.Join(dbDir, "sessions.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to initialize session service: %w", err)
	}
	pushService, err := identity.NewPushSubscriptionService(filepath.Join(dbDir, "push_subscriptions.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to initialize push subscription service: %w", err)
	}
	repo, err := audit.Open(dbDir)
	if err != nil {
		return fmt.Errorf("failed to initialize audit history: %w", err)
	}
	cleanupSessions(ctx, sessionService)

	// Open IP geolocation database if configured
	var geoChecker *ipgeo.Checker
	if *geoDB != "" {
		geoChecker, err = ipgeo.Open(*geoDB)
		if err != nil {
			return fmt.Errorf("failed to open geo database: %w", err)
		}
		defer func() { _ = geoChecker.Close() }()
		slog.InfoContext(ctx, "IP geolocation enabled", "db", *geoDB)
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}
	metrics.RegisterActiveSessions(sessionService.CountActive)

	svc := &handlers.Services{
		Store:            store,
		User:             userService,
		Session:          sessionService,
		PushSubscription: pushService,
		Analytics:        analytics.New(store),
		Views:            views,
		Audit:            repo,
		GeoIP:            geoChecker,
	}
	buildVersion, _, _, _ := getBuildInfo()
	cfg := &handlers.Config{
		JWTSecret:      serverCfg.JWTSecret,
		BaseURL:        *baseURL,
		Version:        buildVersion,
		Quotas:         serverCfg.Quotas,
		VAPID:          serverCfg.VAPID,
		LowStockAlerts: serverCfg.LowStockAlerts,
	}
	if *googleClientID != "" {
		cfg.OAuth = append(cfg.OAuth, handlers.OAuthProvider{Name: "google", ClientID: *googleClientID, ClientSecret: *googleClientSecret})
	}
	if *msClientID != "" {
		cfg.OAuth = append(cfg.OAuth, handlers.OAuthProvider{Name: "microsoft", ClientID: *msClientID, ClientSecret: *msClientSecret})
	}
	limiters := ratelimit.New(serverCfg.RateLimits)
	defer limiters.Close()

	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cleanupSessions(ctx, sessionService)
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, cfg, limiters),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", buildVersion, "vendors", store.Vendors.Len(), "users", userService.Len())
		serverErr <- httpServer.ListenAndServe()
	}()

	// Wait for either context cancellation or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// cleanupSessions drops sessions expired for more than a week.
func cleanupSessions(ctx context.Context, s *identity.SessionService) {
	if count, err := s.CleanupExpired(7 * 24 * time.Hour); err != nil {
		slog.WarnContext(ctx, "Failed to cleanup expired sessions", "err", err)
	} else if count > 0 {
		slog.InfoContext(ctx, "Cleaned up expired sessions", "count", count)
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("vyaparitrack %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
