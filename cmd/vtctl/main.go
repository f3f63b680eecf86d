// Command vtctl is the terminal client of a VyapariTrack server.
//
// It keeps its login in a session file and renders inventory tables with the
// same column presets as the server, either locally or through the server's
// table endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vyaparitrack/vyaparitrack/internal/apiclient"
	"github.com/vyaparitrack/vyaparitrack/internal/session"
	"github.com/vyaparitrack/vyaparitrack/internal/utils"
)

// app is the state shared by every command.
type app struct {
	server      string
	sessionFile string
	logLevel    string

	out    io.Writer
	store  *session.Store
	client *apiclient.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "vtctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	server := os.Getenv("VYAPARI_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	root := &cobra.Command{
		Use:           "vtctl",
		Short:         "Terminal client for VyapariTrack",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.server, "server", server, "Server base URL (env VYAPARI_SERVER)")
	f.StringVar(&a.sessionFile, "session-file", "", "Session file (default $XDG_CONFIG_HOME/vyaparitrack/session.yaml)")
	f.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.SetOut(a.out)

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newThemeCmd(a),
		newScopeCmd(a),
		newViewsCmd(a),
		newSummaryCmd(a),
		newListCmd(a),
	)
	return root
}

// init opens the session and builds the client.
func (a *app) init() error {
	ll := &slog.LevelVar{}
	slog.SetDefault(utils.NewLogger(os.Stderr, ll))
	if err := utils.SetLevel(ll, a.logLevel); err != nil {
		return err
	}
	path := a.sessionFile
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return fmt.Errorf("failed to locate session file: %w", err)
		}
	}
	store, err := session.Open(path)
	if err != nil {
		return err
	}
	a.store = store
	a.client = apiclient.New(a.server, store, apiclient.OnUnauthorized(func() {
		fmt.Fprintln(os.Stderr, "Your session has expired. Run `vtctl login` to sign in again.")
	}))
	slog.Debug("session", "path", path, "server", a.server)
	return nil
}

// requireLogin fails early when no token is stored.
func (a *app) requireLogin() error {
	if !a.store.Get().LoggedIn() {
		return errors.New("not logged in; run `vtctl login`")
	}
	return nil
}
