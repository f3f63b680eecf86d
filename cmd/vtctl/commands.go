package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/maruel/ksid"
	"github.com/spf13/cobra"
	"github.com/vyaparitrack/vyaparitrack/internal/session"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
				line, err := in.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}
			if password == "" {
				password = os.Getenv("VYAPARI_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := in.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			u, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (default env VYAPARI_PASSWORD, else prompt)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget the credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			u, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s <%s>\n", u.Name, u.Email)
			fmt.Fprintf(w, "role:   %s\n", u.Role)
			if !u.VendorID.IsZero() {
				fmt.Fprintf(w, "vendor: %s\n", u.VendorID)
			} else if vid := a.store.VendorID(); !vid.IsZero() {
				fmt.Fprintf(w, "scope:  %s\n", vid)
			}
			return nil
		},
	}
}

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Show or set the preferred theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(session.ThemeLight), string(session.ThemeDark), string(session.ThemeSystem)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				t := a.store.Get().Theme
				if t == "" {
					t = session.ThemeSystem
				}
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			}
			t, err := session.ParseTheme(args[0])
			if err != nil {
				return err
			}
			return a.store.Update(func(st *session.State) error {
				st.Theme = t
				return nil
			})
		},
	}
}

func newScopeCmd(a *app) *cobra.Command {
	var clearScope bool
	cmd := &cobra.Command{
		Use:   "scope [vendor-id]",
		Short: "Show or set the vendor that requests are narrowed to",
		Long:  "Admins not bound to a vendor see every vendor. The scope narrows their requests to one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case clearScope:
				return a.store.Update(func(st *session.State) error {
					st.VendorID = 0
					return nil
				})
			case len(args) == 0:
				vid := a.store.VendorID()
				if vid.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "all vendors")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), vid)
				}
				return nil
			}
			id, err := ksid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid vendor id %q: %w", args[0], err)
			}
			return a.store.Update(func(st *session.State) error {
				st.VendorID = id
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearScope, "clear", false, "Remove the vendor scope")
	return cmd
}

func newViewsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the table views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			resp, err := a.client.Views(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range resp.Views {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", v.Name, v.Title)
			}
			return nil
		},
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			s, err := a.client.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return renderSummary(cmd.OutOrStdout(), s)
		},
	}
}

// listFlags are the interactions replayed on the table.
type listFlags struct {
	search   string
	filters  []string
	sort     []string
	dir      string
	page     int
	pageSize int
	hide     []string
	remote   bool
}

func (f *listFlags) query() (*table.Query, error) {
	q := &table.Query{
		Search:   f.search,
		Sort:     f.sort,
		Page:     f.page,
		PageSize: f.pageSize,
		Hide:     f.hide,
	}
	if f.dir != "" {
		if f.dir != "asc" && f.dir != "desc" {
			return nil, fmt.Errorf("invalid --dir %q: want asc or desc", f.dir)
		}
		q.Dir = table.ParseDirection(f.dir)
	}
	for _, kv := range f.filters {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --filter %q: want key=pattern", kv)
		}
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[k] = v
	}
	return q, nil
}

func newListCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Render a table of vendors, categories, products, purchase-orders, sales-orders or users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			q, err := f.query()
			if err != nil {
				return err
			}
			resource := args[0]
			ctx := cmd.Context()
			if f.remote {
				page, err := a.client.Table(ctx, resource, q)
				if err != nil {
					return err
				}
				return renderRemote(cmd.OutOrStdout(), page)
			}
			view, err := a.client.View(ctx, resource)
			if err != nil {
				return err
			}
			records, err := a.client.Records(ctx, resource)
			if err != nil {
				return err
			}
			e := presetFromView(view).NewEngine()
			e.SetRecords(records)
			q.Apply(e)
			return renderLocal(cmd.OutOrStdout(), view.Title, e)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.search, "search", "", "Search term matched against every column")
	fl.StringArrayVar(&f.filters, "filter", nil, "Column filter key=pattern (repeatable)")
	fl.StringArrayVar(&f.sort, "sort", nil, "Click a column header (repeatable; twice sorts descending)")
	fl.StringVar(&f.dir, "dir", "", "Sort the last --sort column in this direction (asc, desc)")
	fl.IntVar(&f.page, "page", 0, "Page number")
	fl.IntVar(&f.pageSize, "page-size", 0, "Rows per page")
	fl.StringArrayVar(&f.hide, "hide", nil, "Toggle the visibility of a column (repeatable)")
	fl.BoolVar(&f.remote, "remote", false, "Let the server run the table instead of rendering locally")
	return cmd
}
