// Package session persists the terminal client's login state.
//
// The state lives in one YAML file readable only by its owner. Open loads it,
// Clear is the logout teardown and Update is the only way to mutate it.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/ksid"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the state file under the config directory.
const FileName = "session.yaml"

// Theme is the preferred colour scheme.
type Theme string

// Themes.
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme validates s.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("invalid theme %q: want light, dark or system", s)
}

// User is the cached identity of the logged in user.
type User struct {
	ID       ksid.ID `yaml:"id"`
	Email    string  `yaml:"email"`
	Name     string  `yaml:"name,omitempty"`
	Role     string  `yaml:"role"`
	VendorID ksid.ID `yaml:"vendor_id,omitempty"`
}

// State is the persisted session.
type State struct {
	Token string `yaml:"token,omitempty"`
	User  *User  `yaml:"user,omitempty"`
	// VendorID narrows requests of unbound admins to one vendor.
	VendorID ksid.ID `yaml:"vendor_id,omitempty"`
	Theme    Theme   `yaml:"theme,omitempty"`
}

// LoggedIn reports whether a token is stored.
func (s *State) LoggedIn() bool {
	return s.Token != ""
}

// Store is the process-wide session state backed by a file.
type Store struct {
	path  string
	mu    sync.Mutex
	state State
}

// DefaultPath returns $XDG_CONFIG_HOME/vyaparitrack/session.yaml or its
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vyaparitrack", FileName), nil
}

// Open loads the state at path. A missing file yields an empty state.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user supplied session file
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	if s.state.Theme != "" {
		if _, err := ParseTheme(string(s.state.Theme)); err != nil {
			s.state.Theme = ""
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Token returns the stored bearer token.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// VendorID returns the vendor scope.
func (s *Store) VendorID() ksid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.VendorID
}

// Update mutates the state with fn and persists it. Nothing is written when
// fn fails.
func (s *Store) Update(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.save(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Clear drops the credentials and vendor scope, keeping preferences.
func (s *Store) Clear() error {
	return s.Update(func(st *State) error {
		*st = State{Theme: st.Theme}
		return nil
	})
}

// Reset drops everything, including the file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	s.state = State{}
	return nil
}

// save writes st atomically with owner-only permissions.
func (s *Store) save(st *State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
