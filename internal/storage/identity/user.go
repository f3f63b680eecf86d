// Package identity stores users, their sessions and push subscriptions.
package identity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/jsonldb"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for a bad email or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserQuotaExceeded is returned when the server user limit is reached.
	ErrUserQuotaExceeded = errors.New("maximum number of users reached")

	errUserIDRequired   = errors.New("user id is required")
	errEmailRequired    = errors.New("email is required")
	errEmailPwdRequired = errors.New("email and password are required")
	errPasswordTooShort = errors.New("password must be at least 8 characters")
	errInvalidRole      = errors.New("invalid role")
)

// Role grants permissions. Staff reads and handles orders, managers also
// edit the catalogue, admins manage vendors and users.
type Role string

// Roles, weakest first.
const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roleRank = map[Role]int{RoleStaff: 1, RoleManager: 2, RoleAdmin: 3}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the permissions of min.
func (r Role) AtLeast(minRole Role) bool {
	return roleRank[r] >= roleRank[minRole]
}

// User is an account (persistent fields only).
type User struct {
	ID              ksid.ID         `json:"id" jsonschema:"description=Unique user identifier"`
	Email           string          `json:"email" jsonschema:"description=User email address"`
	Name            string          `json:"name" jsonschema:"description=User display name"`
	Role            Role            `json:"role" jsonschema:"description=admin/manager/staff"`
	VendorID        ksid.ID         `json:"vendor_id,omitzero" jsonschema:"description=Vendor the user is bound to; empty for cross-vendor admins"`
	OAuthIdentities []OAuthIdentity `json:"oauth_identities,omitempty" jsonschema:"description=Linked OAuth provider accounts"`
	Created         storage.Time    `json:"created"`
	Modified        storage.Time    `json:"modified"`
}

// OAuthIdentity links a local user to an OAuth2 provider account.
type OAuthIdentity struct {
	Provider   string       `json:"provider" jsonschema:"description=OAuth provider name (google/microsoft)"`
	ProviderID string       `json:"provider_id"`
	Email      string       `json:"email"`
	LastLogin  storage.Time `json:"last_login"`
}

type userStorage struct {
	User
	PasswordHash string `json:"password_hash,omitempty" jsonschema:"description=Bcrypt-hashed password"`
}

func (u *userStorage) Clone() *userStorage {
	c := *u
	c.OAuthIdentities = slices.Clone(u.OAuthIdentities)
	return &c
}

func (u *userStorage) GetID() ksid.ID {
	return u.ID
}

func (u *userStorage) Validate() error {
	if u.ID.IsZero() {
		return errUserIDRequired
	}
	if u.Email == "" {
		return errEmailRequired
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w %q", errInvalidRole, u.Role)
	}
	return nil
}

func normEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type oauthKey struct {
	Provider, ProviderID string
}

// UserService handles user management and authentication.
type UserService struct {
	mu       sync.Mutex
	table    *jsonldb.Table[*userStorage]
	byEmail  *jsonldb.UniqueIndex[string, *userStorage]
	maxUsers int
	oauth    map[oauthKey]ksid.ID
}

// NewUserService opens the user table. maxUsers of 0 disables the limit.
func NewUserService(tablePath string, maxUsers int) (*UserService, error) {
	table, err := jsonldb.NewTable[*userStorage](tablePath)
	if err != nil {
		return nil, err
	}
	s := &UserService{table: table, maxUsers: maxUsers, oauth: map[oauthKey]ksid.ID{}}
	s.byEmail = jsonldb.NewUniqueIndex(table, func(u *userStorage) string { return normEmail(u.Email) })
	for u := range table.Iter(0) {
		s.indexOAuth(u)
	}
	return s, nil
}

func (s *UserService) indexOAuth(u *userStorage) {
	for _, o := range u.OAuthIdentities {
		s.oauth[oauthKey{o.Provider, o.ProviderID}] = u.ID
	}
}

// create appends a new user. The first user of the server becomes admin.
// Caller holds s.mu.
func (s *UserService) create(email, name, hash string, identity *OAuthIdentity) (*User, error) {
	email = strings.TrimSpace(email)
	if s.byEmail.Get(normEmail(email)) != nil {
		return nil, ErrUserExists
	}
	n := s.table.Len()
	if s.maxUsers > 0 && n >= s.maxUsers {
		return nil, ErrUserQuotaExceeded
	}
	role := RoleStaff
	if n == 0 {
		role = RoleAdmin
	}
	now := storage.Now()
	stored := &userStorage{
		User: User{
			ID:       ksid.NewID(),
			Email:    email,
			Name:     name,
			Role:     role,
			Created:  now,
			Modified: now,
		},
		PasswordHash: hash,
	}
	if identity != nil {
		identity.LastLogin = now
		stored.OAuthIdentities = []OAuthIdentity{*identity}
	}
	if err := s.table.Append(stored); err != nil {
		return nil, err
	}
	s.indexOAuth(stored)
	user := stored.User
	return &user, nil
}

// Create registers a user with a password.
func (s *UserService) Create(email, password, name string) (*User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, errEmailPwdRequired
	}
	if len(password) < 8 {
		return nil, errPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(email, name, string(hash), nil)
}

// CreateOAuth registers a user that signs in only through a provider.
func (s *UserService) CreateOAuth(email, name string, identity OAuthIdentity) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errEmailRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(email, name, "", &identity)
}

// Get retrieves a user by ID.
func (s *UserService) Get(id ksid.ID) (*User, error) {
	if id.IsZero() {
		return nil, errUserIDRequired
	}
	stored := s.table.Get(id)
	if stored == nil {
		return nil, ErrUserNotFound
	}
	user := stored.User
	return &user, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (s *UserService) GetByEmail(email string) (*User, error) {
	stored := s.byEmail.Get(normEmail(email))
	if stored == nil {
		return nil, ErrUserNotFound
	}
	user := stored.User
	return &user, nil
}

// GetByOAuth retrieves a user by their provider identity.
func (s *UserService) GetByOAuth(provider, providerID string) (*User, error) {
	s.mu.Lock()
	id, ok := s.oauth[oauthKey{provider, providerID}]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.Get(id)
}

// Authenticate verifies user credentials.
func (s *UserService) Authenticate(email, password string) (*User, error) {
	stored := s.byEmail.Get(normEmail(email))
	if stored == nil || stored.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	user := stored.User
	return &user, nil
}

// LinkOAuth links a provider identity to a user, refreshing LastLogin when
// it is already linked.
func (s *UserService) LinkOAuth(userID ksid.ID, identity OAuthIdentity) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.table.Modify(userID, func(u *userStorage) error {
		now := storage.Now()
		for i := range u.OAuthIdentities {
			o := &u.OAuthIdentities[i]
			if o.Provider == identity.Provider && o.ProviderID == identity.ProviderID {
				o.LastLogin = now
				return nil
			}
		}
		identity.LastLogin = now
		u.OAuthIdentities = append(u.OAuthIdentities, identity)
		u.Modified = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link %s identity: %w", identity.Provider, err)
	}
	s.indexOAuth(stored)
	user := stored.User
	return &user, nil
}

// Modify atomically modifies a user. The ID, email and password hash are
// not reachable from fn.
func (s *UserService) Modify(id ksid.ID, fn func(user *User) error) (*User, error) {
	if id.IsZero() {
		return nil, errUserIDRequired
	}
	if s.table.Get(id) == nil {
		return nil, ErrUserNotFound
	}
	stored, err := s.table.Modify(id, func(row *userStorage) error {
		email := row.Email
		if err := fn(&row.User); err != nil {
			return err
		}
		row.Email = email
		row.Modified = storage.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	user := stored.User
	return &user, nil
}

// SetPassword replaces the password of a user.
func (s *UserService) SetPassword(id ksid.ID, password string) error {
	if len(password) < 8 {
		return errPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = s.table.Modify(id, func(u *userStorage) error {
		u.PasswordHash = string(hash)
		u.Modified = storage.Now()
		return nil
	})
	return err
}

// List returns every user in creation order.
func (s *UserService) List() []*User {
	out := make([]*User, 0, s.table.Len())
	for stored := range s.table.Iter(0) {
		user := stored.User
		out = append(out, &user)
	}
	return out
}

// Len returns the number of users.
func (s *UserService) Len() int {
	return s.table.Len()
}

// Restore appends an imported user with an existing bcrypt hash, keeping its
// role and timestamps. An unknown role becomes staff.
func (s *UserService) Restore(user *User, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(user.Email) == "" {
		return nil, errEmailRequired
	}
	if s.byEmail.Get(normEmail(user.Email)) != nil {
		return nil, ErrUserExists
	}
	if s.maxUsers > 0 && s.table.Len() >= s.maxUsers {
		return nil, ErrUserQuotaExceeded
	}
	stored := &userStorage{User: *user, PasswordHash: passwordHash}
	stored.OAuthIdentities = slices.Clone(user.OAuthIdentities)
	if stored.ID.IsZero() {
		stored.ID = ksid.NewID()
	}
	if !stored.Role.Valid() {
		stored.Role = RoleStaff
	}
	if stored.Created.IsZero() {
		stored.Created = storage.Now()
	}
	if stored.Modified.IsZero() {
		stored.Modified = stored.Created
	}
	if err := s.table.Append(stored); err != nil {
		return nil, err
	}
	s.indexOAuth(stored)
	out := stored.User
	return &out, nil
}
