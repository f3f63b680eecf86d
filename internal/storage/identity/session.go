// Handles active user sessions and token management.

package identity

import (
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/jsonldb"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

var (
	errSessionIDRequired        = errors.New("session id is required")
	errSessionUserIDRequired    = errors.New("session user_id is required")
	errSessionTokenHashRequired = errors.New("session token_hash is required")
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionQuotaExceeded is returned when a user has too many active sessions.
	ErrSessionQuotaExceeded = errors.New("maximum number of active sessions exceeded")
)

// Session represents a login.
type Session struct {
	ID          ksid.ID      `json:"id" jsonschema:"description=Unique session identifier"`
	UserID      ksid.ID      `json:"user_id" jsonschema:"description=User who owns this session"`
	TokenHash   string       `json:"token_hash" jsonschema:"description=SHA-256 hash of the JWT token"`
	DeviceInfo  string       `json:"device_info" jsonschema:"description=Client User-Agent"`
	IPAddress   string       `json:"ip_address" jsonschema:"description=Client IP address at login"`
	CountryCode string       `json:"country_code,omitempty" jsonschema:"description=ISO 3166-1 alpha-2 country code at login"`
	Created     storage.Time `json:"created"`
	LastUsed    storage.Time `json:"last_used"`
	ExpiresAt   storage.Time `json:"expires_at"`
	RevokedAt   storage.Time `json:"revoked_at,omitzero"`
}

// Clone returns a copy.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// GetID returns the session ID.
func (s *Session) GetID() ksid.ID {
	return s.ID
}

// Validate checks that the session is valid.
func (s *Session) Validate() error {
	if s.ID.IsZero() {
		return errSessionIDRequired
	}
	if s.UserID.IsZero() {
		return errSessionUserIDRequired
	}
	if s.TokenHash == "" {
		return errSessionTokenHashRequired
	}
	return nil
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now storage.Time) bool {
	return s.RevokedAt.IsZero() && s.ExpiresAt.After(now)
}

// SessionService handles session management.
type SessionService struct {
	mu       sync.Mutex
	table    *jsonldb.Table[*Session]
	byUserID *jsonldb.Index[ksid.ID, *Session]
}

// NewSessionService opens the session table.
func NewSessionService(tablePath string) (*SessionService, error) {
	table, err := jsonldb.NewTable[*Session](tablePath)
	if err != nil {
		return nil, err
	}
	byUserID := jsonldb.NewIndex(table, func(s *Session) ksid.ID { return s.UserID })
	return &SessionService{table: table, byUserID: byUserID}, nil
}

// CreateWithID creates a session whose ID was already embedded in the JWT.
// maxSessions limits active sessions per user; 0 disables the limit.
func (s *SessionService) CreateWithID(id, userID ksid.ID, tokenHash, deviceInfo, ipAddress, countryCode string, expiresAt storage.Time, maxSessions int) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxSessions > 0 {
		active := 0
		for range s.ActiveByUser(userID) {
			active++
		}
		if active >= maxSessions {
			return nil, ErrSessionQuotaExceeded
		}
	}
	now := storage.Now()
	session := &Session{
		ID:          id,
		UserID:      userID,
		TokenHash:   tokenHash,
		DeviceInfo:  deviceInfo,
		IPAddress:   ipAddress,
		CountryCode: countryCode,
		Created:     now,
		LastUsed:    now,
		ExpiresAt:   expiresAt,
	}
	if err := s.table.Append(session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(id ksid.ID) (*Session, error) {
	session := s.table.Get(id)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ActiveByUser iterates over the active sessions of a user.
func (s *SessionService) ActiveByUser(userID ksid.ID) iter.Seq[*Session] {
	now := storage.Now()
	return func(yield func(*Session) bool) {
		for session := range s.byUserID.Iter(userID) {
			if session.Active(now) && !yield(session) {
				return
			}
		}
	}
}

// IsValid reports whether a session is active.
func (s *SessionService) IsValid(id ksid.ID) (bool, error) {
	session := s.table.Get(id)
	if session == nil {
		return false, ErrSessionNotFound
	}
	return session.Active(storage.Now()), nil
}

// Revoke marks a session as revoked. Revoking twice is a no-op.
func (s *SessionService) Revoke(id ksid.ID) error {
	if s.table.Get(id) == nil {
		return ErrSessionNotFound
	}
	_, err := s.table.Modify(id, func(session *Session) error {
		if session.RevokedAt.IsZero() {
			session.RevokedAt = storage.Now()
		}
		return nil
	})
	return err
}

// RevokeAllForUser revokes every active session of a user and returns how
// many were revoked.
func (s *SessionService) RevokeAllForUser(userID ksid.ID) (int, error) {
	var ids []ksid.ID
	for session := range s.ActiveByUser(userID) {
		ids = append(ids, session.ID)
	}
	for i, id := range ids {
		if err := s.Revoke(id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// Touch updates LastUsed.
func (s *SessionService) Touch(id ksid.ID) error {
	_, err := s.table.Modify(id, func(session *Session) error {
		session.LastUsed = storage.Now()
		return nil
	})
	return err
}

// CountActive returns the number of active sessions.
func (s *SessionService) CountActive() int {
	now := storage.Now()
	n := 0
	for session := range s.table.Iter(0) {
		if session.Active(now) {
			n++
		}
	}
	return n
}

// CleanupExpired removes sessions expired for longer than olderThan.
func (s *SessionService) CleanupExpired(olderThan time.Duration) (int, error) {
	cutoff := storage.ToTime(time.Now().Add(-olderThan))
	var stale []ksid.ID
	for session := range s.table.Iter(0) {
		if session.ExpiresAt.Before(cutoff) {
			stale = append(stale, session.ID)
		}
	}
	for i, id := range stale {
		if _, err := s.table.Delete(id); err != nil {
			return i, err
		}
	}
	return len(stale), nil
}
