// Web push subscriptions, one per browser endpoint.

package identity

import (
	"errors"
	"iter"
	"sync"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/jsonldb"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

var (
	errPushSubUserIDRequired   = errors.New("push subscription user_id is required")
	errPushSubEndpointRequired = errors.New("push subscription endpoint is required")
	errPushSubKeysRequired     = errors.New("push subscription keys are required")
	// ErrPushSubNotFound is returned for an unknown endpoint.
	ErrPushSubNotFound = errors.New("push subscription not found")
)

// PushSubscription stores a Web Push subscription for a user.
type PushSubscription struct {
	ID       ksid.ID      `json:"id"`
	UserID   ksid.ID      `json:"user_id"`
	Endpoint string       `json:"endpoint"`
	P256dh   string       `json:"p256dh"`
	Auth     string       `json:"auth"`
	Created  storage.Time `json:"created"`
}

// Clone returns a copy.
func (p *PushSubscription) Clone() *PushSubscription {
	c := *p
	return &c
}

// GetID returns the subscription ID.
func (p *PushSubscription) GetID() ksid.ID {
	return p.ID
}

// Validate checks required fields.
func (p *PushSubscription) Validate() error {
	if p.UserID.IsZero() {
		return errPushSubUserIDRequired
	}
	if p.Endpoint == "" {
		return errPushSubEndpointRequired
	}
	if p.P256dh == "" || p.Auth == "" {
		return errPushSubKeysRequired
	}
	return nil
}

// PushSubscriptionService manages push subscription persistence.
type PushSubscriptionService struct {
	mu         sync.Mutex
	table      *jsonldb.Table[*PushSubscription]
	byUserID   *jsonldb.Index[ksid.ID, *PushSubscription]
	byEndpoint *jsonldb.UniqueIndex[string, *PushSubscription]
}

// NewPushSubscriptionService opens the subscription table.
func NewPushSubscriptionService(tablePath string) (*PushSubscriptionService, error) {
	table, err := jsonldb.NewTable[*PushSubscription](tablePath)
	if err != nil {
		return nil, err
	}
	return &PushSubscriptionService{
		table:      table,
		byUserID:   jsonldb.NewIndex(table, func(p *PushSubscription) ksid.ID { return p.UserID }),
		byEndpoint: jsonldb.NewUniqueIndex(table, func(p *PushSubscription) string { return p.Endpoint }),
	}, nil
}

// Upsert stores a subscription, replacing any previous one for the same
// endpoint. A browser re-subscribing under another user moves to that user.
func (s *PushSubscriptionService) Upsert(userID ksid.ID, endpoint, p256dh, auth string) (*PushSubscription, error) {
	sub := &PushSubscription{
		ID:       ksid.NewID(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
		Created:  storage.Now(),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byEndpoint.Lookup(endpoint); ok {
		if _, err := s.table.Delete(id); err != nil {
			return nil, err
		}
	}
	if err := s.table.Append(sub); err != nil {
		return nil, err
	}
	return sub.Clone(), nil
}

// ListByUser iterates over the subscriptions of a user.
func (s *PushSubscriptionService) ListByUser(userID ksid.ID) iter.Seq[*PushSubscription] {
	return s.byUserID.Iter(userID)
}

// All iterates over every subscription.
func (s *PushSubscriptionService) All() iter.Seq[*PushSubscription] {
	return s.table.Iter(0)
}

// DeleteByEndpoint deletes the subscription of an endpoint.
func (s *PushSubscriptionService) DeleteByEndpoint(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEndpoint.Lookup(endpoint)
	if !ok {
		return ErrPushSubNotFound
	}
	_, err := s.table.Delete(id)
	return err
}
