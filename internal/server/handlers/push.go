package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// PushHandler manages web push subscriptions.
type PushHandler struct {
	svc *Services
	cfg *Config
}

// NewPushHandler creates a new push handler.
func NewPushHandler(svc *Services, cfg *Config) *PushHandler {
	return &PushHandler{svc: svc, cfg: cfg}
}

// VAPIDKey returns the public key browsers subscribe with.
func (h *PushHandler) VAPIDKey(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.VAPIDKeyResponse, error) {
	return &dto.VAPIDKeyResponse{PublicKey: h.cfg.VAPID.PublicKey}, nil
}

// Subscribe stores or refreshes a push subscription of the calling user.
func (h *PushHandler) Subscribe(ctx context.Context, user *identity.User, req *dto.SubscribePushRequest) (*dto.PushSubscriptionResponse, error) {
	sub, err := h.svc.PushSubscription.Upsert(user.ID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		return nil, storeError(err, "push subscription")
	}
	return &dto.PushSubscriptionResponse{ID: sub.ID, Endpoint: sub.Endpoint, Created: int64(sub.Created)}, nil
}

// Unsubscribe removes a push subscription of the calling user.
func (h *PushHandler) Unsubscribe(ctx context.Context, user *identity.User, req *dto.UnsubscribePushRequest) (*dto.OkResponse, error) {
	for sub := range h.svc.PushSubscription.ListByUser(user.ID) {
		if sub.Endpoint == req.Endpoint {
			if err := h.svc.PushSubscription.DeleteByEndpoint(req.Endpoint); err != nil {
				return nil, storeError(err, "push subscription")
			}
			return &dto.OkResponse{Ok: true}, nil
		}
	}
	return nil, dto.NotFound("push subscription")
}

// Notifier delivers low stock alerts through web push.
type Notifier struct {
	users *identity.UserService
	subs  *identity.PushSubscriptionService
	vapid storage.VAPIDConfig
	// client is used for delivery; nil uses http.DefaultClient.
	client webpush.HTTPClient
}

// NewNotifier returns a notifier signing with the VAPID key pair.
func NewNotifier(users *identity.UserService, subs *identity.PushSubscriptionService, vapid storage.VAPIDConfig) *Notifier {
	return &Notifier{users: users, subs: subs, vapid: vapid}
}

type lowStockMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// NotifyLowStock alerts the users of vendorID and the unbound admins that
// products reached their reorder level. Subscriptions the push service
// reports as gone are deleted.
func (n *Notifier) NotifyLowStock(ctx context.Context, vendorID ksid.ID, products []*inventory.Product) {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = fmt.Sprintf("%s (%d left)", p.Name, p.Stock)
	}
	payload, err := json.Marshal(lowStockMessage{
		Title: "Low stock",
		Body:  strings.Join(names, ", "),
		Tag:   "low-stock-" + vendorID.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode push payload", "err", err)
		return
	}
	recipients := map[ksid.ID]bool{}
	for _, u := range n.users.List() {
		if u.VendorID == vendorID || (u.VendorID.IsZero() && u.Role == identity.RoleAdmin) {
			recipients[u.ID] = true
		}
	}
	opts := &webpush.Options{
		HTTPClient:      n.client,
		Subscriber:      n.vapid.Subject,
		VAPIDPublicKey:  n.vapid.PublicKey,
		VAPIDPrivateKey: n.vapid.PrivateKey,
		TTL:             3600,
		Urgency:         webpush.UrgencyHigh,
	}
	var gone []string
	sent := 0
	for sub := range n.subs.All() {
		if !recipients[sub.UserID] {
			continue
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, opts)
		if err != nil {
			slog.WarnContext(ctx, "Push delivery failed", "endpoint", sub.Endpoint, "err", err)
			continue
		}
		_ = resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			gone = append(gone, sub.Endpoint)
		case resp.StatusCode >= 300:
			slog.WarnContext(ctx, "Push service rejected notification", "endpoint", sub.Endpoint, "status", resp.StatusCode)
		default:
			sent++
		}
	}
	for _, endpoint := range gone {
		if err := n.subs.DeleteByEndpoint(endpoint); err != nil {
			slog.WarnContext(ctx, "Failed to delete stale subscription", "endpoint", endpoint, "err", err)
		}
	}
	slog.InfoContext(ctx, "Low stock alert", "vendor", vendorID, "products", len(products), "sent", sent, "expired", len(gone))
}
