package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

// Webhook event names emitted by the gateway that this package reacts to.
const (
	EventSubscriptionSuspended = "subscription.suspended"
	EventSubscriptionExpired   = "subscription.expired"
)

// WebhookEvent is one inbound gateway notification.
type WebhookEvent struct {
	Name string
	Data map[string]string
}

// WebhookHandlerFunc processes a single event. Returning an error makes the
// receiver answer 5xx so the gateway redelivers; return nil for conditions a
// retry cannot fix.
type WebhookHandlerFunc func(ctx context.Context, event WebhookEvent) error

// Deduper filters repeated webhook deliveries. Seen must not record the key;
// the receiver calls Mark only after a delivery was processed successfully, so
// a failed delivery stays eligible for the gateway's retry. See RedisDeduper.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// WebhookReceiver translates gateway notifications into local state updates.
// It dispatches through an explicit event-name registry; events without a
// registered handler are acknowledged with an empty 200 so the gateway stops
// retrying them.
type WebhookReceiver struct {
	svc      *Service
	handlers map[string]WebhookHandlerFunc
	log      *slog.Logger
	deduper  Deduper
}

// WebhookOption configures a WebhookReceiver.
type WebhookOption func(*WebhookReceiver)

// WithWebhookLogger routes receiver diagnostics to the given logger.
func WithWebhookLogger(log *slog.Logger) WebhookOption {
	return func(r *WebhookReceiver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithDeduper drops deliveries whose payload was already processed.
func WithDeduper(d Deduper) WebhookOption {
	return func(r *WebhookReceiver) {
		r.deduper = d
	}
}

// NewWebhookReceiver creates a receiver with the subscription lifecycle
// handlers registered.
func NewWebhookReceiver(svc *Service, opts ...WebhookOption) *WebhookReceiver {
	if svc == nil {
		panic("billing: Service is required")
	}

	r := &WebhookReceiver{
		svc:      svc,
		handlers: make(map[string]WebhookHandlerFunc),
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.Handle(EventSubscriptionSuspended, r.handleSubscriptionSuspended)
	r.Handle(EventSubscriptionExpired, r.handleSubscriptionExpired)

	return r
}

// Handle registers (or replaces) the handler for an event name.
func (r *WebhookReceiver) Handle(event string, fn WebhookHandlerFunc) {
	r.handlers[event] = fn
}

// ServeHTTP implements the gateway webhook endpoint. The gateway posts
// form-encoded payloads (event=...&data[id]=...); JSON bodies are accepted
// too. Unknown events and unknown subscription IDs are acknowledged with 200,
// since the gateway's retry-on-non-2xx cannot resolve either.
func (r *WebhookReceiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	event, err := parseWebhookPayload(req.Header.Get("Content-Type"), body)
	if err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	ctx := req.Context()

	handler, ok := r.handlers[event.Name]
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	var dedupKey string
	if r.deduper != nil {
		digest := sha256.Sum256(body)
		dedupKey = hex.EncodeToString(digest[:])
		seen, err := r.deduper.Seen(ctx, dedupKey)
		if err != nil {
			r.log.ErrorContext(ctx, "webhook dedup check failed", "event", event.Name, "error", err)
		} else if seen {
			r.log.InfoContext(ctx, "duplicate webhook delivery dropped", "event", event.Name)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	if err := handler(ctx, event); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			// The gateway knows a subscription we do not mirror. Redelivery
			// cannot fix that; acknowledge and leave a trace for operators.
			r.log.WarnContext(ctx, "webhook for unknown subscription",
				"event", event.Name, "remote_id", event.Data["id"])
			w.WriteHeader(http.StatusOK)
			return
		}

		r.log.ErrorContext(ctx, "webhook handling failed", "event", event.Name, "error", err)
		http.Error(w, "webhook handling failed", http.StatusInternalServerError)
		return
	}

	// Record the delivery only now: a failed handler answered 5xx above and
	// the gateway's retry must not be dropped as a duplicate.
	if r.deduper != nil && dedupKey != "" {
		if err := r.deduper.Mark(ctx, dedupKey); err != nil {
			r.log.ErrorContext(ctx, "webhook dedup mark failed", "event", event.Name, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Webhook Handled"))
}

func (r *WebhookReceiver) handleSubscriptionSuspended(ctx context.Context, event WebhookEvent) error {
	sub, err := r.svc.subs.FindByRemoteID(ctx, event.Data["id"])
	if err != nil {
		return err
	}
	return r.svc.MarkCancelled(ctx, sub)
}

func (r *WebhookReceiver) handleSubscriptionExpired(ctx context.Context, event WebhookEvent) error {
	sub, err := r.svc.subs.FindByRemoteID(ctx, event.Data["id"])
	if err != nil {
		return err
	}

	endsAt, err := time.ParseInLocation(iugu.DateLayout, event.Data["expires_at"], time.UTC)
	if err != nil {
		// A malformed date will not improve on redelivery either.
		r.log.WarnContext(ctx, "webhook carried invalid expiry date",
			"remote_id", event.Data["id"], "expires_at", event.Data["expires_at"])
		return nil
	}

	return r.svc.MarkExpired(ctx, sub, endsAt)
}

// parseWebhookPayload decodes both encodings the gateway uses. Form fields
// follow the data[key] convention; JSON bodies nest data as an object.
func parseWebhookPayload(contentType string, body []byte) (WebhookEvent, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if mediaType == "application/json" {
		var payload struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return WebhookEvent{}, err
		}

		event := WebhookEvent{Name: payload.Event, Data: make(map[string]string, len(payload.Data))}
		for k, v := range payload.Data {
			if s, ok := v.(string); ok {
				event.Data[k] = s
			}
		}
		return event, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return WebhookEvent{}, err
	}

	event := WebhookEvent{Name: values.Get("event"), Data: make(map[string]string)}
	for key := range values {
		if strings.HasPrefix(key, "data[") && strings.HasSuffix(key, "]") {
			event.Data[key[len("data["):len(key)-1]] = values.Get(key)
		}
	}
	return event, nil
}
