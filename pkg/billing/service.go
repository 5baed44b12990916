package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

// Service coordinates the gateway, the local stores and the per-subscription
// transition lock.
type Service struct {
	gateway Gateway
	subs    SubscriptionStore
	users   CustomerStore
	locker  Locker
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger routes service diagnostics to the given logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLocker replaces the default in-process transition lock. Deployments
// running several instances should plug in the Redis locker so concurrent
// transitions on the same remote subscription still serialize.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. Panics on nil dependencies to fail fast
// during initialization.
func NewService(gateway Gateway, subs SubscriptionStore, users CustomerStore, opts ...ServiceOption) *Service {
	if gateway == nil {
		panic("billing: Gateway is required")
	}
	if subs == nil {
		panic("billing: SubscriptionStore is required")
	}
	if users == nil {
		panic("billing: CustomerStore is required")
	}

	s := &Service{
		gateway: gateway,
		subs:    subs,
		users:   users,
		locker:  NewKeyedMutex(),
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSubscription starts building a subscription for the owner under the
// given name and plan.
func (s *Service) NewSubscription(owner Billable, name, plan string, opts ...BuilderOption) *SubscriptionBuilder {
	b := &SubscriptionBuilder{
		svc:         s,
		owner:       owner,
		name:        name,
		plan:        plan,
		payableWith: PayableWithAll,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscription returns the owner's canonical subscription under the given
// name: the most recently created record.
func (s *Service) Subscription(ctx context.Context, ownerID uuid.UUID, name string) (*Subscription, error) {
	return s.subs.FindByOwnerAndName(ctx, ownerID, name)
}

// Subscribed reports whether the owner holds a valid subscription under the
// given name. A non-empty plan additionally requires the subscription to be
// on that plan.
func (s *Service) Subscribed(ctx context.Context, ownerID uuid.UUID, name, plan string) (bool, error) {
	sub, err := s.subs.FindByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}

	if !sub.ValidAt(s.now()) {
		return false, nil
	}
	return plan == "" || sub.Plan == plan, nil
}

// OnPlan reports whether the owner holds any subscription record on the given
// plan, valid or not.
func (s *Service) OnPlan(ctx context.Context, ownerID uuid.UUID, plan string) (bool, error) {
	subs, err := s.subs.ListByOwner(ctx, ownerID)
	if err != nil {
		return false, err
	}

	for i := range subs {
		if subs[i].Plan == plan {
			return true, nil
		}
	}
	return false, nil
}

// Cancel suspends the subscription at the gateway and schedules the local
// record's end. A subscription cancelled during its trial keeps access until
// the trial would have ended; otherwise the gateway-reported expiry (or now,
// when the gateway reports none) becomes the end of the grace period.
func (s *Service) Cancel(ctx context.Context, sub *Subscription) error {
	unlock, err := s.locker.Lock(ctx, sub.RemoteID)
	if err != nil {
		return err
	}
	defer unlock()

	remote, err := s.gateway.SuspendSubscription(ctx, sub.RemoteID)
	if err != nil {
		return err
	}

	now := s.now()
	switch {
	case sub.OnTrialAt(now):
		sub.EndsAt = sub.TrialEndsAt
	case remote.ExpiresAt != "":
		endsAt, err := time.ParseInLocation(iugu.DateLayout, remote.ExpiresAt, time.UTC)
		if err != nil {
			// The gateway already suspended; ending now keeps the local record
			// consistent rather than leaving it active with no scheduled end.
			s.log.WarnContext(ctx, "gateway returned invalid expiry date, ending now",
				"remote_id", sub.RemoteID, "expires_at", remote.ExpiresAt)
			endsAt = now
		}
		sub.EndsAt = &endsAt
	default:
		sub.EndsAt = &now
	}

	sub.UpdatedAt = now
	return s.subs.Update(ctx, sub)
}

// CancelNow suspends the subscription at the gateway and ends it locally
// right away, with no grace period.
func (s *Service) CancelNow(ctx context.Context, sub *Subscription) error {
	unlock, err := s.locker.Lock(ctx, sub.RemoteID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.gateway.SuspendSubscription(ctx, sub.RemoteID); err != nil {
		return err
	}

	return s.markCancelledLocked(ctx, sub)
}

// Resume reactivates a cancelled subscription that is still inside its grace
// period. The gateway rejects reactivation once the grace period has fully
// elapsed; that rejection is surfaced unchanged.
func (s *Service) Resume(ctx context.Context, sub *Subscription) error {
	unlock, err := s.locker.Lock(ctx, sub.RemoteID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.gateway.ActivateSubscription(ctx, sub.RemoteID); err != nil {
		return err
	}

	sub.EndsAt = nil
	sub.UpdatedAt = s.now()
	return s.subs.Update(ctx, sub)
}

// Swap moves the subscription to another plan. The gateway keeps the same
// subscription identity; locally the plan changes, any scheduled end is
// cleared and the trial state is untouched.
func (s *Service) Swap(ctx context.Context, sub *Subscription, plan string) error {
	unlock, err := s.locker.Lock(ctx, sub.RemoteID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.gateway.ChangeSubscriptionPlan(ctx, sub.RemoteID, plan); err != nil {
		return err
	}

	sub.Plan = plan
	sub.EndsAt = nil
	sub.UpdatedAt = s.now()
	return s.subs.Update(ctx, sub)
}

// MarkCancelled ends the subscription locally without calling the gateway.
// Used by the webhook path, where the gateway performed the suspension before
// notifying us.
func (s *Service) MarkCancelled(ctx context.Context, sub *Subscription) error {
	unlock, err := s.locker.Lock(ctx, sub.RemoteID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.markCancelledLocked(ctx, sub)
}

// MarkExpired records a gateway-confirmed end date locally without calling
// the gateway.
func (s *Service) MarkExpired(ctx context.Context, sub *Subscription, endsAt time.Time) error {
	unlock, err := s.locker.Lock(ctx, sub.RemoteID)
	if err != nil {
		return err
	}
	defer unlock()

	sub.EndsAt = &endsAt
	sub.UpdatedAt = s.now()
	return s.subs.Update(ctx, sub)
}

func (s *Service) markCancelledLocked(ctx context.Context, sub *Subscription) error {
	now := s.now()
	sub.EndsAt = &now
	sub.UpdatedAt = now
	return s.subs.Update(ctx, sub)
}
