package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription mirrors one remote gateway subscription. An owner may hold
// several, distinguished by Name; the most recently created record per name
// is the canonical one.
type Subscription struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	RemoteID    string // gateway identifier, set once at creation
	Plan        string
	TrialEndsAt *time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OnTrialAt reports whether the subscription is inside its trial window at
// the given instant. The comparison is date-only: the trial counts as active
// until the calendar day it ends on.
func (s *Subscription) OnTrialAt(now time.Time) bool {
	if s.TrialEndsAt == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.Before(s.TrialEndsAt.UTC())
}

// OnTrial reports whether the subscription is currently in its trial window.
func (s *Subscription) OnTrial() bool {
	return s.OnTrialAt(time.Now().UTC())
}

// OnGracePeriodAt reports whether the subscription was cancelled but remains
// usable until its end timestamp.
func (s *Subscription) OnGracePeriodAt(now time.Time) bool {
	if s.EndsAt == nil {
		return false
	}
	return now.Before(*s.EndsAt)
}

// OnGracePeriod reports whether the subscription is within its grace period
// after cancellation.
func (s *Subscription) OnGracePeriod() bool {
	return s.OnGracePeriodAt(time.Now().UTC())
}

// ActiveAt reports whether the subscription is active at the given instant:
// either never cancelled, or cancelled but still in its grace period.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriodAt(now)
}

// Active reports whether the subscription is currently active.
func (s *Subscription) Active() bool {
	return s.ActiveAt(time.Now().UTC())
}

// Cancelled reports whether a cancellation has been recorded, regardless of
// whether the grace period has elapsed.
func (s *Subscription) Cancelled() bool {
	return s.EndsAt != nil
}

// ValidAt reports whether the subscription grants access at the given
// instant.
func (s *Subscription) ValidAt(now time.Time) bool {
	return s.ActiveAt(now) || s.OnTrialAt(now) || s.OnGracePeriodAt(now)
}

// Valid reports whether the subscription currently grants access.
func (s *Subscription) Valid() bool {
	return s.ValidAt(time.Now().UTC())
}

// Billable identifies the local account that owns subscriptions and payment
// methods. Its persistence lives outside this package; only the identity and
// the billing email cross the boundary.
type Billable struct {
	ID    uuid.UUID
	Email string
}
