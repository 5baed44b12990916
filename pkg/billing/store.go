package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore persists mirrored subscription records. Records are never
// hard-deleted by this package; cancellation is a soft state on EndsAt.
type SubscriptionStore interface {
	// Create inserts a new record. Keys in extra matching storage columns are
	// persisted alongside the record; unknown keys are ignored.
	Create(ctx context.Context, sub *Subscription, extra map[string]any) error

	// Update persists mutated lifecycle fields of an existing record.
	Update(ctx context.Context, sub *Subscription) error

	// FindByRemoteID returns the record mirroring the given gateway
	// subscription. Returns ErrSubscriptionNotFound if no record matches.
	FindByRemoteID(ctx context.Context, remoteID string) (*Subscription, error)

	// FindByOwnerAndName returns the most recently created record for the
	// owner under the given name. Returns ErrSubscriptionNotFound if none
	// exists.
	FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*Subscription, error)

	// ListByOwner returns all records for an owner, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Subscription, error)
}

// CustomerStore persists the link between a local owner and its gateway
// customer.
type CustomerStore interface {
	// RemoteCustomerID returns the gateway customer ID for the owner, or an
	// empty string when the owner has not been registered with the gateway
	// yet. Returns ErrOwnerNotFound if the owner does not exist.
	RemoteCustomerID(ctx context.Context, ownerID uuid.UUID) (string, error)

	// SetRemoteCustomerID records the gateway customer ID for the owner.
	SetRemoteCustomerID(ctx context.Context, ownerID uuid.UUID, remoteID string) error
}
