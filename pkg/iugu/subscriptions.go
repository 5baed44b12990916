package iugu

import (
	"context"
	"net/http"
)

// CreateSubscription creates a recurring subscription for a customer.
func (c *Client) CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", params, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FetchSubscription retrieves a subscription by its gateway identifier.
func (c *Client) FetchSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+id, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SuspendSubscription suspends billing for a subscription. The returned
// resource carries the expiry date the gateway settled on.
func (c *Client) SuspendSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions/"+id+"/suspend", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActivateSubscription reactivates a suspended subscription.
func (c *Client) ActivateSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions/"+id+"/activate", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ChangeSubscriptionPlan moves a subscription to another plan while keeping
// its gateway identity.
func (c *Client) ChangeSubscriptionPlan(ctx context.Context, id, planIdentifier string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions/"+id+"/change_plan/"+planIdentifier, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
