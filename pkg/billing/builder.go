package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

// Payment method restrictions accepted by the gateway.
const (
	PayableWithAll        = "all"
	PayableWithCreditCard = "credit_card"
	PayableWithBankSlip   = "bank_slip"
	PayableWithPix        = "pix"
)

// cardValidationAmountCents is the probe amount charged and refunded when
// card validation is requested.
const cardValidationAmountCents = 100

// SubscriptionBuilder assembles a subscription-creation request. Construct it
// through Service.NewSubscription and finish with Create.
type SubscriptionBuilder struct {
	svc   *Service
	owner Billable
	name  string
	plan  string

	trialDays       int
	skipTrial       bool
	daysToExpire    int
	payableWith     string
	chargeOnSuccess bool
	validateCard    bool
	subItems        []iugu.SubItem
	additionalData  map[string]any
	customerFields  map[string]any
}

// BuilderOption configures a SubscriptionBuilder.
type BuilderOption func(*SubscriptionBuilder)

// WithTrialDays grants a trial ending the given number of days from now.
func WithTrialDays(days int) BuilderOption {
	return func(b *SubscriptionBuilder) { b.trialDays = days }
}

// WithSkipTrial forces immediate billing; no trial end is recorded even when
// trial days were set.
func WithSkipTrial() BuilderOption {
	return func(b *SubscriptionBuilder) { b.skipTrial = true }
}

// WithDaysToExpire sets a fixed-term expiry on the remote subscription,
// counted in days on top of any trial.
func WithDaysToExpire(days int) BuilderOption {
	return func(b *SubscriptionBuilder) { b.daysToExpire = days }
}

// WithPayableWith restricts the accepted payment method.
func WithPayableWith(method string) BuilderOption {
	return func(b *SubscriptionBuilder) { b.payableWith = method }
}

// WithChargeOnSuccess activates the remote subscription only after its first
// successful charge.
func WithChargeOnSuccess() BuilderOption {
	return func(b *SubscriptionBuilder) { b.chargeOnSuccess = true }
}

// WithCardValidation charges a minimal probe amount against the supplied
// token and refunds it immediately, purely to prove the card works. A failed
// probe aborts the whole creation.
func WithCardValidation() BuilderOption {
	return func(b *SubscriptionBuilder) { b.validateCard = true }
}

// WithSubItems attaches extra billable line items to the subscription.
func WithSubItems(items ...iugu.SubItem) BuilderOption {
	return func(b *SubscriptionBuilder) { b.subItems = append(b.subItems, items...) }
}

// WithAdditionalData forwards name/value pairs to the gateway as custom
// variables. Keys matching a column on the local subscriptions table are also
// persisted on the local record.
func WithAdditionalData(data map[string]any) BuilderOption {
	return func(b *SubscriptionBuilder) { b.additionalData = data }
}

// WithCustomerFields pushes extra gateway-side fields onto the customer when
// it is created or reused.
func WithCustomerFields(fields map[string]any) BuilderOption {
	return func(b *SubscriptionBuilder) { b.customerFields = fields }
}

// Create submits the subscription to the gateway and, once the gateway
// confirmed it, persists the local mirror record. token is the tokenized card
// to attach; pass an empty string to rely on the owner's stored payment
// method or bank slip billing.
//
// No local record is written when customer resolution, card validation or the
// remote creation fails.
func (b *SubscriptionBuilder) Create(ctx context.Context, token string) (*Subscription, error) {
	customer, err := b.svc.resolveCustomer(ctx, b.owner, token, b.customerFields)
	if err != nil {
		return nil, err
	}

	if b.validateCard && token != "" {
		if err := b.probeCard(ctx); err != nil {
			return nil, err
		}
	}

	now := b.svc.now()

	remote, err := b.svc.gateway.CreateSubscription(ctx, b.payload(customer.ID, now))
	if err != nil {
		return nil, err
	}

	var trialEndsAt *time.Time
	if !b.skipTrial && b.trialDays > 0 {
		t := now.AddDate(0, 0, b.trialDays)
		trialEndsAt = &t
	}

	sub := &Subscription{
		ID:          uuid.New(),
		OwnerID:     b.owner.ID,
		Name:        b.name,
		RemoteID:    remote.ID,
		Plan:        b.plan,
		TrialEndsAt: trialEndsAt,
		EndsAt:      nil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := b.svc.subs.Create(ctx, sub, b.additionalData); err != nil {
		return nil, err
	}

	return sub, nil
}

// probeCard charges the validation amount and refunds it on success. A
// refund failure is logged but does not abort: the card is proven valid.
func (b *SubscriptionBuilder) probeCard(ctx context.Context) error {
	charge, err := b.svc.Charge(ctx, b.owner, cardValidationAmountCents, iugu.ChargeParams{
		Items: []iugu.ChargeItem{{
			Description: "Credit card verification",
			Quantity:    1,
			PriceCents:  cardValidationAmountCents,
		}},
	})
	if err != nil {
		return err
	}

	if !charge.Success {
		detail := charge.Message
		if charge.LR != "" {
			detail = fmt.Sprintf("%s (LR %s)", charge.Message, charge.LR)
		}
		return errors.Join(ErrCardValidationFailed, errors.New(detail))
	}

	if _, err := b.svc.Refund(ctx, charge.InvoiceID); err != nil {
		b.svc.log.WarnContext(ctx, "failed to refund card validation charge",
			"invoice_id", charge.InvoiceID, "error", err)
	}

	return nil
}

// payload builds the gateway request for the subscription.
func (b *SubscriptionBuilder) payload(customerID string, now time.Time) iugu.SubscriptionParams {
	params := iugu.SubscriptionParams{
		PlanIdentifier:      b.plan,
		CustomerID:          customerID,
		OnlyOnChargeSuccess: b.chargeOnSuccess,
		PayableWith:         b.payableWith,
		CustomVariables:     customVariables(b.additionalData),
		SubItems:            b.subItems,
	}

	if endsAt := payloadEndDate(now, b.trialDays, b.daysToExpire, b.skipTrial); endsAt != nil {
		params.ExpiresAt = endsAt.Format(iugu.DateLayout)
	}

	return params
}

// payloadEndDate computes the expiry/trial end date sent to the gateway.
// Skipping the trial wins over everything: the subscription expires after
// daysToExpire, or bills immediately when no fixed term was set. Otherwise a
// fixed term stacks on top of the trial, and a bare trial ends after its own
// days. Nothing set means no expiry is sent at all.
func payloadEndDate(now time.Time, trialDays, daysToExpire int, skipTrial bool) *time.Time {
	switch {
	case skipTrial:
		if daysToExpire > 0 {
			t := now.AddDate(0, 0, daysToExpire)
			return &t
		}
		return &now
	case daysToExpire > 0:
		t := now.AddDate(0, 0, daysToExpire+trialDays)
		return &t
	case trialDays > 0:
		t := now.AddDate(0, 0, trialDays)
		return &t
	default:
		return nil
	}
}

// customVariables converts additional data into the gateway's name/value
// representation, sorted for deterministic payloads.
func customVariables(data map[string]any) []iugu.CustomVariable {
	if len(data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]iugu.CustomVariable, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, iugu.CustomVariable{Name: k, Value: fmt.Sprint(data[k])})
	}
	return vars
}
