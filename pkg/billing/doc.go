// Package billing layers subscription, customer, card, charge and invoice
// operations on top of the Iugu payment gateway, mirroring each remote
// subscription in a local store.
//
// The gateway owns recurring billing; this package owns the local lifecycle
// state derived from two timestamps on the mirrored record:
//
//   - TrialEndsAt: set once at creation when a trial was granted
//   - EndsAt: set when the subscription was cancelled (immediately or
//     scheduled); nil means not cancelled
//
// All state predicates (OnTrial, OnGracePeriod, Active, Cancelled, Valid) are
// computed from those timestamps at query time, never stored.
//
// Every transition (cancel, resume, swap) calls the gateway first and only
// persists locally after the gateway confirmed, so a failed remote call never
// leaves a half-updated record. The exceptions are the webhook-driven
// transitions, which are local-only because the gateway already acted before
// notifying us.
//
// Creating a subscription:
//
//	svc := billing.NewService(gatewayClient, subStore, customerStore)
//
//	sub, err := svc.NewSubscription(owner, "main", "gold",
//		billing.WithTrialDays(7),
//		billing.WithCardValidation(),
//	).Create(ctx, cardToken)
//
// Keeping local state consistent with the gateway:
//
//	receiver := billing.NewWebhookReceiver(svc)
//	mux.Handle("POST /webhooks/iugu", receiver)
//
// The receiver answers 200 even for unknown events and unknown subscription
// identifiers; the gateway retries on non-2xx and a retry cannot fix either
// condition.
package billing
