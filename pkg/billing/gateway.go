package billing

import (
	"context"

	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

// Gateway is the slice of the Iugu client this package depends on.
// *iugu.Client satisfies it; tests substitute mocks.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string, fields map[string]any) (*iugu.Customer, error)
	FetchCustomer(ctx context.Context, id string) (*iugu.Customer, error)
	UpdateCustomer(ctx context.Context, id string, fields map[string]any) (*iugu.Customer, error)

	CreatePaymentMethod(ctx context.Context, customerID string, params iugu.PaymentMethodParams) (*iugu.PaymentMethod, error)
	FetchPaymentMethod(ctx context.Context, customerID, id string) (*iugu.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]iugu.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, customerID, id string) error

	CreateCharge(ctx context.Context, params iugu.ChargeParams) (*iugu.Charge, error)
	RefundInvoice(ctx context.Context, invoiceID string) (bool, error)

	CreateInvoice(ctx context.Context, params iugu.InvoiceParams) (*iugu.Invoice, error)
	FetchInvoice(ctx context.Context, id string) (*iugu.Invoice, error)
	ListInvoices(ctx context.Context, params iugu.ListInvoicesParams) ([]iugu.Invoice, error)

	CreateSubscription(ctx context.Context, params iugu.SubscriptionParams) (*iugu.Subscription, error)
	FetchSubscription(ctx context.Context, id string) (*iugu.Subscription, error)
	SuspendSubscription(ctx context.Context, id string) (*iugu.Subscription, error)
	ActivateSubscription(ctx context.Context, id string) (*iugu.Subscription, error)
	ChangeSubscriptionPlan(ctx context.Context, id, planIdentifier string) (*iugu.Subscription, error)
}
