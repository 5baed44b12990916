package billing

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

// resolveCustomer returns the owner's gateway customer, creating one when the
// owner has never been registered. On reuse, non-empty fields are pushed to
// the gateway and a provided token replaces the default card.
func (s *Service) resolveCustomer(ctx context.Context, owner Billable, token string, fields map[string]any) (*iugu.Customer, error) {
	remoteID, err := s.users.RemoteCustomerID(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	if remoteID == "" {
		customer, err := s.gateway.CreateCustomer(ctx, owner.Email, fields)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetRemoteCustomerID(ctx, owner.ID, customer.ID); err != nil {
			return nil, err
		}
		if token != "" {
			if _, err := s.UpdateCard(ctx, owner, token); err != nil {
				return nil, err
			}
		}
		return customer, nil
	}

	customer, err := s.gateway.FetchCustomer(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		customer, err = s.gateway.UpdateCustomer(ctx, remoteID, fields)
		if err != nil {
			return nil, err
		}
	}
	if token != "" {
		if _, err := s.UpdateCard(ctx, owner, token); err != nil {
			return nil, err
		}
	}

	return customer, nil
}

// remoteCustomerID returns the owner's gateway customer ID, failing with
// ErrNoRemoteCustomer when the owner was never registered.
func (s *Service) remoteCustomerID(ctx context.Context, owner Billable) (string, error) {
	remoteID, err := s.users.RemoteCustomerID(ctx, owner.ID)
	if err != nil {
		return "", err
	}
	if remoteID == "" {
		return "", ErrNoRemoteCustomer
	}
	return remoteID, nil
}

// Charge performs a one-off charge of amountCents against the owner. When
// params carries no line items and no invoice, a single generic item for the
// amount is added. When no payment source is given, the owner's default card
// is used; ErrNoPaymentSource is returned before any charge attempt when
// there is none.
func (s *Service) Charge(ctx context.Context, owner Billable, amountCents int, params iugu.ChargeParams) (*iugu.Charge, error) {
	if len(params.Items) == 0 && params.InvoiceID == "" {
		params.Items = []iugu.ChargeItem{{
			Description: "One-off charge",
			Quantity:    1,
			PriceCents:  amountCents,
		}}
	}

	remoteID, err := s.users.RemoteCustomerID(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if params.CustomerID == "" && remoteID != "" {
		params.CustomerID = remoteID
	}

	if params.Token == "" && params.Method == "" && params.CustomerPaymentMethodID == "" {
		card, err := s.DefaultCard(ctx, owner)
		if err != nil {
			if errors.Is(err, ErrCardNotFound) || errors.Is(err, ErrNoRemoteCustomer) {
				return nil, ErrNoPaymentSource
			}
			return nil, err
		}
		params.CustomerPaymentMethodID = card.ID
	}

	if params.InvoiceID == "" && params.Email == "" && params.CustomerID == "" {
		return nil, ErrNoRemoteCustomer
	}

	return s.gateway.CreateCharge(ctx, params)
}

// Refund refunds a paid invoice.
func (s *Service) Refund(ctx context.Context, invoiceID string) (bool, error) {
	return s.gateway.RefundInvoice(ctx, invoiceID)
}

// UpdateCard attaches a tokenized card to the owner as the default payment
// method.
func (s *Service) UpdateCard(ctx context.Context, owner Billable, token string) (*iugu.PaymentMethod, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	return s.gateway.CreatePaymentMethod(ctx, remoteID, iugu.PaymentMethodParams{
		Description:  "Credit card",
		Token:        token,
		SetAsDefault: true,
	})
}

// CreateCard stores a tokenized card for the owner.
func (s *Service) CreateCard(ctx context.Context, owner Billable, token string, params iugu.PaymentMethodParams) (*iugu.PaymentMethod, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	if params.Description == "" {
		params.Description = "Credit card"
	}
	params.Token = token

	return s.gateway.CreatePaymentMethod(ctx, remoteID, params)
}

// Cards lists the owner's stored cards.
func (s *Service) Cards(ctx context.Context, owner Billable) ([]iugu.PaymentMethod, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	methods, err := s.gateway.ListPaymentMethods(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	cards := methods[:0]
	for _, m := range methods {
		if m.ItemType == "" || m.ItemType == "credit_card" {
			cards = append(cards, m)
		}
	}
	return cards, nil
}

// FindCard returns one of the owner's cards by ID, or ErrCardNotFound.
func (s *Service) FindCard(ctx context.Context, owner Billable, cardID string) (*iugu.PaymentMethod, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	card, err := s.gateway.FetchPaymentMethod(ctx, remoteID, cardID)
	if err != nil {
		if errors.Is(err, iugu.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return card, nil
}

// DefaultCard returns the owner's default card, or ErrCardNotFound when no
// default is set.
func (s *Service) DefaultCard(ctx context.Context, owner Billable) (*iugu.PaymentMethod, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	customer, err := s.gateway.FetchCustomer(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if customer.DefaultPaymentMethodID == "" {
		return nil, ErrCardNotFound
	}

	return s.FindCard(ctx, owner, customer.DefaultPaymentMethodID)
}

// DeleteCard removes one of the owner's stored cards.
func (s *Service) DeleteCard(ctx context.Context, owner Billable, cardID string) error {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return err
	}
	return s.gateway.DeletePaymentMethod(ctx, remoteID, cardID)
}

// DeleteCards removes all of the owner's stored cards.
func (s *Service) DeleteCards(ctx context.Context, owner Billable) error {
	cards, err := s.Cards(ctx, owner)
	if err != nil {
		return err
	}
	for _, card := range cards {
		if err := s.DeleteCard(ctx, owner, card.ID); err != nil {
			return err
		}
	}
	return nil
}

// Invoices lists the owner's gateway invoices, newest page first. Pending
// invoices are filtered out unless includePending is set.
func (s *Service) Invoices(ctx context.Context, owner Billable, includePending bool) ([]iugu.Invoice, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	all, err := s.gateway.ListInvoices(ctx, iugu.ListInvoicesParams{CustomerID: remoteID, Limit: 24})
	if err != nil {
		return nil, err
	}

	invoices := all[:0]
	for _, inv := range all {
		if inv.Status == iugu.InvoiceStatusPaid || includePending {
			invoices = append(invoices, inv)
		}
	}
	return invoices, nil
}

// FindInvoice returns one of the gateway invoices by ID, or
// ErrInvoiceNotFound.
func (s *Service) FindInvoice(ctx context.Context, invoiceID string) (*iugu.Invoice, error) {
	invoice, err := s.gateway.FetchInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, iugu.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}

// CreateInvoice creates a standalone invoice against the owner, due on the
// given date.
func (s *Service) CreateInvoice(ctx context.Context, owner Billable, amountCents int, dueDate time.Time, description string) (*iugu.Invoice, error) {
	remoteID, err := s.remoteCustomerID(ctx, owner)
	if err != nil {
		return nil, err
	}

	if description == "" {
		description = "New invoice"
	}

	return s.gateway.CreateInvoice(ctx, iugu.InvoiceParams{
		CustomerID: remoteID,
		Email:      owner.Email,
		DueDate:    dueDate.Format(iugu.DateLayout),
		Items: []iugu.ChargeItem{{
			Description: description,
			Quantity:    1,
			PriceCents:  amountCents,
		}},
	})
}
