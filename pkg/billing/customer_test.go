package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/iugukit/pkg/billing"
	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

func TestServiceCharge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("falls back to the default card", func(t *testing.T) {
		t.Parallel()

		gateway := new(mockGateway)
		store := newMemStore()
		svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

		owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
		store.addOwner(owner.ID, "cus_1")

		gateway.On("FetchCustomer", mock.Anything, "cus_1").
			Return(&iugu.Customer{ID: "cus_1", DefaultPaymentMethodID: "pm_1"}, nil)
		gateway.On("FetchPaymentMethod", mock.Anything, "cus_1", "pm_1").
			Return(&iugu.PaymentMethod{ID: "pm_1", ItemType: "credit_card"}, nil)
		gateway.On("CreateCharge", mock.Anything, mock.MatchedBy(func(p iugu.ChargeParams) bool {
			return p.CustomerID == "cus_1" &&
				p.CustomerPaymentMethodID == "pm_1" &&
				len(p.Items) == 1 && p.Items[0].PriceCents == 2500
		})).Return(&iugu.Charge{Success: true, InvoiceID: "inv_1"}, nil)

		charge, err := svc.Charge(context.Background(), owner, 2500, iugu.ChargeParams{})
		require.NoError(t, err)
		assert.True(t, charge.Success)
		gateway.AssertExpectations(t)
	})

	t.Run("no payment source fails before any charge attempt", func(t *testing.T) {
		t.Parallel()

		gateway := new(mockGateway)
		store := newMemStore()
		svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

		owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
		store.addOwner(owner.ID, "cus_1")

		gateway.On("FetchCustomer", mock.Anything, "cus_1").
			Return(&iugu.Customer{ID: "cus_1"}, nil)

		_, err := svc.Charge(context.Background(), owner, 2500, iugu.ChargeParams{})
		require.ErrorIs(t, err, billing.ErrNoPaymentSource)
		gateway.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
	})

	t.Run("explicit token skips the default card lookup", func(t *testing.T) {
		t.Parallel()

		gateway := new(mockGateway)
		store := newMemStore()
		svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

		owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
		store.addOwner(owner.ID, "cus_1")

		gateway.On("CreateCharge", mock.Anything, mock.MatchedBy(func(p iugu.ChargeParams) bool {
			return p.Token == "tok_1" && p.CustomerID == "cus_1"
		})).Return(&iugu.Charge{Success: true}, nil)

		_, err := svc.Charge(context.Background(), owner, 2500, iugu.ChargeParams{Token: "tok_1"})
		require.NoError(t, err)
		gateway.AssertNotCalled(t, "FetchCustomer", mock.Anything, mock.Anything)
	})
}

func TestServiceCards(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("lists only credit cards", func(t *testing.T) {
		t.Parallel()

		gateway := new(mockGateway)
		store := newMemStore()
		svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

		owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
		store.addOwner(owner.ID, "cus_1")

		gateway.On("ListPaymentMethods", mock.Anything, "cus_1").
			Return([]iugu.PaymentMethod{
				{ID: "pm_1", ItemType: "credit_card"},
				{ID: "pm_2", ItemType: "bank_account"},
				{ID: "pm_3", ItemType: "credit_card"},
			}, nil)

		cards, err := svc.Cards(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, cards, 2)
		assert.Equal(t, "pm_1", cards[0].ID)
		assert.Equal(t, "pm_3", cards[1].ID)
	})

	t.Run("unregistered owner cannot hold cards", func(t *testing.T) {
		t.Parallel()

		gateway := new(mockGateway)
		store := newMemStore()
		svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

		owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
		store.addOwner(owner.ID, "")

		_, err := svc.Cards(context.Background(), owner)
		require.ErrorIs(t, err, billing.ErrNoRemoteCustomer)
	})

	t.Run("missing card maps to ErrCardNotFound", func(t *testing.T) {
		t.Parallel()

		gateway := new(mockGateway)
		store := newMemStore()
		svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

		owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
		store.addOwner(owner.ID, "cus_1")

		gateway.On("FetchPaymentMethod", mock.Anything, "cus_1", "pm_missing").
			Return(nil, iugu.ErrNotFound)

		_, err := svc.FindCard(context.Background(), owner, "pm_missing")
		require.ErrorIs(t, err, billing.ErrCardNotFound)
	})
}

func TestServiceInvoices(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	gateway := new(mockGateway)
	store := newMemStore()
	svc := billing.NewService(gateway, store, store, billing.WithClock(fixedClock(now)))

	owner := billing.Billable{ID: uuid.New(), Email: "ada@example.com"}
	store.addOwner(owner.ID, "cus_1")

	page := func() []iugu.Invoice {
		return []iugu.Invoice{
			{ID: "inv_1", Status: iugu.InvoiceStatusPaid},
			{ID: "inv_2", Status: "pending"},
			{ID: "inv_3", Status: iugu.InvoiceStatusPaid},
		}
	}
	gateway.On("ListInvoices", mock.Anything, mock.MatchedBy(func(p iugu.ListInvoicesParams) bool {
		return p.CustomerID == "cus_1"
	})).Return(page(), nil).Once()
	gateway.On("ListInvoices", mock.Anything, mock.Anything).Return(page(), nil).Once()

	paid, err := svc.Invoices(context.Background(), owner, false)
	require.NoError(t, err)
	require.Len(t, paid, 2)
	assert.Equal(t, "inv_1", paid[0].ID)
	assert.Equal(t, "inv_3", paid[1].ID)

	all, err := svc.Invoices(context.Background(), owner, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
