package billing_test

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/iugukit/pkg/billing"
	"github.com/dmitrymomot/iugukit/pkg/iugu"
)

// mockGateway implements billing.Gateway through testify expectations.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, email string, fields map[string]any) (*iugu.Customer, error) {
	args := m.Called(ctx, email, fields)
	if c, ok := args.Get(0).(*iugu.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchCustomer(ctx context.Context, id string) (*iugu.Customer, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*iugu.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) UpdateCustomer(ctx context.Context, id string, fields map[string]any) (*iugu.Customer, error) {
	args := m.Called(ctx, id, fields)
	if c, ok := args.Get(0).(*iugu.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) CreatePaymentMethod(ctx context.Context, customerID string, params iugu.PaymentMethodParams) (*iugu.PaymentMethod, error) {
	args := m.Called(ctx, customerID, params)
	if pm, ok := args.Get(0).(*iugu.PaymentMethod); ok {
		return pm, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchPaymentMethod(ctx context.Context, customerID, id string) (*iugu.PaymentMethod, error) {
	args := m.Called(ctx, customerID, id)
	if pm, ok := args.Get(0).(*iugu.PaymentMethod); ok {
		return pm, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]iugu.PaymentMethod, error) {
	args := m.Called(ctx, customerID)
	if pms, ok := args.Get(0).([]iugu.PaymentMethod); ok {
		return pms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) DeletePaymentMethod(ctx context.Context, customerID, id string) error {
	args := m.Called(ctx, customerID, id)
	return args.Error(0)
}

func (m *mockGateway) CreateCharge(ctx context.Context, params iugu.ChargeParams) (*iugu.Charge, error) {
	args := m.Called(ctx, params)
	if c, ok := args.Get(0).(*iugu.Charge); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) RefundInvoice(ctx context.Context, invoiceID string) (bool, error) {
	args := m.Called(ctx, invoiceID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGateway) CreateInvoice(ctx context.Context, params iugu.InvoiceParams) (*iugu.Invoice, error) {
	args := m.Called(ctx, params)
	if inv, ok := args.Get(0).(*iugu.Invoice); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchInvoice(ctx context.Context, id string) (*iugu.Invoice, error) {
	args := m.Called(ctx, id)
	if inv, ok := args.Get(0).(*iugu.Invoice); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ListInvoices(ctx context.Context, params iugu.ListInvoicesParams) ([]iugu.Invoice, error) {
	args := m.Called(ctx, params)
	if invs, ok := args.Get(0).([]iugu.Invoice); ok {
		return invs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, params iugu.SubscriptionParams) (*iugu.Subscription, error) {
	args := m.Called(ctx, params)
	if sub, ok := args.Get(0).(*iugu.Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchSubscription(ctx context.Context, id string) (*iugu.Subscription, error) {
	args := m.Called(ctx, id)
	if sub, ok := args.Get(0).(*iugu.Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) SuspendSubscription(ctx context.Context, id string) (*iugu.Subscription, error) {
	args := m.Called(ctx, id)
	if sub, ok := args.Get(0).(*iugu.Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ActivateSubscription(ctx context.Context, id string) (*iugu.Subscription, error) {
	args := m.Called(ctx, id)
	if sub, ok := args.Get(0).(*iugu.Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ChangeSubscriptionPlan(ctx context.Context, id, planIdentifier string) (*iugu.Subscription, error) {
	args := m.Called(ctx, id, planIdentifier)
	if sub, ok := args.Get(0).(*iugu.Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

// memStore is an in-memory implementation of both billing stores, enough for
// exercising the service without a database.
type memStore struct {
	mu        sync.Mutex
	subs      map[uuid.UUID]*billing.Subscription
	extras    map[uuid.UUID]map[string]any
	customers map[uuid.UUID]string
}

func newMemStore() *memStore {
	return &memStore{
		subs:      make(map[uuid.UUID]*billing.Subscription),
		extras:    make(map[uuid.UUID]map[string]any),
		customers: make(map[uuid.UUID]string),
	}
}

func (s *memStore) addOwner(ownerID uuid.UUID, remoteCustomerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[ownerID] = remoteCustomerID
}

func (s *memStore) Create(_ context.Context, sub *billing.Subscription, extra map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sub
	s.subs[sub.ID] = &clone
	s.extras[sub.ID] = extra
	return nil
}

func (s *memStore) Update(_ context.Context, sub *billing.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return billing.ErrSubscriptionNotFound
	}
	clone := *sub
	s.subs[sub.ID] = &clone
	return nil
}

func (s *memStore) FindByRemoteID(_ context.Context, remoteID string) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *billing.Subscription
	for _, sub := range s.subs {
		if sub.RemoteID != remoteID {
			continue
		}
		if newest == nil || sub.CreatedAt.After(newest.CreatedAt) {
			newest = sub
		}
	}
	if newest == nil {
		return nil, billing.ErrSubscriptionNotFound
	}
	clone := *newest
	return &clone, nil
}

func (s *memStore) FindByOwnerAndName(_ context.Context, ownerID uuid.UUID, name string) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *billing.Subscription
	for _, sub := range s.subs {
		if sub.OwnerID != ownerID || sub.Name != name {
			continue
		}
		if newest == nil || sub.CreatedAt.After(newest.CreatedAt) {
			newest = sub
		}
	}
	if newest == nil {
		return nil, billing.ErrSubscriptionNotFound
	}
	clone := *newest
	return &clone, nil
}

func (s *memStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []billing.Subscription
	for _, sub := range s.subs {
		if sub.OwnerID == ownerID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) RemoteCustomerID(_ context.Context, ownerID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remoteID, ok := s.customers[ownerID]
	if !ok {
		return "", billing.ErrOwnerNotFound
	}
	return remoteID, nil
}

func (s *memStore) SetRemoteCustomerID(_ context.Context, ownerID uuid.UUID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[ownerID]; !ok {
		return billing.ErrOwnerNotFound
	}
	s.customers[ownerID] = remoteID
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *memStore) get(id uuid.UUID) *billing.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[id]; ok {
		clone := *sub
		return &clone
	}
	return nil
}
