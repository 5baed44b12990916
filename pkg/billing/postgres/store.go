// Package postgres implements the billing stores on PostgreSQL with
// configurable table and column names, so the mirror can live inside an
// existing application schema.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/iugukit/pkg/billing"
)

// Config names the tables and columns the store reads and writes. The
// defaults match the migrations shipped with this module; deployments
// embedding the mirror into an existing schema override them once at startup.
type Config struct {
	SubscriptionsTable string `env:"BILLING_SUBSCRIPTIONS_TABLE" envDefault:"subscriptions"`
	RemoteIDColumn     string `env:"BILLING_SUBSCRIPTION_REMOTE_ID_COLUMN" envDefault:"iugu_id"`
	PlanColumn         string `env:"BILLING_SUBSCRIPTION_PLAN_COLUMN" envDefault:"iugu_plan"`
	OwnerColumn        string `env:"BILLING_SUBSCRIPTION_OWNER_COLUMN" envDefault:"user_id"`
	OwnersTable        string `env:"BILLING_OWNERS_TABLE" envDefault:"users"`
	CustomerIDColumn   string `env:"BILLING_OWNER_CUSTOMER_ID_COLUMN" envDefault:"iugu_id"`
}

// Store implements billing.SubscriptionStore and billing.CustomerStore.
type Store struct {
	db  *pgxpool.Pool
	cfg Config

	// Quoted identifiers, resolved once in New.
	subsTable  string
	remoteCol  string
	planCol    string
	ownerCol   string
	usersTable string
	custCol    string

	cols columnCache
}

// New creates a store. Identifier quoting happens here, once, so query
// building below can interpolate names safely.
func New(db *pgxpool.Pool, cfg Config) *Store {
	return &Store{
		db:         db,
		cfg:        cfg,
		subsTable:  pgx.Identifier{cfg.SubscriptionsTable}.Sanitize(),
		remoteCol:  pgx.Identifier{cfg.RemoteIDColumn}.Sanitize(),
		planCol:    pgx.Identifier{cfg.PlanColumn}.Sanitize(),
		ownerCol:   pgx.Identifier{cfg.OwnerColumn}.Sanitize(),
		usersTable: pgx.Identifier{cfg.OwnersTable}.Sanitize(),
		custCol:    pgx.Identifier{cfg.CustomerIDColumn}.Sanitize(),
	}
}

// Create inserts a new subscription record. Keys in extra that match a column
// on the subscriptions table are written alongside it; everything else is
// dropped silently, mirroring the schema-driven optional persistence of the
// additional-data feature.
func (s *Store) Create(ctx context.Context, sub *billing.Subscription, extra map[string]any) error {
	columns := []string{
		"id", s.ownerCol, "name", s.remoteCol, s.planCol,
		"trial_ends_at", "ends_at", "created_at", "updated_at",
	}
	args := []any{
		sub.ID, sub.OwnerID, sub.Name, sub.RemoteID, sub.Plan,
		sub.TrialEndsAt, sub.EndsAt, sub.CreatedAt, sub.UpdatedAt,
	}

	if len(extra) > 0 {
		known, err := s.tableColumns(ctx)
		if err != nil {
			return err
		}
		base := map[string]struct{}{
			"id": {}, s.cfg.OwnerColumn: {}, "name": {},
			s.cfg.RemoteIDColumn: {}, s.cfg.PlanColumn: {},
			"trial_ends_at": {}, "ends_at": {}, "created_at": {}, "updated_at": {},
		}
		for k, v := range extra {
			if _, isBase := base[k]; isBase {
				continue
			}
			if _, ok := known[k]; !ok {
				continue
			}
			columns = append(columns, pgx.Identifier{k}.Sanitize())
			args = append(args, v)
		}
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		s.subsTable, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	_, err := s.db.Exec(ctx, query, args...)
	return err
}

// Update persists the mutable lifecycle fields of an existing record.
func (s *Store) Update(ctx context.Context, sub *billing.Subscription) error {
	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, trial_ends_at = $2, ends_at = $3, updated_at = $4 WHERE id = $5",
		s.subsTable, s.planCol,
	)

	tag, err := s.db.Exec(ctx, query, sub.Plan, sub.TrialEndsAt, sub.EndsAt, sub.UpdatedAt, sub.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

// FindByRemoteID returns the record mirroring the given gateway subscription.
func (s *Store) FindByRemoteID(ctx context.Context, remoteID string) (*billing.Subscription, error) {
	query := fmt.Sprintf(
		"%s WHERE %s = $1 ORDER BY created_at DESC LIMIT 1",
		s.selectClause(), s.remoteCol,
	)
	return s.scanOne(s.db.QueryRow(ctx, query, remoteID))
}

// FindByOwnerAndName returns the most recently created record for the owner
// under the given name. Newest-wins is the canonical-record rule: older rows
// under the same name are history, not state.
func (s *Store) FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*billing.Subscription, error) {
	query := fmt.Sprintf(
		"%s WHERE %s = $1 AND name = $2 ORDER BY created_at DESC LIMIT 1",
		s.selectClause(), s.ownerCol,
	)
	return s.scanOne(s.db.QueryRow(ctx, query, ownerID, name))
}

// ListByOwner returns all records for an owner, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]billing.Subscription, error) {
	query := fmt.Sprintf(
		"%s WHERE %s = $1 ORDER BY created_at DESC",
		s.selectClause(), s.ownerCol,
	)

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []billing.Subscription
	for rows.Next() {
		var sub billing.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.OwnerID, &sub.Name, &sub.RemoteID, &sub.Plan,
			&sub.TrialEndsAt, &sub.EndsAt, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// RemoteCustomerID returns the gateway customer ID stored on the owner row,
// or an empty string when the owner was never registered with the gateway.
func (s *Store) RemoteCustomerID(ctx context.Context, ownerID uuid.UUID) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.custCol, s.usersTable)

	var remoteID *string
	if err := s.db.QueryRow(ctx, query, ownerID).Scan(&remoteID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", billing.ErrOwnerNotFound
		}
		return "", err
	}
	if remoteID == nil {
		return "", nil
	}
	return *remoteID, nil
}

// SetRemoteCustomerID records the gateway customer ID on the owner row.
func (s *Store) SetRemoteCustomerID(ctx context.Context, ownerID uuid.UUID, remoteID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = $2", s.usersTable, s.custCol)

	tag, err := s.db.Exec(ctx, query, remoteID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrOwnerNotFound
	}
	return nil
}

func (s *Store) selectClause() string {
	return fmt.Sprintf(
		"SELECT id, %s, name, %s, %s, trial_ends_at, ends_at, created_at, updated_at FROM %s",
		s.ownerCol, s.remoteCol, s.planCol, s.subsTable,
	)
}

func (s *Store) scanOne(row pgx.Row) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := row.Scan(
		&sub.ID, &sub.OwnerID, &sub.Name, &sub.RemoteID, &sub.Plan,
		&sub.TrialEndsAt, &sub.EndsAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// tableColumns returns the subscriptions table's column set for the
// additional-data filter in Create, loading it on first use.
func (s *Store) tableColumns(ctx context.Context) (map[string]struct{}, error) {
	return s.cols.get(ctx, s.loadColumns)
}

func (s *Store) loadColumns(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.Query(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = $1",
		s.cfg.SubscriptionsTable,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

// columnCache latches the column set after the first successful load. A
// failed load is returned but not cached, so a transient query error does not
// poison every later insert.
type columnCache struct {
	mu   sync.Mutex
	cols map[string]struct{}
}

func (c *columnCache) get(ctx context.Context, load func(context.Context) (map[string]struct{}, error)) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cols != nil {
		return c.cols, nil
	}

	cols, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.cols = cols
	return cols, nil
}
