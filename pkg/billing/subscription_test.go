package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/iugukit/pkg/billing"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestSubscriptionPredicates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		sub       billing.Subscription
		onTrial   bool
		onGrace   bool
		active    bool
		cancelled bool
		valid     bool
	}{
		{
			name:   "never cancelled and no trial",
			sub:    billing.Subscription{},
			active: true,
			valid:  true,
		},
		{
			name:    "inside trial window",
			sub:     billing.Subscription{TrialEndsAt: timePtr(now.AddDate(0, 0, 5))},
			onTrial: true,
			active:  true,
			valid:   true,
		},
		{
			name:   "trial ended yesterday",
			sub:    billing.Subscription{TrialEndsAt: timePtr(now.AddDate(0, 0, -1))},
			active: true,
			valid:  true,
		},
		{
			name: "trial ends later today still counts",
			// The trial comparison is date-only: any moment of the end day is
			// still inside the trial only if the end is after midnight today.
			sub:     billing.Subscription{TrialEndsAt: timePtr(now.Add(2 * time.Hour))},
			onTrial: true,
			active:  true,
			valid:   true,
		},
		{
			name:      "cancelled with grace period remaining",
			sub:       billing.Subscription{EndsAt: timePtr(now.AddDate(0, 0, 3))},
			onGrace:   true,
			active:    true,
			cancelled: true,
			valid:     true,
		},
		{
			name:      "cancelled and grace period elapsed",
			sub:       billing.Subscription{EndsAt: timePtr(now.AddDate(0, 0, -1))},
			cancelled: true,
		},
		{
			name: "cancelled during trial",
			sub: billing.Subscription{
				TrialEndsAt: timePtr(now.AddDate(0, 0, 5)),
				EndsAt:      timePtr(now.AddDate(0, 0, 5)),
			},
			onTrial:   true,
			onGrace:   true,
			active:    true,
			cancelled: true,
			valid:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.onTrial, tt.sub.OnTrialAt(now), "OnTrialAt")
			assert.Equal(t, tt.onGrace, tt.sub.OnGracePeriodAt(now), "OnGracePeriodAt")
			assert.Equal(t, tt.active, tt.sub.ActiveAt(now), "ActiveAt")
			assert.Equal(t, tt.cancelled, tt.sub.Cancelled(), "Cancelled")
			assert.Equal(t, tt.valid, tt.sub.ValidAt(now), "ValidAt")
		})
	}
}

func TestSubscriptionTrialDateOnlyComparison(t *testing.T) {
	t.Parallel()

	// Trial ends at 2026-08-30 00:00 UTC. At any instant during 2026-08-29 the
	// trial is on; from midnight of the 30th it is over, even one second in.
	trialEnd := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	sub := billing.Subscription{TrialEndsAt: &trialEnd}

	assert.True(t, sub.OnTrialAt(time.Date(2026, 8, 29, 23, 59, 59, 0, time.UTC)))
	assert.False(t, sub.OnTrialAt(time.Date(2026, 8, 30, 0, 0, 1, 0, time.UTC)))
	assert.False(t, sub.OnTrialAt(time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)))
}
