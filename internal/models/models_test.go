package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pro := Professional{SubscriptionTier: TierPremium}
	require.True(t, pro.SubscriptionActive(now), "nil expiry never lapses")

	past := now.Add(-time.Hour)
	pro.SubscriptionExpiresAt = &past
	require.False(t, pro.SubscriptionActive(now))

	future := now.Add(time.Hour)
	pro.SubscriptionExpiresAt = &future
	require.True(t, pro.SubscriptionActive(now))
}

func TestCancellationRate(t *testing.T) {
	pro := Professional{}
	require.Zero(t, pro.CancellationRate())

	pro.TotalBookingsCount = 40
	pro.CancelledBookingsCount = 10
	require.InDelta(t, 0.25, pro.CancellationRate(), 1e-9)
}

func TestExpiryOffset(t *testing.T) {
	require.Equal(t, time.Hour, ExpiryOffset(UrgencyEmergency))
	require.Equal(t, 4*time.Hour, ExpiryOffset(UrgencyHigh))
	require.Equal(t, 24*time.Hour, ExpiryOffset(UrgencyMedium))
	require.Equal(t, 48*time.Hour, ExpiryOffset(UrgencyLow))
	require.Equal(t, 24*time.Hour, ExpiryOffset("unknown"))
}

func TestDedupKeyStableWithinBucket(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 2, 0, 0, time.UTC)
	window := 5 * time.Minute

	a := DedupKeyFor("user-1", NotificationTypeNewRequest, "req-1", base, window)
	b := DedupKeyFor("user-1", NotificationTypeNewRequest, "req-1", base.Add(2*time.Minute), window)
	require.Equal(t, a, b, "same bucket yields same key")

	c := DedupKeyFor("user-1", NotificationTypeNewRequest, "req-1", base.Add(10*time.Minute), window)
	require.NotEqual(t, a, c, "later bucket yields a fresh key")

	d := DedupKeyFor("user-2", NotificationTypeNewRequest, "req-1", base, window)
	require.NotEqual(t, a, d)
}

func TestPreferencesTypeGate(t *testing.T) {
	prefs := NotificationPreferences{NewRequestAlerts: false, BookingAlerts: true}
	require.False(t, prefs.AllowsType(NotificationTypeNewRequest))
	require.True(t, prefs.AllowsType(NotificationTypeRequestAccepted))
	require.True(t, prefs.AllowsType("some.future.type"))
}
