package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/database/testutil"
	"github.com/servimatch/servimatch/internal/models"
)

func ptrFloat(v float64) *float64 { return &v }

// seedPro inserts a professional with an active work category link and the
// supplied work locations.
func seedPro(t *testing.T, db *gorm.DB, categoryID string, pro models.Professional, locations ...models.WorkLocation) models.Professional {
	t.Helper()

	if pro.ID == "" {
		pro.ID = uuid.NewString()
	}
	if pro.UserID == "" {
		pro.UserID = uuid.NewString()
	}
	if pro.DisplayName == "" {
		pro.DisplayName = "Pro"
	}
	require.NoError(t, db.Create(&pro).Error)

	require.NoError(t, db.Create(&models.WorkCategory{
		ProfessionalID: pro.ID,
		CategoryID:     categoryID,
		IsActive:       true,
	}).Error)

	for _, loc := range locations {
		loc.ProfessionalID = pro.ID
		if loc.Locality == "" {
			loc.Locality = "Centro"
		}
		loc.IsActive = true
		require.NoError(t, db.Create(&loc).Error)
	}
	return pro
}

// forcePrefs inserts a preferences row and then forces the boolean columns,
// sidestepping the column defaults that would otherwise overwrite false values
// on insert.
func forcePrefs(t *testing.T, db *gorm.DB, userID string, values map[string]any) {
	t.Helper()

	prefs := models.NotificationPreferences{UserID: userID}
	require.NoError(t, db.Create(&prefs).Error)
	if len(values) > 0 {
		require.NoError(t, db.Model(&models.NotificationPreferences{}).
			Where("user_id = ?", userID).
			Updates(values).Error)
	}
}

func TestFindCandidatesEligibility(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()

	eligible := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)})

	seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierFree,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)})

	seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierPremium,
		VerificationStatus: models.VerificationPending,
	}, models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)})

	// Verified and paid but no active location.
	seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierPremium,
		VerificationStatus: models.VerificationVerified,
	})

	// Serves a different category entirely.
	seedPro(t, db, uuid.NewString(), models.Professional{
		SubscriptionTier:   models.TierPremium,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)})

	svc, err := NewMatchService(db)
	require.NoError(t, err)

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyMedium,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, eligible.ID, candidates[0].Professional.ID)
	require.Equal(t, DistanceNotApplicable, candidates[0].DistanceOutcome)
}

func TestFindCandidatesOrdering(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()
	loc := models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)}

	// high urgency: 38.4 + 30 + 20 + 7 = 95.4
	top := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierPremium,
		VerificationStatus: models.VerificationVerified,
		AverageRating:      4.8,
		TotalReviews:       50,
	}, loc)

	// 32 + 20 + 20 + 7 = 79
	middle := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
		AverageRating:      4.0,
		TotalReviews:       20,
	}, loc)

	// no reviews: 0 + 20 + 0 + 7 = 27
	bottom := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, loc)

	svc, err := NewMatchService(db)
	require.NoError(t, err)

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyHigh,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	require.Equal(t, top.ID, candidates[0].Professional.ID)
	require.Equal(t, middle.ID, candidates[1].Professional.ID)
	require.Equal(t, bottom.ID, candidates[2].Professional.ID)

	require.InDelta(t, 95.4, candidates[0].PriorityScore, 1e-9)
	require.InDelta(t, 79.0, candidates[1].PriorityScore, 1e-9)
	require.InDelta(t, 27.0, candidates[2].PriorityScore, 1e-9)
}

func TestFindCandidatesTieBreakIsDeterministic(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()
	loc := models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)}

	// Identical profiles, so the ordering falls back to ascending ID.
	for i := 0; i < 4; i++ {
		seedPro(t, db, categoryID, models.Professional{
			SubscriptionTier:   models.TierBasic,
			VerificationStatus: models.VerificationVerified,
			AverageRating:      4.5,
			TotalReviews:       30,
		}, loc)
	}

	svc, err := NewMatchService(db)
	require.NoError(t, err)

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyLow,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 4)

	for i := 1; i < len(candidates); i++ {
		require.Equal(t, candidates[i-1].PriorityScore, candidates[i].PriorityScore)
		require.Less(t, candidates[i-1].Professional.ID, candidates[i].Professional.ID)
	}

	// A second run yields the exact same order.
	again, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyLow,
	})
	require.NoError(t, err)
	for i := range candidates {
		require.Equal(t, candidates[i].Professional.ID, again[i].Professional.ID)
	}
}

func TestFindCandidatesDistanceFilter(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()

	// Request pinned to central Madrid.
	reqLat, reqLon := 40.4168, -3.7038

	near := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Latitude: ptrFloat(40.4200), Longitude: ptrFloat(-3.7000)})

	// Barcelona, roughly 505 km away.
	seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Latitude: ptrFloat(41.3874), Longitude: ptrFloat(2.1686)})

	// Locality without coordinates passes through with an unknown outcome.
	unresolved := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Locality: "Vallecas"})

	svc, err := NewMatchService(db)
	require.NoError(t, err)

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Latitude:   &reqLat,
		Longitude:  &reqLon,
		Urgency:    models.UrgencyMedium,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byID := map[string]MatchCandidate{}
	for _, c := range candidates {
		byID[c.Professional.ID] = c
	}

	nearCandidate, ok := byID[near.ID]
	require.True(t, ok)
	require.Equal(t, DistanceWithinRadius, nearCandidate.DistanceOutcome)
	require.NotNil(t, nearCandidate.DistanceKm)
	require.Less(t, *nearCandidate.DistanceKm, 10.0)

	unresolvedCandidate, ok := byID[unresolved.ID]
	require.True(t, ok)
	require.Equal(t, DistanceUnknown, unresolvedCandidate.DistanceOutcome)
	require.Nil(t, unresolvedCandidate.DistanceKm)
}

func TestFindCandidatesCustomRadius(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()

	reqLat, reqLon := 40.4168, -3.7038

	// Alcalá de Henares, about 28 km out: beyond the 10 km default but inside
	// a widened 50 km radius.
	pro := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierPremium,
		VerificationStatus: models.VerificationVerified,
	}, models.WorkLocation{Latitude: ptrFloat(40.4820), Longitude: ptrFloat(-3.3635)})
	forcePrefs(t, db, pro.UserID, map[string]any{"notification_radius_km": 50.0})

	svc, err := NewMatchService(db)
	require.NoError(t, err)

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Latitude:   &reqLat,
		Longitude:  &reqLon,
		Urgency:    models.UrgencyMedium,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, DistanceWithinRadius, candidates[0].DistanceOutcome)
}

func TestFindCandidatesQuietHours(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()
	loc := models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)}

	pro := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, loc)
	forcePrefs(t, db, pro.UserID, map[string]any{
		"quiet_hours_start": "22:00",
		"quiet_hours_end":   "08:00",
		"sms_for_urgent":    true,
	})

	svc, err := NewMatchService(db)
	require.NoError(t, err)
	svc.WithNow(func() time.Time { return clockAt(23, 30) })

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyMedium,
	})
	require.NoError(t, err)
	require.Empty(t, candidates, "quiet hours suppress non-urgent matches")

	candidates, err = svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyEmergency,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1, "emergencies bypass quiet hours")

	svc.WithNow(func() time.Time { return clockAt(12, 0) })
	candidates, err = svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyMedium,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1, "outside the window delivery resumes")
}

func TestFindCandidatesChannelGate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	categoryID := uuid.NewString()
	loc := models.WorkLocation{Latitude: ptrFloat(40.4), Longitude: ptrFloat(-3.7)}

	muted := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, loc)
	forcePrefs(t, db, muted.UserID, map[string]any{
		"push_enabled":         false,
		"email_on_new_request": false,
		"sms_for_urgent":       false,
	})

	smsOnly := seedPro(t, db, categoryID, models.Professional{
		SubscriptionTier:   models.TierBasic,
		VerificationStatus: models.VerificationVerified,
	}, loc)
	forcePrefs(t, db, smsOnly.UserID, map[string]any{
		"push_enabled":         false,
		"email_on_new_request": false,
		"sms_for_urgent":       true,
	})

	svc, err := NewMatchService(db)
	require.NoError(t, err)

	candidates, err := svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyMedium,
	})
	require.NoError(t, err)
	require.Empty(t, candidates, "no reachable channel for a routine request")

	candidates, err = svc.FindCandidates(context.Background(), MatchInput{
		CategoryID: categoryID,
		Urgency:    models.UrgencyEmergency,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, smsOnly.ID, candidates[0].Professional.ID, "urgent SMS opt-in keeps the candidate reachable")
}
