package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/database/testutil"
	"github.com/servimatch/servimatch/internal/middleware"
	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/internal/services"
)

func newProfessionalRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ranking, err := services.NewRankingService(db)
	require.NoError(t, err)

	handler, err := NewProfessionalHandler(ranking)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Identity())
	r.POST("/professionals/rescore", handler.RescoreAll)
	r.POST("/professionals/:id/rescore", handler.Rescore)
	r.GET("/professionals/:id/score", handler.Breakdown)
	return r
}

func seedScoredProfessional(t *testing.T, db *gorm.DB) models.Professional {
	t.Helper()

	expires := time.Now().Add(90 * 24 * time.Hour)
	pro := models.Professional{
		UserID:                   uuid.NewString(),
		DisplayName:              "Ana the Plumber",
		SubscriptionTier:         models.TierPremium,
		SubscriptionExpiresAt:    &expires,
		VerificationStatus:       models.VerificationVerified,
		VerificationScore:        80,
		ProfileCompletionPercent: 100,
		YearsExperience:          5,
		AverageRating:            4.6,
		TotalReviews:             18,
		PositiveReviewsCount:     16,
		CompletedBookingsCount:   30,
		TotalBookingsCount:       32,
		CancelledBookingsCount:   2,
	}
	pro.ID = uuid.NewString()
	require.NoError(t, db.Create(&pro).Error)
	return pro
}

func TestProfessionalRescorePersistsScore(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := newProfessionalRouter(t, db)
	pro := seedScoredProfessional(t, db)

	recorder := performJSON(t, r, http.MethodPost, "/professionals/"+pro.ID+"/rescore", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	data := decodeData(t, recorder)
	require.Equal(t, pro.ID, data["professional_id"])
	score, ok := data["verification_score"].(float64)
	require.True(t, ok)
	require.Greater(t, score, 0.0)

	var stored models.Professional
	require.NoError(t, db.First(&stored, "id = ?", pro.ID).Error)
	require.EqualValues(t, score, stored.VerificationScore)
}

func TestProfessionalBreakdownDoesNotPersist(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := newProfessionalRouter(t, db)
	pro := seedScoredProfessional(t, db)

	recorder := performJSON(t, r, http.MethodGet, "/professionals/"+pro.ID+"/score", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	data := decodeData(t, recorder)
	breakdown, ok := data["breakdown"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, breakdown, "final")

	var stored models.Professional
	require.NoError(t, db.First(&stored, "id = ?", pro.ID).Error)
	require.Equal(t, 80, stored.VerificationScore)
}

func TestProfessionalRescoreAllReportsCount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := newProfessionalRouter(t, db)
	seedScoredProfessional(t, db)
	seedScoredProfessional(t, db)

	before := countProfessionals(t, db)

	recorder := performJSON(t, r, http.MethodPost, "/professionals/rescore", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	data := decodeData(t, recorder)
	rescored, ok := data["rescored"].(float64)
	require.True(t, ok)
	require.EqualValues(t, before, rescored)
}

func TestProfessionalRescoreUnknownID(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := newProfessionalRouter(t, db)

	recorder := performJSON(t, r, http.MethodPost, "/professionals/"+uuid.NewString()+"/rescore", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.EqualValues(t, 0, decodeData(t, recorder)["verification_score"])
}

func TestProfessionalBreakdownUnknownReturnsNotFound(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := newProfessionalRouter(t, db)

	recorder := performJSON(t, r, http.MethodGet, "/professionals/"+uuid.NewString()+"/score", uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func countProfessionals(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Professional{}).Count(&count).Error)
	return count
}
