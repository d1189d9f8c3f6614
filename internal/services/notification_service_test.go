package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/cache"
	"github.com/servimatch/servimatch/internal/database/testutil"
	"github.com/servimatch/servimatch/internal/models"
)

func countNotifications(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&count).Error)
	return count
}

func TestCreateNotificationDeduplicatesWithinWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()
	relatedID := uuid.NewString()

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	input := CreateNotificationInput{
		UserID:    userID,
		Type:      models.NotificationTypeNewRequest,
		Title:     "Leaky faucet",
		Message:   "New medium request in Chamberí",
		RelatedID: relatedID,
	}

	first, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Nil(t, second, "duplicate within the window is silently suppressed")

	require.EqualValues(t, 1, countNotifications(t, db, userID))
}

func TestCreateNotificationDedupWithCacheClaim(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()
	relatedID := uuid.NewString()

	svc, err := NewNotificationService(db, nil, cache.NewDatabaseStore(db))
	require.NoError(t, err)

	input := CreateNotificationInput{
		UserID:    userID,
		Type:      models.NotificationTypeNewRequest,
		Title:     "Broken boiler",
		RelatedID: relatedID,
	}

	first, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Nil(t, second, "the idempotency claim blocks the repeat")

	require.EqualValues(t, 1, countNotifications(t, db, userID))
}

func TestCreateNotificationDistinctRelatedIDsBothPersist(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		dto, err := svc.Create(context.Background(), CreateNotificationInput{
			UserID:    userID,
			Type:      models.NotificationTypeNewRequest,
			Title:     "Request",
			RelatedID: uuid.NewString(),
		})
		require.NoError(t, err)
		require.NotNil(t, dto)
	}

	require.EqualValues(t, 2, countNotifications(t, db, userID))
}

func TestCreateNotificationHonoursTypePreference(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()

	forcePrefs(t, db, userID, map[string]any{"new_request_alerts": false})

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	dto, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID:    userID,
		Type:      models.NotificationTypeNewRequest,
		Title:     "Muted type",
		RelatedID: uuid.NewString(),
	})
	require.NoError(t, err)
	require.Nil(t, dto)
	require.Zero(t, countNotifications(t, db, userID))

	// Other types remain deliverable.
	dto, err = svc.Create(context.Background(), CreateNotificationInput{
		UserID:    userID,
		Type:      models.NotificationTypeRankingUpdated,
		Title:     "Score changed",
		RelatedID: uuid.NewString(),
	})
	require.NoError(t, err)
	require.NotNil(t, dto)
}

func TestCreateNotificationHonoursChannelPreference(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()

	forcePrefs(t, db, userID, map[string]any{
		"push_enabled":  false,
		"email_enabled": false,
	})

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	dto, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID:    userID,
		Type:      models.NotificationTypeNewRequest,
		Title:     "All channels off",
		RelatedID: uuid.NewString(),
	})
	require.NoError(t, err)
	require.Nil(t, dto)
	require.Zero(t, countNotifications(t, db, userID))
}

func TestCreateNotificationMissingPreferencesDeliver(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	dto, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID:    userID,
		Type:      models.NotificationTypeNewRequest,
		Title:     "No preferences row",
		RelatedID: uuid.NewString(),
		Metadata:  map[string]any{"priority_score": 72.5},
	})
	require.NoError(t, err)
	require.NotNil(t, dto)
	require.Equal(t, 72.5, dto.Metadata["priority_score"])
}

func TestNotificationReadLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userID := uuid.NewString()

	now := time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)
	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)
	svc.WithNow(func() time.Time { return now })

	var created []*NotificationDTO
	for i := 0; i < 3; i++ {
		dto, err := svc.Create(context.Background(), CreateNotificationInput{
			UserID:    userID,
			Type:      models.NotificationTypeNewRequest,
			Title:     "Request",
			RelatedID: uuid.NewString(),
		})
		require.NoError(t, err)
		require.NotNil(t, dto)
		created = append(created, dto)
	}

	unread, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, 3, unread)

	read, err := svc.MarkRead(context.Background(), userID, created[0].ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, unread)

	items, err := svc.ListForUser(context.Background(), ListNotificationsInput{
		UserID:     userID,
		UnreadOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, svc.MarkAllRead(context.Background(), userID))
	unread, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestMarkReadRejectsForeignNotification(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := uuid.NewString()

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	dto, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID:    owner,
		Type:      models.NotificationTypeNewRequest,
		Title:     "Private",
		RelatedID: uuid.NewString(),
	})
	require.NoError(t, err)
	require.NotNil(t, dto)

	_, err = svc.MarkRead(context.Background(), uuid.NewString(), dto.ID)
	require.Error(t, err)
}
