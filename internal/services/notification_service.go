package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/cache"
	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/internal/realtime"
	apperrors "github.com/servimatch/servimatch/pkg/errors"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/metrics"
)

// DefaultDedupWindow is the interval within which identical notifications to
// the same recipient are suppressed.
const DefaultDedupWindow = 5 * time.Minute

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Type      string               `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	RelatedID string               `json:"related_id,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Raw       *models.Notification `json:"-"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID    string
	Type      string
	Title     string
	Message   string
	RelatedID string
	Metadata  map[string]any
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService persists user notifications with time-windowed
// deduplication and preference gating, and broadcasts realtime events.
type NotificationService struct {
	db     *gorm.DB
	hub    *realtime.Hub
	store  cache.Store
	window time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewNotificationService constructs a NotificationService. The cache store is
// optional; without it dedup relies on the query-then-insert path plus the
// dedup_key unique index.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, store cache.Store) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:     db,
		hub:    hub,
		store:  store,
		window: DefaultDedupWindow,
		now:    time.Now,
		log:    logger.WithModule("notifications"),
	}, nil
}

// WithWindow overrides the dedup window, primarily for tests.
func (s *NotificationService) WithWindow(window time.Duration) *NotificationService {
	if window > 0 {
		s.window = window
	}
	return s
}

// WithNow overrides the clock, primarily for tests.
func (s *NotificationService) WithNow(now func() time.Time) *NotificationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create persists a notification unless deduplication or the recipient's
// preferences suppress it. A nil result with a nil error is the explicit
// "suppressed" success path, never an error condition.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	notificationType := strings.TrimSpace(input.Type)
	if notificationType == "" {
		return nil, errors.New("notification service: type is required")
	}

	now := s.now()
	dedupKey := models.DedupKeyFor(userID, notificationType, input.RelatedID, now, s.window)

	// Idempotency claim first: SET NX is atomic where the query below races.
	// A cache failure falls through to the database path; when uncertain the
	// system errs toward delivering, not suppressing.
	if s.store != nil {
		claimed, err := s.store.SetNX(ctx, "notify:"+dedupKey, []byte("1"), s.window)
		if err != nil {
			s.log.Warn("dedup cache unavailable, falling back to database check", zap.Error(err))
		} else if !claimed {
			metrics.NotificationsDispatched.WithLabelValues("record", "deduplicated").Inc()
			monitoring.RecordNotificationDispatch("record", "deduplicated")
			return nil, nil
		}
	}

	duplicate, err := s.recentDuplicateExists(ctx, userID, notificationType, input.RelatedID, now)
	if err != nil {
		return nil, err
	}
	if duplicate {
		metrics.NotificationsDispatched.WithLabelValues("record", "deduplicated").Inc()
		monitoring.RecordNotificationDispatch("record", "deduplicated")
		return nil, nil
	}

	allowed, err := s.preferencesAllow(ctx, userID, notificationType)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.NotificationsDispatched.WithLabelValues("record", "suppressed").Inc()
		monitoring.RecordNotificationDispatch("record", "suppressed")
		return nil, nil
	}

	notification := models.Notification{
		UserID:    userID,
		Type:      notificationType,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		RelatedID: strings.TrimSpace(input.RelatedID),
		DedupKey:  dedupKey,
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		if isUniqueConstraintError(err) {
			// A concurrent caller inserted the same dedup key; treat as the
			// dedup path rather than an error.
			metrics.NotificationsDispatched.WithLabelValues("record", "deduplicated").Inc()
			monitoring.RecordNotificationDispatch("record", "deduplicated")
			return nil, nil
		}
		metrics.NotificationsDispatched.WithLabelValues("record", "failed").Inc()
		monitoring.RecordNotificationDispatch("record", "failed")
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	metrics.NotificationsDispatched.WithLabelValues("record", "sent").Inc()
	monitoring.RecordNotificationDispatch("record", "sent")

	dto := mapNotification(notification)
	s.broadcast(userID, "notification.created", &dto)
	return &dto, nil
}

func (s *NotificationService) recentDuplicateExists(ctx context.Context, userID, notificationType, relatedID string, now time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND related_id = ?", userID, notificationType, relatedID).
		Where("created_at >= ?", now.Add(-s.window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("notification service: dedup check: %w", err)
	}
	return count > 0, nil
}

// preferencesAllow applies the per-type and general-channel gates. A missing
// preferences row means no restriction.
func (s *NotificationService) preferencesAllow(ctx context.Context, userID, notificationType string) (bool, error) {
	var prefs models.NotificationPreferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("notification service: load preferences: %w", err)
	}

	if !prefs.AllowsType(notificationType) {
		return false, nil
	}
	return prefs.AllowsAnyChannel(), nil
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	dto := mapNotification(notification)

	s.broadcast(userID, "notification.read", &dto)
	return &dto, nil
}

// MarkAllRead marks all notifications for the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	s.broadcast(userID, "notification.read_all", nil)
	return nil
}

// UnreadCount returns the recipient's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}
	return count, nil
}

func (s *NotificationService) broadcast(userID, event string, payload *NotificationDTO) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{
		Stream: realtime.StreamNotifications,
		Event:  event,
	}
	if payload != nil {
		message.Data = payload
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, userID, message)
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		RelatedID: row.RelatedID,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
		Raw:       &row,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
