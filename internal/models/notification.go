package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Notification types emitted by the matching core.
const (
	NotificationTypeNewRequest      = "request.new"
	NotificationTypeRequestAccepted = "request.accepted"
	NotificationTypeRankingUpdated  = "ranking.updated"
)

// Notification is a persisted delivery record for a user.
type Notification struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type      string         `gorm:"type:varchar(64);not null" json:"type"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	RelatedID string         `gorm:"type:uuid;index" json:"related_id"`
	Metadata  datatypes.JSON `json:"metadata"`

	// DedupKey collapses duplicate deliveries of the same notification within
	// a time bucket; the unique index closes the read-then-write race.
	DedupKey string `gorm:"type:varchar(255);uniqueIndex" json:"-"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

// DedupKeyFor derives the deduplication key for a recipient, notification
// type, related entity, and the time bucket the delivery falls into.
func DedupKeyFor(userID, notificationType, relatedID string, at time.Time, window time.Duration) string {
	if window <= 0 {
		window = 5 * time.Minute
	}
	bucket := at.UTC().Truncate(window).Unix()
	return fmt.Sprintf("%s:%s:%s:%d", userID, notificationType, relatedID, bucket)
}
