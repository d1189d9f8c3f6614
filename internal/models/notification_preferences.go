package models

// NotificationPreferences stores a user's delivery-channel and per-type
// gating. A missing row means no restriction.
type NotificationPreferences struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	PushEnabled  bool `gorm:"default:true" json:"push_enabled"`
	EmailEnabled bool `gorm:"default:true" json:"email_enabled"`
	SMSEnabled   bool `gorm:"default:false" json:"sms_enabled"`

	EmailOnNewRequest bool `gorm:"default:true" json:"email_on_new_request"`
	SMSForUrgent      bool `gorm:"default:false" json:"sms_for_urgent"`
	NewRequestAlerts  bool `gorm:"default:true" json:"new_request_alerts"`
	BookingAlerts     bool `gorm:"default:true" json:"booking_alerts"`
	RankingAlerts     bool `gorm:"default:true" json:"ranking_alerts"`

	// Quiet hours in "HH:MM" local time; start > end spans midnight. Empty
	// strings disable the window.
	QuietHoursStart string `gorm:"type:varchar(5)" json:"quiet_hours_start"`
	QuietHoursEnd   string `gorm:"type:varchar(5)" json:"quiet_hours_end"`

	NotificationRadiusKm float64 `gorm:"default:10" json:"notification_radius_km"`
}

// AllowsType reports whether the per-type gate permits the supplied
// notification type. Unknown types are allowed.
func (p *NotificationPreferences) AllowsType(notificationType string) bool {
	switch notificationType {
	case NotificationTypeNewRequest:
		return p.NewRequestAlerts
	case NotificationTypeRequestAccepted:
		return p.BookingAlerts
	case NotificationTypeRankingUpdated:
		return p.RankingAlerts
	}
	return true
}

// AllowsAnyChannel reports whether at least one general delivery channel is
// still enabled.
func (p *NotificationPreferences) AllowsAnyChannel() bool {
	return p.EmailEnabled || p.PushEnabled
}
