package models

import (
	"time"
)

// Urgency levels for a service request. The level controls the request's
// advisory expiry window and relaxes quiet-hours suppression for emergencies.
const (
	UrgencyLow       = "low"
	UrgencyMedium    = "medium"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

// Service request lifecycle states. Transitions beyond acceptance belong to
// the external booking workflow.
const (
	RequestStatusOpen      = "open"
	RequestStatusAccepted  = "accepted"
	RequestStatusCompleted = "completed"
	RequestStatusCancelled = "cancelled"
)

// ServiceRequest is an explorer's ask for a professional, immutable after
// creation except for status transitions.
type ServiceRequest struct {
	BaseModel

	ExplorerID  string `gorm:"type:uuid;index;not null" json:"explorer_id"`
	CategoryID  string `gorm:"type:uuid;index;not null" json:"category_id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationText string   `gorm:"type:varchar(255)" json:"location_text"`

	Urgency   string  `gorm:"type:varchar(16);default:'medium';index" json:"urgency"`
	BudgetMin float64 `gorm:"default:0" json:"budget_min"`
	BudgetMax float64 `gorm:"default:0" json:"budget_max"`

	Status                 string  `gorm:"type:varchar(16);default:'open';index" json:"status"`
	AcceptedProfessionalID *string `gorm:"type:uuid" json:"accepted_professional_id"`

	// ExpiresAt is advisory metadata derived from urgency at creation time;
	// nothing in this service enforces it.
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

// HasCoordinates reports whether the request carries a usable geolocation.
func (r *ServiceRequest) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ExpiryOffset returns the urgency-dependent lifetime applied at creation.
func ExpiryOffset(urgency string) time.Duration {
	switch urgency {
	case UrgencyEmergency:
		return time.Hour
	case UrgencyHigh:
		return 4 * time.Hour
	case UrgencyLow:
		return 48 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ValidUrgency reports whether the supplied value is a known urgency level.
func ValidUrgency(urgency string) bool {
	switch urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}
