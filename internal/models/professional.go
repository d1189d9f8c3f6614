package models

import (
	"time"
)

// Subscription tiers available to professionals. Free-tier accounts keep
// their profile but never receive broadcast match notifications.
const (
	TierFree    = "free"
	TierBasic   = "basic"
	TierPremium = "premium"
)

// Verification workflow states for a professional account.
const (
	VerificationPending  = "pending"
	VerificationInReview = "in_review"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Professional describes a service provider profile with the aggregate
// counters consumed by ranking and matching.
type Professional struct {
	BaseModel

	UserID      string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DisplayName string `gorm:"type:varchar(255);not null" json:"display_name"`
	// ContactEmail is the delivery address for the email channel. The account
	// platform owns identity; only the address is mirrored here.
	ContactEmail string `gorm:"type:varchar(255)" json:"contact_email,omitempty"`

	SubscriptionTier      string     `gorm:"type:varchar(16);default:'free';index" json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at"`

	VerificationStatus string `gorm:"type:varchar(16);default:'pending';index" json:"verification_status"`
	// VerificationScore is recomputed by the ranking service; no other code
	// path writes it.
	VerificationScore int `gorm:"default:0" json:"verification_score"`

	ProfileCompletionPercent int `gorm:"default:0" json:"profile_completion_percent"`
	YearsExperience          int `gorm:"default:0" json:"years_experience"`

	CompletedBookingsCount int        `gorm:"default:0" json:"completed_bookings_count"`
	CancelledBookingsCount int        `gorm:"default:0" json:"cancelled_bookings_count"`
	TotalBookingsCount     int        `gorm:"default:0" json:"total_bookings_count"`
	LastBookingAt          *time.Time `json:"last_booking_at"`

	AverageRating        float64 `gorm:"default:0" json:"average_rating"`
	TotalReviews         int     `gorm:"default:0" json:"total_reviews"`
	PositiveReviewsCount int     `gorm:"default:0" json:"positive_reviews_count"`

	WorkCategories []WorkCategory `gorm:"foreignKey:ProfessionalID" json:"work_categories,omitempty"`
	WorkLocations  []WorkLocation `gorm:"foreignKey:ProfessionalID" json:"work_locations,omitempty"`
}

// SubscriptionActive reports whether the current subscription has not lapsed.
func (p *Professional) SubscriptionActive(now time.Time) bool {
	if p.SubscriptionExpiresAt == nil {
		return true
	}
	return p.SubscriptionExpiresAt.After(now)
}

// CancellationRate returns cancelled bookings as a fraction of all bookings.
func (p *Professional) CancellationRate() float64 {
	if p.TotalBookingsCount <= 0 {
		return 0
	}
	return float64(p.CancelledBookingsCount) / float64(p.TotalBookingsCount)
}

// ActiveInLast30Days reports booking activity within the trailing 30 days.
func (p *Professional) ActiveInLast30Days(now time.Time) bool {
	if p.LastBookingAt == nil {
		return false
	}
	return now.Sub(*p.LastBookingAt) <= 30*24*time.Hour
}
