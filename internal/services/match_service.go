package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/geo"
	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/metrics"
)

// defaultNotificationRadiusKm applies when a professional has no configured
// notification radius.
const defaultNotificationRadiusKm = 10.0

// DistanceOutcome classifies the distance filter's verdict for a candidate.
type DistanceOutcome string

const (
	// DistanceWithinRadius means a measured distance inside the radius.
	DistanceWithinRadius DistanceOutcome = "within_radius"
	// DistanceExceeded means a measured distance beyond the radius.
	DistanceExceeded DistanceOutcome = "exceeded"
	// DistanceUnknown means coordinates could not be resolved on one side;
	// the candidate passes ungated, but the outcome is recorded and logged.
	DistanceUnknown DistanceOutcome = "unknown"
	// DistanceNotApplicable means the request carries no coordinates.
	DistanceNotApplicable DistanceOutcome = "not_applicable"
)

// Exclusion reasons recorded in candidate traces and metrics.
const (
	exclusionNoActiveLocation = "no_active_location"
	exclusionOutOfRange       = "out_of_range"
	exclusionQuietHours       = "quiet_hours"
	exclusionChannelsDisabled = "channels_disabled"
)

// MatchCandidate is an ephemeral, per-run scoring of an eligible
// professional. It is never persisted.
type MatchCandidate struct {
	Professional models.Professional             `json:"professional"`
	Preferences  *models.NotificationPreferences `json:"-"`

	PriorityScore   float64         `json:"priority_score"`
	DistanceKm      *float64        `json:"distance_km,omitempty"`
	DistanceOutcome DistanceOutcome `json:"distance_outcome"`

	// Trace records why the candidate was included, for testability.
	Trace []string `json:"trace,omitempty"`
}

// MatchInput describes one match run.
type MatchInput struct {
	CategoryID string
	Latitude   *float64
	Longitude  *float64
	Urgency    string
}

// MatchService selects and orders the professionals to notify for a service
// request. It only reads; candidate state lives for the duration of a run.
type MatchService struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

// NewMatchService constructs a MatchService.
func NewMatchService(db *gorm.DB) (*MatchService, error) {
	if db == nil {
		return nil, errors.New("match service: db is required")
	}
	return &MatchService{
		db:  db,
		now: time.Now,
		log: logger.WithModule("matching"),
	}, nil
}

// WithNow overrides the clock, primarily for tests of quiet-hours behaviour.
func (s *MatchService) WithNow(now func() time.Time) *MatchService {
	if now != nil {
		s.now = now
	}
	return s
}

// FindCandidatesForRequest adapts a stored request into a match run.
func (s *MatchService) FindCandidatesForRequest(ctx context.Context, req *models.ServiceRequest) ([]MatchCandidate, error) {
	if req == nil {
		return nil, errors.New("match service: request is required")
	}
	return s.FindCandidates(ctx, MatchInput{
		CategoryID: req.CategoryID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Urgency:    req.Urgency,
	})
}

// FindCandidates returns the ordered notification candidates for a category,
// optional requester location, and urgency. Ordering is descending priority
// score with ascending professional ID as the deterministic tie-break.
func (s *MatchService) FindCandidates(ctx context.Context, input MatchInput) ([]MatchCandidate, error) {
	ctx = ensureContext(ctx)
	if input.CategoryID == "" {
		return nil, errors.New("match service: category id is required")
	}
	urgency := defaultIfEmpty(input.Urgency, models.UrgencyMedium)
	now := s.now()

	metrics.MatchRuns.WithLabelValues(urgency).Inc()

	pros, err := s.eligibleProfessionals(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	prefsByUser, err := s.loadPreferences(ctx, pros)
	if err != nil {
		return nil, err
	}

	candidates := make([]MatchCandidate, 0, len(pros))
	for i := range pros {
		pro := pros[i]
		prefs := prefsByUser[pro.UserID]

		candidate, ok := s.evaluate(&pro, prefs, input, urgency, now)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PriorityScore != candidates[j].PriorityScore {
			return candidates[i].PriorityScore > candidates[j].PriorityScore
		}
		return candidates[i].Professional.ID < candidates[j].Professional.ID
	})

	metrics.MatchCandidates.Observe(float64(len(candidates)))
	monitoring.RecordMatchRun(urgency, len(candidates))
	s.log.Debug("match run complete",
		zap.String("category_id", input.CategoryID),
		zap.String("urgency", urgency),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// eligibleProfessionals applies the database-level eligibility filter: paid
// tier, verified, active work category for the requested category.
func (s *MatchService) eligibleProfessionals(ctx context.Context, categoryID string) ([]models.Professional, error) {
	var pros []models.Professional
	err := s.db.WithContext(ctx).
		Joins("JOIN work_categories ON work_categories.professional_id = professionals.id").
		Where("work_categories.category_id = ? AND work_categories.is_active = ?", categoryID, true).
		Where("professionals.subscription_tier IN ?", []string{models.TierBasic, models.TierPremium}).
		Where("professionals.verification_status = ?", models.VerificationVerified).
		Preload("WorkLocations", "is_active = ?", true).
		Find(&pros).Error
	if err != nil {
		return nil, fmt.Errorf("match service: query eligible professionals: %w", err)
	}
	return pros, nil
}

func (s *MatchService) loadPreferences(ctx context.Context, pros []models.Professional) (map[string]*models.NotificationPreferences, error) {
	if len(pros) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(pros))
	for _, pro := range pros {
		userIDs = append(userIDs, pro.UserID)
	}

	var rows []models.NotificationPreferences
	err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match service: load preferences: %w", err)
	}

	byUser := make(map[string]*models.NotificationPreferences, len(rows))
	for i := range rows {
		byUser[rows[i].UserID] = &rows[i]
	}
	return byUser, nil
}

// evaluate applies the in-process filters (location, distance, quiet hours,
// channel preferences) and scores the candidate.
func (s *MatchService) evaluate(pro *models.Professional, prefs *models.NotificationPreferences, input MatchInput, urgency string, now time.Time) (MatchCandidate, bool) {
	candidate := MatchCandidate{
		Professional:    *pro,
		Preferences:     prefs,
		DistanceOutcome: DistanceNotApplicable,
	}

	if len(pro.WorkLocations) == 0 {
		s.exclude(pro.ID, exclusionNoActiveLocation)
		return candidate, false
	}

	if input.Latitude != nil && input.Longitude != nil {
		distance, resolved := nearestLocationKm(pro.WorkLocations, *input.Latitude, *input.Longitude)
		if !resolved {
			// Locality-only rows cannot be measured; let the candidate through
			// but surface the gap instead of hiding it.
			candidate.DistanceOutcome = DistanceUnknown
			candidate.Trace = append(candidate.Trace, "distance_unknown")
			s.log.Debug("distance unresolved, skipping radius filter",
				zap.String("professional_id", pro.ID),
			)
		} else {
			radius := defaultNotificationRadiusKm
			if prefs != nil && prefs.NotificationRadiusKm > 0 {
				radius = prefs.NotificationRadiusKm
			}
			candidate.DistanceKm = &distance
			if distance > radius {
				candidate.DistanceOutcome = DistanceExceeded
				s.exclude(pro.ID, exclusionOutOfRange)
				return candidate, false
			}
			candidate.DistanceOutcome = DistanceWithinRadius
			candidate.Trace = append(candidate.Trace, fmt.Sprintf("distance_%.1fkm", distance))
		}
	}

	if prefs != nil && urgency != models.UrgencyEmergency &&
		inQuietHours(prefs.QuietHoursStart, prefs.QuietHoursEnd, now) {
		s.exclude(pro.ID, exclusionQuietHours)
		return candidate, false
	}

	if !channelReachable(prefs, urgency) {
		s.exclude(pro.ID, exclusionChannelsDisabled)
		return candidate, false
	}

	candidate.PriorityScore = priorityScore(pro, urgency)
	candidate.Trace = append(candidate.Trace, "eligible")
	return candidate, true
}

func (s *MatchService) exclude(professionalID, reason string) {
	metrics.CandidateExclusions.WithLabelValues(reason).Inc()
	monitoring.RecordCandidateExclusion(reason)
	s.log.Debug("candidate excluded",
		zap.String("professional_id", professionalID),
		zap.String("reason", reason),
	)
}

// nearestLocationKm returns the smallest distance from the requester to any
// of the professional's geocoded locations. The second return value is false
// when no location resolves to coordinates.
func nearestLocationKm(locations []models.WorkLocation, lat, lon float64) (float64, bool) {
	best := 0.0
	resolved := false
	for _, loc := range locations {
		if !loc.HasCoordinates() {
			continue
		}
		d := geo.DistanceKm(lat, lon, *loc.Latitude, *loc.Longitude)
		if !resolved || d < best {
			best = d
			resolved = true
		}
	}
	return best, resolved
}

// channelReachable reports whether at least one delivery channel would carry
// a new-request notification. A missing preferences row means no restriction.
func channelReachable(prefs *models.NotificationPreferences, urgency string) bool {
	if prefs == nil {
		return true
	}
	if prefs.PushEnabled || prefs.EmailOnNewRequest {
		return true
	}
	return urgency == models.UrgencyEmergency && prefs.SMSForUrgent
}

// priorityScore computes the request-time ordering score. Its weights are
// deliberately distinct from the persisted trust score.
func priorityScore(pro *models.Professional, urgency string) float64 {
	var score float64

	if pro.TotalReviews > 0 {
		score += (pro.AverageRating / 5.0) * 40
	}

	switch pro.SubscriptionTier {
	case models.TierPremium:
		score += 30
	case models.TierBasic:
		score += 20
	default:
		score += 5
	}

	score += minFloat(float64(pro.TotalReviews)/10.0, 1) * 20

	switch urgency {
	case models.UrgencyEmergency:
		score += 10
	case models.UrgencyHigh:
		score += 7
	case models.UrgencyMedium:
		score += 5
	default:
		score += 3
	}

	return score
}
