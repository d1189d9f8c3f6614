package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/metrics"
)

// Component weights for the persisted trust score.
const (
	weightReview       = 0.40
	weightSubscription = 0.20
	weightVerification = 0.15
	weightBooking      = 0.10
	weightProfile      = 0.10
	weightExperience   = 0.05
)

// RankingInputs are the professional attributes the trust score derives from,
// captured at computation time so scoring stays a pure function.
type RankingInputs struct {
	AverageRating        float64
	TotalReviews         int
	PositiveReviewsCount int

	SubscriptionTier   string
	SubscriptionActive bool

	// VerificationScore is the professional's current persisted score. It
	// feeds the verification component as a pass-through from the external
	// verification pipeline, not a circular reference.
	VerificationScore  int
	VerificationStatus string

	CompletedBookingsCount int
	CancelledBookingsCount int
	TotalBookingsCount     int

	ProfileCompletionPercent int
	YearsExperience          int

	ActiveInLast30Days bool
}

// ScoreBreakdown exposes each component of a computed trust score. Components
// are pre-weighting values in [0,100].
type ScoreBreakdown struct {
	Review       float64 `json:"review"`
	Subscription float64 `json:"subscription"`
	Verification float64 `json:"verification"`
	Booking      float64 `json:"booking"`
	Profile      float64 `json:"profile"`
	Experience   float64 `json:"experience"`

	WeightedSum float64 `json:"weighted_sum"`
	Multiplier  float64 `json:"multiplier"`
	Final       int     `json:"final"`
}

// ComputeScore derives the 0-100 composite trust score from the supplied
// inputs. Pure and deterministic; persistence is the caller's concern.
func ComputeScore(in RankingInputs) ScoreBreakdown {
	breakdown := ScoreBreakdown{
		Review:       reviewComponent(in),
		Subscription: subscriptionComponent(in),
		Verification: clampFloat(float64(in.VerificationScore), 0, 100),
		Booking:      bookingComponent(in),
		Profile:      clampFloat(float64(in.ProfileCompletionPercent), 0, 100),
		Experience:   minFloat(100, float64(in.YearsExperience)*10),
	}

	breakdown.WeightedSum = breakdown.Review*weightReview +
		breakdown.Subscription*weightSubscription +
		breakdown.Verification*weightVerification +
		breakdown.Booking*weightBooking +
		breakdown.Profile*weightProfile +
		breakdown.Experience*weightExperience

	breakdown.Multiplier = 1.0
	if in.VerificationStatus == models.VerificationVerified {
		breakdown.Multiplier += 0.10
	}
	if in.SubscriptionTier == models.TierPremium {
		breakdown.Multiplier += 0.05
	}
	if in.ActiveInLast30Days {
		breakdown.Multiplier += 0.05
	}

	breakdown.Final = int(math.Round(clampFloat(breakdown.WeightedSum*breakdown.Multiplier, 0, 100)))
	return breakdown
}

func reviewComponent(in RankingInputs) float64 {
	if in.TotalReviews <= 0 {
		return 0
	}

	base := (in.AverageRating / 5.0) * 100
	countBonus := minFloat(20, math.Log10(float64(in.TotalReviews)+1)*10)
	positiveBonus := float64(in.PositiveReviewsCount) / float64(in.TotalReviews) * 10

	return minFloat(100, base+countBonus+positiveBonus)
}

func subscriptionComponent(in RankingInputs) float64 {
	var score float64
	switch in.SubscriptionTier {
	case models.TierPremium:
		score = 100
	case models.TierBasic:
		score = 60
	default:
		score = 20
	}

	if !in.SubscriptionActive {
		score -= 30
		if score < 20 {
			score = 20
		}
	}
	return score
}

func bookingComponent(in RankingInputs) float64 {
	score := minFloat(100, float64(in.CompletedBookingsCount)*2)

	if in.TotalBookingsCount > 0 {
		rate := float64(in.CancelledBookingsCount) / float64(in.TotalBookingsCount)
		if rate > 0.10 {
			score *= 1 - rate
		}
	}
	return score
}

// InputsFromProfessional snapshots the score inputs from a professional record.
func InputsFromProfessional(pro *models.Professional, now time.Time) RankingInputs {
	return RankingInputs{
		AverageRating:            pro.AverageRating,
		TotalReviews:             pro.TotalReviews,
		PositiveReviewsCount:     pro.PositiveReviewsCount,
		SubscriptionTier:         pro.SubscriptionTier,
		SubscriptionActive:       pro.SubscriptionActive(now),
		VerificationScore:        pro.VerificationScore,
		VerificationStatus:       pro.VerificationStatus,
		CompletedBookingsCount:   pro.CompletedBookingsCount,
		CancelledBookingsCount:   pro.CancelledBookingsCount,
		TotalBookingsCount:       pro.TotalBookingsCount,
		ProfileCompletionPercent: pro.ProfileCompletionPercent,
		YearsExperience:          pro.YearsExperience,
		ActiveInLast30Days:       pro.ActiveInLast30Days(now),
	}
}

// RankingService recomputes and persists professional trust scores. It is the
// only writer of the verification_score column.
type RankingService struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

// NewRankingService constructs a RankingService.
func NewRankingService(db *gorm.DB) (*RankingService, error) {
	if db == nil {
		return nil, errors.New("ranking service: db is required")
	}
	return &RankingService{
		db:  db,
		now: time.Now,
		log: logger.WithModule("ranking"),
	}, nil
}

// WithNow overrides the clock, primarily for tests.
func (s *RankingService) WithNow(now func() time.Time) *RankingService {
	if now != nil {
		s.now = now
	}
	return s
}

// Rescore recomputes and persists the trust score for one professional.
// A missing record scores 0 and is logged rather than surfaced; recomputation
// is idempotent and safe to repeat.
func (s *RankingService) Rescore(ctx context.Context, professionalID string) (int, error) {
	ctx = ensureContext(ctx)

	var pro models.Professional
	err := s.db.WithContext(ctx).First(&pro, "id = ?", professionalID).Error
	if err != nil {
		metrics.Rescores.WithLabelValues("error").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("professional not found, scoring 0", zap.String("professional_id", professionalID))
			return 0, nil
		}
		return 0, fmt.Errorf("ranking service: load professional: %w", err)
	}

	breakdown := ComputeScore(InputsFromProfessional(&pro, s.now()))

	err = s.db.WithContext(ctx).
		Model(&models.Professional{}).
		Where("id = ?", pro.ID).
		Update("verification_score", breakdown.Final).Error
	if err != nil {
		metrics.Rescores.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("ranking service: persist score: %w", err)
	}

	metrics.Rescores.WithLabelValues("ok").Inc()
	s.log.Debug("rescored professional",
		zap.String("professional_id", pro.ID),
		zap.Int("score", breakdown.Final),
	)
	return breakdown.Final, nil
}

// Breakdown recomputes the score components for a professional without
// persisting anything.
func (s *RankingService) Breakdown(ctx context.Context, professionalID string) (ScoreBreakdown, error) {
	ctx = ensureContext(ctx)

	var pro models.Professional
	err := s.db.WithContext(ctx).First(&pro, "id = ?", professionalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScoreBreakdown{}, ErrProfessionalNotFound
		}
		return ScoreBreakdown{}, fmt.Errorf("ranking service: load professional: %w", err)
	}

	return ComputeScore(InputsFromProfessional(&pro, s.now())), nil
}

const rescoreBatchSize = 200

// RescoreAll sweeps every professional and recomputes their score. Individual
// failures are logged and skipped; the return value is the number of
// professionals successfully rescored. Professionals are independent, so the
// sweep has no ordering requirements.
func (s *RankingService) RescoreAll(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	completed := 0
	var batch []models.Professional
	err := s.db.WithContext(ctx).
		Model(&models.Professional{}).
		FindInBatches(&batch, rescoreBatchSize, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				pro := &batch[i]
				breakdown := ComputeScore(InputsFromProfessional(pro, now))

				updateErr := s.db.WithContext(ctx).
					Model(&models.Professional{}).
					Where("id = ?", pro.ID).
					Update("verification_score", breakdown.Final).Error
				if updateErr != nil {
					metrics.Rescores.WithLabelValues("error").Inc()
					s.log.Warn("bulk rescore: skipping professional",
						zap.String("professional_id", pro.ID),
						zap.Error(updateErr),
					)
					continue
				}
				metrics.Rescores.WithLabelValues("ok").Inc()
				completed++
			}
			return nil
		}).Error
	if err != nil {
		return completed, fmt.Errorf("ranking service: bulk rescore: %w", err)
	}

	s.log.Info("bulk rescore complete", zap.Int("professionals", completed))
	return completed, nil
}
