package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/models"
	apperrors "github.com/servimatch/servimatch/pkg/errors"
	"github.com/servimatch/servimatch/pkg/logger"
)

// CreateRequestInput defines the attributes for a new service request.
type CreateRequestInput struct {
	ExplorerID   string
	CategoryID   string
	Title        string
	Description  string
	Latitude     *float64
	Longitude    *float64
	LocationText string
	Urgency      string
	BudgetMin    float64
	BudgetMax    float64
}

// RequestService owns service-request creation and the first-accept-wins
// status transition. Everything downstream of acceptance belongs to the
// external booking workflow.
type RequestService struct {
	db            *gorm.DB
	notifications *NotificationService
	now           func() time.Time
	log           *zap.Logger
}

// NewRequestService constructs a RequestService. The notification service is
// optional and used to tell the explorer about acceptance.
func NewRequestService(db *gorm.DB, notifications *NotificationService) (*RequestService, error) {
	if db == nil {
		return nil, errors.New("request service: db is required")
	}
	return &RequestService{
		db:            db,
		notifications: notifications,
		now:           time.Now,
		log:           logger.WithModule("requests"),
	}, nil
}

// WithNow overrides the clock, primarily for tests.
func (s *RequestService) WithNow(now func() time.Time) *RequestService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create persists a new open service request, deriving the advisory expiry
// from the urgency level.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*models.ServiceRequest, error) {
	ctx = ensureContext(ctx)

	explorerID := strings.TrimSpace(input.ExplorerID)
	if explorerID == "" {
		return nil, apperrors.NewBadRequest("explorer id is required")
	}
	categoryID := strings.TrimSpace(input.CategoryID)
	if categoryID == "" {
		return nil, apperrors.NewBadRequest("category id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	urgency := defaultIfEmpty(input.Urgency, models.UrgencyMedium)
	if !models.ValidUrgency(urgency) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown urgency %q", input.Urgency))
	}
	if input.BudgetMax > 0 && input.BudgetMax < input.BudgetMin {
		return nil, apperrors.NewBadRequest("budget max must not be below budget min")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, apperrors.NewBadRequest("latitude and longitude must be provided together")
	}

	now := s.now()
	request := models.ServiceRequest{
		ExplorerID:   explorerID,
		CategoryID:   categoryID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		LocationText: strings.TrimSpace(input.LocationText),
		Urgency:      urgency,
		BudgetMin:    input.BudgetMin,
		BudgetMax:    input.BudgetMax,
		Status:       models.RequestStatusOpen,
		ExpiresAt:    now.Add(models.ExpiryOffset(urgency)),
	}

	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, fmt.Errorf("request service: create request: %w", err)
	}

	s.log.Info("service request created",
		zap.String("request_id", request.ID),
		zap.String("category_id", request.CategoryID),
		zap.String("urgency", request.Urgency),
	)
	return &request, nil
}

// Get loads a service request by id.
func (s *RequestService) Get(ctx context.Context, requestID string) (*models.ServiceRequest, error) {
	ctx = ensureContext(ctx)

	var request models.ServiceRequest
	err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("request service: load request: %w", err)
	}
	return &request, nil
}

// Accept claims the request for a professional with first-accept-wins
// semantics: an atomic compare-and-set on the open status. Losing the race
// yields ErrRequestClosed, never a double assignment.
func (s *RequestService) Accept(ctx context.Context, requestID, professionalID string) (*models.ServiceRequest, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(professionalID) == "" {
		return nil, apperrors.NewBadRequest("professional id is required")
	}

	result := s.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusOpen).
		Updates(map[string]any{
			"status":                   models.RequestStatusAccepted,
			"accepted_professional_id": professionalID,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("request service: accept request: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Either the request does not exist or another professional won.
		var existing models.ServiceRequest
		err := s.db.WithContext(ctx).First(&existing, "id = ?", requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("request service: load request: %w", err)
		}
		return nil, apperrors.ErrRequestClosed
	}

	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.notifyExplorerAccepted(ctx, request, professionalID)

	s.log.Info("service request accepted",
		zap.String("request_id", requestID),
		zap.String("professional_id", professionalID),
	)
	return request, nil
}

func (s *RequestService) notifyExplorerAccepted(ctx context.Context, request *models.ServiceRequest, professionalID string) {
	if s.notifications == nil {
		return
	}

	_, err := s.notifications.Create(ctx, CreateNotificationInput{
		UserID:    request.ExplorerID,
		Type:      models.NotificationTypeRequestAccepted,
		Title:     "A professional accepted your request",
		Message:   fmt.Sprintf("Your request %q has been accepted.", request.Title),
		RelatedID: request.ID,
		Metadata: map[string]any{
			"professional_id": professionalID,
		},
	})
	if err != nil {
		s.log.Warn("notify explorer failed",
			zap.String("request_id", request.ID),
			zap.Error(err),
		)
	}
}
