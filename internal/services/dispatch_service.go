package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/internal/realtime"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/metrics"
)

// DispatchService fans an ordered candidate list out across the realtime,
// email, and SMS channels, persisting a deduplicated notification record per
// candidate.
type DispatchService struct {
	hub           *realtime.Hub
	notifications *NotificationService
	email         EmailSender
	sms           SMSSender
	log           *zap.Logger
}

// NewDispatchService constructs a DispatchService. Email and SMS senders are
// optional; absent channels are skipped.
func NewDispatchService(hub *realtime.Hub, notifications *NotificationService, email EmailSender, sms SMSSender) (*DispatchService, error) {
	if notifications == nil {
		return nil, errors.New("dispatch service: notification service is required")
	}
	return &DispatchService{
		hub:           hub,
		notifications: notifications,
		email:         email,
		sms:           sms,
		log:           logger.WithModule("dispatch"),
	}, nil
}

// Dispatch notifies each candidate in priority order and returns the number
// of candidates processed. The count is of candidates walked, not records
// persisted: dedup or preference suppression does not reduce it. Channel
// failures are logged and never abort the remainder of the list.
func (s *DispatchService) Dispatch(ctx context.Context, request *models.ServiceRequest, candidates []MatchCandidate) (int, error) {
	ctx = ensureContext(ctx)
	if request == nil {
		return 0, errors.New("dispatch service: request is required")
	}

	alert := alertForRequest(request)
	processed := 0

	for i := range candidates {
		candidate := &candidates[i]
		userID := candidate.Professional.UserID
		if userID == "" {
			s.log.Warn("candidate without user id, skipping",
				zap.String("professional_id", candidate.Professional.ID),
			)
			continue
		}

		// Realtime emit is best-effort and fires regardless of how the
		// persisted record turns out.
		s.emitRealtime(userID, candidate, alert)

		prefs := candidate.Preferences
		if s.email != nil && (prefs == nil || prefs.EmailOnNewRequest) {
			if err := s.email.SendMatchAlert(ctx, userID, alert); err != nil {
				metrics.NotificationsDispatched.WithLabelValues("email", "failed").Inc()
				monitoring.RecordNotificationDispatch("email", "failed")
				s.log.Warn("email handoff failed", zap.String("user_id", userID), zap.Error(err))
			} else {
				metrics.NotificationsDispatched.WithLabelValues("email", "sent").Inc()
				monitoring.RecordNotificationDispatch("email", "sent")
			}
		}

		if s.sms != nil && request.Urgency == models.UrgencyEmergency &&
			prefs != nil && prefs.SMSForUrgent {
			if err := s.sms.SendUrgentAlert(ctx, userID, alert); err != nil {
				metrics.NotificationsDispatched.WithLabelValues("sms", "failed").Inc()
				monitoring.RecordNotificationDispatch("sms", "failed")
				s.log.Warn("sms handoff failed", zap.String("user_id", userID), zap.Error(err))
			} else {
				metrics.NotificationsDispatched.WithLabelValues("sms", "sent").Inc()
				monitoring.RecordNotificationDispatch("sms", "sent")
			}
		}

		_, err := s.notifications.Create(ctx, CreateNotificationInput{
			UserID:    userID,
			Type:      models.NotificationTypeNewRequest,
			Title:     request.Title,
			Message:   fmt.Sprintf("New %s request in %s", request.Urgency, defaultIfEmpty(request.LocationText, "your area")),
			RelatedID: request.ID,
			Metadata: map[string]any{
				"request_id":     request.ID,
				"priority_score": candidate.PriorityScore,
			},
		})
		if err != nil {
			s.log.Warn("persist notification record failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}

		processed++
	}

	s.log.Info("dispatch complete",
		zap.String("request_id", request.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("processed", processed),
	)
	return processed, nil
}

func (s *DispatchService) emitRealtime(userID string, candidate *MatchCandidate, alert MatchAlert) {
	if s.hub == nil {
		return
	}

	s.hub.BroadcastToUser(realtime.StreamMatches, userID, realtime.Message{
		Event: "match.new",
		Data:  alert,
		Meta: map[string]any{
			"priority_score": candidate.PriorityScore,
		},
	})
	metrics.NotificationsDispatched.WithLabelValues("realtime", "sent").Inc()
	monitoring.RecordNotificationDispatch("realtime", "sent")
}

func alertForRequest(request *models.ServiceRequest) MatchAlert {
	return MatchAlert{
		RequestID:   request.ID,
		Title:       request.Title,
		Description: request.Description,
		Urgency:     request.Urgency,
		Location:    request.LocationText,
		BudgetMin:   request.BudgetMin,
		BudgetMax:   request.BudgetMax,
		ExpiresAt:   request.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
