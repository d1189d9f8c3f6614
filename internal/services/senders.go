package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/models"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/mail"
)

// MatchAlert is the payload delivered to a candidate over every channel.
type MatchAlert struct {
	RequestID   string  `json:"request_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Urgency     string  `json:"urgency"`
	Location    string  `json:"location"`
	BudgetMin   float64 `json:"budget_min"`
	BudgetMax   float64 `json:"budget_max"`
	ExpiresAt   string  `json:"expires_at"`
}

// EmailSender hands a match alert to the outbound email channel.
type EmailSender interface {
	SendMatchAlert(ctx context.Context, userID string, alert MatchAlert) error
}

// SMSSender hands an emergency match alert to the outbound SMS channel.
type SMSSender interface {
	SendUrgentAlert(ctx context.Context, userID string, alert MatchAlert) error
}

// AddressResolver maps a platform user to an email address. The user-account
// store owns addresses; this is its read contract.
type AddressResolver func(ctx context.Context, userID string) (string, error)

// NewProfessionalAddressResolver resolves addresses from the mirrored
// contact email on the professional profile.
func NewProfessionalAddressResolver(db *gorm.DB) AddressResolver {
	return func(ctx context.Context, userID string) (string, error) {
		var pro models.Professional
		err := db.WithContext(ctx).
			Select("contact_email").
			Where("user_id = ?", userID).
			First(&pro).Error
		if err != nil {
			return "", fmt.Errorf("resolve address: %w", err)
		}
		if pro.ContactEmail == "" {
			return "", errors.New("resolve address: no contact email on file")
		}
		return pro.ContactEmail, nil
	}
}

// SMTPEmailSender delivers match alerts through the SMTP mailer.
type SMTPEmailSender struct {
	mailer  mail.Mailer
	resolve AddressResolver
}

// NewSMTPEmailSender constructs an SMTP-backed EmailSender.
func NewSMTPEmailSender(mailer mail.Mailer, resolve AddressResolver) (*SMTPEmailSender, error) {
	if mailer == nil {
		return nil, errors.New("email sender: mailer is required")
	}
	if resolve == nil {
		return nil, errors.New("email sender: address resolver is required")
	}
	return &SMTPEmailSender{mailer: mailer, resolve: resolve}, nil
}

// SendMatchAlert resolves the recipient address and sends the alert email.
func (s *SMTPEmailSender) SendMatchAlert(ctx context.Context, userID string, alert MatchAlert) error {
	address, err := s.resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("email sender: resolve address: %w", err)
	}

	body := fmt.Sprintf(
		"A new %s request matches your profile.\n\n%s\n%s\n\nLocation: %s\nBudget: %.2f - %.2f\nExpires: %s\n",
		alert.Urgency, alert.Title, alert.Description, alert.Location,
		alert.BudgetMin, alert.BudgetMax, alert.ExpiresAt,
	)

	return s.mailer.Send(ctx, mail.Message{
		To:      []string{address},
		Subject: fmt.Sprintf("New service request: %s", alert.Title),
		Body:    body,
	})
}

// LogSMSSender is the default SMS channel: it records the handoff without
// sending. Production deployments plug a gateway-backed implementation in.
type LogSMSSender struct {
	log *zap.Logger
}

// NewLogSMSSender constructs the logging SMS sender.
func NewLogSMSSender() *LogSMSSender {
	return &LogSMSSender{log: logger.WithModule("sms")}
}

// SendUrgentAlert logs the alert that would have been sent.
func (s *LogSMSSender) SendUrgentAlert(_ context.Context, userID string, alert MatchAlert) error {
	s.log.Info("sms handoff",
		zap.String("user_id", userID),
		zap.String("request_id", alert.RequestID),
		zap.String("urgency", alert.Urgency),
	)
	return nil
}
