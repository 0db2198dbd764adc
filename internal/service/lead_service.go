package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

// LeadPublisher forwards an enrollment lead to the sales channel.
type LeadPublisher interface {
	PublishLead(ctx context.Context, lead models.Lead) error
}

// LeadService validates enrollment form submissions and forwards them.
type LeadService struct {
	publisher LeadPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeadService constructs a LeadService. A nil publisher rejects every lead.
func NewLeadService(publisher LeadPublisher, validate *validator.Validate, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeadService{publisher: publisher, validator: validate, logger: logger}
}

// Submit validates the lead and publishes it.
func (s *LeadService) Submit(ctx context.Context, lead models.Lead) (*models.LeadReceipt, error) {
	lead.FullName = strings.TrimSpace(lead.FullName)
	lead.Email = strings.TrimSpace(lead.Email)
	lead.WhatsApp = strings.TrimSpace(lead.WhatsApp)

	if err := s.validator.Struct(lead); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid enrollment form")
	}
	if !validWhatsApp(lead.WhatsApp) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "whatsapp number must have 10 or 11 digits")
	}
	if s.publisher == nil {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "lead channel is not configured")
	}

	if err := s.publisher.PublishLead(ctx, lead); err != nil {
		s.logger.Warn("failed to publish lead", zap.String("email", lead.Email), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrExternalService, "failed to submit application")
	}

	s.logger.Info("lead submitted", zap.String("budget", lead.Budget), zap.Bool("eligible", lead.Eligible()))
	return &models.LeadReceipt{Eligible: lead.Eligible()}, nil
}

func validWhatsApp(number string) bool {
	if len(number) < 10 || len(number) > 11 {
		return false
	}
	for _, r := range number {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
