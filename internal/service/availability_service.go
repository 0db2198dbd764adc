package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

type slotWriter interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, specs []models.SlotSpec) ([]models.Slot, error)
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
	DeleteUnbooked(ctx context.Context) (int64, error)
}

// AvailabilityService lets the administrator publish and withdraw slots.
// It never touches the booked flag.
type AvailabilityService struct {
	slots     slotWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds an AvailabilityService.
func NewAvailabilityService(slots slotWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{slots: slots, cache: cache, validator: validate, logger: logger}
}

// CreateSlots adds the requested slots. Slots colliding with an existing
// date and start time are skipped.
func (s *AvailabilityService) CreateSlots(ctx context.Context, req dto.CreateSlotsRequest) ([]models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, "invalid slots payload")
	}

	specs := make([]models.SlotSpec, 0, len(req.Slots))
	for i, input := range req.Slots {
		spec, err := parseSlotInput(input)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("slot %d: %v", i, err))
		}
		specs = append(specs, spec)
	}

	return s.create(ctx, specs)
}

// GenerateSlots fills [start_hour, end_hour) on one day with consecutive
// slots of the given duration. A slot that would end after end_hour is not
// generated.
func (s *AvailabilityService) GenerateSlots(ctx context.Context, req dto.GenerateSlotsRequest) ([]models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, "invalid generate payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, err.Error())
	}

	specs := GenerateSpecs(date, req.StartHour, req.EndHour, req.Duration)
	if len(specs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "hour range is shorter than one slot")
	}
	return s.create(ctx, specs)
}

// GenerateSpecs computes back-to-back slots between two whole hours.
func GenerateSpecs(date models.Date, startHour, endHour, duration int) []models.SlotSpec {
	if duration <= 0 || endHour <= startHour {
		return nil
	}
	var specs []models.SlotSpec
	limit := endHour * 60
	for minute := startHour * 60; minute+duration <= limit; minute += duration {
		start, err := models.NewClockTime(minute/60, minute%60)
		if err != nil {
			break
		}
		spec := models.SlotSpec{Date: date, StartTime: start, Duration: duration}
		if _, ok := spec.EndTime(); !ok {
			break
		}
		specs = append(specs, spec)
	}
	return specs
}

func (s *AvailabilityService) create(ctx context.Context, specs []models.SlotSpec) ([]models.Slot, error) {
	created, err := s.slots.CreateBatch(ctx, nil, specs)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to create slots")
	}
	s.cache.Invalidate(ctx, slotsCachePattern)

	s.logger.Info("slots created",
		zap.Int("requested", len(specs)),
		zap.Int("created", len(created)),
	)
	return created, nil
}

// DeleteSlot removes a free slot. A booked slot is reported as unavailable.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, id string) error {
	deleted, err := s.slots.Delete(ctx, nil, id)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to delete slot")
	}
	if deleted {
		s.cache.Invalidate(ctx, slotsCachePattern)
		return nil
	}

	if _, err := s.slots.GetByID(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to load slot")
	}
	return appErrors.Clone(appErrors.ErrSlotUnavailable, "slot is booked and cannot be deleted")
}

// DeleteFreeSlots removes every unbooked slot.
func (s *AvailabilityService) DeleteFreeSlots(ctx context.Context) (int64, error) {
	count, err := s.slots.DeleteUnbooked(ctx)
	if err != nil {
		return 0, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to delete slots")
	}
	s.cache.Invalidate(ctx, slotsCachePattern)
	s.logger.Info("free slots deleted", zap.Int64("count", count))
	return count, nil
}

func parseSlotInput(input dto.SlotInput) (models.SlotSpec, error) {
	date, err := models.ParseDate(input.Date)
	if err != nil {
		return models.SlotSpec{}, err
	}
	start, err := models.ParseClockTime(input.StartTime)
	if err != nil {
		return models.SlotSpec{}, err
	}
	spec := models.SlotSpec{Date: date, StartTime: start, Duration: input.Duration}

	end, ok := spec.EndTime()
	if !ok {
		return models.SlotSpec{}, errors.New("slot must end on the same day")
	}
	if input.EndTime != "" {
		given, err := models.ParseClockTime(input.EndTime)
		if err != nil {
			return models.SlotSpec{}, err
		}
		if given.Minutes() != end.Minutes() {
			return models.SlotSpec{}, fmt.Errorf("end_time %s does not match start_time + duration (%s)", given, end)
		}
	}
	return spec, nil
}
