package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/internal/repository"
	"github.com/mentix-trading/mentix-api/pkg/database"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	applog "github.com/mentix-trading/mentix-api/pkg/logger"
)

// MeetingPendingNotice is shown when a booking was committed without a meeting link.
const MeetingPendingNotice = "booking confirmed, meeting link pending"

type reservationSlotStore interface {
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error)
	SetBooked(ctx context.Context, exec sqlx.ExtContext, id string, booked bool) (bool, error)
}

type reservationBookingStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error)
	Update(ctx context.Context, exec sqlx.ExtContext, id string, patch models.BookingPatch) (*models.Booking, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn database.TxFunc) error
}

// MeetingProvider creates and removes video meetings.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, req models.MeetingRequest) (*models.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// FollowUpDispatcher runs the post-commit side effects of a reservation.
type FollowUpDispatcher interface {
	Dispatch(booking models.Booking, slot models.Slot)
}

// ReservationConfig tunes the coordinator.
type ReservationConfig struct {
	Location       *time.Location
	MeetingTimeout time.Duration
}

// ReservationService is the only writer of slot booked flags and bookings.
// Every operation commits both stores in one transaction.
type ReservationService struct {
	slots     reservationSlotStore
	bookings  reservationBookingStore
	tx        transactor
	meetings  MeetingProvider
	followUps FollowUpDispatcher
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReservationConfig
}

// NewReservationService wires the coordinator. meetings and followUps may be nil.
func NewReservationService(
	slots reservationSlotStore,
	bookings reservationBookingStore,
	tx transactor,
	meetings MeetingProvider,
	followUps FollowUpDispatcher,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ReservationConfig,
) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MeetingTimeout <= 0 {
		cfg.MeetingTimeout = 10 * time.Second
	}
	return &ReservationService{
		slots:     slots,
		bookings:  bookings,
		tx:        tx,
		meetings:  meetings,
		followUps: followUps,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Reserve books a free slot for a client. The meeting is requested before the
// transaction so its reference is stored with the booking; a meeting failure
// only degrades the result. Of concurrent calls for one slot exactly one wins.
func (s *ReservationService) Reserve(ctx context.Context, req dto.CreateBookingRequest) (*models.ReservationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordReservation(OutcomeInvalid)
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, "invalid booking payload")
	}

	slot, err := s.slots.GetByID(ctx, nil, req.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordReservation(OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "slot does not exist")
		}
		s.metrics.RecordReservation(OutcomePersistence)
		return nil, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to load slot")
	}
	if slot.IsBooked {
		s.metrics.RecordReservation(OutcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "slot is already booked")
	}
	if slot.Duration != req.Duration {
		s.metrics.RecordReservation(OutcomeInvalid)
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("duration %d does not match slot duration %d", req.Duration, slot.Duration))
	}

	meeting := s.createMeeting(ctx, req.Name, *slot)

	booking := &models.Booking{
		SlotID:        slot.ID,
		ClientName:    req.Name,
		ClientEmail:   req.Email,
		ClientPhone:   optional(req.Phone),
		ClientMessage: optional(req.Message),
		Duration:      req.Duration,
		Status:        models.BookingConfirmed,
	}
	booking.AttachMeeting(meeting)

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		if err := s.acquire(ctx, tx, slot.ID); err != nil {
			return err
		}
		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			if errors.Is(err, repository.ErrSlotHeld) {
				return appErrors.Clone(appErrors.ErrSlotUnavailable, "slot is already booked")
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.discardMeeting(ctx, meeting)
		appErr := s.classify(err, "failed to reserve slot")
		if errors.Is(appErr, appErrors.ErrSlotUnavailable) {
			s.metrics.RecordReservation(OutcomeConflict)
		} else {
			s.metrics.RecordReservation(OutcomePersistence)
			s.log(ctx).Error("reservation failed", zap.String("slot_id", slot.ID), zap.Error(err))
		}
		return nil, appErr
	}

	slot.IsBooked = true
	booking.Slot = slot
	s.cache.Invalidate(ctx, slotsCachePattern)
	if s.followUps != nil {
		s.followUps.Dispatch(*booking, *slot)
	}

	result := &models.ReservationResult{Booking: *booking, Meeting: meeting, MeetingPending: meeting == nil}
	if result.MeetingPending {
		s.metrics.RecordReservation(OutcomeDegraded)
	} else {
		s.metrics.RecordReservation(OutcomeConfirmed)
	}
	s.log(ctx).Info("booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("slot_id", slot.ID),
		zap.Bool("meeting_pending", result.MeetingPending),
	)
	return result, nil
}

// Cancel frees the booking's slot. Cancelling a cancelled booking succeeds
// without changes.
func (s *ReservationService) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	var result *models.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		booking, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		switch booking.Status {
		case models.BookingCancelled:
			result = booking
			return nil
		case models.BookingCompleted:
			return appErrors.Clone(appErrors.ErrInvalidRequest, "completed booking cannot be cancelled")
		}

		if _, err := s.slots.SetBooked(ctx, tx, booking.SlotID, false); err != nil {
			return err
		}
		result, err = s.setStatus(ctx, tx, id, models.BookingCancelled, nil)
		return err
	})
	return s.finishTransition(ctx, "cancel", id, result, err)
}

// Complete marks the session as held. The slot stays booked.
func (s *ReservationService) Complete(ctx context.Context, id string) (*models.Booking, error) {
	var result *models.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		booking, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		switch booking.Status {
		case models.BookingCompleted:
			result = booking
			return nil
		case models.BookingCancelled:
			return appErrors.Clone(appErrors.ErrInvalidRequest, "cancelled booking cannot be completed")
		}
		result, err = s.setStatus(ctx, tx, id, models.BookingCompleted, nil)
		return err
	})
	return s.finishTransition(ctx, "complete", id, result, err)
}

// Confirm returns a booking to confirmed. A cancelled booking must win its
// slot back through the same conditional update as Reserve.
func (s *ReservationService) Confirm(ctx context.Context, id string) (*models.Booking, error) {
	var result *models.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		booking, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		switch booking.Status {
		case models.BookingConfirmed:
			result = booking
			return nil
		case models.BookingCompleted:
			return appErrors.Clone(appErrors.ErrInvalidRequest, "completed booking cannot be reopened")
		case models.BookingCancelled:
			if _, err := s.slots.GetByID(ctx, tx, booking.SlotID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrSlotUnavailable, "slot no longer exists")
				}
				return err
			}
			if err := s.acquire(ctx, tx, booking.SlotID); err != nil {
				return err
			}
		}
		result, err = s.setStatus(ctx, tx, id, models.BookingConfirmed, nil)
		return err
	})
	return s.finishTransition(ctx, "confirm", id, result, err)
}

// Reschedule moves a live booking to another free slot of the same duration.
// Freeing the old slot, booking the new one and updating the booking commit
// together. Rescheduling onto the current slot is a no-op.
func (s *ReservationService) Reschedule(ctx context.Context, id, newSlotID string) (*models.Booking, error) {
	if newSlotID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "new_slot_id is required")
	}

	var result *models.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		booking, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking.SlotID == newSlotID {
			result = booking
			return nil
		}
		if booking.Status == models.BookingCancelled || booking.Status == models.BookingCompleted {
			return appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("%s booking cannot be rescheduled", booking.Status))
		}

		target, err := s.slots.GetByID(ctx, tx, newSlotID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrSlotUnavailable, "target slot does not exist")
			}
			return err
		}
		if target.IsBooked {
			return appErrors.Clone(appErrors.ErrSlotUnavailable, "target slot is already booked")
		}
		if target.Duration != booking.Duration {
			return appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("target slot lasts %d minutes, booking needs %d", target.Duration, booking.Duration))
		}

		if err := s.acquire(ctx, tx, newSlotID); err != nil {
			return err
		}
		if _, err := s.slots.SetBooked(ctx, tx, booking.SlotID, false); err != nil {
			return err
		}
		result, err = s.setStatus(ctx, tx, id, models.BookingRescheduled, &newSlotID)
		return err
	})
	return s.finishTransition(ctx, "reschedule", id, result, err)
}

// Update applies an administrative patch. A new slot reschedules; otherwise
// the status selects cancel, complete or confirm.
func (s *ReservationService) Update(ctx context.Context, id string, req dto.UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, "invalid booking update")
	}

	status := models.BookingStatus(req.Status)
	if req.NewSlotID != "" {
		if status != "" && status != models.BookingRescheduled {
			return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "new_slot_id cannot be combined with status "+req.Status)
		}
		return s.Reschedule(ctx, id, req.NewSlotID)
	}

	switch status {
	case models.BookingCancelled:
		return s.Cancel(ctx, id)
	case models.BookingCompleted:
		return s.Complete(ctx, id)
	case models.BookingConfirmed:
		return s.Confirm(ctx, id)
	case models.BookingRescheduled:
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "new_slot_id is required to reschedule")
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "status or new_slot_id is required")
	}
}

func (s *ReservationService) acquire(ctx context.Context, tx sqlx.ExtContext, slotID string) error {
	acquired, err := s.slots.SetBooked(ctx, tx, slotID, true)
	if err != nil {
		return err
	}
	if !acquired {
		return appErrors.Clone(appErrors.ErrSlotUnavailable, "slot is already booked")
	}
	return nil
}

func (s *ReservationService) lockBooking(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Booking, error) {
	booking, err := s.bookings.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, err
	}
	return booking, nil
}

func (s *ReservationService) setStatus(ctx context.Context, tx sqlx.ExtContext, id string, status models.BookingStatus, slotID *string) (*models.Booking, error) {
	booking, err := s.bookings.Update(ctx, tx, id, models.BookingPatch{Status: &status, SlotID: slotID})
	if err != nil {
		if errors.Is(err, repository.ErrSlotHeld) {
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "slot is already booked")
		}
		return nil, err
	}
	return booking, nil
}

// log tags entries with the request ID carried by ctx.
func (s *ReservationService) log(ctx context.Context) *zap.Logger {
	return applog.WithContext(ctx, s.logger)
}

func (s *ReservationService) finishTransition(ctx context.Context, operation, id string, booking *models.Booking, err error) (*models.Booking, error) {
	s.metrics.RecordTransition(operation, err)
	if err != nil {
		appErr := s.classify(err, "failed to "+operation+" booking")
		if errors.Is(appErr, appErrors.ErrPersistence) {
			s.log(ctx).Error("booking transition failed", zap.String("operation", operation), zap.String("booking_id", id), zap.Error(err))
		}
		return nil, appErr
	}
	s.cache.Invalidate(ctx, slotsCachePattern)
	s.log(ctx).Info("booking updated", zap.String("operation", operation), zap.String("booking_id", id), zap.String("status", string(booking.Status)))
	return booking, nil
}

// classify keeps domain errors raised inside the transaction and turns
// everything else, including failed rollbacks, into a retryable persistence failure.
func (s *ReservationService) classify(err error, message string) error {
	if errors.Is(err, database.ErrRollbackFailed) {
		return appErrors.WrapAs(err, appErrors.ErrPersistence, message)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.WrapAs(err, appErrors.ErrPersistence, message)
}

func (s *ReservationService) createMeeting(ctx context.Context, clientName string, slot models.Slot) *models.Meeting {
	if s.meetings == nil {
		s.log(ctx).Warn("meeting provider not configured", zap.String("slot_id", slot.ID))
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.MeetingTimeout)
	defer cancel()

	meeting, err := s.meetings.CreateMeeting(callCtx, models.MeetingRequest{
		Topic:           "1-on-1 Coaching: " + clientName,
		StartTime:       slot.StartsAt(s.cfg.Location),
		DurationMinutes: slot.Duration,
	})
	if err != nil {
		s.log(ctx).Warn("meeting creation failed",
			zap.String("slot_id", slot.ID),
			zap.String("step", "meeting"),
			zap.String("code", appErrors.ErrExternalService.Code),
			zap.Error(err),
		)
		return nil
	}
	return meeting
}

// discardMeeting deletes a meeting whose booking was never committed.
func (s *ReservationService) discardMeeting(ctx context.Context, meeting *models.Meeting) {
	if meeting == nil || s.meetings == nil {
		return
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.MeetingTimeout)
	defer cancel()

	if err := s.meetings.DeleteMeeting(callCtx, meeting.ID); err != nil {
		s.log(ctx).Warn("orphan meeting cleanup failed", zap.String("meeting_id", meeting.ID), zap.Error(err))
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
