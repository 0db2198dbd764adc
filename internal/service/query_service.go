package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

const (
	slotsCachePrefix  = "slots:free:"
	slotsCachePattern = "slots:*"
)

type slotReader interface {
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Slot, error)
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

// QueryService is the read side for slots and bookings.
type QueryService struct {
	slots    slotReader
	bookings bookingReader
	cache    *CacheService
	cacheTTL time.Duration
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewQueryService builds a QueryService. Dates without an explicit filter
// resolve "today" in location.
func NewQueryService(slots slotReader, bookings bookingReader, cache *CacheService, cacheTTL time.Duration, location *time.Location, logger *zap.Logger) *QueryService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{
		slots:    slots,
		bookings: bookings,
		cache:    cache,
		cacheTTL: cacheTTL,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// ListFreeSlots returns unbooked slots for the public calendar.
func (s *QueryService) ListFreeSlots(ctx context.Context, query dto.SlotQuery) ([]models.Slot, error) {
	filter, key, err := s.resolveFilter(query)
	if err != nil {
		return nil, err
	}
	filter.FreeOnly = true

	cacheKey := slotsCachePrefix + key
	var cached []models.Slot
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to list slots")
	}
	s.cache.Set(ctx, cacheKey, slots, s.cacheTTL)
	return slots, nil
}

// ListSlots returns booked and free slots for the admin dashboard.
func (s *QueryService) ListSlots(ctx context.Context, query dto.SlotQuery) ([]models.Slot, error) {
	filter, _, err := s.resolveFilter(query)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to list slots")
	}
	return slots, nil
}

// ListBookings returns bookings newest first, each joined with its slot.
func (s *QueryService) ListBookings(ctx context.Context, query dto.BookingQuery) ([]models.Booking, error) {
	status := models.BookingStatus(query.Status)
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("unknown booking status %q", query.Status))
	}

	bookings, err := s.bookings.List(ctx, models.BookingFilter{Status: status})
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to list bookings")
	}
	if err := s.attachSlots(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetBooking returns one booking joined with its slot.
func (s *QueryService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to load booking")
	}
	bookings := []models.Booking{*booking}
	if err := s.attachSlots(ctx, bookings); err != nil {
		return nil, err
	}
	return &bookings[0], nil
}

func (s *QueryService) attachSlots(ctx context.Context, bookings []models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.SlotID]; ok {
			continue
		}
		seen[b.SlotID] = struct{}{}
		ids = append(ids, b.SlotID)
	}

	slots, err := s.slots.GetByIDs(ctx, ids)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrPersistence, "failed to load booking slots")
	}
	byID := make(map[string]models.Slot, len(slots))
	for _, slot := range slots {
		byID[slot.ID] = slot
	}
	for i := range bookings {
		if slot, ok := byID[bookings[i].SlotID]; ok {
			slot := slot
			bookings[i].Slot = &slot
		}
	}
	return nil
}

// resolveFilter turns a query into a date filter and a cache key. An explicit
// date wins over a month; with neither, slots from today onward are listed.
func (s *QueryService) resolveFilter(query dto.SlotQuery) (models.SlotFilter, string, error) {
	switch {
	case query.Date != "":
		date, err := models.ParseDate(query.Date)
		if err != nil {
			return models.SlotFilter{}, "", appErrors.Clone(appErrors.ErrInvalidRequest, err.Error())
		}
		return models.SlotFilter{Date: date}, "date:" + date.String(), nil
	case query.Month != "":
		first, last, err := models.MonthRange(query.Month)
		if err != nil {
			return models.SlotFilter{}, "", appErrors.Clone(appErrors.ErrInvalidRequest, err.Error())
		}
		return models.SlotFilter{From: first, To: last}, "month:" + query.Month, nil
	default:
		today := models.DateOf(s.now().In(s.location))
		return models.SlotFilter{From: today}, "from:" + today.String(), nil
	}
}
