package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/models"
)

type reminderBookingStore interface {
	ListAwaitingReminder(ctx context.Context, from, to models.Date) ([]models.Booking, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
	ClearReminderSent(ctx context.Context, id string, at time.Time) error
}

type reminderSlotReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Slot, error)
}

// ReminderConfig tunes the reminder job.
type ReminderConfig struct {
	Schedule string
	LeadTime time.Duration
	Window   time.Duration
	Timeout  time.Duration
	Location *time.Location
}

// ReminderService emails clients shortly before their session starts.
type ReminderService struct {
	bookings reminderBookingStore
	slots    reminderSlotReader
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReminderConfig
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReminderService builds the reminder job.
func NewReminderService(bookings reminderBookingStore, slots reminderSlotReader, notifier Notifier, metrics *MetricsService, logger *zap.Logger, cfg ReminderConfig) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ReminderService{
		bookings: bookings,
		slots:    slots,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start schedules RunOnce on the configured cron spec.
func (s *ReminderService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("reminder run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminder job scheduled", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop waits for a running reminder pass to finish.
func (s *ReminderService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// RunOnce reminds every live booking starting within
// [now+lead, now+lead+window) and returns how many reminders were sent.
func (s *ReminderService) RunOnce(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}

	from := s.now().In(s.cfg.Location).Add(s.cfg.LeadTime)
	to := from.Add(s.cfg.Window)

	bookings, err := s.bookings.ListAwaitingReminder(ctx, models.DateOf(from), models.DateOf(to))
	if err != nil {
		return 0, err
	}
	if len(bookings) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.SlotID)
	}
	slots, err := s.slots.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]models.Slot, len(slots))
	for _, slot := range slots {
		byID[slot.ID] = slot
	}

	sent := 0
	for _, booking := range bookings {
		slot, ok := byID[booking.SlotID]
		if !ok {
			continue
		}
		startsAt := slot.StartsAt(s.cfg.Location)
		if startsAt.Before(from) || !startsAt.Before(to) {
			continue
		}
		if s.remind(ctx, booking, slot) {
			sent++
		}
	}
	return sent, nil
}

// remind claims the booking before sending so overlapping runs never email
// the same client twice. A failed send releases the claim.
func (s *ReminderService) remind(ctx context.Context, booking models.Booking, slot models.Slot) bool {
	claimedAt := s.now().UTC().Truncate(time.Microsecond)
	claimed, err := s.bookings.MarkReminderSent(ctx, booking.ID, claimedAt)
	if err != nil {
		s.logger.Error("failed to claim reminder", zap.String("booking_id", booking.ID), zap.Error(err))
		return false
	}
	if !claimed {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	details := models.NewBookingDetails(booking, slot, s.cfg.Location)
	if err := s.notifier.SendSessionReminder(callCtx, details); err != nil {
		s.metrics.RecordReminder("failed")
		s.logger.Warn("session reminder failed", zap.String("booking_id", booking.ID), zap.Error(err))
		if err := s.bookings.ClearReminderSent(context.WithoutCancel(ctx), booking.ID, claimedAt); err != nil {
			s.logger.Error("failed to release reminder claim", zap.String("booking_id", booking.ID), zap.Error(err))
		}
		return false
	}

	s.metrics.RecordReminder("sent")
	return true
}
