package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/jobs"
)

// Follow-up job types.
const (
	JobBookingConfirmation = "booking.confirmation"
	JobBookingCalendar     = "booking.calendar"
)

// Notifier delivers booking emails.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, adminEmail string, details models.BookingDetails) error
	SendSessionReminder(ctx context.Context, details models.BookingDetails) error
}

// CalendarSync records sessions in the external calendar.
type CalendarSync interface {
	CreateEvent(ctx context.Context, details models.BookingDetails) error
}

// DispatcherConfig tunes the follow-up worker pool.
type DispatcherConfig struct {
	AdminEmail string
	Location   *time.Location
	Timeout    time.Duration
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// DrainTimeout bounds how long Stop keeps delivering queued follow-ups.
	DrainTimeout time.Duration
}

// ConfirmationDispatcher runs the confirmation email and calendar sync for a
// committed booking on a background queue. Each step is retried on its own
// and a failure never reaches the booking.
type ConfirmationDispatcher struct {
	notifier Notifier
	calendar CalendarSync
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      DispatcherConfig
}

// NewConfirmationDispatcher builds the dispatcher. notifier and calendar may be nil.
func NewConfirmationDispatcher(notifier Notifier, calendar CalendarSync, metrics *MetricsService, logger *zap.Logger, cfg DispatcherConfig) *ConfirmationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &ConfirmationDispatcher{
		notifier: notifier,
		calendar: calendar,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
	d.queue = jobs.NewQueue("booking-followups", d.handle, jobs.QueueConfig{
		Workers:      cfg.Workers,
		BufferSize:   cfg.BufferSize,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		DrainTimeout: cfg.DrainTimeout,
		Logger:       logger,
		OnFailure:    d.onFailure,
	})
	return d
}

// Start launches the workers.
func (d *ConfirmationDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop delivers the follow-ups already queued, then stops the workers.
func (d *ConfirmationDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch schedules the follow-ups for booking. It never blocks; when the
// queue is saturated the step is dropped and logged.
func (d *ConfirmationDispatcher) Dispatch(booking models.Booking, slot models.Slot) {
	details := models.NewBookingDetails(booking, slot, d.cfg.Location)

	for _, jobType := range []string{JobBookingConfirmation, JobBookingCalendar} {
		if !d.configured(jobType) {
			d.metrics.RecordFollowUp(jobType, "skipped")
			d.logger.Debug("follow-up skipped, collaborator not configured", zap.String("step", jobType), zap.String("booking_id", booking.ID))
			continue
		}
		err := d.queue.TryEnqueue(jobs.Job{Type: jobType, Payload: details})
		if err != nil {
			d.metrics.RecordFollowUp(jobType, "dropped")
			d.logger.Warn("follow-up not queued",
				zap.String("step", jobType),
				zap.String("booking_id", booking.ID),
				zap.Error(err),
			)
		}
	}
}

func (d *ConfirmationDispatcher) configured(jobType string) bool {
	switch jobType {
	case JobBookingConfirmation:
		return d.notifier != nil
	case JobBookingCalendar:
		return d.calendar != nil
	}
	return false
}

func (d *ConfirmationDispatcher) handle(ctx context.Context, job jobs.Job) error {
	details, ok := job.Payload.(models.BookingDetails)
	if !ok {
		d.logger.Error("unexpected follow-up payload", zap.String("type", job.Type))
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	var err error
	switch job.Type {
	case JobBookingConfirmation:
		err = d.notifier.SendBookingConfirmation(callCtx, d.cfg.AdminEmail, details)
	case JobBookingCalendar:
		err = d.calendar.CreateEvent(callCtx, details)
	default:
		return fmt.Errorf("unknown follow-up type %s", job.Type)
	}
	if err != nil {
		d.metrics.RecordFollowUp(job.Type, "retry")
		return appErrors.WrapAs(err, appErrors.ErrExternalService, job.Type+" failed")
	}

	d.metrics.RecordFollowUp(job.Type, "ok")
	d.logger.Info("follow-up delivered", zap.String("step", job.Type), zap.String("booking_id", details.BookingID))
	return nil
}

func (d *ConfirmationDispatcher) onFailure(job jobs.Job, err error) {
	d.metrics.RecordFollowUp(job.Type, "failed")
	fields := []zap.Field{zap.String("step", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err)}
	if details, ok := job.Payload.(models.BookingDetails); ok {
		fields = append(fields, zap.String("booking_id", details.BookingID))
	}
	d.logger.Warn("follow-up abandoned", fields...)
}
