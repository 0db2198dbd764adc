package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mentix-trading/mentix-api/internal/models"
)

const bookingColumns = `id, slot_id, client_name, client_email, client_phone, client_message, duration, status,
zoom_meeting_id, zoom_join_url, zoom_start_url, reminder_sent_at, created_at, updated_at`

const uniqueViolation = "23505"

// ErrSlotHeld is returned when another live booking already references the slot.
var ErrSlotHeld = errors.New("slot is held by another active booking")

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository builds repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a booking, assigning its id and timestamps.
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, slot_id, client_name, client_email, client_phone, client_message, duration, status,
zoom_meeting_id, zoom_join_url, zoom_start_url, created_at, updated_at)
VALUES (:id, :slot_id, :client_name, :client_email, :client_phone, :client_message, :duration, :status,
:zoom_meeting_id, :zoom_join_url, :zoom_start_url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, booking); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotHeld
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetByID returns a booking or sql.ErrNoRows.
func (r *BookingRepository) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	return r.get(ctx, exec, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate returns a booking and locks its row until the surrounding
// transaction ends.
func (r *BookingRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	return r.get(ctx, exec, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) get(ctx context.Context, exec sqlx.ExtContext, query, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := sqlx.GetContext(ctx, r.exec(exec), &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// List returns bookings newest first.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var args []interface{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	bookings := make([]models.Booking, 0)
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Update applies patch and returns the stored booking, or sql.ErrNoRows.
func (r *BookingRepository) Update(ctx context.Context, exec sqlx.ExtContext, id string, patch models.BookingPatch) (*models.Booking, error) {
	sets := []string{"updated_at = $2"}
	args := []interface{}{id, time.Now().UTC()}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.SlotID != nil {
		args = append(args, *patch.SlotID)
		sets = append(sets, fmt.Sprintf("slot_id = $%d", len(args)))
	}

	query := `UPDATE bookings SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + bookingColumns

	var booking models.Booking
	if err := sqlx.GetContext(ctx, r.exec(exec), &booking, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		if isUniqueViolation(err) {
			return nil, ErrSlotHeld
		}
		return nil, fmt.Errorf("update booking: %w", err)
	}
	return &booking, nil
}

// ListAwaitingReminder returns live bookings without a reminder whose slot
// falls between from and to inclusive.
func (r *BookingRepository) ListAwaitingReminder(ctx context.Context, from, to models.Date) ([]models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
WHERE status IN ('confirmed', 'rescheduled') AND reminder_sent_at IS NULL
AND slot_id IN (SELECT id FROM availability_slots WHERE date BETWEEN $1 AND $2)`

	bookings := make([]models.Booking, 0)
	if err := r.db.SelectContext(ctx, &bookings, query, from, to); err != nil {
		return nil, fmt.Errorf("list bookings awaiting reminder: %w", err)
	}
	return bookings, nil
}

// MarkReminderSent stamps the reminder time once. It reports false when the
// reminder was already recorded.
func (r *BookingRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE bookings SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return affected(res)
}

// ClearReminderSent releases a reminder claim stamped at the given time so a
// later run can retry it.
func (r *BookingRepository) ClearReminderSent(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE bookings SET reminder_sent_at = NULL WHERE id = $1 AND reminder_sent_at = $2`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("clear reminder: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
