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

const slotColumns = `id, date, start_time, end_time, duration, is_booked, created_at, updated_at`

// ErrInvalidSlotSpec is returned when a spec has no valid end time.
var ErrInvalidSlotSpec = errors.New("slot must have a positive duration and end on the same day")

// SlotRepository persists availability slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository builds repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch inserts slots, skipping any whose date, start time and duration already
// exist. Only the inserted slots are returned.
func (r *SlotRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, specs []models.SlotSpec) ([]models.Slot, error) {
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO availability_slots (` + slotColumns + `)
VALUES ($1, $2, $3, $4, $5, FALSE, $6, $6)
ON CONFLICT (date, start_time, duration) DO NOTHING
RETURNING ` + slotColumns

	created := make([]models.Slot, 0, len(specs))
	for _, spec := range specs {
		end, ok := spec.EndTime()
		if !ok {
			return nil, fmt.Errorf("create slot %s %s: %w", spec.Date, spec.StartTime, ErrInvalidSlotSpec)
		}

		var slot models.Slot
		err := sqlx.GetContext(ctx, target, &slot, query, uuid.NewString(), spec.Date, spec.StartTime, end, spec.Duration, now)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create slot: %w", err)
		}
		created = append(created, slot)
	}
	return created, nil
}

// GetByID returns a slot or sql.ErrNoRows.
func (r *SlotRepository) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error) {
	const query = `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`
	var slot models.Slot
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &slot, nil
}

// GetByIDs returns the slots matching ids in no particular order.
func (r *SlotRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Slot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = ANY($1)`
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get slots by ids: %w", err)
	}
	return slots, nil
}

// List returns slots matching filter ordered by date then start time.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, error) {
	var conditions []string
	var args []interface{}

	if filter.FreeOnly {
		conditions = append(conditions, "is_booked = FALSE")
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT ` + slotColumns + ` FROM availability_slots`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	slots := make([]models.Slot, 0)
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// SetBooked flips the booked flag only if it currently holds the opposite
// value. It reports whether this call changed the row, so two concurrent
// callers can never both acquire the same slot.
func (r *SlotRepository) SetBooked(ctx context.Context, exec sqlx.ExtContext, id string, booked bool) (bool, error) {
	const query = `UPDATE availability_slots SET is_booked = $2, updated_at = $3 WHERE id = $1 AND is_booked = $4`
	res, err := r.exec(exec).ExecContext(ctx, query, id, booked, time.Now().UTC(), !booked)
	if err != nil {
		return false, fmt.Errorf("set slot booked: %w", err)
	}
	return affected(res)
}

// Delete removes an unbooked slot. It reports false when the slot is missing
// or currently booked.
func (r *SlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	const query = `DELETE FROM availability_slots WHERE id = $1 AND is_booked = FALSE`
	res, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}
	return affected(res)
}

// DeleteUnbooked removes every free slot and returns how many were removed.
func (r *SlotRepository) DeleteUnbooked(ctx context.Context) (int64, error) {
	const query = `DELETE FROM availability_slots WHERE is_booked = FALSE`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete unbooked slots: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete unbooked slots: %w", err)
	}
	return count, nil
}

func affected(res sql.Result) (bool, error) {
	count, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return count == 1, nil
}
