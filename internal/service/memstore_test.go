package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/internal/repository"
	"github.com/mentix-trading/mentix-api/pkg/database"
)

// memDB is an in-memory stand-in for Postgres. Transactions are serialised
// and restored from a snapshot when fn fails.
type memDB struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	slots    map[string]models.Slot
	bookings map[string]models.Booking
	seq      int

	createErr error
	updateErr error
}

func (db *memDB) booking(t *testing.T, id string) models.Booking {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	booking, ok := db.bookings[id]
	require.True(t, ok, "booking %s missing", id)
	return booking
}

// brokenRollbackTx runs transactions on a memDB but reports every failed
// one as not rolled back.
type brokenRollbackTx struct{ db *memDB }

func (b brokenRollbackTx) WithinTx(ctx context.Context, fn database.TxFunc) error {
	if err := b.db.WithinTx(ctx, fn); err != nil {
		return errors.Join(err, fmt.Errorf("%w: %w", database.ErrRollbackFailed, errors.New("connection reset")))
	}
	return nil
}

func newMemDB() *memDB {
	return &memDB{slots: map[string]models.Slot{}, bookings: map[string]models.Booking{}}
}

func (db *memDB) WithinTx(ctx context.Context, fn database.TxFunc) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	slots := make(map[string]models.Slot, len(db.slots))
	for k, v := range db.slots {
		slots[k] = v
	}
	bookings := make(map[string]models.Booking, len(db.bookings))
	for k, v := range db.bookings {
		bookings[k] = v
	}
	db.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		db.mu.Lock()
		db.slots = slots
		db.bookings = bookings
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *memDB) slot(t *testing.T, id string) models.Slot {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.slots[id]
	require.True(t, ok, "slot %s missing", id)
	return s
}

// activeHolders counts non-cancelled bookings per slot.
func (db *memDB) activeHolders() map[string]int {
	db.mu.Lock()
	defer db.mu.Unlock()
	counts := map[string]int{}
	for _, b := range db.bookings {
		if b.Status.HoldsSlot() {
			counts[b.SlotID]++
		}
	}
	return counts
}

type memSlots struct{ db *memDB }

func (m memSlots) CreateBatch(ctx context.Context, exec sqlx.ExtContext, specs []models.SlotSpec) ([]models.Slot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	now := time.Now().UTC()
	created := make([]models.Slot, 0, len(specs))
	for _, spec := range specs {
		end, ok := spec.EndTime()
		if !ok {
			return nil, repository.ErrInvalidSlotSpec
		}
		duplicate := false
		for _, existing := range m.db.slots {
			if existing.Date.Equal(spec.Date) && existing.StartTime.Minutes() == spec.StartTime.Minutes() &&
				existing.Duration == spec.Duration {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		slot := models.Slot{
			ID:        uuid.NewString(),
			Date:      spec.Date,
			StartTime: spec.StartTime,
			EndTime:   end,
			Duration:  spec.Duration,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.db.slots[slot.ID] = slot
		created = append(created, slot)
	}
	return created, nil
}

func (m memSlots) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	slot, ok := m.db.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

func (m memSlots) GetByIDs(ctx context.Context, ids []string) ([]models.Slot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	result := make([]models.Slot, 0, len(ids))
	for _, id := range ids {
		if slot, ok := m.db.slots[id]; ok {
			result = append(result, slot)
		}
	}
	return result, nil
}

func (m memSlots) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	result := []models.Slot{}
	for _, slot := range m.db.slots {
		if !filter.Date.IsZero() && !slot.Date.Equal(filter.Date) {
			continue
		}
		if !filter.From.IsZero() && slot.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && slot.Date.After(filter.To) {
			continue
		}
		if filter.FreeOnly && slot.IsBooked {
			continue
		}
		result = append(result, slot)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].StartTime.Minutes() < result[j].StartTime.Minutes()
	})
	return result, nil
}

func (m memSlots) SetBooked(ctx context.Context, exec sqlx.ExtContext, id string, booked bool) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	slot, ok := m.db.slots[id]
	if !ok || slot.IsBooked == booked {
		return false, nil
	}
	slot.IsBooked = booked
	slot.UpdatedAt = time.Now().UTC()
	m.db.slots[id] = slot
	return true, nil
}

func (m memSlots) Delete(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	slot, ok := m.db.slots[id]
	if !ok || slot.IsBooked {
		return false, nil
	}
	delete(m.db.slots, id)
	return true, nil
}

func (m memSlots) DeleteUnbooked(ctx context.Context) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var count int64
	for id, slot := range m.db.slots {
		if !slot.IsBooked {
			delete(m.db.slots, id)
			count++
		}
	}
	return count, nil
}

type memBookings struct{ db *memDB }

func (m memBookings) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.createErr != nil {
		return m.db.createErr
	}
	for _, existing := range m.db.bookings {
		if existing.SlotID == booking.SlotID && existing.Status.HoldsSlot() {
			return repository.ErrSlotHeld
		}
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	m.db.seq++
	booking.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.db.seq) * time.Minute)
	booking.UpdatedAt = booking.CreatedAt
	stored := *booking
	stored.Slot = nil
	m.db.bookings[booking.ID] = stored
	return nil
}

func (m memBookings) GetByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	booking, ok := m.db.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &booking, nil
}

func (m memBookings) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	return m.GetByID(ctx, exec, id)
}

func (m memBookings) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	result := []models.Booking{}
	for _, b := range m.db.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m memBookings) Update(ctx context.Context, exec sqlx.ExtContext, id string, patch models.BookingPatch) (*models.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.updateErr != nil {
		return nil, m.db.updateErr
	}
	booking, ok := m.db.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch.Status != nil {
		booking.Status = *patch.Status
	}
	if patch.SlotID != nil {
		booking.SlotID = *patch.SlotID
	}
	if booking.Status.HoldsSlot() {
		for otherID, other := range m.db.bookings {
			if otherID != id && other.SlotID == booking.SlotID && other.Status.HoldsSlot() {
				return nil, repository.ErrSlotHeld
			}
		}
	}
	booking.UpdatedAt = time.Now().UTC()
	m.db.bookings[id] = booking
	return &booking, nil
}

func (m memBookings) ListAwaitingReminder(ctx context.Context, from, to models.Date) ([]models.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	result := []models.Booking{}
	for _, b := range m.db.bookings {
		if !b.Status.HoldsSlot() || b.Status == models.BookingCompleted || b.ReminderSentAt != nil {
			continue
		}
		slot, ok := m.db.slots[b.SlotID]
		if !ok || slot.Date.Before(from) || slot.Date.After(to) {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

func (m memBookings) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	booking, ok := m.db.bookings[id]
	if !ok || booking.ReminderSentAt != nil {
		return false, nil
	}
	booking.ReminderSentAt = &at
	m.db.bookings[id] = booking
	return true, nil
}

func (m memBookings) ClearReminderSent(ctx context.Context, id string, at time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	booking, ok := m.db.bookings[id]
	if !ok || booking.ReminderSentAt == nil || !booking.ReminderSentAt.Equal(at) {
		return nil
	}
	booking.ReminderSentAt = nil
	m.db.bookings[id] = booking
	return nil
}

func mustClock(t *testing.T, hour, minute int) models.ClockTime {
	t.Helper()
	c, err := models.NewClockTime(hour, minute)
	require.NoError(t, err)
	return c
}

// seedSlot inserts a free slot directly and returns it.
func seedSlot(t *testing.T, db *memDB, date models.Date, hour, duration int) models.Slot {
	t.Helper()
	created, err := memSlots{db}.CreateBatch(context.Background(), nil, []models.SlotSpec{{
		Date:      date,
		StartTime: mustClock(t, hour, 0),
		Duration:  duration,
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}
