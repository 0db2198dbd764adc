package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/models"
)

func newReminderFixture(t *testing.T, notifier Notifier) (*reservationFixture, *ReminderService) {
	t.Helper()
	f := newReservationFixture(t)
	svc := NewReminderService(memBookings{f.db}, memSlots{f.db}, notifier, nil, zap.NewNop(), ReminderConfig{
		Schedule: "*/5 * * * *",
		LeadTime: time.Hour,
		Window:   15 * time.Minute,
	})
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) }
	return f, svc
}

func TestReminderRunOnceRemindsSessionsInWindow(t *testing.T) {
	notifier := &notifierStub{}
	f, svc := newReminderFixture(t, notifier)

	due := seedSlot(t, f.db, june10(), 9, 60)
	later := seedSlot(t, f.db, june10(), 10, 60)

	gone, err := f.svc.Reserve(context.Background(), bookingRequest(due.ID, 60))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), gone.Booking.ID)
	require.NoError(t, err)
	dueBooking, err := f.svc.Reserve(context.Background(), bookingRequest(due.ID, 60))
	require.NoError(t, err)
	_, err = f.svc.Reserve(context.Background(), bookingRequest(later.ID, 60))
	require.NoError(t, err)

	sent, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.reminders, 1)
	assert.Equal(t, dueBooking.Booking.ID, notifier.reminders[0].BookingID)

	again, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again, "reminders are sent once")
	assert.Len(t, notifier.reminders, 1)
}

func TestReminderFailureLeavesBookingPending(t *testing.T) {
	notifier := &notifierStub{reminderErr: errors.New("resend down")}
	f, svc := newReminderFixture(t, notifier)
	slot := seedSlot(t, f.db, june10(), 9, 60)
	result, err := f.svc.Reserve(context.Background(), bookingRequest(slot.ID, 60))
	require.NoError(t, err)

	sent, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := memBookings{f.db}.GetByID(context.Background(), nil, result.Booking.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderSentAt)
}

type overlappingNotifier struct {
	sends  int
	during func()
}

func (n *overlappingNotifier) SendBookingConfirmation(ctx context.Context, adminEmail string, details models.BookingDetails) error {
	return nil
}

func (n *overlappingNotifier) SendSessionReminder(ctx context.Context, details models.BookingDetails) error {
	n.sends++
	if n.during != nil {
		during := n.during
		n.during = nil
		during()
	}
	return nil
}

func TestReminderOverlappingRunsSendOnce(t *testing.T) {
	notifier := &overlappingNotifier{}
	f, svc := newReminderFixture(t, notifier)
	slot := seedSlot(t, f.db, june10(), 9, 60)
	result, err := f.svc.Reserve(context.Background(), bookingRequest(slot.ID, 60))
	require.NoError(t, err)

	var overlapped int
	notifier.during = func() {
		overlapped, err = svc.RunOnce(context.Background())
	}

	sent, runErr := svc.RunOnce(context.Background())
	require.NoError(t, runErr)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Zero(t, overlapped)
	assert.Equal(t, 1, notifier.sends)

	stored, err := memBookings{f.db}.GetByID(context.Background(), nil, result.Booking.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ReminderSentAt)
}

func TestReminderRetriesAfterFailedSend(t *testing.T) {
	notifier := &notifierStub{reminderErr: errors.New("resend down")}
	f, svc := newReminderFixture(t, notifier)
	slot := seedSlot(t, f.db, june10(), 9, 60)
	_, err := f.svc.Reserve(context.Background(), bookingRequest(slot.ID, 60))
	require.NoError(t, err)

	sent, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	notifier.mu.Lock()
	notifier.reminderErr = nil
	notifier.mu.Unlock()

	sent, err = svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestReminderWithoutNotifierIsNoop(t *testing.T) {
	_, svc := newReminderFixture(t, nil)

	sent, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestReminderStartRejectsInvalidSchedule(t *testing.T) {
	_, svc := newReminderFixture(t, &notifierStub{})
	svc.cfg.Schedule = "every now and then"

	require.Error(t, svc.Start(context.Background()))
}

func TestReminderStartStop(t *testing.T) {
	_, svc := newReminderFixture(t, &notifierStub{})

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Start(context.Background()))
	svc.Stop()
	svc.Stop()
}
