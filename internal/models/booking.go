package models

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingConfirmed   BookingStatus = "confirmed"
	BookingCompleted   BookingStatus = "completed"
	BookingCancelled   BookingStatus = "cancelled"
	BookingRescheduled BookingStatus = "rescheduled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingCompleted, BookingCancelled, BookingRescheduled:
		return true
	}
	return false
}

// HoldsSlot reports whether a booking in this status occupies its slot.
func (s BookingStatus) HoldsSlot() bool {
	return s != BookingCancelled
}

// Booking is a client's reservation of exactly one slot.
type Booking struct {
	ID             string        `db:"id" json:"id"`
	SlotID         string        `db:"slot_id" json:"slot_id"`
	ClientName     string        `db:"client_name" json:"client_name"`
	ClientEmail    string        `db:"client_email" json:"client_email"`
	ClientPhone    *string       `db:"client_phone" json:"client_phone,omitempty"`
	ClientMessage  *string       `db:"client_message" json:"client_message,omitempty"`
	Duration       int           `db:"duration" json:"duration"`
	Status         BookingStatus `db:"status" json:"status"`
	ZoomMeetingID  *string       `db:"zoom_meeting_id" json:"zoom_meeting_id,omitempty"`
	ZoomJoinURL    *string       `db:"zoom_join_url" json:"zoom_join_url,omitempty"`
	ZoomStartURL   *string       `db:"zoom_start_url" json:"zoom_start_url,omitempty"`
	ReminderSentAt *time.Time    `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`

	Slot *Slot `db:"-" json:"slot,omitempty"`
}

// AttachMeeting copies the meeting reference onto the booking.
func (b *Booking) AttachMeeting(m *Meeting) {
	if m == nil {
		return
	}
	b.ZoomMeetingID = stringPtr(m.ID)
	b.ZoomJoinURL = stringPtr(m.JoinURL)
	b.ZoomStartURL = stringPtr(m.HostURL)
}

// JoinURL returns the client meeting link or an empty string.
func (b Booking) JoinURL() string {
	if b.ZoomJoinURL == nil {
		return ""
	}
	return *b.ZoomJoinURL
}

// BookingFilter narrows administrative booking listings.
type BookingFilter struct {
	Status BookingStatus
}

// BookingPatch lists the mutable booking fields. Nil fields are left as is.
type BookingPatch struct {
	Status *BookingStatus
	SlotID *string
}

// ClientInfo is the contact data a visitor submits when booking.
type ClientInfo struct {
	Name    string `json:"client_name" validate:"required,max=200"`
	Email   string `json:"client_email" validate:"required,email,max=320"`
	Phone   string `json:"client_phone" validate:"omitempty,max=40"`
	Message string `json:"client_message" validate:"omitempty,max=2000"`
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
