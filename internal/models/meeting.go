package models

import "time"

// MeetingRequest asks the meeting provider for a scheduled session.
type MeetingRequest struct {
	Topic           string
	StartTime       time.Time
	DurationMinutes int
}

// Meeting is the provider's reference to a created session.
type Meeting struct {
	ID      string `json:"id"`
	JoinURL string `json:"join_url"`
	HostURL string `json:"start_url"`
}

// BookingDetails is the payload handed to the notification and calendar
// collaborators once a reservation is committed.
type BookingDetails struct {
	BookingID   string
	ClientName  string
	ClientEmail string
	Date        Date
	StartTime   ClockTime
	Duration    int
	StartsAt    time.Time
	JoinURL     string
}

// EndsAt returns the session end instant.
func (d BookingDetails) EndsAt() time.Time {
	return d.StartsAt.Add(time.Duration(d.Duration) * time.Minute)
}

// NewBookingDetails assembles details from a booking and its slot.
func NewBookingDetails(b Booking, s Slot, loc *time.Location) BookingDetails {
	return BookingDetails{
		BookingID:   b.ID,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		Date:        s.Date,
		StartTime:   s.StartTime,
		Duration:    b.Duration,
		StartsAt:    s.StartsAt(loc),
		JoinURL:     b.JoinURL(),
	}
}

// ReservationResult is returned by a successful Reserve. MeetingPending is
// set when the booking was committed without a meeting link.
type ReservationResult struct {
	Booking        Booking  `json:"booking"`
	Meeting        *Meeting `json:"meeting,omitempty"`
	MeetingPending bool     `json:"meeting_pending"`
}
