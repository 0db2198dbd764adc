package models

import "time"

// Slot is a bookable window on the mentor's calendar.
type Slot struct {
	ID        string    `db:"id" json:"id"`
	Date      Date      `db:"date" json:"date"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
	Duration  int       `db:"duration" json:"duration"`
	IsBooked  bool      `db:"is_booked" json:"is_booked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StartsAt returns the slot start as an instant in loc.
func (s Slot) StartsAt(loc *time.Location) time.Time {
	return s.Date.At(s.StartTime, loc)
}

// SlotSpec describes a slot to be created. The end time is derived.
type SlotSpec struct {
	Date      Date
	StartTime ClockTime
	Duration  int
}

// EndTime returns start + duration, or false when the slot would cross midnight.
func (s SlotSpec) EndTime() (ClockTime, bool) {
	if s.Duration <= 0 {
		return ClockTime{}, false
	}
	return s.StartTime.Add(s.Duration)
}

// SlotFilter narrows slot listings. Zero values are ignored.
type SlotFilter struct {
	Date     Date
	From     Date
	To       Date
	FreeOnly bool
}
