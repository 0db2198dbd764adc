package dto

import "github.com/mentix-trading/mentix-api/internal/models"

// CreateBookingRequest is submitted by a visitor reserving a slot.
type CreateBookingRequest struct {
	SlotID string `json:"slot_id" validate:"required,uuid"`
	models.ClientInfo
	Duration int `json:"duration" validate:"required,min=1"`
}

// UpdateBookingRequest changes a booking's status or moves it to another slot.
type UpdateBookingRequest struct {
	Status    string `json:"status" validate:"omitempty,oneof=confirmed completed cancelled rescheduled"`
	NewSlotID string `json:"new_slot_id" validate:"omitempty,uuid"`
}

// BookingQuery filters the administrative booking listing.
type BookingQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=confirmed completed cancelled rescheduled"`
}

// ExportBookingsQuery selects the booking export format.
type ExportBookingsQuery struct {
	BookingQuery
	Format string `form:"format"`
}
