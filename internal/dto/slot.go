package dto

// SlotQuery filters slot listings by day (YYYY-MM-DD) or month (YYYY-MM).
type SlotQuery struct {
	Date  string `form:"date"`
	Month string `form:"month"`
}

// SlotInput describes one slot to create. EndTime is optional and must
// agree with StartTime + Duration when given.
type SlotInput struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration" validate:"required,min=5,max=480"`
}

// CreateSlotsRequest adds one or more slots.
type CreateSlotsRequest struct {
	Slots []SlotInput `json:"slots" validate:"required,min=1,max=500,dive"`
}

// GenerateSlotsRequest fills an hour range on one day with back-to-back slots.
type GenerateSlotsRequest struct {
	Date      string `json:"date" validate:"required"`
	StartHour int    `json:"start_hour" validate:"min=0,max=23"`
	EndHour   int    `json:"end_hour" validate:"min=1,max=23,gtfield=StartHour"`
	Duration  int    `json:"duration" validate:"required,min=5,max=480"`
}

// DeleteSlotsResult reports how many slots a bulk delete removed.
type DeleteSlotsResult struct {
	Deleted int64 `json:"deleted"`
}
