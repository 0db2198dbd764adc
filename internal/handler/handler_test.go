package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/internal/service"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return envelope
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, encodeBody(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func encodeBody(body interface{}) io.Reader {
	switch v := body.(type) {
	case nil:
		return nil
	case string:
		return bytes.NewBufferString(v)
	default:
		raw, _ := json.Marshal(v)
		return bytes.NewBuffer(raw)
	}
}

type fakeSlotService struct {
	slots      []models.Slot
	err        error
	deleted    int64
	lastQuery  dto.SlotQuery
	lastCreate dto.CreateSlotsRequest
	lastGen    dto.GenerateSlotsRequest
	deletedID  string
	deleteAll  bool
}

func (f *fakeSlotService) ListFreeSlots(_ context.Context, query dto.SlotQuery) ([]models.Slot, error) {
	f.lastQuery = query
	return f.slots, f.err
}

func (f *fakeSlotService) ListSlots(_ context.Context, query dto.SlotQuery) ([]models.Slot, error) {
	f.lastQuery = query
	return f.slots, f.err
}

func (f *fakeSlotService) CreateSlots(_ context.Context, req dto.CreateSlotsRequest) ([]models.Slot, error) {
	f.lastCreate = req
	return f.slots, f.err
}

func (f *fakeSlotService) GenerateSlots(_ context.Context, req dto.GenerateSlotsRequest) ([]models.Slot, error) {
	f.lastGen = req
	return f.slots, f.err
}

func (f *fakeSlotService) DeleteSlot(_ context.Context, id string) error {
	f.deletedID = id
	return f.err
}

func (f *fakeSlotService) DeleteFreeSlots(context.Context) (int64, error) {
	f.deleteAll = true
	return f.deleted, f.err
}

type fakeBookingService struct {
	result     *models.ReservationResult
	booking    *models.Booking
	bookings   []models.Booking
	export     *service.ExportResult
	err        error
	lastCreate dto.CreateBookingRequest
	lastUpdate dto.UpdateBookingRequest
	lastID     string
	lastQuery  dto.BookingQuery
	lastExport dto.ExportBookingsQuery
}

func (f *fakeBookingService) Reserve(_ context.Context, req dto.CreateBookingRequest) (*models.ReservationResult, error) {
	f.lastCreate = req
	return f.result, f.err
}

func (f *fakeBookingService) Update(_ context.Context, id string, req dto.UpdateBookingRequest) (*models.Booking, error) {
	f.lastID = id
	f.lastUpdate = req
	return f.booking, f.err
}

func (f *fakeBookingService) ListBookings(_ context.Context, query dto.BookingQuery) ([]models.Booking, error) {
	f.lastQuery = query
	return f.bookings, f.err
}

func (f *fakeBookingService) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	f.lastID = id
	return f.booking, f.err
}

func (f *fakeBookingService) ExportBookings(_ context.Context, query dto.ExportBookingsQuery) (*service.ExportResult, error) {
	f.lastExport = query
	return f.export, f.err
}

func ginParam(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}
