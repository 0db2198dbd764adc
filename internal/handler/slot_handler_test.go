package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

func TestSlotHandlerListFreePassesFilters(t *testing.T) {
	svc := &fakeSlotService{slots: []models.Slot{{ID: "s-1"}, {ID: "s-2"}}}
	h := NewSlotHandler(svc, svc)

	c, rec := newTestContext(http.MethodGet, "/slots?month=2025-02", nil)
	h.ListFree(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-02", svc.lastQuery.Month)
	envelope := decodeEnvelope(t, rec)
	assert.EqualValues(t, 2, envelope.Meta["count"])
}

func TestSlotHandlerListFreeSurfacesInvalidFilter(t *testing.T) {
	svc := &fakeSlotService{err: appErrors.Clone(appErrors.ErrInvalidRequest, "month must be YYYY-MM")}
	h := NewSlotHandler(svc, svc)

	c, rec := newTestContext(http.MethodGet, "/slots?month=02-2025", nil)
	h.ListFree(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_REQUEST", envelope.Error["code"])
}

func TestSlotHandlerCreateRejectsMalformedJSON(t *testing.T) {
	svc := &fakeSlotService{}
	h := NewSlotHandler(svc, svc)

	c, rec := newTestContext(http.MethodPost, "/admin/slots", "{")
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.lastCreate.Slots)
}

func TestSlotHandlerCreateReportsSkippedDuplicates(t *testing.T) {
	svc := &fakeSlotService{slots: []models.Slot{{ID: "s-1"}}}
	h := NewSlotHandler(svc, svc)

	body := map[string]interface{}{"slots": []map[string]interface{}{
		{"date": "2025-06-10", "start_time": "09:00", "duration": 60},
		{"date": "2025-06-10", "start_time": "09:00", "duration": 60},
	}}
	c, rec := newTestContext(http.MethodPost, "/admin/slots", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.lastCreate.Slots, 2)
	envelope := decodeEnvelope(t, rec)
	assert.EqualValues(t, 2, envelope.Meta["requested"])
	assert.EqualValues(t, 1, envelope.Meta["created"])
}

func TestSlotHandlerGenerate(t *testing.T) {
	svc := &fakeSlotService{slots: []models.Slot{{ID: "s-1"}, {ID: "s-2"}, {ID: "s-3"}}}
	h := NewSlotHandler(svc, svc)

	body := map[string]interface{}{"date": "2025-06-10", "start_hour": 9, "end_hour": 12, "duration": 60}
	c, rec := newTestContext(http.MethodPost, "/admin/slots/generate", body)
	h.Generate(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 9, svc.lastGen.StartHour)
	assert.Equal(t, 12, svc.lastGen.EndHour)
	assert.EqualValues(t, 3, decodeEnvelope(t, rec).Meta["created"])
}

func TestSlotHandlerDeleteBookedSlotConflicts(t *testing.T) {
	svc := &fakeSlotService{err: appErrors.Clone(appErrors.ErrSlotUnavailable, "slot has an active booking")}
	h := NewSlotHandler(svc, svc)

	c, rec := newTestContext(http.MethodDelete, "/admin/slots/s-1", nil)
	c.Params = append(c.Params, ginParam("id", "s-1"))
	h.Delete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "s-1", svc.deletedID)
}

func TestSlotHandlerDeleteFreeRequiresConfirmation(t *testing.T) {
	svc := &fakeSlotService{deleted: 4}
	h := NewSlotHandler(svc, svc)

	c, rec := newTestContext(http.MethodDelete, "/admin/slots", nil)
	h.DeleteFree(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, svc.deleteAll)

	c, rec = newTestContext(http.MethodDelete, "/admin/slots?all=true", nil)
	h.DeleteFree(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.deleteAll)
	assert.JSONEq(t, `{"deleted":4}`, string(decodeEnvelope(t, rec).Data))
}

func TestSlotHandlerListMapsUnknownErrors(t *testing.T) {
	svc := &fakeSlotService{err: errors.New("boom")}
	h := NewSlotHandler(svc, svc)

	c, rec := newTestContext(http.MethodGet, "/admin/slots", nil)
	h.List(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
