package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frizerino/widget-gateway/internal/booking"
	"github.com/frizerino/widget-gateway/internal/models"
	"github.com/frizerino/widget-gateway/internal/widgetapi"
)

type fakeSalonAPI struct {
	salon     *models.Salon
	datesResp *widgetapi.DatesResponse
	slotsResp *widgetapi.SlotsResponse
	bookFn    func(req widgetapi.BookRequest) (*widgetapi.Confirmation, error)
}

func (f *fakeSalonAPI) Bootstrap(ctx context.Context, slug string) (*models.Salon, error) {
	return f.salon, nil
}

func (f *fakeSalonAPI) AvailableDates(ctx context.Context, staffID int64, month string, services []widgetapi.ServiceRef) (*widgetapi.DatesResponse, error) {
	if f.datesResp == nil {
		return &widgetapi.DatesResponse{}, nil
	}
	return f.datesResp, nil
}

func (f *fakeSalonAPI) AvailableSlots(ctx context.Context, staffID int64, date string, services []widgetapi.ServiceRef) (*widgetapi.SlotsResponse, error) {
	if f.slotsResp == nil {
		return &widgetapi.SlotsResponse{Slots: []string{}}, nil
	}
	return f.slotsResp, nil
}

func (f *fakeSalonAPI) Book(ctx context.Context, req widgetapi.BookRequest) (*widgetapi.Confirmation, error) {
	if f.bookFn != nil {
		return f.bookFn(req)
	}
	return &widgetapi.Confirmation{BookingID: 1, Status: "pending"}, nil
}

func testAPI() *fakeSalonAPI {
	wh := models.WorkingHours{}
	for _, day := range models.WeekdayKeys {
		wh[day] = models.DayHours{Open: "09:00", Close: "18:00", IsOpen: day != "sunday"}
	}
	return &fakeSalonAPI{
		salon: &models.Salon{
			ID:           1,
			Slug:         "glow-salon",
			Name:         "Glow",
			WorkingHours: wh,
			Services:     []models.Service{{ID: 1, Name: "Haircut", Duration: 30, Price: 20}},
			Staff:        []models.Staff{{ID: 10, Name: "Iva"}},
		},
		datesResp: &widgetapi.DatesResponse{AvailableDates: []string{"2025-06-20"}},
		slotsResp: &widgetapi.SlotsResponse{Slots: []string{"10:00", "10:30"}},
	}
}

func newTestServer(api *fakeSalonAPI) *Server {
	now := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return New(api, zerolog.Nop(), Options{Now: now, RatePerSecond: 1000, RateBurst: 1000})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) booking.Snapshot {
	t.Helper()
	var snap booking.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/sessions", `{"salon_slug":"glow-salon"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeSnapshot(t, rec)
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(testAPI())
	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCreateSessionRequiresSlug(t *testing.T) {
	srv := newTestServer(testAPI())
	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeBadRequest)
}

func TestCreateSessionGranularityFallback(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	t.Run("config value fills unset salon settings", func(t *testing.T) {
		srv := New(testAPI(), zerolog.Nop(), Options{
			Now:             now,
			RatePerSecond:   1000,
			RateBurst:       1000,
			SlotGranularity: 60,
		})
		id := createSession(t, srv.Router())

		flow := srv.Flows().Get(id)
		require.NotNil(t, flow)
		assert.Equal(t, 60, flow.Salon.Settings.SlotGranularityMinutes)
	})

	t.Run("salon settings win over config", func(t *testing.T) {
		api := testAPI()
		api.salon.Settings.SlotGranularityMinutes = 15
		srv := New(api, zerolog.Nop(), Options{
			Now:             now,
			RatePerSecond:   1000,
			RateBurst:       1000,
			SlotGranularity: 60,
		})
		id := createSession(t, srv.Router())

		flow := srv.Flows().Get(id)
		require.NotNil(t, flow)
		assert.Equal(t, 15, flow.Salon.Settings.SlotGranularityMinutes)
	})
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(testAPI())
	rec := doJSON(t, srv.Router(), http.MethodGet, "/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeNotFound)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	srv := newTestServer(testAPI())
	router := srv.Router()
	id := createSession(t, router)
	base := "/v1/sessions/" + id

	rec := doJSON(t, router, http.MethodPost, base+"/services", `{"service_ids":[1]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StateSelectingStaff, decodeSnapshot(t, rec).State)

	rec = doJSON(t, router, http.MethodPost, base+"/staff", `{"staff_id":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, booking.StateSelectingDateTime, snap.State)
	require.NotNil(t, snap.Calendar)
	assert.True(t, snap.Calendar.Authoritative)

	rec = doJSON(t, router, http.MethodPost, base+"/date", `{"date":"2025-06-20"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	assert.Equal(t, booking.SlotsLoaded, snap.SlotsStatus)
	assert.Equal(t, []string{"10:00", "10:30"}, snap.Slots)

	rec = doJSON(t, router, http.MethodPost, base+"/time", `{"time":"10:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StateEnteringDetails, decodeSnapshot(t, rec).State)

	rec = doJSON(t, router, http.MethodPost, base+"/details", `{"name":"Ana Novak","phone":"+38591111222"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StateReviewing, decodeSnapshot(t, rec).State)

	rec = doJSON(t, router, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	assert.Equal(t, booking.StateConfirmed, snap.State)
	require.NotNil(t, snap.Confirmation)
}

func TestDetailsValidationReturns422(t *testing.T) {
	srv := newTestServer(testAPI())
	router := srv.Router()
	id := createSession(t, router)
	base := "/v1/sessions/" + id

	doJSON(t, router, http.MethodPost, base+"/services", `{"service_ids":[1]}`)
	doJSON(t, router, http.MethodPost, base+"/staff", `{"staff_id":10}`)
	doJSON(t, router, http.MethodPost, base+"/date", `{"date":"2025-06-20"}`)
	doJSON(t, router, http.MethodPost, base+"/time", `{"time":"10:00"}`)

	rec := doJSON(t, router, http.MethodPost, base+"/details", `{"name":"Al","phone":"123"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeValidation, resp.Err.Code)
	assert.Contains(t, resp.Err.FieldErrors, "name")
	assert.Contains(t, resp.Err.FieldErrors, "phone")
}

func TestSubmitConflictReturnsRolledBackSession(t *testing.T) {
	api := testAPI()
	api.bookFn = func(req widgetapi.BookRequest) (*widgetapi.Confirmation, error) {
		return nil, &widgetapi.APIError{
			StatusCode:     409,
			Code:           widgetapi.CodeSlotTaken,
			RedirectToTime: true,
		}
	}
	srv := newTestServer(api)
	router := srv.Router()
	id := createSession(t, router)
	base := "/v1/sessions/" + id

	doJSON(t, router, http.MethodPost, base+"/services", `{"service_ids":[1]}`)
	doJSON(t, router, http.MethodPost, base+"/staff", `{"staff_id":10}`)
	doJSON(t, router, http.MethodPost, base+"/date", `{"date":"2025-06-20"}`)
	doJSON(t, router, http.MethodPost, base+"/time", `{"time":"10:00"}`)
	doJSON(t, router, http.MethodPost, base+"/details", `{"name":"Ana Novak","phone":"+38591111222"}`)

	rec := doJSON(t, router, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		ErrResponse
		Session booking.Snapshot `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeSlotTaken, resp.Err.Code)
	assert.Equal(t, booking.StateSelectingDateTime, resp.Session.State)
	assert.Empty(t, resp.Session.Time)
}

func TestMonthNavigationOverHTTP(t *testing.T) {
	srv := newTestServer(testAPI())
	router := srv.Router()
	id := createSession(t, router)
	base := "/v1/sessions/" + id

	doJSON(t, router, http.MethodPost, base+"/services", `{"service_ids":[1]}`)
	doJSON(t, router, http.MethodPost, base+"/staff", `{"staff_id":10}`)

	rec := doJSON(t, router, http.MethodPost, base+"/month", `{"direction":"next"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-07", decodeSnapshot(t, rec).Month)

	rec = doJSON(t, router, http.MethodPost, base+"/month", `{"direction":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIllegalTransitionReturns409(t *testing.T) {
	srv := newTestServer(testAPI())
	router := srv.Router()
	id := createSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeInvalidTransition)
}
