package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"amaze/internal/availability"
	"amaze/internal/booking"
	"amaze/internal/closures"
	"amaze/internal/models"
	"amaze/internal/schedule"
	"amaze/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const testAdminToken = "test-admin-token"

var testLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

// nextWeekday returns an upcoming date on the given weekday, at least a week
// out so bookings are never rejected as past.
func nextWeekday(wd time.Weekday) string {
	d := time.Now().In(models.Taipei).AddDate(0, 0, 7)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(models.DateFormat)
}

func newTestServer() *HTTPServer {
	mem := store.NewMemory()
	cal := schedule.Default()
	reg := closures.NewRegistry(mem)
	engine := availability.NewEngine(cal, reg, mem, 2, &testLogger)
	writer := booking.NewWriter(cal, reg, engine, mem, 2, &testLogger)
	manager := closures.NewManager(mem, cal.SlotDuration(), &testLogger)
	return NewHTTPServer(":0", engine, writer, manager, testAdminToken, 0, &testLogger)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(adminTokenHeader, testAdminToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer()
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAvailabilityRequiresDate(t *testing.T) {
	srv := newTestServer()
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/availability?date=15-01-2026", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityForOpenDay(t *testing.T) {
	srv := newTestServer()
	monday := nextWeekday(time.Monday)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability?date="+monday, nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp AvailabilityResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, monday, resp.Date)
	assert.Len(t, resp.Slots, 17)
	assert.Nil(t, resp.Closure)
}

func TestAvailabilityOnWeeklyDayOff(t *testing.T) {
	srv := newTestServer()
	sunday := nextWeekday(time.Sunday)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability?date="+sunday, nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp AvailabilityResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Slots)
	assert.NotNil(t, resp.Closure)
	assert.True(t, resp.Closure.WeeklyDayOff)
}

func TestAvailabilityFullRequiresAdmin(t *testing.T) {
	srv := newTestServer()
	monday := nextWeekday(time.Monday)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability/full?date="+monday, nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/availability/full?date="+monday, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	var day availability.Day
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &day))
	assert.Len(t, day.Slots, 17)
}

func TestCreateReservationFlow(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	monday := nextWeekday(time.Monday)

	body := map[string]string{
		"name":  "Amy Chen",
		"phone": "0912345678",
		"date":  monday,
		"time":  "14:00",
	}
	w := doJSON(t, h, http.MethodPost, "/api/reservations", body, false)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created ReservationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.EventID)
	assert.Equal(t, "unconfirmed", created.Status)
	assert.Equal(t, "091****678", created.PhoneMasked)

	// Second booking fills the slot, third is rejected.
	body["name"] = "Ben Liu"
	w = doJSON(t, h, http.MethodPost, "/api/reservations", body, false)
	assert.Equal(t, http.StatusCreated, w.Code)

	body["name"] = "Cindy Wang"
	w = doJSON(t, h, http.MethodPost, "/api/reservations", body, false)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Admin listing shows both active reservations.
	w = doJSON(t, h, http.MethodGet, "/api/admin/reservations?date="+monday, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Reservations []ReservationResponse `json:"reservations"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Reservations, 2)
}

func TestCreateReservationValidation(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	monday := nextWeekday(time.Monday)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"invalid json", "not json", http.StatusBadRequest},
		{"unknown field", map[string]string{"name": "A", "phone": "0912345678", "date": monday, "time": "14:00", "extra": "x"}, http.StatusBadRequest},
		{"missing phone", map[string]string{"name": "A", "date": monday, "time": "14:00"}, http.StatusBadRequest},
		{"off-grid time", map[string]string{"name": "A", "phone": "0912345678", "date": monday, "time": "14:15"}, http.StatusBadRequest},
		{"weekly day off", map[string]string{"name": "A", "phone": "0912345678", "date": nextWeekday(time.Sunday), "time": "12:00"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader([]byte(s)))
				w = httptest.NewRecorder()
				h.ServeHTTP(w, req)
			} else {
				w = doJSON(t, h, http.MethodPost, "/api/reservations", tt.body, false)
			}
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestReservationStatusLifecycle(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	monday := nextWeekday(time.Monday)

	w := doJSON(t, h, http.MethodPost, "/api/reservations", map[string]string{
		"name": "Amy Chen", "phone": "0912345678", "date": monday, "time": "14:00",
	}, false)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created ReservationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Status changes are admin-only.
	w = doJSON(t, h, http.MethodPatch, "/api/admin/reservations/"+created.EventID+"/status", map[string]string{"status": "confirmed"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPatch, "/api/admin/reservations/"+created.EventID+"/status", map[string]string{"status": "confirmed"}, true)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated ReservationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "confirmed", updated.Status)

	w = doJSON(t, h, http.MethodPatch, "/api/admin/reservations/"+created.EventID+"/status", map[string]string{"status": "bogus"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/admin/reservations/"+created.EventID, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/admin/reservations/"+created.EventID, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClosureLifecycle(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	monday := nextWeekday(time.Monday)

	w := doJSON(t, h, http.MethodPost, "/api/closures", map[string]any{
		"start_date": monday, "label": "renovation",
	}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/closures", map[string]any{
		"start_date": monday, "end_date": monday, "label": "renovation",
	}, true)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Closures []models.ClosureEntry `json:"closures"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.Closures, 1)

	// The closed date now books as a conflict.
	w = doJSON(t, h, http.MethodPost, "/api/reservations", map[string]string{
		"name": "Amy Chen", "phone": "0912345678", "date": monday, "time": "14:00",
	}, false)
	assert.Equal(t, http.StatusConflict, w.Code)

	// And the public grid is empty.
	w = doJSON(t, h, http.MethodGet, "/api/availability?date="+monday, nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	var avail AvailabilityResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.Empty(t, avail.Slots)

	w = doJSON(t, h, http.MethodGet, "/api/closures?from="+monday+"&to="+monday, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Closures []models.DayClosure `json:"closures"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Closures, 1)
	assert.True(t, listing.Closures[0].FullDay)

	w = doJSON(t, h, http.MethodDelete, "/api/closures/"+created.Closures[0].EventID, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/availability?date="+monday, nil, false)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.Len(t, avail.Slots, 17)
}

func TestRateLimitOnBooking(t *testing.T) {
	mem := store.NewMemory()
	cal := schedule.Default()
	reg := closures.NewRegistry(mem)
	engine := availability.NewEngine(cal, reg, mem, 2, &testLogger)
	writer := booking.NewWriter(cal, reg, engine, mem, 2, &testLogger)
	manager := closures.NewManager(mem, cal.SlotDuration(), &testLogger)
	srv := NewHTTPServer(":0", engine, writer, manager, testAdminToken, 2, &testLogger)
	h := srv.Handler()

	// Burst of 2 allowed, third request from the same IP is throttled.
	for i := 0; i < 2; i++ {
		w := doJSON(t, h, http.MethodPost, "/api/reservations", "{}", false)
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}
	w := doJSON(t, h, http.MethodPost, "/api/reservations", "{}", false)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestExportReservations(t *testing.T) {
	srv := newTestServer()
	h := srv.Handler()
	monday := nextWeekday(time.Monday)

	w := doJSON(t, h, http.MethodPost, "/api/reservations", map[string]string{
		"name": "Amy Chen", "phone": "0912345678", "date": monday, "time": "14:00",
	}, false)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/admin/reservations/export?from="+monday+"&to="+monday, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, w.Body.Len())

	// Reversed range is rejected before touching the store.
	w = doJSON(t, h, http.MethodGet, "/api/admin/reservations/export?from="+monday+"&to=2020-01-01", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
