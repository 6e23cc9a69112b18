package api

import (
	"net/http"
	"time"

	"amaze/internal/availability"
	"amaze/internal/metrics"
	"amaze/internal/models"
)

// AvailabilityResponse is the public availability view: only the slots a
// customer may book right now.
type AvailabilityResponse struct {
	Date     string              `json:"date"`
	Slots    []availability.Slot `json:"slots"`
	Closure  *models.DayClosure  `json:"closure,omitempty"`
	Degraded bool                `json:"degraded,omitempty"`
}

// handleHealth reports liveness.
// GET /api/health
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAvailability returns the bookable slots for a date.
// GET /api/availability?date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	date, err := s.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	day, err := s.engine.ForDate(r.Context(), date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Date:     day.Date,
		Slots:    day.Bookable(),
		Closure:  day.Closure,
		Degraded: day.Degraded,
	})
}

// handleAvailabilityFull returns the full annotated grid with occupancy
// counts and statuses.
// GET /api/availability/full?date=YYYY-MM-DD
func (s *HTTPServer) handleAvailabilityFull(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_full")

	date, err := s.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	day, err := s.engine.ForDate(r.Context(), date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// dateParam parses a required YYYY-MM-DD query parameter.
func (s *HTTPServer) dateParam(r *http.Request, name string) (time.Time, error) {
	return models.ParseDate(r.URL.Query().Get(name))
}
