package api

import (
	"encoding/json"
	"net/http"
	"time"

	"amaze/internal/booking"
	"amaze/internal/metrics"
	"amaze/internal/models"

	"github.com/gorilla/mux"
)

// ReservationResponse is the admin view of one reservation.
type ReservationResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	PhoneMasked string    `json:"phone_masked"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Note        string    `json:"note,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

func toReservationResponse(res *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          res.ID,
		EventID:     res.EventID,
		Name:        res.Name,
		Phone:       res.Phone,
		PhoneMasked: models.MaskPhone(res.Phone),
		Date:        res.Date,
		Time:        res.Time,
		Note:        res.Note,
		Status:      string(res.Status),
		CreatedAt:   res.CreatedAt,
	}
}

// handleCreateReservation books a slot for a customer.
// POST /api/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation")

	var req booking.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.writer.Reserve(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

// handleListReservations lists reservations for a date, optionally filtered
// by status.
// GET /api/admin/reservations?date=YYYY-MM-DD&status=
func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_reservations")

	date, err := s.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statusFilter := models.Status(r.URL.Query().Get("status"))
	if statusFilter != "" && !models.ValidStatus(statusFilter) {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	list, err := s.writer.ListReservations(r.Context(), date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]ReservationResponse, 0, len(list))
	for _, res := range list {
		if statusFilter != "" && res.Status != statusFilter {
			continue
		}
		out = append(out, toReservationResponse(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

// handleUpdateReservationStatus moves a reservation between states.
// PATCH /api/admin/reservations/{id}/status
func (s *HTTPServer) handleUpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_reservation_status")

	var req struct {
		Status string `json:"status"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.writer.UpdateStatus(r.Context(), mux.Vars(r)["id"], models.Status(req.Status))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// handleDeleteReservation removes the backing event entirely.
// DELETE /api/admin/reservations/{id}
func (s *HTTPServer) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_reservation")

	if err := s.writer.DeleteReservation(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
