package api

import (
	"encoding/json"
	"net/http"

	"amaze/internal/metrics"

	"github.com/gorilla/mux"
)

// ClosureRequest declares a closed range. Empty restricted_slots closes the
// listed days entirely.
type ClosureRequest struct {
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	Label           string   `json:"label"`
	RestrictedSlots []string `json:"restricted_slots,omitempty"`
}

// handleCreateClosure expands a closure range into per-day events.
// POST /api/closures
func (s *HTTPServer) handleCreateClosure(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_closure")

	var req ClosureRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entries, err := s.closures.CreateClosure(r.Context(), req.StartDate, req.EndDate, req.Label, req.RestrictedSlots)
	if err != nil {
		// A mid-range failure still created some events; report both.
		if len(entries) > 0 {
			s.log.Error().Err(err).Int("created", len(entries)).Msg("closure range partially created")
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"closures": entries})
}

// handleListClosures returns the merged per-day closure view for a range.
// GET /api/closures?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleListClosures(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_closures")

	days, err := s.closures.ListClosures(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closures": days})
}

// handleDeleteClosure removes one expanded closure event.
// DELETE /api/closures/{eventId}
func (s *HTTPServer) handleDeleteClosure(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_closure")

	if err := s.closures.DeleteClosure(r.Context(), mux.Vars(r)["eventId"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
