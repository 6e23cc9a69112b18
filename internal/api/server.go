// Package api exposes the booking system over HTTP: a small public surface
// for customers and a token-protected admin surface for staff.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"amaze/internal/availability"
	"amaze/internal/booking"
	"amaze/internal/closures"
	"amaze/internal/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const adminTokenHeader = "Admin-Token"

// HTTPServer serves the public and admin API.
type HTTPServer struct {
	engine     *availability.Engine
	writer     *booking.Writer
	closures   *closures.Manager
	adminToken string
	limiter    *ipLimiter
	log        *zerolog.Logger
	srv        *http.Server
}

// NewHTTPServer wires the handlers. reservesPerMin bounds booking attempts
// per client IP; zero disables the limiter.
func NewHTTPServer(addr string, engine *availability.Engine, writer *booking.Writer, cl *closures.Manager, adminToken string, reservesPerMin int, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		engine:     engine,
		writer:     writer,
		closures:   cl,
		adminToken: adminToken,
		log:        logger,
	}
	if reservesPerMin > 0 {
		s.limiter = newIPLimiter(reservesPerMin)
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/availability", s.handleAvailability).Methods(http.MethodGet)
	r.HandleFunc("/api/availability/full", s.requireAdmin(s.handleAvailabilityFull)).Methods(http.MethodGet)
	r.HandleFunc("/api/reservations", s.limited(s.handleCreateReservation)).Methods(http.MethodPost)

	r.HandleFunc("/api/admin/reservations", s.requireAdmin(s.handleListReservations)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/reservations/export", s.requireAdmin(s.handleExportReservations)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/reservations/{id}/status", s.requireAdmin(s.handleUpdateReservationStatus)).Methods(http.MethodPatch)
	r.HandleFunc("/api/admin/reservations/{id}", s.requireAdmin(s.handleDeleteReservation)).Methods(http.MethodDelete)

	r.HandleFunc("/api/closures", s.requireAdmin(s.handleCreateClosure)).Methods(http.MethodPost)
	r.HandleFunc("/api/closures", s.requireAdmin(s.handleListClosures)).Methods(http.MethodGet)
	r.HandleFunc("/api/closures/{eventId}", s.requireAdmin(s.handleDeleteClosure)).Methods(http.MethodDelete)

	return r
}

// Start runs the server until ListenAndServe returns.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.srv.Handler
}

func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get(adminTokenHeader) != s.adminToken {
			writeError(w, http.StatusUnauthorized, "missing or invalid admin token")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps sentinel errors to HTTP statuses. Only this layer
// knows about status codes.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrClosureConflict), errors.Is(err, models.ErrSlotFull):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrStoreUnavailable):
		s.log.Error().Err(err).Msg("event store unavailable")
		writeError(w, http.StatusBadGateway, "calendar backend unavailable, try again later")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
