package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createBookingBody struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Purpose string    `json:"purpose"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	resourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid resource id")
		return
	}

	var body createBookingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if body.Start.IsZero() || body.End.IsZero() {
		badRequest(w, "start and end are required")
		return
	}

	b, err := s.booking.CreateBooking(r.Context(), resourceID, userID, body.Start, body.End, body.Purpose)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid booking id")
		return
	}

	if err := s.booking.CancelBooking(r.Context(), userID, bookingID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	resourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid resource id")
		return
	}

	bookings, err := s.booking.ListBookings(r.Context(), resourceID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

// GET /resources/{id}/availability?start=...&end=...&granularity=1h
func (s *Server) handleListAvailability(w http.ResponseWriter, r *http.Request) {
	resourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid resource id")
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		badRequest(w, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		badRequest(w, "end must be RFC 3339")
		return
	}

	granularity := time.Hour
	if g := r.URL.Query().Get("granularity"); g != "" {
		granularity, err = time.ParseDuration(g)
		if err != nil {
			badRequest(w, "granularity must be a duration such as 30m or 1h")
			return
		}
	}

	slots, err := s.booking.ListAvailability(r.Context(), resourceID, start, end, granularity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}
