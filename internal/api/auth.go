package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/campusdesk/cd-backend/internal/middleware"
	"github.com/campusdesk/cd-backend/internal/queue"
)

type otpRequestBody struct {
	Email string `json:"email"`
}

type otpVerifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// handleRequestOTP always answers 204 for well-formed input: whether the
// address exists is not disclosed to the caller.
func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var body otpRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		badRequest(w, "email is required")
		return
	}

	code, err := s.authService.RequestOTP(r.Context(), body.Email)
	if err != nil {
		if errors.Is(err, auth.ErrOTPCooldown) {
			writeError(w, http.StatusTooManyRequests, errorBody{
				Code:    CodeValidationError,
				Message: err.Error(),
			})
			return
		}
		logger := middleware.GetLoggerFromContext(r.Context())
		logger.Warn("OTP request refused", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if _, err := s.queue.Enqueue(queue.TypeEmailDelivery, queue.EmailDeliveryPayload{
		To:      body.Email,
		Subject: "Your Campus Desk sign-in code",
		Body:    "Your one-time sign-in code is: " + code,
	}); err != nil {
		logger := middleware.GetLoggerFromContext(r.Context())
		logger.Error("failed to enqueue OTP email", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body otpVerifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Code == "" {
		badRequest(w, "email and code are required")
		return
	}

	access, refresh, err := s.authService.VerifyOTP(r.Context(), body.Email, body.Code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errorBody{
			Code:    CodeAuthRequired,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		badRequest(w, "refresh_token is required")
		return
	}

	access, refresh, err := s.authService.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errorBody{
			Code:    CodeAuthRequired,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		badRequest(w, "refresh_token is required")
		return
	}

	if err := s.authService.Logout(r.Context(), body.RefreshToken); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
