package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/middleware"
)

const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeAuthRequired     = "AUTHENTICATION_REQUIRED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidState     = "INVALID_STATE"
	CodeInvalidTarget    = "INVALID_TARGET"
	CodeSlotUnavailable  = "SLOT_UNAVAILABLE"
	CodeResourceNotFound = "RESOURCE_NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
)

type errorBody struct {
	Code          string           `json:"code"`
	Message       string           `json:"message"`
	MissingFields []string         `json:"missing_fields,omitempty"`
	Conflicts     []domain.Booking `json:"conflicts,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeDomainError translates the engines' typed errors onto the wire.
// Unknown errors become 500s with a generic message; the detail stays in
// the server log only.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger := middleware.GetLoggerFromContext(r.Context())
		logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, errorBody{
			Code:    CodeInternalError,
			Message: "internal server error",
		})
		return
	}

	body := errorBody{
		Message:       de.Message,
		MissingFields: de.MissingFields,
		Conflicts:     de.Conflicts,
	}

	var status int
	switch de.Kind {
	case domain.KindValidation:
		status, body.Code = http.StatusBadRequest, CodeValidationError
	case domain.KindUnauthorized:
		status, body.Code = http.StatusForbidden, CodePermissionDenied
	case domain.KindInvalidState:
		status, body.Code = http.StatusConflict, CodeInvalidState
	case domain.KindInvalidTarget:
		status, body.Code = http.StatusUnprocessableEntity, CodeInvalidTarget
	case domain.KindSlotUnavailable:
		status, body.Code = http.StatusConflict, CodeSlotUnavailable
	case domain.KindNotFound:
		status, body.Code = http.StatusNotFound, CodeResourceNotFound
	default:
		status, body.Code = http.StatusInternalServerError, CodeInternalError
	}

	writeError(w, status, body)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errorBody{Code: CodeValidationError, Message: message})
}
