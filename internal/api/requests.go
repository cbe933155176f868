package api

import (
	"encoding/json"
	"net/http"

	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createRequestBody struct {
	TypeID      uuid.UUID                    `json:"type_id"`
	FormData    map[string]domain.FieldValue `json:"form_data"`
	Attachments []string                     `json:"attachments"`
}

type processRequestBody struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

type transferRequestBody struct {
	TargetServiceID uuid.UUID `json:"target_service_id"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if body.TypeID == uuid.Nil {
		badRequest(w, "type_id is required")
		return
	}

	req, err := s.workflow.CreateRequest(r.Context(), userID, body.TypeID, body.FormData, body.Attachments)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	requests, err := s.workflow.GetRequestsVisibleTo(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid request id")
		return
	}

	req, err := s.workflow.GetRequest(r.Context(), userID, requestID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleProcessRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid request id")
		return
	}

	var body processRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Action == "" {
		badRequest(w, "action is required")
		return
	}

	req, err := s.workflow.ProcessRequest(r.Context(), userID, requestID, workflow.Action(body.Action), body.Comment)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleTransferRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errorBody{Code: CodeAuthRequired, Message: "authentication required"})
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid request id")
		return
	}

	var body transferRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TargetServiceID == uuid.Nil {
		badRequest(w, "target_service_id is required")
		return
	}

	req, err := s.workflow.TransferRequest(r.Context(), userID, requestID, body.TargetServiceID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleListRequestTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"request_types": types})
}
