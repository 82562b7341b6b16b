package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/modal"
)

type errorBody struct {
	Error  string           `json:"error"`
	Kind   string           `json:"kind"`
	Action string           `json:"action,omitempty"`
	CaseID string           `json:"caseId,omitempty"`
	Status modal.CaseStatus `json:"status,omitempty"`

	// Case is the persisted case when a side effect failed after the write.
	Case *modal.Case `json:"case,omitempty"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindPartialFailure:
		return http.StatusBadGateway
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), Kind: apperr.KindUnknown.String()}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Kind = ae.Kind.String()
		body.Action = ae.Action
		body.CaseID = ae.CaseID
		body.Status = ae.Status
		body.Case = ae.Case
	}
	code := statusFor(apperr.KindOf(err))
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", body.Kind,
			"error", err.Error())
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
