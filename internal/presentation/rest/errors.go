package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a use-case error onto an HTTP status. Detail is shown to
// staff only.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, actor valueobject.Actor, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Code: "TIMEOUT", Message: "request timed out"})
		return
	case errors.Is(err, context.Canceled):
		return
	}

	appErr, ok := apperror.As(err)
	if !ok {
		logger.ErrorContext(r.Context(), "unclassified error", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}

	msg := appErr.Message
	if appErr.Detail != "" && actor.IsStaff() {
		msg += ": " + appErr.Detail
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindConflict:
		status = http.StatusConflict
	case apperror.KindAuthorization:
		status = http.StatusForbidden
	case apperror.KindPayload:
		status = http.StatusUnprocessableEntity
		if errors.Is(appErr, apperror.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
	default:
		logger.ErrorContext(r.Context(), "internal error", "error", err, "path", r.URL.Path)
		writeJSON(w, status, errorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Code: appErr.Code, Message: msg})
}
