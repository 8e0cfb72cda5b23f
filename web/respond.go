package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/validator"
)

func (h *Handler) respond(w http.ResponseWriter, v any, statusCode int) {
	b, err := json.Marshal(v)
	if err != nil {
		h.respondErr(w, fmt.Errorf("encode response: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var v *validator.Validator
	if errors.As(err, &v) {
		h.respond(w, map[string]any{
			"error":  "invalid input",
			"errors": v.Errors,
		}, http.StatusUnprocessableEntity)
		return
	}

	var e *errs.Error
	if errors.As(err, &e) {
		statusCode := http.StatusInternalServerError
		switch e.Kind {
		case errs.KindInvalidArgument:
			statusCode = http.StatusUnprocessableEntity
		case errs.KindNotFound:
			statusCode = http.StatusNotFound
		case errs.KindConflict:
			statusCode = http.StatusConflict
		case errs.KindPermissionDenied:
			statusCode = http.StatusForbidden
		case errs.KindUnauthenticated:
			statusCode = http.StatusUnauthorized
		}

		body := map[string]any{"error": e.Message}
		if e.Field != nil {
			body["field"] = *e.Field
		}

		h.respond(w, body, statusCode)
		return
	}

	h.ErrorLogger.Error("internal server error", "error", err)
	h.respond(w, map[string]any{
		"error": "internal server error",
	}, http.StatusInternalServerError)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewInvalidArgumentError("body", "malformed request body")
	}
	return nil
}
