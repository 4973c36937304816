package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Responder writes JSON responses and maps errors onto them.
type Responder struct {
	logger *zap.Logger
	debug  bool
}

// NewResponder returns a Responder. Stack traces are only sent when debug is
// set.
func NewResponder(logger *zap.Logger, debug bool) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{logger: logger, debug: debug}
}

type errorResponse struct {
	Detail      string  `json:"detail"`
	UserMessage string  `json:"user_message"`
	StackTrace  *string `json:"stack_trace"`
}

type validationErrorResponse struct {
	UserMessage string       `json:"user_message"`
	Detail      string       `json:"detail"`
	Errors      []fieldError `json:"errors"`
}

type fieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
	Value any    `json:"value,omitempty"`
}

// JSON writes payload with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

// Error writes err to the client. *Error values keep their status and
// messages even when they wrap a validation failure. Bare validation failures
// become a 400 listing every field, and anything else is an opaque 500.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			rs.validationError(w, verrs)
			return
		}
		apiErr = internalError(err)
		if rs.debug {
			apiErr.Detail = err.Error()
		}
	}

	if !apiErr.HideLogs {
		rs.logger.Error("request failed",
			zap.Int("status", apiErr.Status),
			zap.String("detail", apiErr.Detail),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, apiErr, rs.debug)
}

func (rs *Responder) validationError(w http.ResponseWriter, verrs validator.ValidationErrors) {
	resp := validationErrorResponse{
		UserMessage: "Invalid Request Parameters",
		Detail:      verrs.Error(),
		Errors:      make([]fieldError, 0, len(verrs)),
	}
	for _, fe := range verrs {
		resp.Errors = append(resp.Errors, fieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

func writeError(w http.ResponseWriter, e *Error, withStack bool) {
	for k, v := range e.Headers {
		w.Header().Set(k, v)
	}
	resp := errorResponse{
		Detail:      e.Detail,
		UserMessage: e.UserMessage,
	}
	if withStack && e.StackTrace != "" {
		trace := e.StackTrace
		resp.StackTrace = &trace
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
