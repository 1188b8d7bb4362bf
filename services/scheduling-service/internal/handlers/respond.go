package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/tailorbook/libs/httpx"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errPastAppointment marks reschedule or cancel requests against appointments that already started.
var errPastAppointment = errors.New("appointment is in the past")

type errorResponse struct {
	Error                    string `json:"error"`
	Message                  string `json:"message"`
	Field                    string `json:"field,omitempty"`
	ConflictingAppointmentID string `json:"conflicting_appointment_id,omitempty"`
}

// encode marshals v; the bytes are also what idempotent replays return.
func encode(w http.ResponseWriter, status int, v any) []byte {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal","message":"encode response"}`)
	}
	writeRaw(w, status, body)
	return body
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// errorStatus maps domain errors onto HTTP statuses.
func errorStatus(err error) (int, errorResponse) {
	resp := errorResponse{Message: err.Error()}
	var conflict *model.ConflictError
	var invalid *model.ValidationError
	switch {
	case errors.As(err, &conflict):
		resp.Error = "conflict"
		resp.ConflictingAppointmentID = conflict.ConflictingID
		return http.StatusConflict, resp
	case errors.Is(err, model.ErrConflict):
		resp.Error = "conflict"
		return http.StatusConflict, resp
	case errors.Is(err, model.ErrNotFound):
		resp.Error = "not_found"
		return http.StatusNotFound, resp
	case errors.Is(err, model.ErrInvalidState):
		resp.Error = "invalid_state"
		return http.StatusConflict, resp
	case errors.Is(err, model.ErrInvalidRange):
		resp.Error = "invalid_range"
		return http.StatusBadRequest, resp
	case errors.As(err, &invalid):
		resp.Error = "validation"
		resp.Field = invalid.Field
		return http.StatusBadRequest, resp
	case errors.Is(err, errPastAppointment):
		resp.Error = "past_appointment"
		return http.StatusUnprocessableEntity, resp
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal error"}
}

// writeError renders err. Unmapped errors are logged with the request id.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) []byte {
	status, resp := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err, "method", r.Method, "path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()))
	}
	return encode(w, status, resp)
}

// decodeValid decodes the JSON body into dst and runs struct validation.
func decodeValid(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &model.ValidationError{Field: "body", Reason: "invalid json: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.TrimPrefix(fe.Namespace(), reflect.TypeOf(dst).Elem().Name()+".")
			return &model.ValidationError{Field: field, Reason: "failed " + fe.Tag() + " " + fe.Param()}
		}
		return &model.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
