package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/md-rashed-zaman/tailorbook/libs/httpx"
	"github.com/md-rashed-zaman/tailorbook/libs/redisx"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

// Idempotency is implemented by *redisx.Idempotency.
type Idempotency interface {
	Begin(ctx context.Context, key, fingerprint string) (redisx.Record, bool, error)
	Finish(ctx context.Context, key, fingerprint string, statusCode int, body []byte) error
	Release(ctx context.Context, key string) error
}

type Handler struct {
	svc    *booking.Service
	idem   Idempotency
	logger *slog.Logger
}

// New wires the HTTP adapter. A nil idem disables Idempotency-Key handling.
func New(svc *booking.Service, idem Idempotency, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, idem: idem, logger: logger}
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, &model.ValidationError{Field: "body", Reason: "read body: " + err.Error()})
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	var req createAppointmentRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sum := sha256.Sum256(raw)
	fingerprint := hex.EncodeToString(sum[:])
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idem != nil {
		key = redisx.IdemCreateKey(key)
		rec, claimed, err := h.idem.Begin(ctx, key, fingerprint)
		switch {
		case err != nil:
			h.logger.Warn("idempotency unavailable, continuing without it", "err", err, "request_id", httpx.RequestIDFromContext(ctx))
			key = ""
		case !claimed && !rec.Matches(fingerprint):
			encode(w, http.StatusUnprocessableEntity, errorResponse{Error: "idempotency_key_reused", Message: "Idempotency-Key was already used with a different request body"})
			return
		case !claimed && rec.Pending:
			encode(w, http.StatusConflict, errorResponse{Error: "in_progress", Message: "a request with this Idempotency-Key is in progress"})
			return
		case !claimed:
			writeRaw(w, rec.StatusCode, rec.Body)
			return
		}
	} else {
		key = ""
	}

	a, err := h.svc.CreateAppointment(ctx, req.draft())
	if err != nil {
		status, _ := errorStatus(err)
		body := h.writeError(w, r, err)
		h.settle(ctx, key, fingerprint, status, body)
		return
	}
	body := encode(w, http.StatusCreated, toAppointmentResponse(a))
	h.settle(ctx, key, fingerprint, http.StatusCreated, body)
}

// settle stores the outcome for replays; server errors release the key so the client can retry.
func (h *Handler) settle(ctx context.Context, key, fingerprint string, status int, body []byte) {
	if key == "" {
		return
	}
	var err error
	if status >= http.StatusInternalServerError {
		err = h.idem.Release(ctx, key)
	} else {
		err = h.idem.Finish(ctx, key, fingerprint, status, body)
	}
	if err != nil {
		h.logger.Warn("idempotency record not stored", "err", err)
	}
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	tab, err := calendar.ParseTab(r.URL.Query().Get("tab"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, map[string]any{
		"tab":          tab,
		"appointments": toAppointmentList(h.svc.ListAppointments(tab, h.svc.Now())),
	})
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAppointment(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	evs, err := h.svc.History(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, map[string]any{"events": toHistory(evs)})
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rescheduleRequest
	if err := decodeValid(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.notPast(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.svc.RescheduleAppointment(r.Context(), id, req.change())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.notPast(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondTransition(w, r, h.svc.CancelAppointment, id)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r, h.svc.ConfirmAppointment, chi.URLParam(r, "id"))
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r, h.svc.CompleteAppointment, chi.URLParam(r, "id"))
}

func (h *Handler) respondTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (model.Appointment, error), id string) {
	a, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toAppointmentResponse(a))
}

// notPast enforces that appointments which already started can no longer be moved or canceled.
func (h *Handler) notPast(id string) error {
	a, err := h.svc.GetAppointment(id)
	if err != nil {
		return err
	}
	if !a.When.After(h.svc.Now()) {
		return errPastAppointment
	}
	return nil
}
