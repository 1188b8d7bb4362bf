package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

// parseWhen accepts RFC3339 timestamps or YYYY-MM-DD dates, the latter read in loc.
func parseWhen(field, raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	return time.Time{}, &model.ValidationError{Field: field, Reason: "expected RFC3339 or YYYY-MM-DD"}
}

// dateParam falls back to today when the parameter is absent.
func (h *Handler) dateParam(r *http.Request, name string) (time.Time, error) {
	now := h.svc.Now()
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return now, nil
	}
	return parseWhen(name, raw, now.Location())
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	loc := h.svc.Now().Location()
	q := r.URL.Query()
	from, err := parseWhen("from", q.Get("from"), loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := parseWhen("to", q.Get("to"), loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if to.Sub(from) > 92*24*time.Hour {
		h.writeError(w, r, &model.ValidationError{Field: "to", Reason: "range longer than 92 days"})
		return
	}
	slots, err := h.svc.GenerateAvailability(r.Context(), from, to, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.Get("open") == "true" {
		slots = availability.OpenSlots(slots)
	}
	encode(w, http.StatusOK, map[string]any{"slots": toSlotList(slots)})
}

func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 9999 {
			h.writeError(w, r, &model.ValidationError{Field: "year", Reason: "expected a year"})
			return
		}
		year = v
	}
	if raw := q.Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			h.writeError(w, r, &model.ValidationError{Field: "month", Reason: "expected 1-12"})
			return
		}
		month = v
	}
	grid, err := h.svc.ProjectMonth(r.Context(), year, time.Month(month))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toMonthResponse(grid))
}

func (h *Handler) Week(w http.ResponseWriter, r *http.Request) {
	ref, err := h.dateParam(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.svc.ProjectWeek(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toWeekResponse(view))
}

func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	ref, err := h.dateParam(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.svc.ProjectDay(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toDayResponse(view))
}

func (h *Handler) Travel(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	encode(w, http.StatusOK, toTravelResponse(h.svc.Travel(), date))
}
