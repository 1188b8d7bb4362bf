package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
)

type Tab string

const (
	TabAll      Tab = "all"
	TabUpcoming Tab = "upcoming"
	TabPast     Tab = "past"
	TabCanceled Tab = "canceled"
)

// ParseTab accepts tab names case-insensitively; the empty string means TabAll.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TabAll, nil
	case TabAll, TabUpcoming, TabPast, TabCanceled:
		return t, nil
	}
	return "", &model.ValidationError{Field: "tab", Reason: "unknown tab " + s}
}

// FilterByTab selects and orders appointments for a list tab. Ties on when break by id ascending.
func FilterByTab(appts []model.Appointment, tab Tab, now time.Time) []model.Appointment {
	var keep func(model.Appointment) bool
	ascending := false
	switch tab {
	case TabUpcoming:
		ascending = true
		keep = func(a model.Appointment) bool {
			return a.When.After(now) && a.Status != model.StatusCanceled && a.Status != model.StatusCompleted
		}
	case TabPast:
		keep = func(a model.Appointment) bool {
			return !a.When.After(now) || a.Status == model.StatusCompleted
		}
	case TabCanceled:
		keep = func(a model.Appointment) bool { return a.Status == model.StatusCanceled }
	default:
		keep = func(model.Appointment) bool { return true }
	}

	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].When.Equal(out[j].When) {
			if ascending {
				return out[i].When.Before(out[j].When)
			}
			return out[i].When.After(out[j].When)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
