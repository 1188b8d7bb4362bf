package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/tailorbook/services/scheduling-service/internal/travel"
)

const TopicTravelUpdated = "tailor.travel.updated.v1"

// TravelUpdated is the full replacement travel schedule published by the tailor profile service.
type TravelUpdated struct {
	Windows []TravelWindow `json:"windows"`
}

type TravelWindow struct {
	ID        string   `json:"id"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Venue     string   `json:"venue,omitempty"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// Locations converts the payload to travel windows, reading YYYY-MM-DD dates in loc.
func (p TravelUpdated) Locations(loc *time.Location) ([]model.TravelLocation, error) {
	out := make([]model.TravelLocation, 0, len(p.Windows))
	for _, w := range p.Windows {
		if w.ID == "" {
			return nil, &model.ValidationError{Field: "windows.id", Reason: "required"}
		}
		start, err := time.ParseInLocation(time.DateOnly, w.StartDate, loc)
		if err != nil {
			return nil, &model.ValidationError{Field: "windows.start_date", Reason: err.Error()}
		}
		end, err := time.ParseInLocation(time.DateOnly, w.EndDate, loc)
		if err != nil {
			return nil, &model.ValidationError{Field: "windows.end_date", Reason: err.Error()}
		}
		dest := model.Destination{City: w.City, Country: w.Country, Venue: w.Venue, Address: w.Address}
		if w.Latitude != nil && w.Longitude != nil {
			dest.Coordinates = &model.Coordinates{Latitude: *w.Latitude, Longitude: *w.Longitude}
		}
		out = append(out, model.TravelLocation{ID: w.ID, Destination: dest, StartDate: start, EndDate: end})
	}
	return out, nil
}

// TravelSink receives a validated schedule; *booking.Service satisfies it.
type TravelSink interface {
	SetTravel(windows []model.TravelLocation) error
}

// TravelStore persists the schedule; *storage.Repository satisfies it.
type TravelStore interface {
	ReplaceTravel(ctx context.Context, windows []model.TravelLocation) error
}

// TravelHandler validates a travel update, persists it when store is non-nil, then swaps it in.
func TravelHandler(sink TravelSink, store TravelStore, loc *time.Location, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p TravelUpdated
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			return &model.ValidationError{Field: "body", Reason: "decode travel update: " + err.Error()}
		}
		windows, err := p.Locations(loc)
		if err != nil {
			return err
		}
		if _, err := travel.NewSchedule(windows); err != nil {
			return err
		}
		if store != nil {
			if err := store.ReplaceTravel(ctx, windows); err != nil {
				return fmt.Errorf("persist travel: %w", err)
			}
		}
		if err := sink.SetTravel(windows); err != nil {
			return err
		}
		logger.Info("travel schedule updated", "windows", len(windows))
		return nil
	}
}
