package tools_test

import (
	"context"
	"time"

	"github.com/petasbytes/toolagent/internal/gcal"
	"github.com/petasbytes/toolagent/internal/weather"
)

type fakeWeather struct{}

func (fakeWeather) Report(_ context.Context, location string, kind weather.Kind) (string, error) {
	return location + ":" + string(kind), nil
}

type recordingWeather struct{ calls []string }

func (r *recordingWeather) Report(_ context.Context, location string, kind weather.Kind) (string, error) {
	r.calls = append(r.calls, location+"/"+string(kind))
	return "sunny", nil
}

type fakeEvents struct {
	events []gcal.Event
	err    error
	asked  *time.Time
}

func (f fakeEvents) EventsOn(_ context.Context, day time.Time) ([]gcal.Event, error) {
	if f.asked != nil {
		*f.asked = day
	}
	return f.events, f.err
}
