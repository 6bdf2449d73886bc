package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petasbytes/toolagent/internal/weather"
)

const WeatherToolName = "get_weather"

type WeatherInput struct {
	Location string `json:"location" jsonschema_description:"The city, region, or country to get weather for. For example: \"London, GB\", \"New York\", \"Tokyo\", etc."`
	Type     string `json:"type,omitempty" jsonschema:"enum=current,enum=hourly,enum=daily,default=current" jsonschema_description:"The type of weather information to retrieve. Options are \"current\", \"hourly\", or \"daily\". If not specified, defaults to \"current\"."`
}

// Validate applies the "current" default and rejects unknown timeframes.
func (in *WeatherInput) Validate() error {
	in.Location = strings.TrimSpace(in.Location)
	if in.Location == "" {
		return errors.New("location is required")
	}
	if in.Type == "" {
		in.Type = string(weather.Current)
	}
	if !weather.Kind(in.Type).Valid() {
		return fmt.Errorf(`type must be "current", "hourly", or "daily"; got %q`, in.Type)
	}
	return nil
}

const weatherDescription = `Use this tool when a user asks about weather information. Detect the timeframe the user is interested in:
- For current conditions: When they use terms like "now", "currently", "today", "right now", "at the moment"
- For hourly forecast: When they use terms like "hourly", "hour by hour", "next few hours", "throughout the day"
- For daily/weekly forecast: When they use terms like "week", "weekly", "forecast", "next few days", "daily"

If no timeframe is specified, default to current weather.

Do not describe what you're doing, just perform the action and show the results directly to the user.`

// WeatherReporter produces a weather summary; *weather.Client implements it.
type WeatherReporter interface {
	Report(ctx context.Context, location string, kind weather.Kind) (string, error)
}

// NewWeatherTool returns the get_weather definition backed by w.
func NewWeatherTool(w WeatherReporter) Definition {
	return New(WeatherToolName, weatherDescription, func(ctx context.Context, call Call[WeatherInput]) (any, error) {
		out, err := w.Report(ctx, call.Args.Location, weather.Kind(call.Args.Type))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch weather data: %w", err)
		}
		return out, nil
	})
}
