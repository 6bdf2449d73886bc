// Package weather is a small OpenWeather client: geocoding plus the One Call 3.0
// forecast, rendered as short plain-text summaries in imperial units.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Kind selects the timeframe of a report.
type Kind string

const (
	Current Kind = "current"
	Hourly  Kind = "hourly"
	Daily   Kind = "daily"
)

// Valid reports whether k is a known timeframe.
func (k Kind) Valid() bool {
	switch k {
	case Current, Hourly, Daily:
		return true
	}
	return false
}

const (
	DefaultGeoBaseURL = "http://api.openweathermap.org"
	DefaultBaseURL    = "https://api.openweathermap.org"

	hourlyLines = 12
	dailyLines  = 7
)

var (
	ErrMissingAPIKey    = errors.New("OpenWeather API key not found; set OPENWEATHER_API_KEY")
	ErrLocationNotFound = errors.New("no coordinates found for location")
)

// Place is a geocoding match.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type Condition struct {
	Description string `json:"description"`
}

type Point struct {
	Dt      int64       `json:"dt"`
	Temp    float64     `json:"temp"`
	Weather []Condition `json:"weather"`
}

type Day struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Weather []Condition `json:"weather"`
}

// OneCall is the subset of the One Call response the reports use.
type OneCall struct {
	Current Point   `json:"current"`
	Hourly  []Point `json:"hourly"`
	Daily   []Day   `json:"daily"`
}

// Client calls OpenWeather. The zero value is not usable; build one with New.
type Client struct {
	apiKey  string
	geoBase string
	base    string
	http    *http.Client
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithBaseURL points both geocoding and forecast requests at base.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.base = strings.TrimRight(base, "/")
		c.geoBase = c.base
	}
}

// WithClock sets the clock used to label hourly and daily lines.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New returns a client using apiKey. An empty key is reported on first use.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		geoBase: DefaultGeoBaseURL,
		base:    DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Report geocodes location, fetches the forecast and renders it for kind.
func (c *Client) Report(ctx context.Context, location string, kind Kind) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if !kind.Valid() {
		return "", fmt.Errorf(`invalid weather type %q; specify "current", "hourly", or "daily"`, kind)
	}
	place, err := c.Geocode(ctx, location)
	if err != nil {
		return "", err
	}
	data, err := c.Forecast(ctx, place.Lat, place.Lon)
	if err != nil {
		return "", err
	}
	return Format(place, data, kind, c.now())
}

// Geocode resolves location to the first matching place.
func (c *Client) Geocode(ctx context.Context, location string) (Place, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	var places []Place
	if err := c.getJSON(ctx, c.geoBase+"/geo/1.0/direct?"+q.Encode(), "geocoding", &places); err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrLocationNotFound, location)
	}
	return places[0], nil
}

// Forecast fetches current, hourly and daily conditions in imperial units.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*OneCall, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("exclude", "minutely,alerts")
	q.Set("units", "imperial")
	q.Set("appid", c.apiKey)

	var out OneCall
	if err := c.getJSON(ctx, c.base+"/data/3.0/onecall?"+q.Encode(), "weather", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, u, api string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s API request: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s API error: %s", api, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s API response: %w", api, err)
	}
	return nil
}

// Format renders data for kind:
//   - current: one sentence
//   - hourly: header plus the next 12 hours as "H:00: <description>, <temp>°F"
//   - daily: header plus the next 7 days as "Month D: <description>, High: <max>°F, Low: <min>°F"
//
// Line labels come from each entry's timestamp in now's location, or from now plus
// the entry index when the timestamp is missing.
func Format(place Place, data *OneCall, kind Kind, now time.Time) (string, error) {
	switch kind {
	case Current:
		return fmt.Sprintf("The current weather in %s is %s with a temperature of %s°F.",
			place.Name, describe(data.Current.Weather), temp(data.Current.Temp)), nil

	case Hourly:
		lines := make([]string, 0, hourlyLines)
		for i, h := range data.Hourly {
			if i == hourlyLines {
				break
			}
			at := labelTime(h.Dt, now, time.Duration(i)*time.Hour)
			lines = append(lines, fmt.Sprintf("%d:00: %s, %s°F", at.Hour(), describe(h.Weather), temp(h.Temp)))
		}
		return fmt.Sprintf("Hourly weather for %s:\n%s", place.Name, strings.Join(lines, "\n")), nil

	case Daily:
		lines := make([]string, 0, dailyLines)
		for i, d := range data.Daily {
			if i == dailyLines {
				break
			}
			at := now.AddDate(0, 0, i)
			if d.Dt != 0 {
				at = labelTime(d.Dt, now, 0)
			}
			lines = append(lines, fmt.Sprintf("%s: %s, High: %s°F, Low: %s°F",
				at.Format("January 2"), describe(d.Weather), temp(d.Temp.Max), temp(d.Temp.Min)))
		}
		return fmt.Sprintf("Weekly weather for %s:\n%s", place.Name, strings.Join(lines, "\n")), nil
	}
	return "", fmt.Errorf(`invalid weather type %q; specify "current", "hourly", or "daily"`, kind)
}

func labelTime(dt int64, now time.Time, offset time.Duration) time.Time {
	if dt == 0 {
		return now.Add(offset)
	}
	return time.Unix(dt, 0).In(now.Location())
}

func describe(cs []Condition) string {
	if len(cs) == 0 {
		return "unknown conditions"
	}
	return cs[0].Description
}

func temp(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
