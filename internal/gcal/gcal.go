// Package gcal reads single-day event listings from a Google Calendar.
//
// Authorization uses previously saved credentials only: either an
// "authorized_user" JSON file or an oauth2 token file paired with the OAuth
// client credentials file. The interactive consent flow is not handled here.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	PrimaryCalendar = "primary"
	maxResults      = 100
)

var ErrNoToken = errors.New("gcal: no saved token; authorize once and save the token file")

// Event is the part of a calendar event the listing shows.
type Event struct {
	Summary  string
	Location string
	Start    time.Time
	// AllDay events carry a date but no start time.
	AllDay bool
}

// Client lists events from one calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
}

// New authorizes from the saved files and returns a client for the primary calendar.
func New(ctx context.Context, credentialsPath, tokenPath string) (*Client, error) {
	ts, err := TokenSource(ctx, credentialsPath, tokenPath)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("gcal: new service: %w", err)
	}
	return NewWithService(svc), nil
}

// NewWithService wraps an existing service, for tests and custom transports.
func NewWithService(svc *calendar.Service) *Client {
	return &Client{svc: svc, calendarID: PrimaryCalendar}
}

// TokenSource loads saved authorization from tokenPath.
func TokenSource(ctx context.Context, credentialsPath, tokenPath string) (oauth2.TokenSource, error) {
	tokenJSON, err := os.ReadFile(tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoToken, tokenPath)
	}
	if err != nil {
		return nil, fmt.Errorf("gcal: read token: %w", err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(tokenJSON, &probe); err != nil {
		return nil, fmt.Errorf("gcal: parse token: %w", err)
	}
	if probe.Type == "authorized_user" {
		creds, err := google.CredentialsFromJSON(ctx, tokenJSON, calendar.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("gcal: load authorized user: %w", err)
		}
		return creds.TokenSource, nil
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("gcal: parse token: %w", err)
	}
	credJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("gcal: read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(credJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parse credentials: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// EventsOn lists the events starting within the local day containing day,
// expanded into single instances and ordered by start time.
func (c *Client) EventsOn(ctx context.Context, day time.Time) ([]Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	resp, err := c.svc.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}

	out := make([]Event, 0, len(resp.Items))
	for _, it := range resp.Items {
		ev, ok := convert(it, day.Location())
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func convert(it *calendar.Event, loc *time.Location) (Event, bool) {
	if it == nil || it.Start == nil {
		return Event{}, false
	}
	ev := Event{Summary: it.Summary, Location: it.Location}
	switch {
	case it.Start.DateTime != "":
		t, err := time.Parse(time.RFC3339, it.Start.DateTime)
		if err != nil {
			return Event{}, false
		}
		ev.Start = t.In(loc)
	case it.Start.Date != "":
		t, err := time.ParseInLocation("2006-01-02", it.Start.Date, loc)
		if err != nil {
			return Event{}, false
		}
		ev.Start = t
		ev.AllDay = true
	default:
		return Event{}, false
	}
	return ev, true
}
