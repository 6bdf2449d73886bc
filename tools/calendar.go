package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/petasbytes/toolagent/internal/gcal"
)

const CalendarToolName = "get_calendar_events"

type CalendarInput struct {
	Date string `json:"date,omitempty" jsonschema_description:"Date to look up events for. Format as YYYY-MM-DD, 'today', or 'tomorrow'"`
}

const calendarDescription = `Use this tool when a user asks about their calendar events. Detect the date the user is interested in:
- For today: When they use terms like "today", "now", "this day"
- For tomorrow: When they use terms like "tomorrow", "next day", "the day after"
- For a specific date: When they mention a specific date like "next Friday", "March 15", "next week"
- For a date range: When they mention a range like "next week", "this month", "next month"

If no date is specified, default to today's events.

Do not describe what you're doing, just perform the action and show the results directly to the user.`

// EventSource lists one day's events; *gcal.Client implements it.
type EventSource interface {
	EventsOn(ctx context.Context, day time.Time) ([]gcal.Event, error)
}

// NewCalendarTool returns the get_calendar_events definition backed by src.
// The day comes from the date argument, then from the user's message, then defaults to today.
func NewCalendarTool(src EventSource, now func() time.Time) Definition {
	if now == nil {
		now = time.Now
	}
	return New(CalendarToolName, calendarDescription, func(ctx context.Context, call Call[CalendarInput]) (any, error) {
		t := now()
		day, ok := ResolveDate(call.Args.Date, t)
		if !ok {
			day, _ = ResolveDate(call.UserMessage, t)
		}
		events, err := src.EventsOn(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("retrieving calendar events: %w", err)
		}
		return FormatEvents(day, events), nil
	})
}

// FormatEvents renders a day's listing, one "- summary[ at h:mm PM][ (location)]" line per event.
func FormatEvents(day time.Time, events []gcal.Event) string {
	label := day.Format("Monday, January 2")
	if len(events) == 0 {
		return fmt.Sprintf("No events found for %s.", label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Events for %s:\n", label)
	for _, ev := range events {
		b.WriteString("- ")
		b.WriteString(ev.Summary)
		if !ev.AllDay {
			b.WriteString(" at ")
			b.WriteString(ev.Start.Format("3:04 PM"))
		}
		if ev.Location != "" {
			fmt.Fprintf(&b, " (%s)", ev.Location)
		}
		b.WriteString("\n")
	}
	return b.String()
}
