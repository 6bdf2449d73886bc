package main

import (
	"context"
	"sync"
	"time"

	"github.com/petasbytes/toolagent/internal/gcal"
)

// lazyCalendar connects to Google Calendar on first use, so turns that never
// ask about events run without credentials.
type lazyCalendar struct {
	credentialsPath string
	tokenPath       string

	once   sync.Once
	client *gcal.Client
	err    error
}

func (l *lazyCalendar) EventsOn(ctx context.Context, day time.Time) ([]gcal.Event, error) {
	l.once.Do(func() {
		l.client, l.err = gcal.New(ctx, l.credentialsPath, l.tokenPath)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.client.EventsOn(ctx, day)
}
