package gcal

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const pageSize = 2500

// CalendarAPI is the part of the Calendar v3 API the bridge calls.
type CalendarAPI interface {
	ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error)
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, pageToken string) (*calendar.Events, error)
	DeleteCalendar(ctx context.Context, calendarID string) error
	InsertCalendar(ctx context.Context, summary, timeZone string) (*calendar.Calendar, error)
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) error
}

// APIFactory builds a CalendarAPI authorized with an access token.
type APIFactory func(ctx context.Context, accessToken string) (CalendarAPI, error)

type googleAPI struct {
	svc *calendar.Service
}

// NewGoogleAPI is the production APIFactory.
func NewGoogleAPI(ctx context.Context, accessToken string) (CalendarAPI, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	return &googleAPI{svc: svc}, nil
}

func (g *googleAPI) ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	var out []*calendar.CalendarListEntry
	err := g.svc.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		out = append(out, page.Items...)
		return nil
	})
	return out, err
}

func (g *googleAPI) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, pageToken string) (*calendar.Events, error) {
	call := g.svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (g *googleAPI) DeleteCalendar(ctx context.Context, calendarID string) error {
	return g.svc.Calendars.Delete(calendarID).Context(ctx).Do()
}

func (g *googleAPI) InsertCalendar(ctx context.Context, summary, timeZone string) (*calendar.Calendar, error) {
	return g.svc.Calendars.Insert(&calendar.Calendar{Summary: summary, TimeZone: timeZone}).Context(ctx).Do()
}

func (g *googleAPI) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) error {
	_, err := g.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	return err
}
