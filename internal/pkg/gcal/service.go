// Package gcal connects a user's Google Calendar: OAuth, token refresh,
// reading events and pushing study sessions into a dedicated calendar.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"google.golang.org/api/calendar/v3"

	"github.com/biblestudybuddy/studybuddy/app/repository"
)

const DefaultSyncCalendarName = "Bible Studdy Buddy Events"

const appCalendarMarker = "bible studdy buddy"

var excludedCalendarIDs = []string{
	"#holiday@group.v.calendar.google.com",
	"contact@group.v.calendar.google.com",
	"#contacts@group.v.calendar.google.com",
}

var (
	listFrom = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	listTo   = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// ExternalEvent is a Google event normalized for the merged calendar.
type ExternalEvent struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	IsAllDay         bool      `json:"isAllDay"`
	TimeZone         string    `json:"timeZone"`
	CalendarID       string    `json:"calendarId"`
	RecurringEventID string    `json:"recurringEventId,omitempty"`
}

// SyncEvent is one event pushed to Google.
type SyncEvent struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type SyncResult struct {
	Success     bool   `json:"success"`
	SyncedCount int    `json:"syncedCount"`
	FailedCount int    `json:"failedCount"`
	CalendarID  string `json:"calendarId"`
}

type Service struct {
	tokens   *TokenManager
	oauth    Exchanger
	states   *StateSigner
	profiles repository.ProfileRepository
	newAPI   APIFactory
	timeZone string
}

func NewService(tokens *TokenManager, oauth Exchanger, states *StateSigner, profiles repository.ProfileRepository, newAPI APIFactory) *Service {
	return &Service{
		tokens:   tokens,
		oauth:    oauth,
		states:   states,
		profiles: profiles,
		newAPI:   newAPI,
		timeZone: "UTC",
	}
}

// SetTimeZone sets the zone of calendars created by Sync. Invalid names are ignored.
func (s *Service) SetTimeZone(name string) {
	if _, err := time.LoadLocation(name); err == nil && name != "" {
		s.timeZone = name
	}
}

// AuthURL is the consent screen URL for the user.
func (s *Service) AuthURL(userID uint) (string, error) {
	state, err := s.states.Sign(userID)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

// HandleCallback verifies state, exchanges code and stores the tokens.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (uint, error) {
	userID, err := s.states.Verify(state)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(code) == "" {
		return 0, fmt.Errorf("%w: missing code", ErrInvalidState)
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("exchange code: %w", err)
	}
	if err := s.profiles.SaveGoogleTokens(userID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		return 0, fmt.Errorf("save google tokens: %w", err)
	}
	log.Infof("[GoogleCalendar] user %d connected google calendar", userID)
	return userID, nil
}

func (s *Service) Disconnect(userID uint) error {
	return s.profiles.ClearGoogleTokens(userID)
}

func (s *Service) client(ctx context.Context, userID uint) (CalendarAPI, error) {
	token, err := s.tokens.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.newAPI(ctx, token)
}

func includeCalendar(c *calendar.CalendarListEntry) bool {
	if strings.Contains(strings.ToLower(c.Summary), appCalendarMarker) {
		return false
	}
	for _, id := range excludedCalendarIDs {
		if strings.Contains(c.Id, id) {
			return false
		}
	}
	return c.Id != ""
}

// ListEvents reads every event of the user's calendars, skipping holidays,
// contacts and the app's own sync calendar.
func (s *Service) ListEvents(ctx context.Context, userID uint) ([]ExternalEvent, error) {
	api, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendars, err := api.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	out := []ExternalEvent{}
	for _, cal := range calendars {
		if !includeCalendar(cal) {
			continue
		}

		pageToken := ""
		for {
			page, err := api.ListEvents(ctx, cal.Id, listFrom, listTo, pageToken)
			if err != nil {
				return nil, fmt.Errorf("list events of %s: %w", cal.Id, err)
			}

			tz := page.TimeZone
			if tz == "" {
				tz = cal.TimeZone
			}
			loc := loadLocation(tz)

			for _, item := range page.Items {
				if ev, ok := convertEvent(item, cal.Id, loc); ok {
					out = append(out, ev)
				}
			}

			if page.NextPageToken == "" {
				break
			}
			pageToken = page.NextPageToken
		}
	}
	return out, nil
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// convertEvent maps a Google event. All-day events start at midnight of
// their date in the calendar's zone.
func convertEvent(e *calendar.Event, calendarID string, loc *time.Location) (ExternalEvent, bool) {
	if e == nil || e.Start == nil || e.End == nil {
		return ExternalEvent{}, false
	}

	ev := ExternalEvent{
		ID:               e.Id,
		Title:            e.Summary,
		Description:      e.Description,
		CalendarID:       calendarID,
		RecurringEventID: e.RecurringEventId,
		TimeZone:         loc.String(),
	}
	if e.Start.TimeZone != "" {
		ev.TimeZone = e.Start.TimeZone
	}

	if e.Start.Date != "" && e.Start.DateTime == "" {
		start, err := time.ParseInLocation("2006-01-02", e.Start.Date, loc)
		if err != nil {
			return ExternalEvent{}, false
		}
		end, err := time.ParseInLocation("2006-01-02", e.End.Date, loc)
		if err != nil {
			end = start.AddDate(0, 0, 1)
		}
		ev.IsAllDay = true
		ev.Start, ev.End = start, end
		return ev, true
	}

	start, err := time.Parse(time.RFC3339, e.Start.DateTime)
	if err != nil {
		return ExternalEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, e.End.DateTime)
	if err != nil {
		end = start
	}
	ev.Start, ev.End = start, end
	return ev, true
}

// Sync replaces the named calendar with a fresh one holding events.
func (s *Service) Sync(ctx context.Context, userID uint, events []SyncEvent, calendarName string) (SyncResult, error) {
	calendarName = strings.TrimSpace(calendarName)
	if calendarName == "" {
		calendarName = DefaultSyncCalendarName
	}

	api, err := s.client(ctx, userID)
	if err != nil {
		return SyncResult{}, err
	}

	calendars, err := api.ListCalendars(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list calendars: %w", err)
	}
	for _, c := range calendars {
		if c.Summary == calendarName {
			if err := api.DeleteCalendar(ctx, c.Id); err != nil {
				return SyncResult{}, fmt.Errorf("delete existing calendar: %w", err)
			}
			break
		}
	}

	created, err := api.InsertCalendar(ctx, calendarName, s.timeZone)
	if err != nil {
		return SyncResult{}, fmt.Errorf("create calendar: %w", err)
	}

	res := SyncResult{Success: true, CalendarID: created.Id}
	for _, ev := range events {
		err := api.InsertEvent(ctx, created.Id, &calendar.Event{
			Summary:     ev.Title,
			Description: ev.Description,
			Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: s.timeZone},
			End:         &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: s.timeZone},
		})
		if err != nil {
			log.Warnf("[GoogleCalendar] insert %q for user %d failed: %v", ev.Title, userID, err)
			res.FailedCount++
			continue
		}
		res.SyncedCount++
	}

	log.Infof("[GoogleCalendar] synced %d events for user %d, failed %d", res.SyncedCount, userID, res.FailedCount)
	return res, nil
}

// IsNotConnected reports whether err means the user has no calendar link.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
