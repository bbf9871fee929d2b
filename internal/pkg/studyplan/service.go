// Package studyplan asks a language model for study sessions that fit
// around a user's calendar and stores the accepted ones as a planner.
package studyplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/gcal"
)

var (
	ErrProRequired        = errors.New("study plans need a pro plan")
	ErrInsufficientTokens = errors.New("not enough tokens left for a study plan")
	ErrNameRequired       = errors.New("a planner name is required")
	ErrInvalidEndDate     = errors.New("end date must be in the future")
)

// Request describes the plan a user asks for. A nil DateEnds means one
// month from now; an empty TimeZone means the service default.
type Request struct {
	Name      string
	StudyArea string
	DateEnds  *time.Time
	TimeZone  string
}

// Result is a stored planner with its sessions.
type Result struct {
	Planner   *models.Planner
	Events    []models.Event
	Usage     int
	Requested int
	Accepted  int
}

// EventSource lists a user's external calendar events.
type EventSource interface {
	ListEvents(ctx context.Context, userID uint) ([]gcal.ExternalEvent, error)
}

type Service struct {
	profiles  repository.ProfileRepository
	events    repository.EventRepository
	groups    repository.GroupRepository
	planners  repository.PlannerRepository
	completer Completer
	google    EventSource
	loc       *time.Location
	now       func() time.Time
}

// NewService wires the generator. google may be nil when calendar sync is
// not configured.
func NewService(
	profiles repository.ProfileRepository,
	events repository.EventRepository,
	groups repository.GroupRepository,
	planners repository.PlannerRepository,
	completer Completer,
	google EventSource,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		profiles:  profiles,
		events:    events,
		groups:    groups,
		planners:  planners,
		completer: completer,
		google:    google,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *Service) location(name string) *time.Location {
	if name == "" {
		return s.loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return s.loc
	}
	return loc
}

// Generate builds the prompt, asks the model, keeps the sessions that fit
// and stores them as a new planner, charging the reported usage.
func (s *Service) Generate(ctx context.Context, userID uint, req Request) (*Result, error) {
	loc := s.location(req.TimeZone)
	now := s.now().In(loc)

	profile, err := s.profiles.GetByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	level := entitlements.ForProfile(profile, now)
	if !level.IsPro() {
		return nil, ErrProRequired
	}
	if !entitlements.CanGeneratePlanner(level, profile.TokensLeft) {
		return nil, ErrInsufficientTokens
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	until := now.AddDate(0, 1, 0)
	if req.DateEnds != nil {
		until = req.DateEnds.In(loc)
	}
	if !until.After(now) {
		return nil, ErrInvalidEndDate
	}

	prefs, err := profile.Prefs()
	if err != nil {
		return nil, err
	}

	busy, err := s.busySlots(ctx, profile, now, until)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(promptInput{
		Name:      name,
		StudyArea: req.StudyArea,
		Now:       now,
		Until:     until,
		Prefs:     prefs,
		Busy:      busy,
	})

	completion, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if completion.TotalTokens <= 0 {
		return nil, invalid("completion reported no token usage")
	}

	proposed, err := parseSchedule(completion.Text)
	if err != nil {
		return nil, err
	}

	w := window{
		now:    now,
		until:  until,
		loc:    loc,
		length: prefs.SessionLength(),
		busy:   busy,
		title:  name,
	}
	if prefs != nil {
		w.bounds = dayBounds{earliest: parseClock(prefs.EarliestAwake), latest: parseClock(prefs.LatestAsleep)}
	} else {
		w.bounds = dayBounds{earliest: -1, latest: -1}
	}

	sessions := w.verify(w.materialize(proposed))
	log.Infof("[StudyPlan] user %d: model proposed %d sessions, %d accepted, %d tokens",
		userID, len(proposed), len(sessions), completion.TotalTokens)
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}

	events := make([]models.Event, 0, len(sessions))
	for _, sess := range sessions {
		events = append(events, models.Event{
			Title:       sess.Title,
			Description: sess.Description,
			Date:        sess.Start,
			EndDate:     sess.End,
		})
	}

	planner := &models.Planner{Name: name, OwnedBy: userID}
	if err := s.planners.CreateWithEvents(planner, events, completion.TotalTokens); err != nil {
		return nil, fmt.Errorf("store planner: %w", err)
	}

	return &Result{
		Planner:   planner,
		Events:    events,
		Usage:     completion.TotalTokens,
		Requested: len(proposed),
		Accepted:  len(sessions),
	}, nil
}

// busySlots gathers personal, group, planned and Google events that touch
// the planning window. Google failures are logged and skipped.
func (s *Service) busySlots(ctx context.Context, profile *models.Profile, from, until time.Time) ([]busySlot, error) {
	userID := profile.UserID

	personal, err := s.events.ListPersonal(userID)
	if err != nil {
		return nil, fmt.Errorf("personal events: %w", err)
	}
	groupIDs, err := s.groups.GroupIDsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("group ids: %w", err)
	}
	grouped, err := s.events.ListByGroupIDs(groupIDs)
	if err != nil {
		return nil, fmt.Errorf("group events: %w", err)
	}
	planned, err := s.events.ListPlannedForOwner(userID)
	if err != nil {
		return nil, fmt.Errorf("planned events: %w", err)
	}

	var slots []busySlot
	add := func(title string, start, end time.Time) {
		if end.Before(start) {
			end = start
		}
		if start.Before(until) && end.After(from) {
			slots = append(slots, busySlot{Title: title, Start: start, End: end})
		}
	}
	for _, list := range [][]models.Event{personal, grouped, planned} {
		for _, e := range list {
			add(e.Title, e.Date, e.EndDate)
		}
	}

	if s.google != nil && profile.HasGoogleCalendar() {
		external, err := s.google.ListEvents(ctx, userID)
		switch {
		case err == nil:
			for _, e := range external {
				add(e.Title, e.Start, e.End)
			}
		case gcal.IsNotConnected(err):
		default:
			log.Warnf("[StudyPlan] google events for user %d unavailable: %v", userID, err)
		}
	}
	return slots, nil
}
