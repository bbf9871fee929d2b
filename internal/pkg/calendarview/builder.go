// Package calendarview merges every event a user can see into one list for
// the dashboard calendar.
package calendarview

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/gcal"
)

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryGroup    Category = "group"
	CategoryPlanner  Category = "planner"
	CategoryGoogle   Category = "google"
)

var colors = map[Category]string{
	CategoryPersonal: "#0d6efd",
	CategoryGroup:    "#198754",
	CategoryPlanner:  "#6f42c1",
	CategoryGoogle:   "#fd7e14",
}

// Color is the display color of a category.
func Color(c Category) string {
	return colors[c]
}

// Item is one entry of the merged calendar.
type Item struct {
	ID          string    `json:"id"`
	EventID     uint      `json:"eventId,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
	Category    Category  `json:"category"`
	Color       string    `json:"color"`
	GroupID     *uint     `json:"groupId,omitempty"`
	ScheduleID  *uint     `json:"scheduleId,omitempty"`
	IsCreator   bool      `json:"isCreator"`
}

// View is the merged calendar. Warning is set when Google could not be read.
type View struct {
	Items   []Item `json:"events"`
	Warning string `json:"warning,omitempty"`
}

// EventSource lists a user's Google events.
type EventSource interface {
	ListEvents(ctx context.Context, userID uint) ([]gcal.ExternalEvent, error)
}

type Builder struct {
	events   repository.EventRepository
	groups   repository.GroupRepository
	profiles repository.ProfileRepository
	google   EventSource
}

// NewBuilder creates a builder. google may be nil.
func NewBuilder(events repository.EventRepository, groups repository.GroupRepository, profiles repository.ProfileRepository, google EventSource) *Builder {
	return &Builder{events: events, groups: groups, profiles: profiles, google: google}
}

// Build reads personal, group, planner and Google events concurrently.
// A failing local read fails the view; a failing Google read only sets
// the warning.
func (b *Builder) Build(ctx context.Context, userID uint) (*View, error) {
	var personal, grouped, planned []models.Event
	var external []gcal.ExternalEvent
	var googleErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		personal, err = b.events.ListPersonal(userID)
		if err != nil {
			return fmt.Errorf("personal events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ids, err := b.groups.GroupIDsForUser(userID)
		if err != nil {
			return fmt.Errorf("group ids: %w", err)
		}
		grouped, err = b.events.ListByGroupIDs(ids)
		if err != nil {
			return fmt.Errorf("group events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		planned, err = b.events.ListPlannedForOwner(userID)
		if err != nil {
			return fmt.Errorf("planner events: %w", err)
		}
		return nil
	})
	if b.google != nil {
		g.Go(func() error {
			profile, err := b.profiles.GetByUserID(userID)
			if err != nil || !profile.HasGoogleCalendar() {
				return nil
			}
			external, googleErr = b.google.ListEvents(gctx, userID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &View{Items: make([]Item, 0, len(personal)+len(grouped)+len(planned)+len(external))}
	for _, e := range personal {
		view.Items = append(view.Items, fromEvent(e, CategoryPersonal, userID))
	}
	for _, e := range grouped {
		view.Items = append(view.Items, fromEvent(e, CategoryGroup, userID))
	}
	for _, e := range planned {
		view.Items = append(view.Items, fromEvent(e, CategoryPlanner, userID))
	}

	switch {
	case googleErr == nil:
		for _, e := range external {
			view.Items = append(view.Items, fromExternal(e))
		}
	case gcal.IsNotConnected(googleErr):
	default:
		log.Warnf("[Calendar] google events for user %d: %v", userID, googleErr)
		view.Warning = "Google Calendar events could not be loaded"
	}

	sort.SliceStable(view.Items, func(i, j int) bool {
		return view.Items[i].Start.Before(view.Items[j].Start)
	})
	return view, nil
}

func fromEvent(e models.Event, c Category, viewer uint) Item {
	return Item{
		ID:          strconv.FormatUint(uint64(e.ID), 10),
		EventID:     e.ID,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Date,
		End:         e.EndDate,
		Category:    c,
		Color:       Color(c),
		GroupID:     e.GroupID,
		ScheduleID:  e.ScheduleID,
		IsCreator:   e.CreatedBy == viewer,
	}
}

func fromExternal(e gcal.ExternalEvent) Item {
	return Item{
		ID:          "google-" + e.ID,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.IsAllDay,
		Category:    CategoryGoogle,
		Color:       Color(CategoryGoogle),
	}
}
