package controllers

import (
	"encoding/json"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/calendarview"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/groups"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/notifications"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

// PlannerWithEvents is a planner as shown in the planner panel.
type PlannerWithEvents struct {
	models.Planner
	Events []models.Event `json:"events"`
}

type DashboardController struct {
	cfg           *config.Config
	profiles      repository.ProfileRepository
	events        repository.EventRepository
	planners      repository.PlannerRepository
	groups        *groups.Service
	notifications *notifications.Service
	calendar      *calendarview.Builder
	now           func() time.Time
}

func NewDashboardController(d *Dependencies) *DashboardController {
	return &DashboardController{
		cfg:           d.Config,
		profiles:      d.Profiles,
		events:        d.Events,
		planners:      d.Planners,
		groups:        d.Groups,
		notifications: d.Notifications,
		calendar:      d.Calendar,
		now:           time.Now,
	}
}

func (dc *DashboardController) plannersFor(userID uint) ([]PlannerWithEvents, error) {
	planners, err := dc.planners.ListByOwner(userID)
	if err != nil {
		return nil, err
	}
	out := make([]PlannerWithEvents, 0, len(planners))
	for _, p := range planners {
		evs, err := dc.events.ListBySchedule(p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PlannerWithEvents{Planner: p, Events: evs})
	}
	return out, nil
}

func (dc *DashboardController) Show(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	profile, err := dc.profiles.GetOrCreate(uc.UserID, uc.Email)
	if err != nil {
		return formError(c, "/", err)
	}
	prefs, err := profile.Prefs()
	if err != nil {
		log.Warnf("[Dashboard] prefs of user %d: %v", uc.UserID, err)
	}

	view, err := dc.calendar.Build(c.UserContext(), uc.UserID)
	if err != nil {
		return formError(c, "/", err)
	}
	calendarJSON, err := json.Marshal(view.Items)
	if err != nil {
		return err
	}

	msgs, err := dc.notifications.List(uc.UserID)
	if err != nil {
		return formError(c, "/", err)
	}
	userGroups, err := dc.groups.ListUserGroups(uc.UserID)
	if err != nil {
		return formError(c, "/", err)
	}
	planners, err := dc.plannersFor(uc.UserID)
	if err != nil {
		return formError(c, "/", err)
	}

	level := entitlements.ForProfile(profile, dc.now())
	return render(c, dc.cfg, "dashboard", "Dashboard", fiber.Map{
		"Profile":           profile,
		"Prefs":             prefs,
		"CalendarJSON":      template.JS(calendarJSON),
		"CalendarWarning":   view.Warning,
		"Notifications":     msgs,
		"Groups":            userGroups,
		"Planners":          planners,
		"CanPlan":           entitlements.CanGeneratePlanner(level, profile.TokensLeft),
		"IsPro":             level.IsPro(),
		"EstimatedPlanners": entitlements.EstimatedPlanners(profile.TokensLeft),
		"Upgraded":          c.Query("upgraded") == "1",
	})
}

// CalendarEvents returns the merged calendar as JSON for client-side refreshes.
func (dc *DashboardController) CalendarEvents(c *fiber.Ctx) error {
	view, err := dc.calendar.Build(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(view)
}

// Planners returns the user's planners with their events.
func (dc *DashboardController) Planners(c *fiber.Ctx) error {
	planners, err := dc.plannersFor(usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"planners": planners})
}
