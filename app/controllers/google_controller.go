package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/gcal"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

const defaultSyncCalendarName = "Bible Studdy Buddy Events"

type GoogleController struct {
	google *gcal.Service
}

func NewGoogleController(d *Dependencies) *GoogleController {
	return &GoogleController{google: d.Google}
}

// Auth redirects to the Google consent screen.
func (gc *GoogleController) Auth(c *fiber.Ctx) error {
	url, err := gc.google.AuthURL(usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Callback stores the tokens for the user named in the signed state.
func (gc *GoogleController) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		log.Infof("[GoogleCalendar] consent not granted: %s", reason)
		return flash.Error(c, "/dashboard", "Google Calendar was not connected.")
	}
	code := c.Query("code")
	if code == "" {
		return badRequest(c, "missing authorization code")
	}

	userID, err := gc.google.HandleCallback(c.UserContext(), c.Query("state"), code)
	if err != nil {
		return apiError(c, err)
	}
	log.Infof("[GoogleCalendar] user %d connected", userID)
	return flash.Success(c, "/dashboard", "Google Calendar connected.")
}

// Events lists the user's Google events from every included calendar.
func (gc *GoogleController) Events(c *fiber.Ctx) error {
	evs, err := gc.google.ListEvents(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	if evs == nil {
		evs = []gcal.ExternalEvent{}
	}
	return c.JSON(fiber.Map{"events": evs})
}

type syncRequest struct {
	Events       []gcal.SyncEvent `json:"events"`
	CalendarName string           `json:"calendarName"`
}

// Sync replaces the app calendar in Google with the given events.
func (gc *GoogleController) Sync(c *fiber.Ctx) error {
	var req syncRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.CalendarName == "" {
		req.CalendarName = defaultSyncCalendarName
	}
	for _, e := range req.Events {
		if e.Title == "" || e.Start.IsZero() || e.End.IsZero() {
			return badRequest(c, "each event needs a title and a time range")
		}
	}

	res, err := gc.google.Sync(c.UserContext(), usercontext.GetUserID(c), req.Events, req.CalendarName)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(res)
}

// Disconnect forgets the stored Google tokens.
func (gc *GoogleController) Disconnect(c *fiber.Ctx) error {
	if err := gc.google.Disconnect(usercontext.GetUserID(c)); err != nil {
		return formError(c, "/profile", err)
	}
	return flash.Success(c, "/profile", "Google Calendar disconnected.")
}
