package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/events"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

var errEventTimes = errors.New("please enter a valid start and end time")

type EventController struct {
	cfg    *config.Config
	events *events.Service
}

func NewEventController(d *Dependencies) *EventController {
	return &EventController{cfg: d.Config, events: d.EventService}
}

// backPath returns the local page the form came from.
func backPath(c *fiber.Ctx, groupID *uint) string {
	if back := c.FormValue("back"); strings.HasPrefix(back, "/") && !strings.HasPrefix(back, "//") {
		return back
	}
	if groupID != nil {
		return fmt.Sprintf("/groups/%d", *groupID)
	}
	return "/dashboard"
}

func (ec *EventController) input(c *fiber.Ctx) (events.Input, error) {
	in := events.Input{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}
	if raw := strings.TrimSpace(c.FormValue("group_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return in, errors.New("unknown group")
		}
		gid := uint(id)
		in.GroupID = &gid
	}

	loc := location(ec.cfg)
	start, err := parseFormTime(c.FormValue("start"), loc)
	if err != nil {
		return in, errEventTimes
	}
	end := start
	if raw := strings.TrimSpace(c.FormValue("end")); raw != "" {
		if end, err = parseFormTime(raw, loc); err != nil {
			return in, errEventTimes
		}
	}
	in.Start, in.End = start, end
	return in, nil
}

func (ec *EventController) Create(c *fiber.Ctx) error {
	in, err := ec.input(c)
	if err != nil {
		return flash.Error(c, backPath(c, in.GroupID), err.Error())
	}
	if _, err := ec.events.Create(usercontext.GetUserID(c), in); err != nil {
		return formError(c, backPath(c, in.GroupID), err)
	}
	return flash.Success(c, backPath(c, in.GroupID), "Event created.")
}

func (ec *EventController) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return flash.Error(c, backPath(c, nil), "Unknown event.")
	}
	in, err := ec.input(c)
	if err != nil {
		return flash.Error(c, backPath(c, in.GroupID), err.Error())
	}
	event, err := ec.events.Update(usercontext.GetUserID(c), uint(id), in)
	if err != nil {
		return formError(c, backPath(c, in.GroupID), err)
	}
	return flash.Success(c, backPath(c, event.GroupID), "Event updated.")
}

func (ec *EventController) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return flash.Error(c, backPath(c, nil), "Unknown event.")
	}
	if err := ec.events.Delete(usercontext.GetUserID(c), uint(id)); err != nil {
		return formError(c, backPath(c, nil), err)
	}
	return flash.Success(c, backPath(c, nil), "Event deleted.")
}
