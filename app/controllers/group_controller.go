package controllers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/events"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/groups"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

type GroupController struct {
	cfg    *config.Config
	groups *groups.Service
	events *events.Service
}

func NewGroupController(d *Dependencies) *GroupController {
	return &GroupController{cfg: d.Config, groups: d.Groups, events: d.EventService}
}

func (gc *GroupController) Index(c *fiber.Ctx) error {
	list, err := gc.groups.ListUserGroups(usercontext.GetUserID(c))
	if err != nil {
		return formError(c, "/dashboard", err)
	}
	return render(c, gc.cfg, "groups/index", "Groups", fiber.Map{"Groups": list})
}

func (gc *GroupController) Create(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	group, err := gc.groups.CreateGroup(uc.UserID, uc.Email, c.FormValue("name"))
	if err != nil {
		return formError(c, "/groups", err)
	}
	log.Infof("[Groups] user %d created group %d", uc.UserID, group.ID)
	return flash.Success(c, fmt.Sprintf("/groups/%d", group.ID),
		fmt.Sprintf("Group created. Share the join code %s with your friends.", group.JoinCode))
}

func (gc *GroupController) Join(c *fiber.Ctx) error {
	group, err := gc.groups.JoinGroup(usercontext.GetUserID(c), c.FormValue("code"))
	if err != nil {
		return formError(c, "/groups", err)
	}
	return flash.Success(c, fmt.Sprintf("/groups/%d", group.ID), "You joined "+group.Name+".")
}

func (gc *GroupController) Show(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return flash.Error(c, "/groups", "Unknown group.")
	}
	userID := usercontext.GetUserID(c)

	group, err := gc.groups.GetGroup(userID, uint(id))
	if err != nil {
		return formError(c, "/groups", err)
	}
	members, err := gc.groups.Members(group.ID)
	if err != nil {
		return formError(c, "/groups", err)
	}
	groupEvents, err := gc.events.ListGroup(userID, group.ID)
	if err != nil {
		return formError(c, "/groups", err)
	}

	return render(c, gc.cfg, "groups/show", group.Name, fiber.Map{
		"Group":     group,
		"IsCreator": group.CreatedBy == userID,
		"Members":   members,
		"Events":    groupEvents,
	})
}

// Members backs GET /api/groupMembers?groupId=. Only members may list a group.
func (gc *GroupController) Members(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Query("groupId"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "groupId is required")
	}
	if _, err := gc.groups.GetGroup(usercontext.GetUserID(c), uint(id)); err != nil {
		return apiError(c, err)
	}
	members, err := gc.groups.Members(uint(id))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"users": members})
}
