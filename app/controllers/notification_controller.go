package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/notifications"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

type NotificationController struct {
	notifications *notifications.Service
}

func NewNotificationController(d *Dependencies) *NotificationController {
	return &NotificationController{notifications: d.Notifications}
}

func formUints(c *fiber.Ctx, key string) []uint {
	var ids []uint
	for _, raw := range c.Request().PostArgs().PeekMulti(key) {
		if id, err := strconv.ParseUint(string(raw), 10, 64); err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

func (nc *NotificationController) Post(c *fiber.Ctx) error {
	groupID, err := strconv.ParseUint(c.FormValue("group_id"), 10, 64)
	if err != nil || groupID == 0 {
		return flash.Error(c, backPath(c, nil), "Choose a group for your message.")
	}
	gid := uint(groupID)

	uc := usercontext.GetUserContext(c)
	msg, err := nc.notifications.Post(uc.UserID, uc.Email, notifications.PostInput{
		GroupID:   gid,
		MsgType:   c.FormValue("msg_type"),
		Content:   c.FormValue("content"),
		Anonymous: c.FormValue("anonymous") == "on" || c.FormValue("anonymous") == "true",
		EventIDs:  formUints(c, "event_ids"),
	})
	if err != nil {
		return formError(c, backPath(c, &gid), err)
	}
	log.Infof("[Notifications] user %d posted %s %d to group %d", uc.UserID, msg.MsgType, msg.ID, gid)
	return flash.Success(c, backPath(c, &gid), "Message sent.")
}

func (nc *NotificationController) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return flash.Error(c, backPath(c, nil), "Unknown message.")
	}
	if err := nc.notifications.Delete(usercontext.GetUserID(c), uint(id)); err != nil {
		return formError(c, backPath(c, nil), err)
	}
	return flash.Success(c, backPath(c, nil), "Message removed.")
}

// List returns the user's notifications, newest first.
func (nc *NotificationController) List(c *fiber.Ctx) error {
	msgs, err := nc.notifications.List(usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	if msgs == nil {
		msgs = []notifications.Notification{}
	}
	return c.JSON(fiber.Map{"notifications": msgs})
}
