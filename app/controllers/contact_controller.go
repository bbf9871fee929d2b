package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/hcaptcha"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/jobqueue"
)

type ContactController struct {
	contacts repository.ContactRepository
	queue    *jobqueue.Queue
	captcha  *hcaptcha.Verifier
}

func NewContactController(d *Dependencies) *ContactController {
	return &ContactController{contacts: d.Contacts, queue: d.Queue, captcha: d.Captcha}
}

type contactRequest struct {
	Name    string `json:"name" form:"name" validate:"required,max=150"`
	Email   string `json:"email" form:"email" validate:"required,email,max=200"`
	Message string `json:"message" form:"message" validate:"required,max=5000"`
	Captcha string `json:"captcha" form:"h-captcha-response"`
}

// Submit stores a contact message and queues the mail to the inbox.
func (cc *ContactController) Submit(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(&req); err != nil {
		return badRequest(c, "name, a valid email and message are required")
	}
	if err := cc.captcha.Verify(c.UserContext(), req.Captcha); err != nil {
		return badRequest(c, "captcha validation failed")
	}

	msg := &models.ContactMessage{Name: req.Name, Email: req.Email, Message: req.Message}
	if err := cc.contacts.Create(msg); err != nil {
		return apiError(c, err)
	}
	if _, err := jobqueue.EnqueueContactMail(cc.queue, msg); err != nil {
		// The message is stored, so the submission still succeeds.
		log.Errorf("[Contact] enqueue mail for message %d: %v", msg.ID, err)
	}
	log.Infof("[Contact] message %d received from %s", msg.ID, GetClientIP(c))
	return c.JSON(fiber.Map{"success": true})
}
