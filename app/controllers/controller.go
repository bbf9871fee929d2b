package controllers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/billing"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/calendarview"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/events"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/gcal"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/groups"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/hcaptcha"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/jobqueue"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/notifications"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/statistics"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/studyplan"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

// Dependencies is everything the controllers need, built once in cmd/studybuddy.
type Dependencies struct {
	Config *config.Config

	Users    repository.UserRepository
	Profiles repository.ProfileRepository
	Events   repository.EventRepository
	Planners repository.PlannerRepository
	Contacts repository.ContactRepository

	Groups        *groups.Service
	EventService  *events.Service
	Notifications *notifications.Service
	Calendar      *calendarview.Builder
	StudyPlan     *studyplan.Service
	Billing       *billing.Service
	Google        *gcal.Service
	Captcha       *hcaptcha.Verifier
	Queue         *jobqueue.Queue
	Stats         *statistics.Service

	// APIValidator checks /api requests against the OpenAPI document. Optional.
	APIValidator fiber.Handler
}

// formLayout is what <input type="datetime-local"> submits.
const formLayout = "2006-01-02T15:04"

var validate = validator.New()

func location(cfg *config.Config) *time.Location {
	if cfg == nil {
		return time.UTC
	}
	return cfg.Location()
}

// parseFormTime accepts the datetime-local layout in loc, or RFC3339.
func parseFormTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(formLayout, value, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// render wraps c.Render with the values every page template reads.
func render(c *fiber.Ctx, cfg *config.Config, view, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	data["User"] = usercontext.GetUserContext(c)
	data["Flash"] = flash.Get(c)
	if token, ok := c.Locals("csrf").(string); ok {
		data["CSRF"] = token
	}
	if cfg != nil {
		data["IsDev"] = cfg.IsDev()
		data["HCaptchaSiteKey"] = cfg.HCaptcha.SiteKey
	}
	return c.Render(view, data, "layouts/main")
}

// statusFor maps domain errors onto the HTTP taxonomy.
func statusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	var invalid *studyplan.InvalidScheduleError
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, studyplan.ErrNameRequired),
		errors.Is(err, studyplan.ErrInvalidEndDate),
		errors.Is(err, groups.ErrEmptyName),
		errors.Is(err, notifications.ErrContentRequired),
		errors.Is(err, notifications.ErrEventsRequired),
		errors.Is(err, notifications.ErrUnknownType),
		errors.Is(err, models.ErrEventEndsBeforeStart),
		errors.Is(err, gcal.ErrInvalidState),
		errors.Is(err, gcal.ErrNotConnected),
		errors.Is(err, billing.ErrInvalidSignature),
		errors.Is(err, billing.ErrTrialUsed),
		errors.Is(err, billing.ErrActiveSubscription):
		return fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, studyplan.ErrProRequired),
		errors.Is(err, studyplan.ErrInsufficientTokens),
		errors.Is(err, groups.ErrGroupLimitReached),
		errors.Is(err, groups.ErrNotMember),
		errors.Is(err, events.ErrNotMember),
		errors.Is(err, events.ErrNotCreator),
		errors.Is(err, notifications.ErrNotMember),
		errors.Is(err, notifications.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, groups.ErrGroupNotFound),
		errors.Is(err, groups.ErrInvalidJoinCode),
		errors.Is(err, events.ErrEventNotFound),
		errors.Is(err, notifications.ErrMessageNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.As(err, &invalid), errors.Is(err, studyplan.ErrNoSessions):
		return fiber.StatusInternalServerError, "schedule_failed"
	}
	return fiber.StatusInternalServerError, "internal_error"
}

// apiError writes the JSON error shape. Downstream failures keep their message.
func apiError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": code, "message": err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

// formError reports err on an HTML form by redirecting back with a flash message.
// Pages show a generic text for 500s; the cause is logged.
func formError(c *fiber.Ctx, path string, err error) error {
	status, _ := statusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Errorf("[Web] %s %s: %v", c.Method(), c.Path(), err)
		message = "Something went wrong. Please try again."
	}
	return flash.Error(c, path, message)
}
