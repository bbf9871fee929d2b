package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/middleware"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

type ApiRouter struct {
	deps *controllers.Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	billing := controllers.NewBillingController(h.deps)

	// signed by Stripe, not rate limited
	app.Post("/api/stripe/webhook", billing.Webhook)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          60,
		Expiration:   1 * time.Minute,
		KeyGenerator: controllers.GetClientIP,
		LimitReached: controllers.HandleAPIRateLimit,
	}))
	if h.deps.APIValidator != nil {
		api.Use(h.deps.APIValidator)
	}
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	google := controllers.NewGoogleController(h.deps)
	api.Post("/contact", controllers.NewContactController(h.deps).Submit)
	// the user is identified by the signed state
	api.Get("/google/callback", google.Callback)

	// every route below needs a session
	authed := api.Group("", middleware.RequireAPISessionAuth)

	// plan generation: 5 requests per user and minute
	scheduleLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "schedule:" + usercontext.GetEmail(c)
		},
		LimitReached: controllers.HandleAPIRateLimit,
	})

	planners := controllers.NewPlannerController(h.deps)
	dashboard := controllers.NewDashboardController(h.deps)
	authed.Post("/calendar/schedule", scheduleLimiter, planners.Schedule)
	authed.Get("/calendar/events", dashboard.CalendarEvents)
	authed.Get("/planners", dashboard.Planners)

	authed.Get("/notifications", controllers.NewNotificationController(h.deps).List)
	authed.Get("/groupMembers", controllers.NewGroupController(h.deps).Members)

	authed.Get("/google/auth", google.Auth)
	authed.Post("/google/events", google.Events)
	authed.Post("/google/sync", google.Sync)

	authed.Post("/stripe/create-subscription-session", billing.CreateSubscriptionSession)
	authed.Post("/stripe/cancel-subscription", billing.CancelSubscription)
}

func NewApiRouter(deps *controllers.Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
