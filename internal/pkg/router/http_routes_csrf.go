package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !h.deps.Config.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	// login and signup attempts per client
	authLimiter := limiter.New(limiter.Config{
		Max:          10,
		Expiration:   1 * time.Minute,
		KeyGenerator: controllers.GetClientIP,
		LimitReached: controllers.HandleFlashRateLimit,
	})

	pages := controllers.NewPageController(h.deps)
	auth := controllers.NewAuthController(h.deps)
	dashboard := controllers.NewDashboardController(h.deps)
	groups := controllers.NewGroupController(h.deps)
	events := controllers.NewEventController(h.deps)
	notifications := controllers.NewNotificationController(h.deps)
	planners := controllers.NewPlannerController(h.deps)
	profile := controllers.NewProfileController(h.deps)
	google := controllers.NewGoogleController(h.deps)

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", pages.Home)
	group.Get("/pricing", pages.Pricing)
	group.Get("/privacy-policy", pages.Privacy)

	group.Get("/login", middleware.RequireGuest, auth.ShowLogin)
	group.Post("/login", middleware.RequireGuest, authLimiter, auth.Login)
	group.Get("/signup", middleware.RequireGuest, auth.ShowSignup)
	group.Post("/signup", middleware.RequireGuest, authLimiter, auth.Signup)

	group.Get("/dashboard", middleware.RequireAuth, dashboard.Show)

	group.Get("/groups", middleware.RequireAuth, groups.Index)
	group.Post("/groups", middleware.RequireAuth, groups.Create)
	group.Post("/groups/join", middleware.RequireAuth, groups.Join)
	group.Get("/groups/:id", middleware.RequireAuth, groups.Show)

	group.Post("/events", middleware.RequireAuth, events.Create)
	group.Post("/events/:id", middleware.RequireAuth, events.Update)
	group.Post("/events/:id/delete", middleware.RequireAuth, events.Delete)

	group.Post("/notifications", middleware.RequireAuth, notifications.Post)
	group.Post("/notifications/:id/delete", middleware.RequireAuth, notifications.Delete)

	group.Post("/planners/:id/delete", middleware.RequireAuth, planners.Delete)

	group.Get("/profile", middleware.RequireAuth, profile.Show)
	group.Post("/profile/name", middleware.RequireAuth, profile.UpdateName)
	group.Post("/profile/prefs", middleware.RequireAuth, profile.UpdatePrefs)
	group.Post("/profile/prefs/reset", middleware.RequireAuth, profile.ResetPrefs)
	group.Post("/profile/trial", middleware.RequireAuth, profile.StartTrial)
	group.Post("/profile/downgrade", middleware.RequireAuth, profile.Downgrade)
	group.Post("/profile/google/disconnect", middleware.RequireAuth, google.Disconnect)
}
