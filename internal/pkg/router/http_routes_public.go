package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	pages := controllers.NewPageController(h.deps)
	app.Get("/sitemap.xml", pages.Sitemap)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.NewAuthController(h.deps).Logout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.NewOAuthController(h.deps).HandleCallback)
}
