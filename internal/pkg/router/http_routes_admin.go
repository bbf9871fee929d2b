package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	admin := controllers.NewAdminController(h.deps)

	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/stats", admin.Stats)
	adminGroup.Get("/jobs", admin.JobStats)
	adminGroup.Get("/jobs/:id", admin.Job)
}
