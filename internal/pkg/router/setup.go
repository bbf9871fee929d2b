package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, deps *controllers.Dependencies) {
	// Install HttpRouter first to initialize the session store, oauth providers
	// and the global UserContext middleware the API routes depend on.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))

	// Anything unmatched renders the 404 page.
	app.Use(controllers.NewPageController(deps).NotFound)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
