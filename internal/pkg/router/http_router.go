package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/middleware"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/oauth"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/session"
)

type HttpRouter struct {
	deps *controllers.Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config

	// init session, unless one was set up already (tests use the memory store)
	if session.GetSessionStore() == nil {
		session.NewSessionStore(cfg.Cache, !cfg.IsDev())
	}

	// init oauth providers
	oauth.Setup(cfg)

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.NewUserContextMiddleware(h.deps.Profiles))

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps *controllers.Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
