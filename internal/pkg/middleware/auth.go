package middleware

import (
	"github.com/gofiber/fiber/v2"

	icuser "github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

func loggedIn(c *fiber.Ctx) bool {
	b, ok := c.Locals(icuser.KeyFromProtected).(bool)
	return ok && b
}

// RequireAuth ensures a logged-in web session; redirects to /login if missing.
func RequireAuth(c *fiber.Ctx) error {
	if !loggedIn(c) {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireGuest keeps logged-in users away from login and signup.
func RequireGuest(c *fiber.Ctx) error {
	if loggedIn(c) {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !loggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireAdmin lets only admins through; everyone else gets a 404.
func RequireAdmin(c *fiber.Ctx) error {
	if !loggedIn(c) || !icuser.IsAdmin(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "page not found",
		})
	}
	return c.Next()
}
