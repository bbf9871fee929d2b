package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
)

// HandleFlashRateLimit is the limiter's LimitReached handler for form routes.
func HandleFlashRateLimit(c *fiber.Ctx) error {
	return flash.Error(c, "/dashboard", "Too many requests. Please wait a moment and try again.")
}

// HandleAPIRateLimit is the limiter's LimitReached handler under /api.
func HandleAPIRateLimit(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":   "rate_limited",
		"message": "too many requests",
	})
}
