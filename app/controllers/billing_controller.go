package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/billing"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

type BillingController struct {
	billing *billing.Service
}

func NewBillingController(d *Dependencies) *BillingController {
	return &BillingController{billing: d.Billing}
}

// CreateSubscriptionSession starts a Stripe checkout for the pro plan.
func (bc *BillingController) CreateSubscriptionSession(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	uc := usercontext.GetUserContext(c)
	url, err := bc.billing.CreateCheckout(c.UserContext(), uc.UserID, uc.Email, req)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"sessionUrl": url})
}

// CancelSubscription cancels at the end of the paid period.
func (bc *BillingController) CancelSubscription(c *fiber.Ctx) error {
	status, err := bc.billing.CancelSubscription(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Your subscription will end at the close of the current billing period.",
		"status":  status,
	})
}

// Webhook receives signed Stripe events. A bad signature is rejected before any state change.
func (bc *BillingController) Webhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	duplicate, err := bc.billing.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			log.Warnf("[Billing] rejected webhook from %s: bad signature", GetClientIP(c))
			return badRequest(c, "invalid signature")
		}
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"received": true, "duplicate": duplicate})
}
