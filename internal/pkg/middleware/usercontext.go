package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/session"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

func setAnonymous(c *fiber.Ctx) {
	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
}

// NewUserContextMiddleware sets up the complete user context for every
// request. The access level is read from the profile on each request so a
// webhook upgrade or an expired trial shows up without a new login.
func NewUserContextMiddleware(profiles repository.ProfileRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on /auth/*.
		if strings.HasPrefix(c.Path(), "/auth/") {
			return c.Next()
		}

		store := session.GetSessionStore()
		if store == nil {
			setAnonymous(c)
			return c.Next()
		}
		sess, err := store.Get(c)
		if err != nil {
			setAnonymous(c)
			return c.Next()
		}

		userID, ok := sess.Get(usercontext.KeyUserID).(uint)
		if !ok || userID == 0 {
			setAnonymous(c)
			return c.Next()
		}

		email, _ := sess.Get(usercontext.KeyEmail).(string)
		isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

		userCtx := usercontext.UserContext{
			UserID:      userID,
			Email:       email,
			IsLoggedIn:  true,
			IsAdmin:     isAdmin,
			AccessLevel: string(entitlements.AccessFree),
		}

		if profile, err := profiles.GetOrCreate(userID, email); err == nil {
			now := time.Now()
			userCtx.DisplayName = profile.Name()
			userCtx.AccessLevel = string(entitlements.ForProfile(profile, now))
			userCtx.OnTrial = entitlements.OnTrial(profile, now)
		} else {
			log.Warnf("[UserContext] profile lookup for user %d failed: %v", userID, err)
		}

		c.Locals(usercontext.KeyUserContext, userCtx)
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, userID)
		c.Locals(usercontext.KeyIsAdmin, isAdmin)

		return c.Next()
	}
}
