package oauth

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
)

const ProviderGoogle = "google"

// Setup registers the Google sign-in provider and the goth state store.
// Sign-in is skipped when no key is configured.
func Setup(cfg *config.Config) bool {
	if cfg.Login.GoogleKey == "" || cfg.Login.GoogleSecret == "" {
		log.Info("[OAuth] GOOGLE_KEY not set, social sign-in disabled")
		return false
	}

	goth.UseProviders(
		google.New(
			cfg.Login.GoogleKey,
			cfg.Login.GoogleSecret,
			cfg.App.PublicURL+"/auth/google/callback",
			"email", "profile",
		),
	)

	port, err := strconv.Atoi(cfg.Cache.Port)
	if err != nil {
		port = 6379
	}

	// OAuth state via Redis, using the cache server with its own database.
	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     cfg.Cache.Host,
			Port:     port,
			Password: cfg.Cache.Password,
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !cfg.IsDev(),
		Expiration:     time.Hour,
	})
	return true
}
