package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	apiv1 "github.com/biblestudybuddy/studybuddy/internal/api/v1"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/billing"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/cache"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/calendarview"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/database"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/env"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/events"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/gcal"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/groups"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/hcaptcha"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/jobqueue"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/mail"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/notifications"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/router"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/statistics"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/studyplan"
)

func main() {
	env.SetupEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	db, err := database.SetupDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	app, manager, closer, err := NewApplication(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	manager.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		manager.Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
		log.Fatal(err)
	}
}

// findBasePath locates the directory holding views/ and public/.
func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/studybuddy to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewApplication wires every service and returns the app plus the background
// job manager. The closer releases the completion client.
func NewApplication(cfg *config.Config, db *gorm.DB) (*fiber.App, *jobqueue.Manager, io.Closer, error) {
	rdb := cache.SetupCache(cfg.Cache)
	repos := repository.NewFactory(db).GetRepositories()
	loc := cfg.Location()

	// Google Calendar
	oauthClient := gcal.NewOAuthClient(cfg.Google)
	tokens := gcal.NewTokenManager(repos.Profile, oauthClient, rdb)
	google := gcal.NewService(tokens, oauthClient, gcal.NewStateSigner(cfg.Google.StateSecret), repos.Profile, gcal.NewGoogleAPI)
	google.SetTimeZone(cfg.App.TimeZone)

	// study plan generation
	completer, err := studyplan.NewCompleter(context.Background(), cfg.LLM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("completer: %w", err)
	}
	var closer io.Closer = nopCloser{}
	if c, ok := completer.(io.Closer); ok {
		closer = c
	}

	// billing and trials
	billingSvc := billing.NewService(
		billing.NewEventStore(db),
		repos.Profile,
		billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
		cfg.Stripe,
		cfg.App.PublicURL,
	)

	// background jobs
	queue := jobqueue.NewQueue(rdb, cfg.Jobs.Workers)
	queue.Register(jobqueue.JobTypeContactMail, jobqueue.NewContactMailHandler(mail.NewSMTPMailer(cfg.Mail), cfg.Mail.ContactInbox))
	manager := jobqueue.InitManager(queue, billingSvc, cfg.Jobs.TrialSweepInterval)

	deps := &controllers.Dependencies{
		Config:        cfg,
		Users:         repos.User,
		Profiles:      repos.Profile,
		Events:        repos.Event,
		Planners:      repos.Planner,
		Contacts:      repos.Contact,
		Groups:        groups.NewService(repos.Group, repos.Profile),
		EventService:  events.NewService(repos.Event, repos.Group),
		Notifications: notifications.NewService(repos.Message, repos.Group, repos.Event),
		Calendar:      calendarview.NewBuilder(repos.Event, repos.Group, repos.Profile, google),
		StudyPlan:     studyplan.NewService(repos.Profile, repos.Event, repos.Group, repos.Planner, completer, google, loc),
		Billing:       billingSvc,
		Google:        google,
		Captcha:       hcaptcha.NewVerifier(cfg.HCaptcha.Secret),
		Queue:         queue,
		Stats:         statistics.NewService(db, rdb),
	}

	basePath := findBasePath()
	specPath := basePath + "public/docs/v1/openapi.yml"

	if doc, err := apiv1.LoadSpec(specPath); err != nil {
		log.Printf("OpenAPI document not loaded, request validation disabled: %v", err)
	} else if deps.APIValidator, err = apiv1.NewValidator(doc); err != nil {
		log.Printf("OpenAPI router: %v", err)
	}

	engine := html.New(basePath+"views", ".html")
	engine.AddFunc("contains", func(list []string, value string) bool {
		return slices.Contains(list, value)
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 1 * 1024 * 1024,
	})

	// ignore and cache favicon
	app.Use(favicon.New(favicon.Config{
		File:         basePath + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	if cfg.Monitor.Password != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				cfg.Monitor.User: cfg.Monitor.Password,
			},
		}), monitor.New(monitor.Config{Title: "Bible Study Buddy Metrics"}))
	}

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: specPath,
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, deps)

	return app, manager, closer, nil
}
