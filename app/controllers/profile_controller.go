package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/billing"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/utils"
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var busynessOptions = []string{"very_busy", "somewhat_busy", "not_busy", "open_schedule"}

type ProfileController struct {
	cfg      *config.Config
	profiles repository.ProfileRepository
	billing  *billing.Service
	now      func() time.Time
}

func NewProfileController(d *Dependencies) *ProfileController {
	return &ProfileController{cfg: d.Config, profiles: d.Profiles, billing: d.Billing, now: time.Now}
}

func (pc *ProfileController) Show(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	profile, err := pc.profiles.GetOrCreate(uc.UserID, uc.Email)
	if err != nil {
		return formError(c, "/dashboard", err)
	}
	prefs, err := profile.Prefs()
	if err != nil {
		log.Warnf("[Profile] prefs of user %d: %v", uc.UserID, err)
	}
	if prefs == nil {
		prefs = &models.SchedulePrefs{StudySessionLength: models.DefaultStudySessionLength}
	}

	now := pc.now()
	level := entitlements.ForProfile(profile, now)
	return render(c, pc.cfg, "profile", "Profile", fiber.Map{
		"Profile":           profile,
		"Prefs":             prefs,
		"Weekdays":          weekdays,
		"BusynessOptions":   busynessOptions,
		"AccessLevel":       string(level),
		"OnTrial":           entitlements.OnTrial(profile, now),
		"CanStartTrial":     !profile.TrialUsed && !profile.HasSubscription(),
		"EstimatedPlanners": entitlements.EstimatedPlanners(profile.TokensLeft),
		"Gravatar":          utils.GetGravatarURL(profile.Email, 80),
	})
}

func (pc *ProfileController) UpdateName(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("display_name"))
	if len(name) > 100 {
		return flash.Error(c, "/profile", "Display name is too long.")
	}
	if err := pc.profiles.UpdateFields(usercontext.GetUserID(c), map[string]interface{}{"display_name": name}); err != nil {
		return formError(c, "/profile", err)
	}
	return flash.Success(c, "/profile", "Display name saved.")
}

func optionalClock(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// prefsFromForm reads the preference form. Validation happens in SetPrefs.
func prefsFromForm(c *fiber.Ctx) *models.SchedulePrefs {
	prefs := &models.SchedulePrefs{
		MorningPerson:      c.FormValue("morning_person") == "on" || c.FormValue("morning_person") == "true",
		Busyness:           c.FormValue("busyness"),
		EarliestAwake:      optionalClock(c.FormValue("earliest_awake")),
		LatestAsleep:       optionalClock(c.FormValue("latest_asleep")),
		OtherInfo:          strings.TrimSpace(c.FormValue("other_info")),
		StudySessionLength: models.DefaultStudySessionLength,
	}
	if n, err := strconv.Atoi(c.FormValue("study_session_length")); err == nil {
		prefs.StudySessionLength = n
	}
	for _, day := range c.Request().PostArgs().PeekMulti("least_busy_days") {
		prefs.LeastBusyDays = append(prefs.LeastBusyDays, string(day))
	}
	return prefs
}

func (pc *ProfileController) UpdatePrefs(c *fiber.Ctx) error {
	var p models.Profile
	if err := p.SetPrefs(prefsFromForm(c)); err != nil {
		return flash.Error(c, "/profile", "Please check your preferences: session length must be 5 to 240 minutes and times use HH:MM.")
	}
	if err := pc.profiles.UpdateFields(usercontext.GetUserID(c), map[string]interface{}{"schedule_prefs": p.SchedulePrefs}); err != nil {
		return formError(c, "/profile", err)
	}
	return flash.Success(c, "/profile", "Preferences saved.")
}

func (pc *ProfileController) ResetPrefs(c *fiber.Ctx) error {
	if err := pc.profiles.UpdateFields(usercontext.GetUserID(c), map[string]interface{}{"schedule_prefs": nil}); err != nil {
		return formError(c, "/profile", err)
	}
	return flash.Success(c, "/profile", "Preferences reset.")
}

func (pc *ProfileController) StartTrial(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	profile, err := pc.billing.StartTrial(uc.UserID, uc.Email)
	if err != nil {
		return formError(c, "/profile", err)
	}
	return flash.Success(c, "/dashboard", "Your Pro trial runs until "+profile.TrialEndsAt.Format("January 2, 2006")+".")
}

func (pc *ProfileController) Downgrade(c *fiber.Ctx) error {
	if err := pc.billing.Downgrade(usercontext.GetUserID(c)); err != nil {
		return formError(c, "/profile", err)
	}
	return flash.Success(c, "/profile", "You are now on the free plan.")
}
