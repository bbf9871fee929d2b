package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/session"
)

type OAuthController struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	complete func(c *fiber.Ctx) (goth.User, error)
	now      func() time.Time
}

func NewOAuthController(d *Dependencies) *OAuthController {
	return &OAuthController{
		users:    d.Users,
		profiles: d.Profiles,
		complete: func(c *fiber.Ctx) (goth.User, error) { return gothfiber.CompleteUserAuth(c) },
		now:      time.Now,
	}
}

// HandleCallback completes the provider flow and logs the user in.
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	gu, err := oc.complete(c)
	if err != nil {
		log.Warnf("[OAuth] %s sign-in failed: %v", c.Params("provider"), err)
		return flash.Error(c, "/login", "Sign-in with your provider failed. Please try again.")
	}

	user, err := oc.resolveUser(gu)
	if err != nil {
		return formError(c, "/login", err)
	}

	if err := session.Login(c, user); err != nil {
		log.Errorf("[OAuth] session for user %d: %v", user.ID, err)
		return flash.Error(c, "/login", "Something went wrong. Please try again.")
	}
	if err := oc.users.TouchLastLogin(user.ID, oc.now()); err != nil {
		log.Warnf("[OAuth] last login for user %d: %v", user.ID, err)
	}

	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// resolveUser finds the user linked to the provider account. Unknown accounts
// are matched by email, or get a new user with an unusable password.
func (oc *OAuthController) resolveUser(gu goth.User) (*models.User, error) {
	pa, err := oc.users.GetProviderAccount(gu.Provider, gu.UserID)
	if err == nil {
		return oc.users.GetByID(pa.UserID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := gu.Email
	if email == "" {
		email = fmt.Sprintf("%s_%s@%s.oauth.local", gu.Provider, gu.UserID, gu.Provider)
	}

	user, err := oc.users.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = oc.createUser(email)
	}
	if err != nil {
		return nil, err
	}

	profile, err := oc.profiles.GetOrCreate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if profile.DisplayName == "" {
		if name := firstNonEmpty(gu.Name, gu.NickName); name != "" {
			_ = oc.profiles.UpdateFields(user.ID, map[string]interface{}{"display_name": name})
		}
	}

	if err := oc.users.LinkProviderAccount(&models.ProviderAccount{
		UserID:         user.ID,
		Provider:       gu.Provider,
		ProviderUserID: gu.UserID,
	}); err != nil {
		return nil, err
	}
	log.Infof("[OAuth] linked %s account to user %d", gu.Provider, user.ID)
	return user, nil
}

func (oc *OAuthController) createUser(email string) (*models.User, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	user, err := models.CreateUser(email, hex.EncodeToString(buf))
	if err != nil {
		return nil, err
	}
	if err := oc.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
