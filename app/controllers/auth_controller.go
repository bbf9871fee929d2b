package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/hcaptcha"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/session"
)

// loginFailed is shown for every failed login, whatever the cause.
const loginFailed = "There is a problem with the login process"

type AuthController struct {
	cfg      *config.Config
	users    repository.UserRepository
	profiles repository.ProfileRepository
	captcha  *hcaptcha.Verifier
	now      func() time.Time
}

func NewAuthController(d *Dependencies) *AuthController {
	return &AuthController{
		cfg:      d.Config,
		users:    d.Users,
		profiles: d.Profiles,
		captcha:  d.Captcha,
		now:      time.Now,
	}
}

type signupForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,email,max=200"`
	Password string `form:"password" validate:"required,min=6,max=72"`
}

func (ac *AuthController) ShowLogin(c *fiber.Ctx) error {
	return render(c, ac.cfg, "auth/login", "Log in", nil)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return flash.Error(c, "/login", loginFailed)
	}

	user, err := ac.users.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Auth] lookup failed: %v", err)
		}
		return flash.Error(c, "/login", loginFailed)
	}
	if !user.CheckPassword(password) {
		return flash.Error(c, "/login", loginFailed)
	}

	if err := session.Login(c, user); err != nil {
		log.Errorf("[Auth] session for user %d: %v", user.ID, err)
		return flash.Error(c, "/login", "Something went wrong. Please try again.")
	}
	if err := ac.users.TouchLastLogin(user.ID, ac.now()); err != nil {
		log.Warnf("[Auth] last login for user %d: %v", user.ID, err)
	}

	return flash.Success(c, "/dashboard", "Welcome back!")
}

func (ac *AuthController) ShowSignup(c *fiber.Ctx) error {
	return render(c, ac.cfg, "auth/signup", "Sign up", nil)
}

func (ac *AuthController) Signup(c *fiber.Ctx) error {
	if err := ac.captcha.Verify(c.UserContext(), c.FormValue("h-captcha-response")); err != nil {
		log.Warnf("[Auth] captcha rejected signup from %s: %v", GetClientIP(c), err)
		return flash.Error(c, "/signup", "Captcha validation failed. Please try again.")
	}

	var form signupForm
	if err := c.BodyParser(&form); err != nil {
		return flash.Error(c, "/signup", "Please fill in every field.")
	}
	form.Name = strings.TrimSpace(form.Name)
	if err := validate.Struct(&form); err != nil {
		return flash.Error(c, "/signup", "Please enter your name, a valid email and a password of at least 6 characters.")
	}

	if _, err := ac.users.GetByEmail(form.Email); err == nil {
		return flash.Error(c, "/signup", "An account with this email already exists.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return formError(c, "/signup", err)
	}

	user, err := models.CreateUser(form.Email, form.Password)
	if err != nil {
		return flash.Error(c, "/signup", "Please enter a valid email and a password of at least 6 characters.")
	}
	if err := ac.users.Create(user); err != nil {
		return formError(c, "/signup", err)
	}
	if _, err := ac.profiles.GetOrCreate(user.ID, user.Email); err != nil {
		return formError(c, "/signup", err)
	}
	if err := ac.profiles.UpdateFields(user.ID, map[string]interface{}{"display_name": form.Name}); err != nil {
		return formError(c, "/signup", err)
	}

	if err := session.Login(c, user); err != nil {
		log.Errorf("[Auth] session for new user %d: %v", user.ID, err)
		return flash.Success(c, "/login", "Your account is ready. Please log in.")
	}
	log.Infof("[Auth] user %d signed up", user.ID)
	return flash.Success(c, "/dashboard", "Welcome to Bible Study Buddy!")
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		log.Warnf("[Auth] logout: %v", err)
	}
	return flash.Success(c, "/login", "You are logged out.")
}
