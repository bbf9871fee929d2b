package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AccountTypeFree       = "free"
	AccountTypePro        = "pro"
	AccountTypeProLimited = "pro_limited"
)

const DefaultStudySessionLength = 15

// Profile carries plan state, quota, calendar tokens and preferences of a user.
type Profile struct {
	ID                   uint                      `gorm:"primaryKey" json:"id"`
	UserID               uint                      `gorm:"uniqueIndex" json:"user_id"`
	Email                string                    `gorm:"type:varchar(200)" json:"email"`
	DisplayName          string                    `gorm:"type:varchar(100)" json:"display_name" validate:"max=100"`
	AccountType          string                    `gorm:"type:varchar(20);default:'free'" json:"account_type" validate:"oneof=free pro pro_limited"`
	TrialUsed            bool                      `gorm:"default:false" json:"trial_used"`
	TrialEndsAt          *time.Time                `gorm:"default:null" json:"trial_ends_at"`
	StripeCustomerID     *string                   `gorm:"type:varchar(100);index" json:"stripe_customer_id"`
	StripeSubscriptionID *string                   `gorm:"type:varchar(100);index" json:"stripe_subscription_id"`
	TokensLeft           int                       `gorm:"default:0" json:"tokens_left"`
	GoogleAccessToken    string                    `gorm:"type:text" json:"-"`
	GoogleRefreshToken   string                    `gorm:"type:text" json:"-"`
	GoogleTokenExpiresAt *time.Time                `gorm:"default:null" json:"-"`
	SchedulePrefs        datatypes.JSON            `json:"schedule_prefs"`
	Planners             datatypes.JSONSlice[uint] `json:"planners"`
	CreatedAt            time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

// SchedulePrefs is what the study plan generator knows about a user's week.
type SchedulePrefs struct {
	MorningPerson      bool     `json:"morning_person"`
	Busyness           string   `json:"busyness" validate:"omitempty,oneof=very_busy somewhat_busy not_busy open_schedule"`
	LeastBusyDays      []string `json:"least_busy_days" validate:"dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	EarliestAwake      *string  `json:"earliest_awake" validate:"omitempty,hhmm"`
	LatestAsleep       *string  `json:"latest_asleep" validate:"omitempty,hhmm"`
	OtherInfo          string   `json:"other_info" validate:"max=1000"`
	StudySessionLength int      `json:"study_session_length" validate:"min=5,max=240"`
}

var prefsValidator = newPrefsValidator()

func newPrefsValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	return v
}

// BusynessLabel maps the stored busyness key to the phrase shown to users and to the model.
func BusynessLabel(key string) string {
	switch key {
	case "very_busy":
		return "very busy"
	case "somewhat_busy":
		return "somewhat busy"
	case "not_busy":
		return "not busy"
	case "open_schedule":
		return "open schedule"
	}
	return key
}

func (p *SchedulePrefs) Validate() error {
	return prefsValidator.Struct(p)
}

// SessionLength falls back to the default when no length was chosen.
func (p *SchedulePrefs) SessionLength() time.Duration {
	if p == nil || p.StudySessionLength <= 0 {
		return DefaultStudySessionLength * time.Minute
	}
	return time.Duration(p.StudySessionLength) * time.Minute
}

// Prefs decodes the stored preferences; nil means the user never saved any.
func (p *Profile) Prefs() (*SchedulePrefs, error) {
	if len(p.SchedulePrefs) == 0 || string(p.SchedulePrefs) == "null" {
		return nil, nil
	}
	var prefs SchedulePrefs
	if err := json.Unmarshal(p.SchedulePrefs, &prefs); err != nil {
		return nil, fmt.Errorf("decode schedule prefs: %w", err)
	}
	return &prefs, nil
}

// SetPrefs stores prefs; nil resets the column to NULL.
func (p *Profile) SetPrefs(prefs *SchedulePrefs) error {
	if prefs == nil {
		p.SchedulePrefs = nil
		return nil
	}
	if err := prefs.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	p.SchedulePrefs = datatypes.JSON(raw)
	return nil
}

func (p *Profile) HasGoogleCalendar() bool {
	return p.GoogleRefreshToken != ""
}

func (p *Profile) HasSubscription() bool {
	return p.StripeSubscriptionID != nil && *p.StripeSubscriptionID != ""
}

// Name returns the display name or, failing that, the email.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// GetOrCreateProfile returns the user's profile, creating a free one on first use.
func GetOrCreateProfile(db *gorm.DB, userID uint, email string) (*Profile, error) {
	var p Profile
	err := db.Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = Profile{UserID: userID, Email: NormalizeEmail(email), AccountType: AccountTypeFree}
	if err := db.Create(&p).Error; err != nil {
		// lost a race with a concurrent create
		if rerr := db.Where("user_id = ?", userID).First(&p).Error; rerr == nil {
			return &p, nil
		}
		return nil, err
	}
	return &p, nil
}
