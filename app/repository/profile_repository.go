package repository

import (
	"time"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"gorm.io/gorm"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetOrCreate(userID uint, email string) (*models.Profile, error) {
	return models.GetOrCreateProfile(r.db, userID, email)
}

func (r *profileRepository) GetByUserID(userID uint) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) GetByStripeSubscriptionID(subscriptionID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateFields writes the given columns; nil values become NULL. A missing
// profile is not an error here: MySQL reports changed rows, not matched ones,
// so callers that need the row check it with GetByUserID.
func (r *profileRepository) UpdateFields(userID uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(fields).Error
}

func (r *profileRepository) SaveGoogleTokens(userID uint, accessToken, refreshToken string, expiresAt time.Time) error {
	fields := map[string]interface{}{
		"google_access_token":     accessToken,
		"google_token_expires_at": expiresAt,
	}
	// Google only returns a refresh token on the consent round trip
	if refreshToken != "" {
		fields["google_refresh_token"] = refreshToken
	}
	return r.UpdateFields(userID, fields)
}

func (r *profileRepository) ClearGoogleTokens(userID uint) error {
	return r.UpdateFields(userID, map[string]interface{}{
		"google_access_token":     "",
		"google_refresh_token":    "",
		"google_token_expires_at": nil,
	})
}

// ListExpiredTrials returns profiles whose trial ran out and that never subscribed.
func (r *profileRepository) ListExpiredTrials(now time.Time, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	q := r.db.
		Where("trial_ends_at IS NOT NULL AND trial_ends_at < ?", now).
		Where("stripe_subscription_id IS NULL OR stripe_subscription_id = ''").
		Order("trial_ends_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&profiles).Error
	return profiles, err
}
