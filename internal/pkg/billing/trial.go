package billing

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
)

const trialSweepBatch = 100

var (
	ErrTrialUsed          = errors.New("the free trial was already used")
	ErrActiveSubscription = errors.New("cancel the subscription instead")
)

// StartTrial grants pro access for the trial period, once per account.
func (s *Service) StartTrial(userID uint, email string) (*models.Profile, error) {
	profile, err := s.profiles.GetOrCreate(userID, email)
	if err != nil {
		return nil, err
	}
	if profile.TrialUsed {
		return nil, ErrTrialUsed
	}
	if profile.HasSubscription() {
		return nil, ErrActiveSubscription
	}

	ends := s.now().Add(entitlements.TrialDuration)
	err = s.profiles.UpdateFields(userID, map[string]interface{}{
		"account_type":  models.AccountTypePro,
		"trial_used":    true,
		"trial_ends_at": ends,
	})
	if err != nil {
		return nil, err
	}
	profile.AccountType = models.AccountTypePro
	profile.TrialUsed = true
	profile.TrialEndsAt = &ends
	log.Infof("[Billing] user %d started a trial until %s", userID, ends.Format("2006-01-02"))
	return profile, nil
}

// Downgrade returns an account without subscription to the free plan.
func (s *Service) Downgrade(userID uint) error {
	profile, err := s.profiles.GetByUserID(userID)
	if err != nil {
		return err
	}
	if profile.HasSubscription() {
		return ErrActiveSubscription
	}
	return s.downgrade(userID)
}

func (s *Service) downgrade(userID uint) error {
	return s.profiles.UpdateFields(userID, map[string]interface{}{
		"account_type":  models.AccountTypeFree,
		"trial_used":    true,
		"trial_ends_at": nil,
	})
}

// SweepExpiredTrials downgrades every expired trial that never subscribed.
func (s *Service) SweepExpiredTrials(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		profiles, err := s.profiles.ListExpiredTrials(s.now(), trialSweepBatch)
		if err != nil {
			return total, err
		}
		for _, p := range profiles {
			if err := s.downgrade(p.UserID); err != nil {
				return total, err
			}
			total++
		}
		if len(profiles) < trialSweepBatch {
			break
		}
	}
	if total > 0 {
		log.Infof("[Billing] downgraded %d expired trials", total)
	}
	return total, nil
}
