package entitlements

import (
	"time"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

type AccessLevel string

const (
	AccessFree       AccessLevel = models.AccountTypeFree
	AccessPro        AccessLevel = models.AccountTypePro
	AccessProLimited AccessLevel = models.AccountTypeProLimited
)

const (
	// MinTokensForPlanner is the balance needed before another plan may be requested.
	MinTokensForPlanner = 2000
	// TokensPerPlanner is the rough cost of one plan, used for the "about N planners" hint.
	TokensPerPlanner = 5000
	// ReplenishTokens is granted on every completed checkout.
	ReplenishTokens = 25000
	// FreeGroupLimit is how many groups a free account may create.
	FreeGroupLimit = 1
	TrialDuration  = 14 * 24 * time.Hour
)

// OnTrial reports whether an unexpired trial is running.
func OnTrial(p *models.Profile, now time.Time) bool {
	return p != nil && p.TrialEndsAt != nil && now.Before(*p.TrialEndsAt)
}

// ForProfile is pro while a trial is active, otherwise the stored account type.
func ForProfile(p *models.Profile, now time.Time) AccessLevel {
	if p == nil {
		return AccessFree
	}
	if OnTrial(p, now) {
		return AccessPro
	}
	switch p.AccountType {
	case models.AccountTypePro:
		return AccessPro
	case models.AccountTypeProLimited:
		return AccessProLimited
	default:
		return AccessFree
	}
}

func (a AccessLevel) IsPro() bool {
	return a == AccessPro || a == AccessProLimited
}

// CanCreateGroup checks the created-group cap for the level.
func CanCreateGroup(level AccessLevel, alreadyCreated int64) bool {
	if level.IsPro() {
		return true
	}
	return alreadyCreated < FreeGroupLimit
}

func CanGeneratePlanner(level AccessLevel, tokensLeft int) bool {
	return level.IsPro() && tokensLeft >= MinTokensForPlanner
}

// EstimatedPlanners is ceil(tokens/TokensPerPlanner), never negative.
func EstimatedPlanners(tokensLeft int) int {
	if tokensLeft <= 0 {
		return 0
	}
	return (tokensLeft + TokensPerPlanner - 1) / TokensPerPlanner
}
