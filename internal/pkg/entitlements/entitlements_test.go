package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

func TestForProfile(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		profile *models.Profile
		want    AccessLevel
	}{
		{"nil profile", nil, AccessFree},
		{"free", &models.Profile{AccountType: models.AccountTypeFree}, AccessFree},
		{"pro", &models.Profile{AccountType: models.AccountTypePro}, AccessPro},
		{"pro limited", &models.Profile{AccountType: models.AccountTypeProLimited}, AccessProLimited},
		{"active trial on free row", &models.Profile{AccountType: models.AccountTypeFree, TrialEndsAt: &future}, AccessPro},
		{"expired trial", &models.Profile{AccountType: models.AccountTypeFree, TrialEndsAt: &past}, AccessFree},
		{"unknown type", &models.Profile{AccountType: "gold"}, AccessFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForProfile(tt.profile, now))
		})
	}
}

func TestEstimatedPlanners(t *testing.T) {
	tests := []struct {
		tokens int
		want   int
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{5000, 1},
		{5001, 2},
		{25000, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimatedPlanners(tt.tokens), "tokens=%d", tt.tokens)
	}
}

func TestCanCreateGroup(t *testing.T) {
	assert.True(t, CanCreateGroup(AccessFree, 0))
	assert.False(t, CanCreateGroup(AccessFree, 1))
	assert.True(t, CanCreateGroup(AccessPro, 12))
}

func TestCanGeneratePlanner(t *testing.T) {
	assert.False(t, CanGeneratePlanner(AccessFree, 25000))
	assert.False(t, CanGeneratePlanner(AccessPro, MinTokensForPlanner-1))
	assert.True(t, CanGeneratePlanner(AccessPro, MinTokensForPlanner))
}
