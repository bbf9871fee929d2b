// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

var userSeq atomic.Int64

// NewDB opens a migrated in-memory database that lives for the duration of t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection would otherwise get its own empty memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateUser stores a user plus profile and returns both.
func CreateUser(t testing.TB, db *gorm.DB, opts ...func(*models.Profile)) (*models.User, *models.Profile) {
	t.Helper()

	n := userSeq.Add(1)
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", n),
		Password: "not-a-real-hash",
		Role:     models.ROLE_USER,
	}
	require.NoError(t, db.Create(user).Error)

	profile, err := models.GetOrCreateProfile(db, user.ID, user.Email)
	require.NoError(t, err)
	for _, opt := range opts {
		opt(profile)
	}
	if len(opts) > 0 {
		require.NoError(t, db.Save(profile).Error)
	}
	return user, profile
}

// WithPro makes the profile a paying pro account with a full quota.
func WithPro(p *models.Profile) {
	sub := "sub_test"
	p.AccountType = models.AccountTypePro
	p.TokensLeft = 25000
	p.StripeSubscriptionID = &sub
}

// WithTokens sets the remaining quota.
func WithTokens(n int) func(*models.Profile) {
	return func(p *models.Profile) { p.TokensLeft = n }
}

// WithActiveTrial starts a trial that ends in d.
func WithActiveTrial(d time.Duration) func(*models.Profile) {
	return func(p *models.Profile) {
		ends := time.Now().Add(d)
		p.AccountType = models.AccountTypePro
		p.TrialUsed = true
		p.TrialEndsAt = &ends
	}
}

// CreateGroup stores a group created by owner with owner as member.
func CreateGroup(t testing.TB, db *gorm.DB, owner uint, name, code string) *models.Group {
	t.Helper()

	g := &models.Group{Name: name, JoinCode: code, CreatedBy: owner}
	require.NoError(t, db.Create(g).Error)
	require.NoError(t, db.Create(&models.UserGroup{UserID: owner, GroupID: g.ID}).Error)
	return g
}

// AddMember adds a membership row.
func AddMember(t testing.TB, db *gorm.DB, userID, groupID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserGroup{UserID: userID, GroupID: groupID}).Error)
}
