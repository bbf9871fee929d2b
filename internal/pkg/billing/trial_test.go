package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/testutil"
)

func TestStartTrial_OnlyOnce(t *testing.T) {
	svc, _, db := newTestService(t)
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	user, _ := testutil.CreateUser(t, db)

	p, err := svc.StartTrial(user.ID, user.Email)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypePro, p.AccountType)

	stored := reload(t, db, user.ID)
	assert.True(t, stored.TrialUsed)
	require.NotNil(t, stored.TrialEndsAt)
	assert.True(t, stored.TrialEndsAt.Equal(now.Add(entitlements.TrialDuration)))

	_, err = svc.StartTrial(user.ID, user.Email)
	assert.ErrorIs(t, err, ErrTrialUsed)
}

func TestDowngrade(t *testing.T) {
	svc, _, db := newTestService(t)
	trial, _ := testutil.CreateUser(t, db, testutil.WithActiveTrial(48*time.Hour))
	paying, _ := testutil.CreateUser(t, db, testutil.WithPro)

	require.NoError(t, svc.Downgrade(trial.ID))
	p := reload(t, db, trial.ID)
	assert.Equal(t, models.AccountTypeFree, p.AccountType)
	assert.Nil(t, p.TrialEndsAt)
	assert.True(t, p.TrialUsed)

	assert.ErrorIs(t, svc.Downgrade(paying.ID), ErrActiveSubscription)
}

func TestSweepExpiredTrials(t *testing.T) {
	svc, _, db := newTestService(t)
	expired, _ := testutil.CreateUser(t, db, testutil.WithActiveTrial(-time.Hour))
	running, _ := testutil.CreateUser(t, db, testutil.WithActiveTrial(time.Hour))

	n, err := svc.SweepExpiredTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, models.AccountTypeFree, reload(t, db, expired.ID).AccountType)
	assert.Equal(t, models.AccountTypePro, reload(t, db, running.ID).AccountType)

	n, err = svc.SweepExpiredTrials(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
