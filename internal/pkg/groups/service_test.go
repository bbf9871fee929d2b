package groups

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/joincode"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/testutil"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	return NewService(repos.Group, repos.Profile), db
}

func TestCreateGroup_AddsCreatorAndValidCode(t *testing.T) {
	svc, db := newService(t)
	user, _ := testutil.CreateUser(t, db)

	group, err := svc.CreateGroup(user.ID, user.Email, "  Romans study ")
	require.NoError(t, err)
	assert.Equal(t, "Romans study", group.Name)
	assert.True(t, joincode.Valid(group.JoinCode), "code %q", group.JoinCode)

	list, err := svc.ListUserGroups(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsCreator)
	assert.EqualValues(t, 1, list[0].UserCount)
}

func TestCreateGroup_FreeLimit(t *testing.T) {
	svc, db := newService(t)
	user, _ := testutil.CreateUser(t, db)

	_, err := svc.CreateGroup(user.ID, user.Email, "first")
	require.NoError(t, err)

	_, err = svc.CreateGroup(user.ID, user.Email, "second")
	assert.ErrorIs(t, err, ErrGroupLimitReached)
}

func TestCreateGroup_ProHasNoLimit(t *testing.T) {
	svc, db := newService(t)
	user, _ := testutil.CreateUser(t, db, testutil.WithPro)

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateGroup(user.ID, user.Email, name)
		require.NoError(t, err)
	}
}

func TestCreateGroup_TrialCountsAsPro(t *testing.T) {
	svc, db := newService(t)
	user, _ := testutil.CreateUser(t, db, testutil.WithActiveTrial(24*time.Hour))

	_, err := svc.CreateGroup(user.ID, user.Email, "a")
	require.NoError(t, err)
	_, err = svc.CreateGroup(user.ID, user.Email, "b")
	require.NoError(t, err)
}

func TestCreateGroup_RetriesOnCollision(t *testing.T) {
	svc, db := newService(t)
	owner, _ := testutil.CreateUser(t, db, testutil.WithPro)
	testutil.CreateGroup(t, db, owner.ID, "taken", "AAAAAA")

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	calls := 0
	svc.newCode = func() (string, error) {
		c := codes[calls]
		calls++
		return c, nil
	}

	group, err := svc.CreateGroup(owner.ID, owner.Email, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", group.JoinCode)
	assert.Equal(t, 3, calls)
}

func TestCreateGroup_GivesUpAfterFiveCollisions(t *testing.T) {
	svc, db := newService(t)
	owner, _ := testutil.CreateUser(t, db, testutil.WithPro)
	testutil.CreateGroup(t, db, owner.ID, "taken", "AAAAAA")

	calls := 0
	svc.newCode = func() (string, error) {
		calls++
		return "AAAAAA", nil
	}

	_, err := svc.CreateGroup(owner.ID, owner.Email, "fresh")
	assert.ErrorIs(t, err, errCodeExhausted)
	assert.Equal(t, maxCodeAttempts, calls)
}

func TestJoinGroup(t *testing.T) {
	svc, db := newService(t)
	owner, _ := testutil.CreateUser(t, db)
	member, _ := testutil.CreateUser(t, db)
	group := testutil.CreateGroup(t, db, owner.ID, "Acts", "ACTS01")

	joined, err := svc.JoinGroup(member.ID, " acts01 ")
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.ID)

	// joining twice keeps a single membership row
	_, err = svc.JoinGroup(member.ID, "ACTS01")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.UserGroup{}).
		Where("user_id = ? AND group_id = ?", member.ID, group.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	members, err := svc.Members(group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner.Email, members[0].Email)
	assert.Equal(t, member.Email, members[1].Email)
}

func TestJoinGroup_InvalidCode(t *testing.T) {
	svc, db := newService(t)
	user, _ := testutil.CreateUser(t, db)

	_, err := svc.JoinGroup(user.ID, "NOPE00")
	assert.ErrorIs(t, err, ErrInvalidJoinCode)

	_, err = svc.JoinGroup(user.ID, "bad")
	assert.ErrorIs(t, err, ErrInvalidJoinCode)
}

func TestGetGroup_MembersOnly(t *testing.T) {
	svc, db := newService(t)
	owner, _ := testutil.CreateUser(t, db)
	stranger, _ := testutil.CreateUser(t, db)
	group := testutil.CreateGroup(t, db, owner.ID, "Psalms", "PSALM1")

	_, err := svc.GetGroup(owner.ID, group.ID)
	require.NoError(t, err)

	_, err = svc.GetGroup(stranger.ID, group.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = svc.GetGroup(owner.ID, group.ID+100)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestMembers_UnknownGroup(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Members(999)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}
