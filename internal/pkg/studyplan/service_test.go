package studyplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/gcal"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/testutil"
)

type fakeCompleter struct {
	completion Completion
	err        error
	prompt     string
	calls      int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (Completion, error) {
	f.calls++
	f.prompt = prompt
	return f.completion, f.err
}

type fakeGoogle struct {
	events []gcal.ExternalEvent
	err    error
}

func (f *fakeGoogle) ListEvents(context.Context, uint) ([]gcal.ExternalEvent, error) {
	return f.events, f.err
}

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, completer Completer, google EventSource) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	svc := NewService(repos.Profile, repos.Event, repos.Group, repos.Planner, completer, google, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, db
}

func strPtr(s string) *string { return &s }

func withPrefs(t *testing.T, prefs models.SchedulePrefs) func(*models.Profile) {
	return func(p *models.Profile) {
		require.NoError(t, p.SetPrefs(&prefs))
	}
}

func morningPrefs() models.SchedulePrefs {
	return models.SchedulePrefs{
		MorningPerson:      true,
		Busyness:           "not_busy",
		LeastBusyDays:      []string{"Saturday"},
		EarliestAwake:      strPtr("06:00"),
		LatestAsleep:       strPtr("22:00"),
		StudySessionLength: 30,
	}
}

func scheduleJSON(starts ...string) string {
	parts := make([]string, 0, len(starts))
	for i, s := range starts {
		parts = append(parts, fmt.Sprintf(`{"title":"Session %d","description":"Read","start":%q,"end":""}`, i+1, s))
	}
	return `{"schedule":[` + strings.Join(parts, ",") + `]}`
}

func TestGenerate_MorningScenario(t *testing.T) {
	completer := &fakeCompleter{completion: Completion{
		Text: scheduleJSON(
			"2026-03-03T07:00:00",
			"2026-03-07T06:30:00",
			"2026-03-14T08:00:00",
			"2026-03-21T21:00:00",
			"2026-03-28T12:00:00",
		),
		TotalTokens: 1234,
	}}
	svc, db := newTestService(t, completer, nil)
	user, _ := testutil.CreateUser(t, db, testutil.WithPro, withPrefs(t, morningPrefs()))

	ends := fixedNow.AddDate(0, 0, 30)
	res, err := svc.Generate(context.Background(), user.ID, Request{Name: "Psalms", StudyArea: "Psalms of ascent", DateEnds: &ends})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Requested)
	assert.Equal(t, 5, res.Accepted)
	assert.Equal(t, 1234, res.Usage)
	require.NotNil(t, res.Planner)
	require.NotZero(t, res.Planner.ID)

	var stored []models.Event
	require.NoError(t, db.Where("schedule_id = ?", res.Planner.ID).Order("date").Find(&stored).Error)
	require.Len(t, stored, 5)
	for _, e := range stored {
		start := e.Date.In(time.UTC)
		end := e.EndDate.In(time.UTC)
		assert.Equal(t, 30*time.Minute, end.Sub(start))
		assert.GreaterOrEqual(t, start.Hour()*60+start.Minute(), 6*60)
		assert.LessOrEqual(t, end.Hour()*60+end.Minute(), 22*60)
		assert.True(t, start.After(fixedNow))
		assert.False(t, end.After(ends))
		assert.Equal(t, user.ID, e.CreatedBy)
		assert.Nil(t, e.GroupID)
	}

	var profile models.Profile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, 25000-1234, profile.TokensLeft)
	assert.Contains(t, []uint(profile.Planners), res.Planner.ID)

	assert.Contains(t, completer.prompt, "06:00")
	assert.Contains(t, completer.prompt, "22:00")
	assert.Contains(t, completer.prompt, "15 minutes")
	assert.Contains(t, completer.prompt, "not busy")
	assert.Contains(t, completer.prompt, "Saturday")
	assert.Contains(t, completer.prompt, "Psalms of ascent")
	assert.Contains(t, completer.prompt, "2026-03-02T09:00:00")
}

func TestGenerate_DropsConflictingSessions(t *testing.T) {
	completer := &fakeCompleter{completion: Completion{
		Text: scheduleJSON(
			"2026-03-03T07:00:00", // ok
			"2026-03-03T07:15:00", // overlaps the first
			"2026-03-04T21:45:00", // ends after bedtime
			"2026-03-05T05:00:00", // before wake time
			"2026-03-06T11:10:00", // inside the buffer after choir
			"2026-05-01T10:00:00", // after the end date
			"2026-03-07T08:00:00", // ok
		),
		TotalTokens: 800,
	}}
	svc, db := newTestService(t, completer, nil)
	user, _ := testutil.CreateUser(t, db, testutil.WithPro, withPrefs(t, morningPrefs()))

	choir := models.Event{
		Title:     "Choir",
		Date:      time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 6, 11, 0, 0, 0, time.UTC),
		CreatedBy: user.ID,
	}
	require.NoError(t, db.Create(&choir).Error)

	res, err := svc.Generate(context.Background(), user.ID, Request{Name: "Romans"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Requested)
	assert.Equal(t, 2, res.Accepted)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "Session 1", res.Events[0].Title)
	assert.Equal(t, "Session 7", res.Events[1].Title)
	assert.Contains(t, completer.prompt, "Choir")
}

func TestGenerate_GroupEventsAreBusy(t *testing.T) {
	completer := &fakeCompleter{completion: Completion{
		Text:        scheduleJSON("2026-03-03T19:00:00", "2026-03-04T19:00:00"),
		TotalTokens: 500,
	}}
	svc, db := newTestService(t, completer, nil)
	user, _ := testutil.CreateUser(t, db, testutil.WithPro)
	owner, _ := testutil.CreateUser(t, db)
	group := testutil.CreateGroup(t, db, owner.ID, "Youth", "YOUTH1")
	testutil.AddMember(t, db, user.ID, group.ID)

	meeting := models.Event{
		GroupID:   &group.ID,
		Title:     "Youth night",
		Date:      time.Date(2026, 3, 3, 18, 30, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC),
		CreatedBy: owner.ID,
	}
	require.NoError(t, db.Create(&meeting).Error)

	res, err := svc.Generate(context.Background(), user.ID, Request{Name: "John"})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, 4, res.Events[0].Date.Day())
}

func TestGenerate_GoogleEvents(t *testing.T) {
	google := &fakeGoogle{events: []gcal.ExternalEvent{{
		Title: "Dentist",
		Start: time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
	}}}
	completer := &fakeCompleter{completion: Completion{
		Text:        scheduleJSON("2026-03-03T07:30:00", "2026-03-03T10:00:00"),
		TotalTokens: 500,
	}}
	svc, db := newTestService(t, completer, google)
	connected := func(p *models.Profile) { p.GoogleRefreshToken = "refresh" }
	user, _ := testutil.CreateUser(t, db, testutil.WithPro, connected)

	res, err := svc.Generate(context.Background(), user.ID, Request{Name: "Acts"})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, 10, res.Events[0].Date.Hour())
	assert.Contains(t, completer.prompt, "Dentist")
}

func TestGenerate_GoogleFailureIsNotFatal(t *testing.T) {
	google := &fakeGoogle{err: errors.New("google is down")}
	completer := &fakeCompleter{completion: Completion{Text: scheduleJSON("2026-03-03T10:00:00"), TotalTokens: 100}}
	svc, db := newTestService(t, completer, google)
	connected := func(p *models.Profile) { p.GoogleRefreshToken = "refresh" }
	user, _ := testutil.CreateUser(t, db, testutil.WithPro, connected)

	res, err := svc.Generate(context.Background(), user.ID, Request{Name: "Acts"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
}

func TestGenerate_Gates(t *testing.T) {
	completer := &fakeCompleter{completion: Completion{Text: scheduleJSON("2026-03-03T10:00:00"), TotalTokens: 100}}
	svc, db := newTestService(t, completer, nil)

	free, _ := testutil.CreateUser(t, db)
	_, err := svc.Generate(context.Background(), free.ID, Request{Name: "x"})
	assert.ErrorIs(t, err, ErrProRequired)

	poor, _ := testutil.CreateUser(t, db, testutil.WithPro, testutil.WithTokens(1999))
	_, err = svc.Generate(context.Background(), poor.ID, Request{Name: "x"})
	assert.ErrorIs(t, err, ErrInsufficientTokens)

	pro, _ := testutil.CreateUser(t, db, testutil.WithPro)
	_, err = svc.Generate(context.Background(), pro.ID, Request{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)

	past := fixedNow.Add(-time.Hour)
	_, err = svc.Generate(context.Background(), pro.ID, Request{Name: "x", DateEnds: &past})
	assert.ErrorIs(t, err, ErrInvalidEndDate)

	assert.Zero(t, completer.calls)
}

func TestGenerate_TrialUserMayGenerate(t *testing.T) {
	completer := &fakeCompleter{completion: Completion{Text: scheduleJSON("2026-03-03T10:00:00"), TotalTokens: 100}}
	svc, db := newTestService(t, completer, nil)
	svc.now = time.Now

	user, _ := testutil.CreateUser(t, db, testutil.WithActiveTrial(24*time.Hour), testutil.WithTokens(5000))
	start := time.Now().UTC().Add(48 * time.Hour)
	completer.completion.Text = scheduleJSON(start.Format(localFormat))

	res, err := svc.Generate(context.Background(), user.ID, Request{Name: "Trial"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
}

func TestGenerate_RejectsUnusableCompletions(t *testing.T) {
	tests := []struct {
		name       string
		completion Completion
		err        error
		want       error
	}{
		{"no usage", Completion{Text: scheduleJSON("2026-03-03T10:00:00")}, nil, ErrInvalidSchedule},
		{"empty schedule", Completion{Text: `{"schedule":[]}`, TotalTokens: 10}, nil, ErrInvalidSchedule},
		{"prose", Completion{Text: "I cannot help with that", TotalTokens: 10}, nil, ErrInvalidSchedule},
		{"nothing fits", Completion{Text: scheduleJSON("2026-03-03T03:00:00"), TotalTokens: 10}, nil, ErrNoSessions},
		{"upstream failure", Completion{}, errUpstream, errUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{completion: tt.completion, err: tt.err}
			svc, db := newTestService(t, completer, nil)
			user, _ := testutil.CreateUser(t, db, testutil.WithPro, withPrefs(t, morningPrefs()))

			_, err := svc.Generate(context.Background(), user.ID, Request{Name: "x"})
			assert.ErrorIs(t, err, tt.want)

			var planners int64
			require.NoError(t, db.Model(&models.Planner{}).Count(&planners).Error)
			assert.Zero(t, planners)

			var profile models.Profile
			require.NoError(t, db.Where("user_id = ?", user.ID).First(&profile).Error)
			assert.Equal(t, 25000, profile.TokensLeft)
		})
	}
}

var errUpstream = errors.New("upstream 500")
