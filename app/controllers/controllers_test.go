package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/billing"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/calendarview"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/events"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/groups"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/jobqueue"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/middleware"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/notifications"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/statistics"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/studyplan"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/testutil"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

const goodSignature = "t=1,v1=good"

type fakeGateway struct {
	checkouts []billing.CheckoutInput
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, in billing.CheckoutInput) (string, error) {
	f.checkouts = append(f.checkouts, in)
	return "https://checkout.stripe.test/c/session", nil
}

func (f *fakeGateway) CancelAtPeriodEnd(context.Context, string) (string, error) {
	return "active", nil
}

func (f *fakeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature != goodSignature {
		return stripe.Event{}, errors.New("signature mismatch")
	}
	var ev stripe.Event
	err := json.Unmarshal(payload, &ev)
	return ev, err
}

type fakeCompleter struct {
	text  string
	usage int
	err   error
}

func (f *fakeCompleter) Complete(context.Context, string) (studyplan.Completion, error) {
	if f.err != nil {
		return studyplan.Completion{}, f.err
	}
	return studyplan.Completion{Text: f.text, TotalTokens: f.usage}, nil
}

type testEnv struct {
	db        *gorm.DB
	deps      *Dependencies
	gateway   *fakeGateway
	completer *fakeCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{App: config.AppConfig{PublicURL: "https://bsb.test", TimeZone: "UTC"}}
	gw := &fakeGateway{}
	completer := &fakeCompleter{}

	deps := &Dependencies{
		Config:        cfg,
		Users:         repos.User,
		Profiles:      repos.Profile,
		Events:        repos.Event,
		Planners:      repos.Planner,
		Contacts:      repos.Contact,
		Groups:        groups.NewService(repos.Group, repos.Profile),
		EventService:  events.NewService(repos.Event, repos.Group),
		Notifications: notifications.NewService(repos.Message, repos.Group, repos.Event),
		Calendar:      calendarview.NewBuilder(repos.Event, repos.Group, repos.Profile, nil),
		StudyPlan:     studyplan.NewService(repos.Profile, repos.Event, repos.Group, repos.Planner, completer, nil, time.UTC),
		Billing: billing.NewService(billing.NewEventStore(db), repos.Profile, gw,
			config.StripeConfig{ProPriceID: "price_pro"}, cfg.App.PublicURL),
		Queue: jobqueue.NewQueue(rdb, 1),
		Stats: statistics.NewService(db, rdb),
	}
	return &testEnv{db: db, deps: deps, gateway: gw, completer: completer}
}

// asUser stands in for the session middleware.
func asUser(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
				UserID:     user.ID,
				Email:      user.Email,
				IsLoggedIn: true,
			})
			c.Locals(usercontext.KeyFromProtected, true)
		}
		return c.Next()
	}
}

func (e *testEnv) app(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(asUser(user))

	pages := NewPageController(e.deps)
	app.Get("/sitemap.xml", pages.Sitemap)
	app.Post("/api/contact", NewContactController(e.deps).Submit)
	app.Post("/api/stripe/webhook", NewBillingController(e.deps).Webhook)

	api := app.Group("/api", middleware.RequireAPISessionAuth)
	gc := NewGroupController(e.deps)
	api.Get("/groupMembers", gc.Members)
	pc := NewPlannerController(e.deps)
	api.Post("/calendar/schedule", pc.Schedule)
	dc := NewDashboardController(e.deps)
	api.Get("/calendar/events", dc.CalendarEvents)
	bc := NewBillingController(e.deps)
	api.Post("/stripe/create-subscription-session", bc.CreateSubscriptionSession)
	api.Post("/stripe/cancel-subscription", bc.CancelSubscription)

	app.Post("/planners/:id/delete", middleware.RequireAuth, pc.Delete)
	ec := NewEventController(e.deps)
	app.Post("/events", middleware.RequireAuth, ec.Create)
	app.Post("/events/:id/delete", middleware.RequireAuth, ec.Delete)

	app.Get("/admin/stats", NewAdminController(e.deps).Stats)
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{studyplan.ErrNameRequired, fiber.StatusBadRequest},
		{fmt.Errorf("wrap: %w", models.ErrEventEndsBeforeStart), fiber.StatusBadRequest},
		{billing.ErrInvalidSignature, fiber.StatusBadRequest},
		{studyplan.ErrInsufficientTokens, fiber.StatusForbidden},
		{groups.ErrGroupLimitReached, fiber.StatusForbidden},
		{events.ErrNotCreator, fiber.StatusForbidden},
		{notifications.ErrForbidden, fiber.StatusForbidden},
		{groups.ErrInvalidJoinCode, fiber.StatusNotFound},
		{billing.ErrSubscriptionNotFound, fiber.StatusNotFound},
		{studyplan.ErrNoSessions, fiber.StatusInternalServerError},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestAPIRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.app(nil).Test(httptest.NewRequest(http.MethodGet, "/api/groupMembers?groupId=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decode(t, resp)["error"])
}

func TestGroupMembers(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := testutil.CreateUser(t, env.db)
	member, _ := testutil.CreateUser(t, env.db)
	outsider, _ := testutil.CreateUser(t, env.db)
	group := testutil.CreateGroup(t, env.db, owner.ID, "Romans", "ROM123")
	testutil.AddMember(t, env.db, member.ID, group.ID)

	resp, err := env.app(member).Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/groupMembers?groupId=%d", group.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	users, ok := decode(t, resp)["users"].([]interface{})
	require.True(t, ok)
	assert.Len(t, users, 2)

	tests := []struct {
		name   string
		user   *models.User
		query  string
		status int
	}{
		{"outsider", outsider, fmt.Sprintf("groupId=%d", group.ID), fiber.StatusForbidden},
		{"unknown group", member, "groupId=9999", fiber.StatusNotFound},
		{"missing id", member, "", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.app(tt.user).Test(httptest.NewRequest(http.MethodGet, "/api/groupMembers?"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestContactSubmit(t *testing.T) {
	env := newTestEnv(t)
	app := env.app(nil)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/contact", `{"name":"Ruth","email":"not-an-email","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/contact", `{"name":"Ruth","email":"ruth@example.com","message":"Can we add a group?"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["success"])

	var stored []models.ContactMessage
	require.NoError(t, env.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "ruth@example.com", stored[0].Email)

	size, err := env.deps.Queue.GetQueueSize(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
}

func TestStripeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	free, _ := testutil.CreateUser(t, env.db)

	resp, err := env.app(nil).Test(jsonRequest(http.MethodPost, "/api/stripe/webhook", `{"id":"evt_1"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = env.app(free).Test(jsonRequest(http.MethodPost, "/api/stripe/cancel-subscription", ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = env.app(free).Test(jsonRequest(http.MethodPost, "/api/stripe/create-subscription-session", ""))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://checkout.stripe.test/c/session", decode(t, resp)["sessionUrl"])
	require.Len(t, env.gateway.checkouts, 1)
	assert.Equal(t, "price_pro", env.gateway.checkouts[0].PriceID)
	assert.Equal(t, free.ID, env.gateway.checkouts[0].UserID)
}

func TestStripeWebhookUpgradesOnce(t *testing.T) {
	env := newTestEnv(t)
	user, _ := testutil.CreateUser(t, env.db)
	payload := fmt.Sprintf(`{"id":"evt_ok","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"%d","customer":"cus_1","subscription":"sub_1"}}}`, user.ID)

	for i := 0; i < 2; i++ {
		req := jsonRequest(http.MethodPost, "/api/stripe/webhook", payload)
		req.Header.Set("Stripe-Signature", goodSignature)
		resp, err := env.app(nil).Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, i == 1, decode(t, resp)["duplicate"])
	}

	var p models.Profile
	require.NoError(t, env.db.Where("user_id = ?", user.ID).First(&p).Error)
	assert.Equal(t, models.AccountTypePro, p.AccountType)
	assert.Equal(t, 25000, p.TokensLeft)
}

func scheduleCompletion(starts ...time.Time) string {
	var items []string
	for i, s := range starts {
		items = append(items, fmt.Sprintf(`{"title":"Session %d","description":"Read","start":%q,"end":""}`, i+1, s.Format(time.RFC3339)))
	}
	return `{"schedule":[` + strings.Join(items, ",") + `]}`
}

func TestScheduleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	free, _ := testutil.CreateUser(t, env.db)
	pro, _ := testutil.CreateUser(t, env.db, testutil.WithPro)

	resp, err := env.app(free).Test(jsonRequest(http.MethodPost, "/api/calendar/schedule", `{"name":"Psalms"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = env.app(pro).Test(jsonRequest(http.MethodPost, "/api/calendar/schedule", `{"name":"Psalms","dateEnds":"soon"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	day := time.Now().UTC().Add(48 * time.Hour).Truncate(24 * time.Hour)
	env.completer.text = scheduleCompletion(day.Add(9*time.Hour), day.Add(18*time.Hour))
	env.completer.usage = 1500

	resp, err = env.app(pro).Test(jsonRequest(http.MethodPost, "/api/calendar/schedule", `{"name":"Psalms","studyArea":"Psalms 1-10"}`), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.EqualValues(t, 2, body["accepted"])
	assert.EqualValues(t, 2, body["requested"])
	assert.EqualValues(t, 1500, body["usage"])
	assert.Len(t, body["scheduleEvents"], 2)

	var p models.Profile
	require.NoError(t, env.db.Where("user_id = ?", pro.ID).First(&p).Error)
	assert.Equal(t, 23500, p.TokensLeft)
	require.Len(t, p.Planners, 1)
	assert.EqualValues(t, body["plannerId"], p.Planners[0])
}

func TestScheduleEndpointSurfacesUpstreamError(t *testing.T) {
	env := newTestEnv(t)
	pro, _ := testutil.CreateUser(t, env.db, testutil.WithPro)
	env.completer.err = errors.New("openai: status 503: model overloaded")

	resp, err := env.app(pro).Test(jsonRequest(http.MethodPost, "/api/calendar/schedule", `{"name":"Psalms"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "internal_error", body["error"])
	assert.Contains(t, body["message"], "model overloaded")

	var p models.Profile
	require.NoError(t, env.db.Where("user_id = ?", pro.ID).First(&p).Error)
	assert.Empty(t, p.Planners)
}

func TestPlannerDelete(t *testing.T) {
	env := newTestEnv(t)
	user, _ := testutil.CreateUser(t, env.db, testutil.WithPro)
	planner := &models.Planner{Name: "Gospels"}
	planner.OwnedBy = user.ID
	start := time.Now().Add(24 * time.Hour)
	evs := []models.Event{{Title: "Mark 1", Date: start, EndDate: start.Add(15 * time.Minute), CreatedBy: user.ID}}
	require.NoError(t, env.deps.Planners.CreateWithEvents(planner, evs, 100))

	resp, err := env.app(user).Test(formRequest(fmt.Sprintf("/planners/%d/delete", planner.ID), url.Values{}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get(fiber.HeaderLocation))

	var count int64
	require.NoError(t, env.db.Model(&models.Event{}).Where("schedule_id = ?", planner.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEventFormCreateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := testutil.CreateUser(t, env.db)
	other, _ := testutil.CreateUser(t, env.db)
	group := testutil.CreateGroup(t, env.db, owner.ID, "Acts", "ACT001")
	testutil.AddMember(t, env.db, other.ID, group.ID)

	resp, err := env.app(owner).Test(formRequest("/events", url.Values{
		"title":    {"Acts 2"},
		"start":    {"2030-05-04T18:00"},
		"end":      {"2030-05-04T19:00"},
		"group_id": {fmt.Sprint(group.ID)},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/groups/%d", group.ID), resp.Header.Get(fiber.HeaderLocation))

	var ev models.Event
	require.NoError(t, env.db.Where("title = ?", "Acts 2").First(&ev).Error)
	assert.Equal(t, time.Date(2030, 5, 4, 18, 0, 0, 0, time.UTC), ev.Date.UTC())

	// only the creator may delete
	_, err = env.app(other).Test(formRequest(fmt.Sprintf("/events/%d/delete", ev.ID), url.Values{}))
	require.NoError(t, err)
	require.NoError(t, env.db.First(&models.Event{}, ev.ID).Error)

	_, err = env.app(owner).Test(formRequest(fmt.Sprintf("/events/%d/delete", ev.ID), url.Values{}))
	require.NoError(t, err)
	assert.ErrorIs(t, env.db.First(&models.Event{}, ev.ID).Error, gorm.ErrRecordNotFound)
}

func TestSitemap(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.app(nil).Test(httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "<loc>https://bsb.test/pricing</loc>")
	assert.Contains(t, string(raw), "<urlset")
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	user, _ := testutil.CreateUser(t, env.db)
	testutil.CreateGroup(t, env.db, user.ID, "Psalms", "PSA150")

	resp, err := env.app(user).Test(httptest.NewRequest(http.MethodGet, "/admin/stats?refresh=1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.EqualValues(t, 1, body["total_users"])
	assert.EqualValues(t, 1, body["total_groups"])
}

func TestBackPath(t *testing.T) {
	app := fiber.New()
	gid := uint(7)
	var got []string
	app.Post("/", func(c *fiber.Ctx) error {
		got = append(got, strings.Clone(backPath(c, &gid)))
		return nil
	})
	for _, back := range []string{"/profile", "//evil.test", "https://evil.test", ""} {
		_, err := app.Test(formRequest("/", url.Values{"back": {back}}))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"/profile", "/groups/7", "/groups/7", "/groups/7"}, got)
}
