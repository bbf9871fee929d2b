package router

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblestudybuddy/studybuddy/app/controllers"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/session"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	session.NewMemoryStore()
	cfg := &config.Config{App: config.AppConfig{Env: "dev", PublicURL: "http://localhost:4000"}}

	app := fiber.New()
	setup(app, NewHttpRouter(&controllers.Dependencies{Config: cfg}), NewApiRouter(&controllers.Dependencies{Config: cfg}))
	return app
}

func TestAnonymousAccess(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		method   string
		path     string
		status   int
		location string
	}{
		{"GET", "/api/", fiber.StatusOK, ""},
		{"GET", "/api/groupMembers?groupId=1", fiber.StatusUnauthorized, ""},
		{"POST", "/api/calendar/schedule", fiber.StatusUnauthorized, ""},
		{"POST", "/api/stripe/cancel-subscription", fiber.StatusUnauthorized, ""},
		{"GET", "/dashboard", fiber.StatusSeeOther, "/login"},
		{"GET", "/profile", fiber.StatusSeeOther, "/login"},
		{"GET", "/admin/jobs", fiber.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
		})
	}
}

func TestAPIUnauthorizedShape(t *testing.T) {
	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest("POST", "/api/google/sync", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"unauthorized","message":"login required"}`, string(body))
}
