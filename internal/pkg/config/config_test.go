package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/env"
)

func completeEnv() map[string]string {
	return map[string]string{
		"DB_USER":               "bsb",
		"DB_NAME":               "bsb",
		"GOOGLE_CLIENT_ID":      "client",
		"GOOGLE_CLIENT_SECRET":  "secret",
		"GOOGLE_STATE_SECRET":   "state",
		"OPENAI_API_KEY":        "sk-test",
		"STRIPE_SECRET_KEY":     "sk_test",
		"STRIPE_WEBHOOK_SECRET": "whsec_test",
		"STRIPE_PRO_PRICE_ID":   "price_pro",
	}
}

func TestLoad_Defaults(t *testing.T) {
	env.Env = completeEnv()
	t.Cleanup(func() { env.Env = nil })

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, "http://localhost:4000", cfg.App.PublicURL)
	assert.Equal(t, "http://localhost:4000/api/google/callback", cfg.Google.RedirectURI)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.Provider)
	assert.False(t, cfg.HCaptcha.Enabled())
}

func TestValidate_ListsAllMissingKeys(t *testing.T) {
	env.Env = map[string]string{"DB_USER": "bsb"}
	t.Cleanup(func() { env.Env = nil })

	err := Load().Validate()
	require.Error(t, err)
	for _, key := range []string{"DB_NAME", "GOOGLE_CLIENT_ID", "GOOGLE_STATE_SECRET", "OPENAI_API_KEY", "STRIPE_WEBHOOK_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.NotContains(t, err.Error(), "DB_USER")
}

func TestValidate_VertexProvider(t *testing.T) {
	vals := completeEnv()
	delete(vals, "OPENAI_API_KEY")
	vals["LLM_PROVIDER"] = "vertex"
	vals["DB_DRIVER"] = "postgres"
	env.Env = vals
	t.Cleanup(func() { env.Env = nil })

	cfg := Load()
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "gemini-2.0-flash-001", cfg.LLM.Model)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROJECT")
	assert.NotContains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidate_UnknownDriver(t *testing.T) {
	vals := completeEnv()
	vals["DB_DRIVER"] = "sqlite"
	env.Env = vals
	t.Cleanup(func() { env.Env = nil })

	assert.Error(t, Load().Validate())
}
