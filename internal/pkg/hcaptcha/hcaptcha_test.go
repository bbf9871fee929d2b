package hcaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerifier(t *testing.T, body string) *Verifier {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	v := NewVerifier("secret")
	v.endpoint = srv.URL
	return v
}

func TestVerify_DisabledAcceptsAnything(t *testing.T) {
	assert.NoError(t, NewVerifier("").Verify(context.Background(), ""))
}

func TestVerify_Success(t *testing.T) {
	v := testVerifier(t, `{"success":true}`)
	assert.NoError(t, v.Verify(context.Background(), "token"))
}

func TestVerify_Failure(t *testing.T) {
	v := testVerifier(t, `{"success":false,"error-codes":["invalid-input-response"]}`)
	err := v.Verify(context.Background(), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid-input-response")
}

func TestVerify_EmptyToken(t *testing.T) {
	v := NewVerifier("secret")
	assert.Error(t, v.Verify(context.Background(), ""))
}
