package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/cc-hotswap/pkg/config"
)

func newVerifier(t *testing.T, handler http.HandlerFunc) *HTTPVerifier {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default(t.TempDir())
	cfg.VerifyURL = srv.URL + config.DefaultVerifyPath
	cfg.VerifyTimeout = 2 * time.Second

	client := srv.Client()
	client.Timeout = cfg.VerifyTimeout
	return NewHTTPVerifier(cfg).WithClient(client)
}

func TestHTTPVerifier_Accepts(t *testing.T) {
	var got *http.Request
	v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`[{"uuid":"org-1"}]`))
	})

	require.NoError(t, v.Verify(context.Background(), "tok-123"))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/organizations", got.URL.Path)
	assert.Equal(t, "sessionKey=tok-123", got.Header.Get("Cookie"))
	assert.Equal(t, config.DefaultVerifyAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "https://claude.ai/settings", got.Header.Get("Referer"))
	assert.Equal(t, "empty", got.Header.Get("Sec-Fetch-Dest"))
	assert.Equal(t, "cors", got.Header.Get("Sec-Fetch-Mode"))
	assert.Equal(t, "same-origin", got.Header.Get("Sec-Fetch-Site"))
}

func TestHTTPVerifier_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{
			name:   "200 with unauthorized marker",
			status: http.StatusOK,
			body:   `{"error":{"message":"Invalid authorization"}}`,
		},
		{
			name:   "bare marker body",
			status: http.StatusOK,
			body:   "Invalid authorization",
		},
		{
			name:   "403 without marker",
			status: http.StatusForbidden,
			body:   `{"error":"forbidden"}`,
		},
		{
			name:   "401",
			status: http.StatusUnauthorized,
			body:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := v.Verify(context.Background(), "tok")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestHTTPVerifier_NetworkErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.Default(t.TempDir())
	cfg.VerifyURL = url
	v := NewHTTPVerifier(cfg)

	err := v.Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPVerifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	v := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	v.client.Timeout = 50 * time.Millisecond

	start := time.Now()
	err := v.Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
