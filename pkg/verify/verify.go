// Package verify confirms that a session token is accepted by the remote
// API by calling it directly, the way the site's own front end does.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/cc-hotswap/pkg/config"
)

// maxBodyBytes caps how much of the response is scanned for the marker.
const maxBodyBytes = 4 << 20

// ErrUnauthorized is returned when the API answered but rejected the token.
var ErrUnauthorized = errors.New("session not authorized")

// HTTPVerifier issues the verification request.
type HTTPVerifier struct {
	client       *http.Client
	endpoint     string
	referer      string
	userAgent    string
	cookieName   string
	unauthorized string
}

// NewHTTPVerifier creates a verifier from the configuration. The client's
// timeout bounds the whole request, including reading the body.
func NewHTTPVerifier(cfg *config.Config) *HTTPVerifier {
	return &HTTPVerifier{
		client:       &http.Client{Timeout: cfg.VerifyTimeout},
		endpoint:     cfg.VerifyURL,
		referer:      cfg.SettingsURL,
		userAgent:    cfg.VerifyUserAgent,
		cookieName:   cfg.CookieName,
		unauthorized: cfg.Unauthorized,
	}
}

// WithClient replaces the HTTP client, e.g. with an httptest TLS client.
func (v *HTTPVerifier) WithClient(client *http.Client) *HTTPVerifier {
	v.client = client
	return v
}

// Verify returns nil when the endpoint answers 200 and the body does not
// contain the unauthorized marker. Anything else, including transport
// errors and timeouts, is an error.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Cookie", v.cookieName+"="+token)
	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Referer", v.referer)

	start := time.Now()
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verification request failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read verification response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	}
	if strings.Contains(string(body), v.unauthorized) {
		return fmt.Errorf("%w: %q in response", ErrUnauthorized, v.unauthorized)
	}
	return nil
}
