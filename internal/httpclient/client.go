// Package httpclient provides the HTTP client used to talk to the
// descriptor service.
//
// It reads PROBEKIT_API_TOKEN from the environment and creates an
// http.Client that adds an Authorization header to requests for the
// configured service host only, so the token never leaks to redirects or
// third-party hosts.
package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	// EnvAPIToken is the environment variable holding the service token.
	EnvAPIToken = "PROBEKIT_API_TOKEN"
)

// TokenFromEnv reads PROBEKIT_API_TOKEN. Returns empty string if unset.
func TokenFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvAPIToken))
}

// New creates an http.Client for the service at baseURL. The token, if
// any, is sent as a Bearer token to baseURL's host. Requests without a
// User-Agent get userAgent.
func New(baseURL, token, userAgent string) (*http.Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: defaultTimeout,
		Transport: &tokenTransport{
			token:     token,
			host:      strings.ToLower(u.Host),
			userAgent: userAgent,
			base:      http.DefaultTransport,
		},
	}, nil
}

// tokenTransport adds the Bearer token to requests for the service host.
type tokenTransport struct {
	token     string
	host      string
	userAgent string
	base      http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.token != "" && strings.EqualFold(req.URL.Host, t.host) {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	return t.base.RoundTrip(req)
}
