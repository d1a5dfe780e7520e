// Package fetcher retrieves descriptors from the descriptor service over HTTP.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

const (
	// DefaultBaseURL is the production descriptor service.
	DefaultBaseURL = "https://api.ooni.io"

	linkPath = "/api/v2/oonirun/links/"

	// apiVersionHeader carries the service API version, when the service
	// reports one.
	apiVersionHeader = "X-Api-Version"

	// maxBodySize caps a descriptor response.
	maxBodySize = 4 << 20
)

// supportedAPI is the range of service API versions this client understands.
var supportedAPI = mustConstraint(">= 2.0.0, < 3.0.0")

// Client fetches descriptors by id. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, pkerrors.NewValidationError("apiBaseURL", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, pkerrors.NewValidationError("apiBaseURL", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}

	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    u,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch returns the current revision of descriptor id.
func (c *Client) Fetch(ctx context.Context, id string) (*descriptor.Descriptor, error) {
	endpoint := c.baseURL.JoinPath(linkPath, url.PathEscape(id)).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkerrors.NewNetworkError(endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkerrors.NewDescriptorNotFoundError(id)
	case resp.StatusCode != http.StatusOK:
		return nil, pkerrors.NewHTTPError(endpoint, resp.StatusCode)
	}

	if err := checkAPIVersion(resp.Header.Get(apiVersionHeader)); err != nil {
		return nil, pkerrors.NewNetworkError(endpoint, err)
	}

	var link linkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&link); err != nil {
		return nil, pkerrors.NewDescriptorParseError(id, err)
	}
	if link.ID == "" {
		link.ID = id
	}
	if link.ID != id {
		return nil, pkerrors.NewDescriptorParseError(id, fmt.Errorf("service returned descriptor %q", link.ID))
	}

	d := link.toDescriptor()
	slog.Debug("fetched descriptor payload", "id", id, "revision", d.Revision, "tests", len(d.AllTests()))
	return &d, nil
}

// checkAPIVersion rejects services speaking an unsupported API version.
// A missing header is accepted.
func checkAPIVersion(header string) error {
	if header == "" {
		return nil
	}
	v, err := semver.NewVersion(header)
	if err != nil {
		return fmt.Errorf("invalid API version %q: %w", header, err)
	}
	if !supportedAPI.Check(v) {
		return fmt.Errorf("unsupported API version %s (supported: %s)", v, supportedAPI)
	}
	return nil
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}
