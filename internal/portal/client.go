// Package portal provides the BIM-Portal REST client used to resolve
// canonical property definitions ("Merkmale"). Calls retry transient
// failures with exponential backoff and fail fast on permanent ones.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
)

const (
	// DefaultBaseURL is the public BIM-Portal instance.
	DefaultBaseURL = "https://www.bimdeutschland.de"

	// DefaultUserAgent identifies this client to the portal.
	DefaultUserAgent = "ifc-normalizer/1.0 (+https://github.com/pb40development/ifc-normalizer)"

	// DefaultTimeout bounds a single portal request.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of retry attempts after the first try.
	DefaultRetries = 2

	// retryBackoff is the base delay before the first retry; it doubles
	// per attempt up to maxRetryBackoff.
	retryBackoff    = 300 * time.Millisecond
	maxRetryBackoff = 5 * time.Second
)

// Client is the BIM-Portal API client.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	auth      Authenticator
	retries   int
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the portal base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithToken enables Bearer authentication.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.auth = &BearerAuth{Token: token}
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries sets the number of retry attempts for transient failures.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a portal client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		http:      &http.Client{Timeout: DefaultTimeout},
		auth:      &NoAuth{},
		retries:   DefaultRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchProperties searches public properties by name.
func (c *Client) SearchProperties(ctx context.Context, query SearchQuery) ([]SearchHit, error) {
	var hits []SearchHit
	if err := c.do(ctx, http.MethodPost, "/merkmale/api/v1/public/property", nil, query, &hits); err != nil {
		return nil, err
	}

	// Hits without a guid cannot be fetched; drop them at the boundary.
	valid := hits[:0]
	for _, h := range hits {
		if h.GUID != "" {
			valid = append(valid, h)
		}
	}
	return valid, nil
}

// PropertyByGUID fetches a single canonical property definition.
func (c *Client) PropertyByGUID(ctx context.Context, guid string) (*Definition, error) {
	if guid == "" {
		return nil, errors.NewValidationError("guid", guid, "guid must not be empty")
	}
	var def Definition
	if err := c.do(ctx, http.MethodGet, "/merkmale/api/v1/property/"+url.PathEscape(guid), nil, nil, &def); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ResolveProperty searches for a property by name and fetches the first
// hit's full definition. A nil result with nil error means the portal has
// no definition for the name.
func (c *Client) ResolveProperty(ctx context.Context, name string) (*Definition, error) {
	hits, err := c.SearchProperties(ctx, SearchQuery{SearchString: name})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return c.PropertyByGUID(ctx, hits[0].GUID)
}

// SearchPropertyGroups searches public property groups.
func (c *Client) SearchPropertyGroups(ctx context.Context, searchString string) ([]PropertyGroup, error) {
	query := url.Values{}
	if searchString != "" {
		query.Set("searchString", searchString)
	}
	var groups []PropertyGroup
	if err := c.do(ctx, http.MethodGet, "/merkmale/api/v1/propertygroup/public", query, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// PropertyGroupByGUID fetches a single property group.
func (c *Client) PropertyGroupByGUID(ctx context.Context, guid string) (*PropertyGroup, error) {
	if guid == "" {
		return nil, errors.NewValidationError("guid", guid, "guid must not be empty")
	}
	var group PropertyGroup
	if err := c.do(ctx, http.MethodGet, "/merkmale/api/v1/propertygroup/"+url.PathEscape(guid), nil, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListOrganisations lists the organisations available via the REST API.
func (c *Client) ListOrganisations(ctx context.Context) ([]Organisation, error) {
	var orgs []Organisation
	if err := c.do(ctx, http.MethodGet, "/infrastruktur/api/v1/public/organisation", nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// do performs one API call with the bounded retry policy: transport errors
// and 5xx/429 responses are retried with exponential backoff, other 4xx
// fail immediately.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", path, err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	logger := logging.FromContext(ctx)
	backoff := retryBackoff

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			logger.Debug().
				Str("endpoint", path).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying portal request")
			select {
			case <-ctx.Done():
				return errors.WrapAPI(path, 0, ctx.Err())
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}
		}

		err := c.once(ctx, method, endpoint, path, payload, target)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *errors.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return lastErr
}

// once performs a single HTTP exchange.
func (c *Client) once(ctx context.Context, method, endpoint, path string, payload []byte, target any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return errors.WrapAPI(path, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapAPI(path, 0, err)
	}
	defer func() {
		// Drain any remaining body to allow connection reuse.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.NewAPIError(path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.NewValidationError("body", truncateBody(data), "malformed portal response: "+err.Error())
	}
	return nil
}

func truncateBody(data []byte) string {
	const limit = 120
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
