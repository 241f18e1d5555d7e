package rescueapi

import (
	"context"
	"dogs-api-go/circuitbreaker"
	"dogs-api-go/logcolors"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is kept
	maxErrorBody = 1024
)

// APIError is returned for any non-2xx upstream response
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rescue API %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("rescue API %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsServerError reports whether err should count against the circuit
// breaker: transport failures and 5xx responses. 4xx responses and caller
// cancellation do not.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    *circuitbreaker.CircuitBreaker
	UserAgent  string
}

// Client fetches from the rescue REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	userAgent  string
}

// New creates a client. A nil Breaker disables circuit breaking.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dogs-api-go"
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		breaker:    opts.Breaker,
		userAgent:  opts.UserAgent,
	}
}

// BaseURL returns the upstream base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Breaker returns the circuit breaker, which may be nil
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Animals fetches one page of animals matching the query params
func (c *Client) Animals(ctx context.Context, q AnimalQuery) ([]Animal, error) {
	params := url.Values{}
	for k, v := range q.Params {
		params.Set(k, v)
	}
	params.Set("animal_type", "dog")
	params.Set("status", "available")
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	animals := []Animal{}
	if err := c.getJSON(ctx, "/api/animals", params, &animals); err != nil {
		return nil, err
	}
	return animals, nil
}

// AnimalBySlug fetches one animal
func (c *Client) AnimalBySlug(ctx context.Context, slug string) (Animal, error) {
	var animal Animal
	err := c.getJSON(ctx, "/api/animals/"+url.PathEscape(slug), nil, &animal)
	return animal, err
}

// StandardizedBreeds fetches the breed names used by the breed filter
func (c *Client) StandardizedBreeds(ctx context.Context) ([]string, error) {
	return c.getStrings(ctx, "/api/animals/meta/breeds", nil)
}

// LocationCountries fetches the countries dogs are currently located in
func (c *Client) LocationCountries(ctx context.Context) ([]string, error) {
	return c.getStrings(ctx, "/api/animals/meta/location_countries", nil)
}

// AvailableCountries fetches the countries dogs can be adopted to
func (c *Client) AvailableCountries(ctx context.Context) ([]string, error) {
	return c.getStrings(ctx, "/api/animals/meta/available_countries", nil)
}

// AvailableRegions fetches the adoptable-to regions within a country
func (c *Client) AvailableRegions(ctx context.Context, country string) ([]string, error) {
	return c.getStrings(ctx, "/api/animals/meta/available_regions", url.Values{"country": {country}})
}

// Organizations fetches every active organization
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	orgs := []Organization{}
	if err := c.getJSON(ctx, "/api/organizations", nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// OrganizationBySlug fetches one organization
func (c *Client) OrganizationBySlug(ctx context.Context, slug string) (Organization, error) {
	var org Organization
	err := c.getJSON(ctx, "/api/organizations/"+url.PathEscape(slug), nil, &org)
	return org, err
}

// Statistics fetches the aggregate counts
func (c *Client) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	err := c.getJSON(ctx, "/api/animals/statistics", nil, &stats)
	return stats, err
}

func (c *Client) getStrings(ctx context.Context, path string, params url.Values) ([]string, error) {
	out := []string{}
	if err := c.getJSON(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getJSON performs one GET through the circuit breaker and decodes the body
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	fetch := func() error {
		return c.do(ctx, path, params, out)
	}

	if c.breaker == nil {
		return fetch()
	}

	err := c.breaker.Execute(fetch, IsServerError)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Warnf("%s %s blocked, circuit open (retry in %v)",
			logcolors.LogUpstream, logcolors.Endpoint(path), c.breaker.TimeUntilRetry().Round(time.Second))
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	log.Debugf("%s GET %s -> %d (%v)", logcolors.LogUpstream, logcolors.Endpoint(path), resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", path, err)
	}
	return nil
}
