package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/logging"
)

const (
	BaseURL = "https://www.strava.com/api/v3"

	// DefaultTimeout bounds every resource request
	DefaultTimeout = 10 * time.Second

	DefaultPerPage = 30
	MaxPerPage     = 200

	// maxErrorBody caps how much of an error response is kept
	maxErrorBody = 4 << 10
)

// AccessTokenSource yields a currently valid bearer token.
// *auth.Gate implements it.
type AccessTokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// Client is a Strava API client
type Client struct {
	tokens      AccessTokenSource
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a new Strava API client
func NewClient(tokens AccessTokenSource, opts ...Option) *Client {
	c := &Client{
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProfile fetches the signed-in athlete
func (c *Client) GetProfile(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, "/athlete", nil, &athlete); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &athlete, nil
}

// GetStats fetches lifetime totals for an athlete
func (c *Client) GetStats(ctx context.Context, athleteID int64) (*ActivityStats, error) {
	if athleteID <= 0 {
		return nil, fmt.Errorf("fetching stats: invalid athlete id %d", athleteID)
	}

	var stats ActivityStats
	path := fmt.Sprintf("/athletes/%d/stats", athleteID)
	if err := c.getJSON(ctx, path, nil, &stats); err != nil {
		return nil, fmt.Errorf("fetching stats: %w", err)
	}
	return &stats, nil
}

// GetActivities fetches one page of activities, newest first.
// page defaults to 1 and perPage is clamped to [1, MaxPerPage].
func (c *Client) GetActivities(ctx context.Context, page, perPage int) ([]Activity, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, fmt.Errorf("fetching activities page %d: %w", page, err)
	}
	if activities == nil {
		activities = []Activity{}
	}
	return activities, nil
}

// GetActivityByID fetches a single activity with its splits
func (c *Client) GetActivityByID(ctx context.Context, id int64) (*DetailedActivity, error) {
	var activity DetailedActivity
	path := fmt.Sprintf("/activities/%d", id)
	if err := c.getJSON(ctx, path, nil, &activity); err != nil {
		return nil, fmt.Errorf("fetching activity %d: %w", id, err)
	}
	return &activity, nil
}

// GetAllActivities walks every page until a short page comes back.
// Activities fetched before a failure are returned with the error.
func (c *Client) GetAllActivities(ctx context.Context, onProgress func(fetched int)) ([]Activity, error) {
	allActivities := []Activity{}

	for page := 1; ; page++ {
		activities, err := c.GetActivities(ctx, page, MaxPerPage)
		if err != nil {
			return allActivities, err
		}

		allActivities = append(allActivities, activities...)
		if onProgress != nil && len(activities) > 0 {
			onProgress(len(allActivities))
		}

		if len(activities) < MaxPerPage {
			break
		}
	}

	logging.Debug("strava", "fetched %d activities", len(allActivities))
	return allActivities, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

// accessToken asks the token source for a bearer token. Any failure is
// reported as auth.ErrUnauthenticated so callers can prompt for sign-in.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", auth.ErrUnauthenticated
	}
	token, err := c.tokens.ValidAccessToken(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", auth.ErrUnauthenticated, err)
	}
	return token, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// get performs an authenticated GET and returns only 2xx responses
func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		apiErr := newAPIError(resp.StatusCode, body)
		logging.Warn("strava", "%s %s: %d %s", http.MethodGet, path, resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}
	return resp, nil
}

// Do sends an authenticated request and returns the response whatever its
// status. No request is made without a valid token. The caller closes the
// body.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values) (*http.Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	c.rateLimiter.UpdateFromHeaders(resp.Header)
	return resp, nil
}
