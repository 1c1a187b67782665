package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"strava-wrapped/internal/store"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"

	// DefaultTimeout bounds every call to the token endpoint
	DefaultTimeout = 10 * time.Second
)

// Scopes required for our app (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8089/auth/callback"

	// Endpoint overrides, empty means Strava's
	AuthURL  string
	TokenURL string

	Timeout time.Duration
}

// NewOAuthConfig creates an oauth2.Config from our Config
func NewOAuthConfig(cfg Config) *oauth2.Config {
	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = AuthURL
	}
	if tokenURL == "" {
		tokenURL = TokenURL
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
			// Strava expects client credentials in the form body
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      Scopes,
	}
}

// OAuthClient performs the token endpoint operations against Strava
type OAuthClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	states     *StateStore
}

// NewOAuthClient creates a client for the given credentials
func NewOAuthClient(cfg Config) *OAuthClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OAuthClient{
		config:     NewOAuthConfig(cfg),
		httpClient: &http.Client{Timeout: timeout},
		states:     NewStateStore(),
	}
}

// BuildAuthorizationURL returns the authorize redirect and the state it carries.
// The state is remembered until VerifyState consumes it.
func (c *OAuthClient) BuildAuthorizationURL() (authURL, state string, err error) {
	state, err = c.states.Generate()
	if err != nil {
		return "", "", err
	}
	authURL = c.config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
	return authURL, state, nil
}

// VerifyState reports whether a callback's state was issued by this client.
func (c *OAuthClient) VerifyState(state string) bool {
	return c.states.Consume(state)
}

// ExchangeCode trades a one-time authorization code for a credential.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (store.Credential, error) {
	token, err := c.config.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return store.Credential{}, tokenError(OpExchange, err)
	}
	return credentialFromToken(token), nil
}

// Refresh obtains a new credential from a refresh token. When the provider
// does not rotate the refresh token, the old one is kept.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (store.Credential, error) {
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	token, err := c.config.TokenSource(c.withHTTPClient(ctx), expired).Token()
	if err != nil {
		return store.Credential{}, tokenError(OpRefresh, err)
	}

	cred := credentialFromToken(token)
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

func (c *OAuthClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func tokenError(op string, err error) error {
	authErr := &AuthError{Op: op, Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		authErr.StatusCode = retrieveErr.Response.StatusCode
		authErr.Body = string(retrieveErr.Body)
	}
	return authErr
}

// credentialFromToken converts an oauth2 token, preferring Strava's absolute
// expires_at over the computed expiry.
func credentialFromToken(token *oauth2.Token) store.Credential {
	cred := store.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		AthleteID:    ExtractAthleteID(token),
	}

	switch v := token.Extra("expires_at").(type) {
	case float64:
		cred.ExpiresAt = int64(v)
	case int64:
		cred.ExpiresAt = v
	}
	if cred.ExpiresAt == 0 && !token.Expiry.IsZero() {
		cred.ExpiresAt = token.Expiry.Unix()
	}
	return cred
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

