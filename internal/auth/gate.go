package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"strava-wrapped/internal/logging"
	"strava-wrapped/internal/store"
)

const (
	// ExpiryGrace is how close to expiry a token counts as expiring
	ExpiryGrace = 30 * time.Second

	refreshKey = "refresh"
)

// TokenProvider performs the token endpoint calls the gate depends on.
// *OAuthClient implements it.
type TokenProvider interface {
	ExchangeCode(ctx context.Context, code string) (store.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (store.Credential, error)
}

// Gate hands out valid access tokens, refreshing the stored credential when
// it is near expiry. It is the only writer of the credential besides Login
// and Logout.
type Gate struct {
	store          store.TokenStore
	provider       TokenProvider
	now            func() time.Time
	grace          time.Duration
	refreshTimeout time.Duration

	// at most one refresh request in flight
	refreshGroup singleflight.Group
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// WithRefreshTimeout bounds a single refresh flight.
func WithRefreshTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		g.refreshTimeout = d
	}
}

// NewGate creates a gate over the given store and token provider
func NewGate(s store.TokenStore, provider TokenProvider, opts ...GateOption) *Gate {
	g := &Gate{
		store:          s,
		provider:       provider,
		now:            time.Now,
		grace:          ExpiryGrace,
		refreshTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsAuthenticated reports whether a usable session exists, refreshing the
// credential first when it is about to expire.
func (g *Gate) IsAuthenticated(ctx context.Context) bool {
	_, err := g.validCredential(ctx)
	return err == nil
}

// ValidAccessToken returns a currently valid access token. When none is
// available the error matches ErrUnauthenticated; if a refresh was attempted
// its failure is wrapped as well.
func (g *Gate) ValidAccessToken(ctx context.Context) (string, error) {
	cred, err := g.validCredential(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// Token implements oauth2.TokenSource.
func (g *Gate) Token() (*oauth2.Token, error) {
	cred, err := g.validCredential(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.Expiry(),
	}, nil
}

// Session returns the stored credential without validating or refreshing it.
func (g *Gate) Session(ctx context.Context) (store.Credential, bool) {
	return g.store.Load(ctx)
}

// Login exchanges an authorization code and persists the new credential.
func (g *Gate) Login(ctx context.Context, code string) (store.Credential, error) {
	cred, err := g.provider.ExchangeCode(ctx, code)
	if err != nil {
		return store.Credential{}, err
	}
	if err := g.store.Save(ctx, cred); err != nil {
		return store.Credential{}, fmt.Errorf("saving credential: %w", err)
	}
	logging.Info("Auth", "signed in as athlete %d", cred.AthleteID)
	return cred, nil
}

// Logout removes the stored credential.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.store.Clear(ctx); err != nil {
		return err
	}
	logging.Info("Auth", "signed out")
	return nil
}

func (g *Gate) validCredential(ctx context.Context) (store.Credential, error) {
	cred, ok := g.store.Load(ctx)
	if !ok || !cred.Complete() {
		return store.Credential{}, ErrUnauthenticated
	}
	if !cred.ExpiresWithin(g.now(), g.grace) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		return store.Credential{}, ErrUnauthenticated
	}

	fresh, err := g.refresh(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return store.Credential{}, err
		}
		return store.Credential{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return fresh, nil
}

// refresh joins the in-flight refresh or starts one. The flight is detached
// from the caller's cancellation so one impatient caller cannot fail the
// others; callers stop waiting when their own ctx is done.
func (g *Gate) refresh(ctx context.Context) (store.Credential, error) {
	flightCtx := context.WithoutCancel(ctx)

	ch := g.refreshGroup.DoChan(refreshKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(flightCtx, g.refreshTimeout)
		defer cancel()
		return g.doRefresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return store.Credential{}, res.Err
		}
		return res.Val.(store.Credential), nil
	case <-ctx.Done():
		return store.Credential{}, ctx.Err()
	}
}

func (g *Gate) doRefresh(ctx context.Context) (store.Credential, error) {
	// A flight that finished just before this one may already have stored a
	// fresh credential.
	cred, ok := g.store.Load(ctx)
	if !ok || cred.RefreshToken == "" {
		return store.Credential{}, ErrUnauthenticated
	}
	if cred.Complete() && !cred.ExpiresWithin(g.now(), g.grace) {
		return cred, nil
	}

	fresh, err := g.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if IsRevoked(err) {
			logging.Warn("Auth", "refresh token rejected, clearing session")
			if clearErr := g.store.Clear(ctx); clearErr != nil {
				logging.Error("Auth", clearErr, "clearing revoked credential")
			}
		} else {
			logging.Error("Auth", err, "refreshing token")
		}
		return store.Credential{}, err
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	if fresh.AthleteID == 0 {
		fresh.AthleteID = cred.AthleteID
	}

	if err := g.store.Save(ctx, fresh); err != nil {
		// The new access token is still good for this process
		logging.Error("Auth", err, "persisting refreshed credential")
	}
	logging.Debug("Auth", "refreshed token, expires %s", fresh.Expiry().Format(time.RFC3339))
	return fresh, nil
}
