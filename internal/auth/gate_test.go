package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strava-wrapped/internal/store"
)

var testNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return testNow }

// fakeProvider counts token endpoint calls and delegates to the configured funcs
type fakeProvider struct {
	refreshCalls  int32
	exchangeCalls int32
	refresh       func(ctx context.Context, refreshToken string) (store.Credential, error)
	exchange      func(ctx context.Context, code string) (store.Credential, error)
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (store.Credential, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.refresh == nil {
		return store.Credential{}, errors.New("unexpected refresh")
	}
	return f.refresh(ctx, refreshToken)
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (store.Credential, error) {
	atomic.AddInt32(&f.exchangeCalls, 1)
	if f.exchange == nil {
		return store.Credential{}, errors.New("unexpected exchange")
	}
	return f.exchange(ctx, code)
}

func (f *fakeProvider) refreshes() int32 { return atomic.LoadInt32(&f.refreshCalls) }

func freshCredential(refreshToken string) store.Credential {
	return store.Credential{
		AccessToken:  "fresh-access",
		RefreshToken: refreshToken,
		ExpiresAt:    testNow.Add(6 * time.Hour).Unix(),
	}
}

func seededStore(t *testing.T, cred store.Credential) *store.MemoryTokenStore {
	t.Helper()
	s := store.NewMemoryTokenStore()
	if err := s.Save(context.Background(), cred); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIsAuthenticatedWithoutCredential(t *testing.T) {
	provider := &fakeProvider{}
	gate := NewGate(store.NewMemoryTokenStore(), provider, WithClock(fixedClock))

	if gate.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() = true with empty store")
	}
	if _, err := gate.ValidAccessToken(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ValidAccessToken() error = %v, want ErrUnauthenticated", err)
	}
	if provider.refreshes() != 0 {
		t.Errorf("refresh calls = %d, want 0", provider.refreshes())
	}
}

func TestIsAuthenticatedIncompleteCredential(t *testing.T) {
	tests := []struct {
		name string
		cred store.Credential
	}{
		{"missing access token", store.Credential{RefreshToken: "r", ExpiresAt: testNow.Unix() + 3600}},
		{"missing expiry", store.Credential{AccessToken: "a", RefreshToken: "r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{}
			gate := NewGate(seededStore(t, tt.cred), provider, WithClock(fixedClock))

			if gate.IsAuthenticated(context.Background()) {
				t.Error("IsAuthenticated() = true for incomplete credential")
			}
			if provider.refreshes() != 0 {
				t.Errorf("refresh calls = %d, want 0", provider.refreshes())
			}
		})
	}
}

func TestExpiryBoundary(t *testing.T) {
	tests := []struct {
		name        string
		offset      int64
		wantRefresh bool
	}{
		{"expires in 29s", 29, true},
		{"expires in 30s", 30, true},
		{"expires in 31s", 31, false},
		{"expired", -60, true},
		{"expires in an hour", 3600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{
				refresh: func(ctx context.Context, rt string) (store.Credential, error) {
					return freshCredential(rt), nil
				},
			}
			s := seededStore(t, store.Credential{
				AccessToken:  "stale-access",
				RefreshToken: "r",
				ExpiresAt:    testNow.Unix() + tt.offset,
			})
			gate := NewGate(s, provider, WithClock(fixedClock))

			if !gate.IsAuthenticated(context.Background()) {
				t.Fatal("IsAuthenticated() = false")
			}

			wantCalls := int32(0)
			if tt.wantRefresh {
				wantCalls = 1
			}
			if provider.refreshes() != wantCalls {
				t.Errorf("refresh calls = %d, want %d", provider.refreshes(), wantCalls)
			}

			token, err := gate.ValidAccessToken(context.Background())
			if err != nil {
				t.Fatalf("ValidAccessToken() error: %v", err)
			}
			wantToken := "stale-access"
			if tt.wantRefresh {
				wantToken = "fresh-access"
			}
			if token != wantToken {
				t.Errorf("token = %q, want %q", token, wantToken)
			}
			// Refreshed credential was persisted, so no further calls
			if provider.refreshes() != wantCalls {
				t.Errorf("refresh calls after second check = %d, want %d", provider.refreshes(), wantCalls)
			}
		})
	}
}

func TestRefreshPersistsAndPreservesFields(t *testing.T) {
	provider := &fakeProvider{
		refresh: func(ctx context.Context, rt string) (store.Credential, error) {
			return store.Credential{AccessToken: "new", ExpiresAt: testNow.Unix() + 3600}, nil
		},
	}
	s := seededStore(t, store.Credential{AccessToken: "old", RefreshToken: "keep-me", ExpiresAt: testNow.Unix(), AthleteID: 42})
	gate := NewGate(s, provider, WithClock(fixedClock))

	if _, err := gate.ValidAccessToken(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Load(context.Background())
	if !ok {
		t.Fatal("credential missing after refresh")
	}
	want := store.Credential{AccessToken: "new", RefreshToken: "keep-me", ExpiresAt: testNow.Unix() + 3600, AthleteID: 42}
	if got != want {
		t.Errorf("stored = %+v, want %+v", got, want)
	}
}

func TestRefreshTransientFailureKeepsSession(t *testing.T) {
	provider := &fakeProvider{
		refresh: func(ctx context.Context, rt string) (store.Credential, error) {
			return store.Credential{}, &AuthError{Op: OpRefresh, StatusCode: http.StatusBadGateway, Body: "upstream"}
		},
	}
	stale := store.Credential{AccessToken: "old", RefreshToken: "r", ExpiresAt: testNow.Unix() - 10}
	s := seededStore(t, stale)
	gate := NewGate(s, provider, WithClock(fixedClock))

	_, err := gate.ValidAccessToken(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
	if !errors.Is(err, ErrAuthRefreshFailed) {
		t.Errorf("error = %v, want wrapped ErrAuthRefreshFailed", err)
	}

	if got, ok := s.Load(context.Background()); !ok || got != stale {
		t.Errorf("credential = %+v, %v; want it kept after transient failure", got, ok)
	}
	if provider.refreshes() != 1 {
		t.Errorf("refresh calls = %d, want 1 (no automatic retry)", provider.refreshes())
	}
}

func TestRevokedRefreshClearsSession(t *testing.T) {
	srv, calls := newTokenServer(t, func(w http.ResponseWriter, form url.Values) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Authorization Error"}`)
	})

	s := seededStore(t, store.Credential{AccessToken: "old", RefreshToken: "revoked", ExpiresAt: testNow.Unix() - 3600})
	gate := NewGate(s, testClient(srv.URL), WithClock(fixedClock))

	if gate.IsAuthenticated(context.Background()) {
		t.Fatal("IsAuthenticated() = true after 401 refresh")
	}
	if _, ok := s.Load(context.Background()); ok {
		t.Error("credential should be cleared after revoked refresh")
	}

	// No credential remains, so no further network call
	if gate.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() = true with cleared store")
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("token endpoint calls = %d, want 1", got)
	}
}

func TestRefreshIsSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	provider := &fakeProvider{
		refresh: func(ctx context.Context, rt string) (store.Credential, error) {
			once.Do(func() { close(started) })
			<-release
			return freshCredential(rt), nil
		},
	}
	s := seededStore(t, store.Credential{AccessToken: "expired", RefreshToken: "r", ExpiresAt: testNow.Unix() - 1})
	gate := NewGate(s, provider, WithClock(fixedClock))

	const callers = 2
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = gate.ValidAccessToken(context.Background())
		}(i)
	}

	<-started
	// Give the second caller a chance to join the flight
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if provider.refreshes() != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", provider.refreshes())
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error: %v", i, errs[i])
		}
		if tokens[i] != "fresh-access" {
			t.Errorf("caller %d token = %q, want %q", i, tokens[i], "fresh-access")
		}
	}
}

func TestWaiterCancellationDoesNotAbortRefresh(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	provider := &fakeProvider{
		refresh: func(ctx context.Context, rt string) (store.Credential, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return store.Credential{}, err
			}
			return freshCredential(rt), nil
		},
	}
	s := seededStore(t, store.Credential{AccessToken: "expired", RefreshToken: "r", ExpiresAt: testNow.Unix() - 1})
	gate := NewGate(s, provider, WithClock(fixedClock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gate.ValidAccessToken(ctx)
		done <- err
	}()

	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}

	close(release)

	// The flight finishes on its own and stores the new credential
	deadline := time.Now().Add(2 * time.Second)
	for {
		if cred, ok := s.Load(context.Background()); ok && cred.AccessToken == "fresh-access" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refresh did not complete after waiter cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	token, err := gate.ValidAccessToken(context.Background())
	if err != nil || token != "fresh-access" {
		t.Errorf("ValidAccessToken() = %q, %v", token, err)
	}
	if provider.refreshes() != 1 {
		t.Errorf("refresh calls = %d, want 1", provider.refreshes())
	}
}

func TestMissingRefreshTokenSkipsNetwork(t *testing.T) {
	provider := &fakeProvider{}
	s := seededStore(t, store.Credential{AccessToken: "a", ExpiresAt: testNow.Unix() - 1})
	gate := NewGate(s, provider, WithClock(fixedClock))

	if gate.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() = true without refresh token")
	}
	if provider.refreshes() != 0 {
		t.Errorf("refresh calls = %d, want 0", provider.refreshes())
	}
}

func TestLoginAndLogout(t *testing.T) {
	provider := &fakeProvider{
		exchange: func(ctx context.Context, code string) (store.Credential, error) {
			if code != "good" {
				return store.Credential{}, &AuthError{Op: OpExchange, StatusCode: http.StatusBadRequest}
			}
			cred := freshCredential("r")
			cred.AthleteID = 9
			return cred, nil
		},
	}
	s := store.NewMemoryTokenStore()
	gate := NewGate(s, provider, WithClock(fixedClock))
	ctx := context.Background()

	if _, err := gate.Login(ctx, "bad"); !errors.Is(err, ErrAuthExchangeFailed) {
		t.Errorf("Login(bad) error = %v, want ErrAuthExchangeFailed", err)
	}
	if _, ok := s.Load(ctx); ok {
		t.Error("failed login should not store a credential")
	}

	cred, err := gate.Login(ctx, "good")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if cred.AthleteID != 9 {
		t.Errorf("AthleteID = %d, want 9", cred.AthleteID)
	}
	if !gate.IsAuthenticated(ctx) {
		t.Error("IsAuthenticated() = false after login")
	}

	if err := gate.Logout(ctx); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if gate.IsAuthenticated(ctx) {
		t.Error("IsAuthenticated() = true after logout")
	}
	if err := gate.Logout(ctx); err != nil {
		t.Errorf("second Logout() error: %v", err)
	}
}

func TestGateTokenSource(t *testing.T) {
	s := seededStore(t, freshCredential("r"))
	gate := NewGate(s, &fakeProvider{}, WithClock(fixedClock))

	tok, err := gate.Token()
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if tok.AccessToken != "fresh-access" || tok.TokenType != "Bearer" {
		t.Errorf("Token() = %+v", tok)
	}
	if !tok.Expiry.Equal(testNow.Add(6 * time.Hour)) {
		t.Errorf("Expiry = %v", tok.Expiry)
	}

	empty := NewGate(store.NewMemoryTokenStore(), &fakeProvider{})
	if _, err := empty.Token(); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Token() on empty store error = %v", err)
	}
}
