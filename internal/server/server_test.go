package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/config"
	"strava-wrapped/internal/format"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/store"
	"strava-wrapped/internal/strava"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	exchanges int32
	refreshes int32
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (store.Credential, error) {
	atomic.AddInt32(&f.exchanges, 1)
	if code != "good-code" {
		return store.Credential{}, &auth.AuthError{Op: auth.OpExchange, StatusCode: http.StatusBadRequest, Body: "bad code"}
	}
	return store.Credential{AccessToken: "fresh", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Hour).Unix(), AthleteID: 42}, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (store.Credential, error) {
	atomic.AddInt32(&f.refreshes, 1)
	return store.Credential{AccessToken: "refreshed", RefreshToken: refreshToken, ExpiresAt: time.Now().Add(time.Hour).Unix(), AthleteID: 42}, nil
}

type fakeReports struct {
	mu          sync.Mutex
	report      *service.Report
	err         error
	calls       []service.LoadOptions
	invalidated int
}

func (f *fakeReports) Load(_ context.Context, opts service.LoadOptions) (*service.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeReports) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeReports) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}

type fixture struct {
	server   *httptest.Server
	strava   *httptest.Server
	store    *store.MemoryTokenStore
	provider *fakeProvider
	reports  *fakeReports
	upstream int32
}

func newFixture(t *testing.T, signedIn bool) *fixture {
	t.Helper()
	f := &fixture{
		store:    store.NewMemoryTokenStore(),
		provider: &fakeProvider{},
		reports:  &fakeReports{},
	}

	f.strava = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.upstream, 1)
		w.Header().Set("X-RateLimit-Limit", "100,1000")
		w.Header().Set("X-RateLimit-Usage", "7,70")
		w.Header().Set("Content-Type", "application/json")
		if got := r.Header.Get("Authorization"); got != "Bearer stored" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Authorization Error"}`)
			return
		}
		if r.URL.Path == "/activities/404" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Record Not Found"}`)
			return
		}
		fmt.Fprintf(w, `{"path":%q,"page":%q}`, r.URL.Path, r.URL.Query().Get("page"))
	}))
	t.Cleanup(f.strava.Close)

	if signedIn {
		cred := store.Credential{AccessToken: "stored", RefreshToken: "r0", ExpiresAt: time.Now().Add(time.Hour).Unix(), AthleteID: 42}
		if err := f.store.Save(context.Background(), cred); err != nil {
			t.Fatal(err)
		}
	}

	gate := auth.NewGate(f.store, f.provider)
	oauth := auth.NewOAuthClient(auth.Config{
		ClientID:     "12345",
		ClientSecret: "shh",
		RedirectURL:  "http://localhost:8089/auth/callback",
	})
	client := strava.NewClient(gate, strava.WithBaseURL(f.strava.URL))
	units := format.NewUnits(config.DisplayConfig{DistanceUnit: "km", PaceUnit: "min/km"})

	srv := New(gate, oauth, f.reports, client, Options{Units: units})
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, rawURL string) *http.Response {
	t.Helper()
	resp, err := noRedirect().Get(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestRelayWithoutSession(t *testing.T) {
	f := newFixture(t, false)

	resp := get(t, f.server.URL+"/api/strava/athlete")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&f.upstream); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestRelayPassesThrough(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"ok with query", "/api/strava/athlete/activities?page=2", http.StatusOK, `"path":"/athlete/activities","page":"2"`},
		{"upstream error", "/api/strava/activities/404", http.StatusNotFound, "Record Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, f.server.URL+tt.path)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", body, tt.wantBody)
			}
			if got := resp.Header.Get("X-RateLimit-Usage"); got != "7,70" {
				t.Errorf("X-RateLimit-Usage = %q", got)
			}
		})
	}
}

func TestRelayRejectsTraversal(t *testing.T) {
	f := newFixture(t, true)

	for _, path := range []string{
		"/api/strava/../oauth/deauthorize",
		"/api/strava/%2e%2e/oauth/deauthorize",
		"/api/strava/athlete/%2E%2E/%2e%2e/oauth/deauthorize",
		"/api/strava/%252e%252e/oauth/deauthorize",
		"/api/strava/athlete%3Fpage=1",
	} {
		t.Run(path, func(t *testing.T) {
			resp := get(t, f.server.URL+path)
			if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 400 or 404", resp.StatusCode)
			}
		})
	}
	if n := atomic.LoadInt32(&f.upstream); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestRelayPath(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"athlete/activities", "/athlete/activities", true},
		{"/athlete", "/athlete", true},
		{"activities/12%2034", "/activities/12 34", true},
		{"%2e%2e/oauth/deauthorize", "", false},
		{"a/%2E%2E", "", false},
		{"%252e%252e", "", false},
		{"athlete%3Fx=1", "", false},
		{"athlete%23frag", "", false},
		{"bad%zz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := relayPath(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("relayPath(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	for _, signedIn := range []bool{false, true} {
		t.Run(fmt.Sprintf("signed in %v", signedIn), func(t *testing.T) {
			f := newFixture(t, signedIn)

			var status statusResponse
			decode(t, get(t, f.server.URL+"/auth/status"), &status)

			if status.Authenticated != signedIn {
				t.Errorf("authenticated = %v, want %v", status.Authenticated, signedIn)
			}
			if signedIn && (status.AthleteID != 42 || status.ExpiresAt == nil) {
				t.Errorf("unexpected status %+v", status)
			}
			if !signedIn && status.ExpiresAt != nil {
				t.Errorf("expiry leaked for signed out session: %+v", status)
			}
		})
	}
}

func TestStats(t *testing.T) {
	activities := []strava.Activity{
		{ID: 1, Type: "Run", Distance: 5000, MovingTime: 1500, StartDateLocal: strava.NewTimestamp(testNow)},
	}

	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantYear   int
		wantForce  bool
	}{
		{name: "all time", wantStatus: http.StatusOK},
		{name: "one year refreshed", query: "?year=2024&refresh=true", wantStatus: http.StatusOK, wantYear: 2024, wantForce: true},
		{name: "bad year", query: "?year=24x", wantStatus: http.StatusBadRequest},
		{name: "signed out", err: fmt.Errorf("loading: %w", auth.ErrUnauthenticated), wantStatus: http.StatusUnauthorized},
		{name: "rate limited", err: &strava.APIError{StatusCode: 429, Kind: strava.KindRateLimited}, wantStatus: http.StatusTooManyRequests},
		{name: "timeout", err: &strava.APIError{Kind: strava.KindTimeout, Err: context.DeadlineExceeded}, wantStatus: http.StatusGatewayTimeout},
		{name: "unexpected", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.reports.report = service.BuildReport(strava.Athlete{Firstname: "Sam"}, activities, tt.wantYear, testNow)
			f.reports.err = tt.err

			resp := get(t, f.server.URL+"/api/stats"+tt.query)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var report struct {
				Stats struct {
					ActivityCount   int     `json:"activity_count"`
					TotalDistanceKm float64 `json:"total_distance_km"`
				} `json:"stats"`
			}
			decode(t, resp, &report)
			if report.Stats.ActivityCount != 1 || report.Stats.TotalDistanceKm != 5 {
				t.Errorf("unexpected stats %+v", report.Stats)
			}

			f.reports.mu.Lock()
			call := f.reports.calls[0]
			f.reports.mu.Unlock()
			if call.Year != tt.wantYear || call.Force != tt.wantForce {
				t.Errorf("load options = %+v", call)
			}
		})
	}
}

func TestRoast(t *testing.T) {
	f := newFixture(t, true)
	f.reports.report = service.BuildReport(strava.Athlete{Firstname: "Sam"}, nil, 0, testNow)

	var r struct {
		Title string   `json:"title"`
		Lines []string `json:"lines"`
	}
	decode(t, get(t, f.server.URL+"/api/roast"), &r)

	if r.Title != "The Roast of Sam" || len(r.Lines) == 0 {
		t.Errorf("unexpected roast %+v", r)
	}
}

func TestLoginCallbackLogout(t *testing.T) {
	f := newFixture(t, false)

	resp := get(t, f.server.URL+"/auth/login")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login status = %d, want 302", resp.StatusCode)
	}
	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := location.Query().Get("state")
	if state == "" || location.Query().Get("client_id") != "12345" {
		t.Fatalf("unexpected authorize URL %s", location)
	}

	resp = get(t, f.server.URL+"/auth/callback?state=forged&code=good-code")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("forged state status = %d, want 400", resp.StatusCode)
	}

	resp = get(t, f.server.URL+"/auth/callback?state="+state+"&code=good-code")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d, want 200", resp.StatusCode)
	}
	cred, ok := f.store.Load(context.Background())
	if !ok || cred.AccessToken != "fresh" {
		t.Fatalf("credential not stored: %+v", cred)
	}
	if n := f.reports.invalidations(); n != 1 {
		t.Errorf("invalidated = %d, want 1", n)
	}

	logout, err := http.Post(f.server.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	logout.Body.Close()
	if logout.StatusCode != http.StatusNoContent {
		t.Errorf("logout status = %d, want 204", logout.StatusCode)
	}
	if _, ok := f.store.Load(context.Background()); ok {
		t.Error("credential still stored after logout")
	}
	if n := f.reports.invalidations(); n != 2 {
		t.Errorf("invalidated = %d, want 2", n)
	}
}

func TestCallbackExchangeRejected(t *testing.T) {
	f := newFixture(t, false)

	resp := get(t, f.server.URL+"/auth/login")
	location, _ := url.Parse(resp.Header.Get("Location"))
	state := location.Query().Get("state")

	resp = get(t, f.server.URL+"/auth/callback?state="+state+"&code=stale-code")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if _, ok := f.store.Load(context.Background()); ok {
		t.Error("credential stored for a rejected exchange")
	}
}

func TestKeepAlive(t *testing.T) {
	if c, err := NewKeepAlive(nil, ""); c != nil || err != nil {
		t.Errorf("empty schedule: got %v, %v", c, err)
	}
	if _, err := NewKeepAlive(nil, "every now and then"); err == nil {
		t.Error("expected an error for an invalid schedule")
	}

	s := store.NewMemoryTokenStore()
	expiring := store.Credential{AccessToken: "old", RefreshToken: "r0", ExpiresAt: time.Now().Add(10 * time.Second).Unix()}
	if err := s.Save(context.Background(), expiring); err != nil {
		t.Fatal(err)
	}
	provider := &fakeProvider{}
	gate := auth.NewGate(s, provider)

	c, err := NewKeepAlive(gate, "@every 1m")
	if err != nil || c == nil {
		t.Fatalf("NewKeepAlive: %v, %v", c, err)
	}
	if n := len(c.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}

	keepAlive(gate)
	if n := atomic.LoadInt32(&provider.refreshes); n != 1 {
		t.Errorf("refreshes = %d, want 1", n)
	}
	if cred, _ := s.Load(context.Background()); cred.AccessToken != "refreshed" {
		t.Errorf("access token = %q, want refreshed", cred.AccessToken)
	}
}
