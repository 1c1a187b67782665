package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"strava-wrapped/internal/auth"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) ValidAccessToken(context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	c := NewClient(staticTokens{token: "good-token"}, opts...)
	c.rateLimiter.minInterval = 0
	return c, &calls
}

func TestGetProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete" {
			t.Errorf("path = %s, want /athlete", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer good-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id": 42, "firstname": "Ada", "lastname": "Lovelace", "city": "London"}`))
	})

	athlete, err := c.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if athlete.ID != 42 || athlete.DisplayName() != "Ada Lovelace" {
		t.Errorf("athlete = %+v", athlete)
	}
}

func TestGetStats(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athletes/42/stats" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"all_run_totals": {"count": 12, "distance": 120000.5}, "biggest_ride_distance": null}`))
	})

	stats, err := c.GetStats(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.AllRunTotals.Count != 12 || stats.AllRunTotals.Distance != 120000.5 {
		t.Errorf("AllRunTotals = %+v", stats.AllRunTotals)
	}
	if stats.BiggestRideDistance != 0 {
		t.Errorf("BiggestRideDistance = %v, want 0", stats.BiggestRideDistance)
	}

	if _, err := c.GetStats(context.Background(), 0); err == nil {
		t.Error("expected error for zero athlete id")
	}
}

func TestGetActivitiesPagination(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    string
		wantPerPage string
	}{
		{"explicit", 2, 50, "2", "50"},
		{"defaults", 0, 0, "1", strconv.Itoa(DefaultPerPage)},
		{"clamped", 1, 1000, "1", strconv.Itoa(MaxPerPage)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("page") != tt.wantPage || q.Get("per_page") != tt.wantPerPage {
					t.Errorf("query = %s", r.URL.RawQuery)
				}
				w.Write([]byte(`[]`))
			})

			activities, err := c.GetActivities(context.Background(), tt.page, tt.perPage)
			if err != nil {
				t.Fatalf("GetActivities() error = %v", err)
			}
			if activities == nil || len(activities) != 0 {
				t.Errorf("activities = %v, want empty non-nil slice", activities)
			}
		})
	}
}

func TestGetActivitiesTolerantDecoding(t *testing.T) {
	body := `[
		{"id": 1, "type": "Run", "distance": 5000, "moving_time": 1500,
		 "total_elevation_gain": 12.5, "start_date": "2024-01-15T07:30:00Z",
		 "start_date_local": "2024-01-15T08:30:00Z"},
		{"id": 2, "type": "Ride", "distance": null, "moving_time": "oops",
		 "total_elevation_gain": -3, "start_date": "not a date"},
		{"id": 3, "distance": "2500.5"}
	]`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	activities, err := c.GetActivities(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("GetActivities() error = %v", err)
	}
	if len(activities) != 3 {
		t.Fatalf("len = %d, want 3", len(activities))
	}

	run := activities[0]
	if run.Distance != 5000 || run.MovingTime != 1500 || run.TotalElevationGain != 12.5 {
		t.Errorf("run = %+v", run)
	}
	if got := run.LocalStart().Format("2006-01-02 15:04"); got != "2024-01-15 08:30" {
		t.Errorf("LocalStart = %s", got)
	}

	ride := activities[1]
	if ride.Distance != 0 || ride.MovingTime != 0 || ride.TotalElevationGain != 0 {
		t.Errorf("malformed fields should decode as zero: %+v", ride)
	}
	if !ride.LocalStart().IsZero() {
		t.Errorf("LocalStart = %v, want zero", ride.LocalStart())
	}

	if activities[2].Distance != 2500.5 || activities[2].Type != "" {
		t.Errorf("third = %+v", activities[2])
	}
}

func TestGetAllActivities(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		n := MaxPerPage
		if page == 2 {
			n = 3
		}
		activities := make([]map[string]any, n)
		for i := range activities {
			activities[i] = map[string]any{"id": page*1000 + i, "type": "Run"}
		}
		json.NewEncoder(w).Encode(activities)
	})

	var progress []int
	activities, err := c.GetAllActivities(context.Background(), func(n int) { progress = append(progress, n) })
	if err != nil {
		t.Fatalf("GetAllActivities() error = %v", err)
	}
	if len(activities) != MaxPerPage+3 {
		t.Errorf("len = %d, want %d", len(activities), MaxPerPage+3)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if len(progress) != 2 || progress[1] != MaxPerPage+3 {
		t.Errorf("progress = %v", progress)
	}
}

func TestGetActivityByID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/99" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": 99, "type": "Run", "description": "tempo", "splits_metric": [{"split": 1, "distance": 1000}]}`))
	})

	activity, err := c.GetActivityByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetActivityByID() error = %v", err)
	}
	if activity.ID != 99 || activity.Description != "tempo" || len(activity.SplitsMetric) != 1 {
		t.Errorf("activity = %+v", activity)
	}
}

func TestAPIErrorKinds(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{http.StatusUnauthorized, `{"message": "Authorization Error"}`, KindUnauthorized, "Authorization Error"},
		{http.StatusForbidden, `{}`, KindForbidden, "Forbidden"},
		{http.StatusNotFound, `{"message": "Record Not Found"}`, KindNotFound, "Record Not Found"},
		{http.StatusTooManyRequests, `{"message": "Rate Limit Exceeded"}`, KindRateLimited, "Rate Limit Exceeded"},
		{http.StatusServiceUnavailable, `<html>down</html>`, KindProviderDown, "Service Unavailable"},
		{http.StatusBadRequest, `{"message": "Bad Request"}`, KindOther, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.GetProfile(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Kind != tt.kind || apiErr.Message != tt.message {
				t.Errorf("apiErr = %+v", apiErr)
			}
			if apiErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.body)
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("IsKind(%s) = false", tt.kind)
			}
			if apiErr.UserMessage() == "" {
				t.Error("empty user message")
			}
			if got := atomic.LoadInt32(calls); got != 1 {
				t.Errorf("requests = %d, want exactly 1 (no retry)", got)
			}
		})
	}
}

func TestUnauthenticatedMakesNoRequest(t *testing.T) {
	tests := []struct {
		name   string
		tokens AccessTokenSource
	}{
		{"not signed in", staticTokens{err: auth.ErrUnauthenticated}},
		{"token source failure", staticTokens{err: errors.New("store unavailable")}},
		{"no token source", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			}))
			defer srv.Close()

			c := NewClient(tt.tokens, WithBaseURL(srv.URL))
			_, err := c.GetActivities(context.Background(), 1, 10)
			if !errors.Is(err, auth.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", err)
			}
			if calls != 0 {
				t.Errorf("requests = %d, want 0", calls)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.GetProfile(context.Background())
	if !IsKind(err, KindTimeout) {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestCallerCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.GetProfile(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDoPassesThroughStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Usage", "10,200")
		w.Header().Set("X-RateLimit-Limit", "100,1000")
		w.WriteHeader(http.StatusNotFound)
	})

	resp, err := c.Do(context.Background(), http.MethodGet, "/segments/1", nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	short, daily := c.RateLimitStatus()
	if short != 90 || daily != 800 {
		t.Errorf("RateLimitStatus() = %d, %d, want 90, 800", short, daily)
	}
}
