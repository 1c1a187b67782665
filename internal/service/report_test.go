package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strava-wrapped/internal/strava"
)

type fakeSource struct {
	calls      int32
	activities []strava.Activity
	err        error
	gate       chan struct{}
}

func (f *fakeSource) GetProfile(ctx context.Context) (*strava.Athlete, error) {
	return &strava.Athlete{ID: 7, Firstname: "Sam"}, nil
}

func (f *fakeSource) GetAllActivities(ctx context.Context, onProgress func(int)) ([]strava.Activity, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if onProgress != nil {
		onProgress(len(f.activities))
	}
	return f.activities, f.err
}

func activityOn(id int64, typ string, meters float64, day time.Time) strava.Activity {
	return strava.Activity{
		ID:             id,
		Type:           typ,
		Distance:       strava.Quantity(meters),
		MovingTime:     strava.Quantity(meters * 0.3),
		StartDateLocal: strava.NewTimestamp(day),
	}
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func history() []strava.Activity {
	return []strava.Activity{
		activityOn(3, "Run", 5000, testNow.AddDate(0, 0, -3)),
		activityOn(2, "Ride", 30000, testNow.AddDate(0, -2, 0)),
		activityOn(1, "Run", 10000, time.Date(2023, 11, 5, 8, 0, 0, 0, time.UTC)),
	}
}

func newTestService(src ActivitySource) *ReportService {
	s := NewReportService(src, time.Minute)
	s.now = func() time.Time { return testNow }
	return s
}

func TestLoadCachesHistory(t *testing.T) {
	src := &fakeSource{activities: history()}
	s := newTestService(src)

	var progress int
	r, err := s.Load(context.Background(), LoadOptions{OnProgress: func(n int) { progress = n }})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Athlete.ID != 7 || r.Stats.ActivityCount != 3 || progress != 3 {
		t.Errorf("report = %+v, progress = %d", r, progress)
	}

	if _, err := s.Load(context.Background(), LoadOptions{Year: 2024}); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&src.calls); got != 1 {
		t.Errorf("fetches = %d, want 1 while cache is fresh", got)
	}

	if _, err := s.Load(context.Background(), LoadOptions{Force: true}); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&src.calls); got != 2 {
		t.Errorf("fetches = %d, want 2 after forced load", got)
	}
}

func TestLoadRefetchesWhenStale(t *testing.T) {
	src := &fakeSource{activities: history()}
	s := newTestService(src)
	if _, err := s.Load(context.Background(), LoadOptions{}); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return testNow.Add(2 * time.Minute) }
	if _, ok := s.Cached(0); ok {
		t.Error("Cached() should miss once maxAge has passed")
	}
	if _, err := s.Load(context.Background(), LoadOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&src.calls); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}
}

func TestLoadYearFilter(t *testing.T) {
	s := newTestService(&fakeSource{activities: history()})

	r, err := s.Load(context.Background(), LoadOptions{Year: 2024})
	if err != nil {
		t.Fatal(err)
	}
	if r.Year != 2024 || r.Stats.ActivityCount != 2 || r.Stats.TotalDistanceKm != 35 {
		t.Errorf("2024 report = %+v", r.Stats)
	}
	if r.Source == nil || r.Source.ActivityID != 3 {
		t.Errorf("prediction source = %+v, want the recent 5K", r.Source)
	}
	if len(r.Predictions) != 3 {
		t.Errorf("predictions = %d, want 3", len(r.Predictions))
	}
}

func TestLoadSharesConcurrentFetches(t *testing.T) {
	src := &fakeSource{activities: history(), gate: make(chan struct{})}
	s := newTestService(src)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Load(context.Background(), LoadOptions{})
			errs <- err
		}()
	}

	// Wait for the first fetch to start before releasing it
	for atomic.LoadInt32(&src.calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Load() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&src.calls); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestLoadErrorsAndInvalidate(t *testing.T) {
	boom := errors.New("strava down")
	s := newTestService(&fakeSource{err: boom})

	if _, err := s.Load(context.Background(), LoadOptions{}); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want %v", err, boom)
	}
	if _, ok := s.Cached(0); ok {
		t.Error("failed load should not populate the cache")
	}

	s = newTestService(&fakeSource{activities: history()})
	if _, err := s.Load(context.Background(), LoadOptions{}); err != nil {
		t.Fatal(err)
	}
	s.Invalidate()
	if _, ok := s.Cached(0); ok {
		t.Error("Cached() should miss after Invalidate")
	}
}

func TestBuildReportRecentLimit(t *testing.T) {
	var activities []strava.Activity
	for i := 0; i < RecentActivitiesLimit+5; i++ {
		activities = append(activities, activityOn(int64(i), "Run", 1000, testNow))
	}

	r := BuildReport(strava.Athlete{}, activities, 0, testNow)
	if len(r.Recent) != RecentActivitiesLimit {
		t.Errorf("recent = %d, want %d", len(r.Recent), RecentActivitiesLimit)
	}
	if r.Stats.ActivityCount != RecentActivitiesLimit+5 {
		t.Errorf("ActivityCount = %d", r.Stats.ActivityCount)
	}
}
