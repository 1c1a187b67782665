package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"strava-wrapped/internal/analysis"
	"strava-wrapped/internal/logging"
	"strava-wrapped/internal/stats"
	"strava-wrapped/internal/strava"
)

// ActivitySource is the subset of *strava.Client the service reads from
type ActivitySource interface {
	GetProfile(ctx context.Context) (*strava.Athlete, error)
	GetAllActivities(ctx context.Context, onProgress func(fetched int)) ([]strava.Activity, error)
}

// Report is one fetched and aggregated view of the athlete's history
type Report struct {
	Athlete     strava.Athlete            `json:"athlete"`
	Year        int                       `json:"year,omitempty"` // 0 means all time
	Stats       stats.AggregateStats      `json:"stats"`
	Recent      []strava.Activity         `json:"recent"`
	Source      *analysis.SourceRun       `json:"prediction_source,omitempty"`
	Predictions []analysis.RacePrediction `json:"predictions,omitempty"`
	FetchedAt   time.Time                 `json:"fetched_at"`
	Activities  []strava.Activity         `json:"-"`
}

// BuildReport aggregates activities, optionally restricted to one year.
// Activities are expected newest first, as Strava returns them.
func BuildReport(athlete strava.Athlete, activities []strava.Activity, year int, now time.Time) *Report {
	if year > 0 {
		activities = stats.InYear(activities, year)
	}

	recent := activities
	if len(recent) > RecentActivitiesLimit {
		recent = recent[:RecentActivitiesLimit]
	}

	source := analysis.SelectSourceRun(activities, now)
	return &Report{
		Athlete:     athlete,
		Year:        year,
		Stats:       stats.Summarize(activities),
		Recent:      recent,
		Source:      source,
		Predictions: analysis.GeneratePredictions(source, now),
		FetchedAt:   now,
		Activities:  activities,
	}
}

// LoadOptions controls a report load
type LoadOptions struct {
	Year       int
	Force      bool
	OnProgress func(fetched int)
}

// ReportService fetches activity history and keeps the last fetch in memory
type ReportService struct {
	source ActivitySource
	maxAge time.Duration
	now    func() time.Time

	group singleflight.Group

	mu         sync.Mutex
	athlete    strava.Athlete
	activities []strava.Activity
	fetchedAt  time.Time
}

// NewReportService creates a report service. maxAge <= 0 uses DefaultMaxAge.
func NewReportService(source ActivitySource, maxAge time.Duration) *ReportService {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &ReportService{
		source: source,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Load returns a report, fetching from Strava when the cached history is
// missing, stale or Force is set. Concurrent loads share one fetch.
func (s *ReportService) Load(ctx context.Context, opts LoadOptions) (*Report, error) {
	if !opts.Force {
		if r, ok := s.cached(opts.Year); ok {
			return r, nil
		}
	}

	ch := s.group.DoChan("history", func() (any, error) {
		return nil, s.fetch(context.WithoutCancel(ctx), opts.OnProgress)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildReport(s.athlete, s.activities, opts.Year, s.now()), nil
}

// Cached returns the in-memory report without fetching
func (s *ReportService) Cached(year int) (*Report, bool) {
	return s.cached(year)
}

// Invalidate drops the in-memory history, e.g. after logout
func (s *ReportService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.athlete = strava.Athlete{}
	s.activities = nil
	s.fetchedAt = time.Time{}
}

func (s *ReportService) cached(year int) (*Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) > s.maxAge {
		return nil, false
	}
	return BuildReport(s.athlete, s.activities, year, s.now()), true
}

func (s *ReportService) fetch(ctx context.Context, onProgress func(int)) error {
	athlete, err := s.source.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	activities, err := s.source.GetAllActivities(ctx, onProgress)
	if err != nil {
		return fmt.Errorf("loading activities: %w", err)
	}

	s.mu.Lock()
	s.athlete = *athlete
	s.activities = activities
	s.fetchedAt = s.now()
	s.mu.Unlock()

	logging.Info("Report", "loaded %d activities for athlete %d", len(activities), athlete.ID)
	return nil
}
