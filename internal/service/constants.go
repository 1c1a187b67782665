package service

import "time"

const (
	// DefaultMaxAge is how long a fetched report is served from memory
	DefaultMaxAge = 5 * time.Minute

	// RecentActivitiesLimit caps the recent list on the dashboard
	RecentActivitiesLimit = 10

	// ChartMonths is how many monthly buckets charts show
	ChartMonths = 12
)
