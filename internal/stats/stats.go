// Package stats reduces activity lists into summary numbers.
// Every function is pure: nil and empty input yield the neutral value and
// aggregation never fails.
package stats

import (
	"math"
	"sort"

	"strava-wrapped/internal/strava"
)

// UnknownType buckets activities without a type in the histogram
const UnknownType = "Unknown"

// AggregateStats is everything the presentation layer renders
type AggregateStats struct {
	ActivityCount       int              `json:"activity_count"`
	TotalDistanceKm     float64          `json:"total_distance_km"`
	TotalTimeHours      float64          `json:"total_time_hours"`
	TotalElevationM     float64          `json:"total_elevation_m"`
	AveragePaceMinPerKm *float64         `json:"average_pace_min_per_km"`
	PersonalRecords     PersonalRecords  `json:"personal_records"`
	Monthly             []MonthBucket    `json:"monthly"`
	TypeHistogram       map[string]int   `json:"type_histogram"`
	LongestStreakDays   int              `json:"longest_streak_days"`
	ActiveDays          int              `json:"active_days"`
	Weekdays            WeekdayHistogram `json:"weekdays"`
}

// PersonalRecords holds the extremal activities. A nil slot means no
// activity qualified.
type PersonalRecords struct {
	LongestRun     *strava.Activity `json:"longest_run"`
	FastestPaceRun *strava.Activity `json:"fastest_pace_run"`
	MostElevation  *strava.Activity `json:"most_elevation"`
}

// Summarize computes all aggregates in one call
func Summarize(activities []strava.Activity) AggregateStats {
	return AggregateStats{
		ActivityCount:       len(activities),
		TotalDistanceKm:     TotalDistanceKm(activities),
		TotalTimeHours:      TotalTimeHours(activities),
		TotalElevationM:     TotalElevationM(activities),
		AveragePaceMinPerKm: AveragePaceMinPerKm(activities),
		PersonalRecords:     PersonalRecordsOf(activities),
		Monthly:             MonthlyBreakdown(activities),
		TypeHistogram:       ActivityTypeHistogram(activities),
		LongestStreakDays:   LongestStreak(activities),
		ActiveDays:          ActiveDays(activities),
		Weekdays:            WeekdayCounts(activities),
	}
}

// TotalDistanceKm sums distance across all activities
func TotalDistanceKm(activities []strava.Activity) float64 {
	var meters float64
	for _, a := range activities {
		meters += a.Distance.Float64()
	}
	return round2(meters / 1000)
}

// TotalTimeHours sums moving time across all activities
func TotalTimeHours(activities []strava.Activity) float64 {
	var seconds float64
	for _, a := range activities {
		seconds += a.MovingTime.Float64()
	}
	return round2(seconds / 3600)
}

// TotalElevationM sums elevation gain across all activities
func TotalElevationM(activities []strava.Activity) float64 {
	var meters float64
	for _, a := range activities {
		meters += a.TotalElevationGain.Float64()
	}
	return round2(meters)
}

// AveragePaceMinPerKm returns total run minutes over total run kilometers.
// Only runs with a positive distance count. It returns nil when nothing
// qualifies, since 0 would read as an infinitely fast pace.
func AveragePaceMinPerKm(activities []strava.Activity) *float64 {
	var meters, seconds float64
	for _, a := range activities {
		if !a.IsRun() || a.Distance <= 0 {
			continue
		}
		meters += a.Distance.Float64()
		seconds += a.MovingTime.Float64()
	}
	if meters <= 0 {
		return nil
	}

	pace := round2((seconds / 60) / (meters / 1000))
	return &pace
}

// PersonalRecordsOf finds the longest run, the fastest-pace run and the
// activity of any type with the most climbing. Ties go to the earliest
// activity in input order, so a flat list still yields its first activity
// as the most elevation record.
func PersonalRecordsOf(activities []strava.Activity) PersonalRecords {
	var prs PersonalRecords
	var bestPace float64

	for i := range activities {
		a := activities[i]

		if a.IsRun() {
			if prs.LongestRun == nil || a.Distance > prs.LongestRun.Distance {
				prs.LongestRun = &a
			}
			// pace is unbounded without distance or time
			if a.Distance > 0 && a.MovingTime > 0 {
				pace := a.PaceMinPerKm()
				if prs.FastestPaceRun == nil || pace < bestPace {
					prs.FastestPaceRun = &a
					bestPace = pace
				}
			}
		}

		if prs.MostElevation == nil || a.TotalElevationGain > prs.MostElevation.TotalElevationGain {
			prs.MostElevation = &a
		}
	}

	return prs
}

// ActivityTypeHistogram counts activities by type
func ActivityTypeHistogram(activities []strava.Activity) map[string]int {
	histogram := make(map[string]int)
	for _, a := range activities {
		t := a.Type
		if t == "" {
			t = UnknownType
		}
		histogram[t]++
	}
	return histogram
}

// SortedTypes returns histogram keys by descending count, then name
func SortedTypes(histogram map[string]int) []string {
	types := make([]string, 0, len(histogram))
	for t := range histogram {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if histogram[types[i]] != histogram[types[j]] {
			return histogram[types[i]] > histogram[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}

// InYear keeps the activities whose local start falls in year
func InYear(activities []strava.Activity, year int) []strava.Activity {
	filtered := []strava.Activity{}
	for _, a := range activities {
		start := a.LocalStart()
		if !start.IsZero() && start.Year() == year {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
