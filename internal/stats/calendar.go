package stats

import (
	"sort"
	"time"

	"strava-wrapped/internal/strava"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// MonthBucket totals one calendar month
type MonthBucket struct {
	Month     string  `json:"month"` // YYYY-MM
	Km        float64 `json:"km"`
	Hours     float64 `json:"hours"`
	Elevation float64 `json:"elevation"`
	Count     int     `json:"count"`
}

// MonthlyBreakdown buckets activities by the year-month of their local
// start date, oldest first. Activities without a start date are skipped.
func MonthlyBreakdown(activities []strava.Activity) []MonthBucket {
	type totals struct {
		meters, seconds, elevation float64
		count                      int
	}

	byMonth := make(map[string]*totals)
	for _, a := range activities {
		start := a.LocalStart()
		if start.IsZero() {
			continue
		}
		key := start.Format(monthLayout)
		t, ok := byMonth[key]
		if !ok {
			t = &totals{}
			byMonth[key] = t
		}
		t.meters += a.Distance.Float64()
		t.seconds += a.MovingTime.Float64()
		t.elevation += a.TotalElevationGain.Float64()
		t.count++
	}

	buckets := make([]MonthBucket, 0, len(byMonth))
	for month, t := range byMonth {
		buckets = append(buckets, MonthBucket{
			Month:     month,
			Km:        round2(t.meters / 1000),
			Hours:     round2(t.seconds / 3600),
			Elevation: round2(t.elevation),
			Count:     t.count,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}

// activeDates returns the distinct local start dates, ascending
func activeDates(activities []strava.Activity) []time.Time {
	seen := make(map[string]bool)
	var dates []time.Time
	for _, a := range activities {
		start := a.LocalStart()
		if start.IsZero() {
			continue
		}
		key := start.Format(dayLayout)
		if seen[key] {
			continue
		}
		seen[key] = true
		dates = append(dates, time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC))
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ActiveDays counts distinct local dates with at least one activity
func ActiveDays(activities []strava.Activity) int {
	return len(activeDates(activities))
}

// LongestStreak returns the longest run of consecutive active days
func LongestStreak(activities []strava.Activity) int {
	dates := activeDates(activities)
	if len(dates) == 0 {
		return 0
	}

	longest, current := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].AddDate(0, 0, 1).Equal(dates[i]) {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// WeekdayHistogram counts activities per weekday, indexed by time.Weekday
type WeekdayHistogram [7]int

// Busiest returns the weekday with the most activities; ties go to the
// earlier day starting from Sunday. ok is false when there are none.
func (h WeekdayHistogram) Busiest() (day time.Weekday, ok bool) {
	best := 0
	for d, n := range h {
		if n > best {
			best = n
			day = time.Weekday(d)
		}
	}
	return day, best > 0
}

// WeekdayCounts buckets activities by local start weekday
func WeekdayCounts(activities []strava.Activity) WeekdayHistogram {
	var h WeekdayHistogram
	for _, a := range activities {
		start := a.LocalStart()
		if start.IsZero() {
			continue
		}
		h[start.Weekday()]++
	}
	return h
}
