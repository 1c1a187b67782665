package strava

import "time"

// Activity represents a Strava activity from the API.
// Only ID, Type, Distance, MovingTime, TotalElevationGain and the start
// dates take part in aggregation; see Quantity and Timestamp for how
// missing values decode.
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          Timestamp `json:"start_date"`
	StartDateLocal     Timestamp `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	Distance           Quantity  `json:"distance"`             // meters
	MovingTime         Quantity  `json:"moving_time"`          // seconds
	ElapsedTime        Quantity  `json:"elapsed_time"`         // seconds
	TotalElevationGain Quantity  `json:"total_elevation_gain"` // meters
	AverageSpeed       Quantity  `json:"average_speed"`        // m/s
	MaxSpeed           Quantity  `json:"max_speed"`            // m/s
	AverageHeartrate   Quantity  `json:"average_heartrate"`    // bpm
	MaxHeartrate       Quantity  `json:"max_heartrate"`        // bpm
	SufferScore        Quantity  `json:"suffer_score"`
	HasHeartrate       bool      `json:"has_heartrate"`
	KudosCount         int       `json:"kudos_count"`
	AchievementCount   int       `json:"achievement_count"`
	PRCount            int       `json:"pr_count"`
	Trainer            bool      `json:"trainer"`
	Commute            bool      `json:"commute"`
}

// LocalStart returns the local start time, falling back to the UTC start.
// The result is zero when the activity has no start date at all.
func (a Activity) LocalStart() time.Time {
	if !a.StartDateLocal.IsZero() {
		return a.StartDateLocal.Time
	}
	return a.StartDate.Time
}

// IsRun reports whether the activity counts as a run
func (a Activity) IsRun() bool {
	return a.Type == "Run"
}

// PaceMinPerKm returns minutes per kilometer, or 0 if either input is zero
func (a Activity) PaceMinPerKm() float64 {
	if a.Distance <= 0 || a.MovingTime <= 0 {
		return 0
	}
	return (a.MovingTime.Float64() / 60) / (a.Distance.Float64() / 1000)
}

// DetailedActivity is the single-activity response from /activities/{id}
type DetailedActivity struct {
	Activity
	Description  string   `json:"description"`
	Calories     Quantity `json:"calories"`
	DeviceName   string   `json:"device_name"`
	SplitsMetric []Split  `json:"splits_metric"`
}

// Split is one kilometer of a detailed activity
type Split struct {
	Split               int      `json:"split"`
	Distance            Quantity `json:"distance"`     // meters
	MovingTime          Quantity `json:"moving_time"`  // seconds
	ElapsedTime         Quantity `json:"elapsed_time"` // seconds
	AverageSpeed        Quantity `json:"average_speed"`
	AverageHeartrate    Quantity `json:"average_heartrate"`
	ElevationDifference float64  `json:"elevation_difference"`
}

// Athlete represents a Strava athlete. Activity responses only carry the ID.
type Athlete struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	Firstname string    `json:"firstname,omitempty"`
	Lastname  string    `json:"lastname,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Sex       string    `json:"sex,omitempty"`
	Premium   bool      `json:"premium,omitempty"`
	Profile   string    `json:"profile,omitempty"` // avatar URL
	Weight    Quantity  `json:"weight,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
}

// DisplayName returns "First Last", or the username when names are missing
func (a Athlete) DisplayName() string {
	name := a.Firstname
	if a.Lastname != "" {
		if name != "" {
			name += " "
		}
		name += a.Lastname
	}
	if name == "" {
		return a.Username
	}
	return name
}

// ActivityStats are the lifetime totals from /athletes/{id}/stats
type ActivityStats struct {
	BiggestRideDistance       Quantity `json:"biggest_ride_distance"`
	BiggestClimbElevationGain Quantity `json:"biggest_climb_elevation_gain"`
	RecentRunTotals           Totals   `json:"recent_run_totals"`
	RecentRideTotals          Totals   `json:"recent_ride_totals"`
	RecentSwimTotals          Totals   `json:"recent_swim_totals"`
	YTDRunTotals              Totals   `json:"ytd_run_totals"`
	YTDRideTotals             Totals   `json:"ytd_ride_totals"`
	YTDSwimTotals             Totals   `json:"ytd_swim_totals"`
	AllRunTotals              Totals   `json:"all_run_totals"`
	AllRideTotals             Totals   `json:"all_ride_totals"`
	AllSwimTotals             Totals   `json:"all_swim_totals"`
}

// Totals aggregates one sport over one period
type Totals struct {
	Count            int      `json:"count"`
	Distance         Quantity `json:"distance"`     // meters
	MovingTime       Quantity `json:"moving_time"`  // seconds
	ElapsedTime      Quantity `json:"elapsed_time"` // seconds
	ElevationGain    Quantity `json:"elevation_gain"`
	AchievementCount int      `json:"achievement_count"`
}
