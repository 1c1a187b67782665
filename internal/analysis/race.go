// Package analysis estimates race fitness from whole-activity results.
package analysis

import "math"

// Standard race distances in meters
const (
	Distance1Mile    = 1609.34
	Distance5K       = 5000
	Distance10K      = 10000
	DistanceHalfMara = 21097
	DistanceMarathon = 42195

	// DistanceTolerance is how far an activity may stray from a race distance
	DistanceTolerance = 0.05
)

// RaceDistance is a named standard distance
type RaceDistance struct {
	Key    string
	Label  string
	Meters float64
}

// RaceDistances is ordered shortest first
var RaceDistances = []RaceDistance{
	{"1mi", "1 Mile", Distance1Mile},
	{"5k", "5K", Distance5K},
	{"10k", "10K", Distance10K},
	{"half", "Half Marathon", DistanceHalfMara},
	{"marathon", "Marathon", DistanceMarathon},
}

// MatchesRaceDistance checks if an activity distance is within the
// tolerance of a race distance
func MatchesRaceDistance(activityDistance, raceDistance float64) bool {
	return math.Abs(activityDistance-raceDistance) <= raceDistance*DistanceTolerance
}

// MatchRaceDistance returns the race distance an activity counts as
func MatchRaceDistance(activityDistance float64) (RaceDistance, bool) {
	for _, rd := range RaceDistances {
		if MatchesRaceDistance(activityDistance, rd.Meters) {
			return rd, true
		}
	}
	return RaceDistance{}, false
}

// PaceSecondsPerKm returns seconds per kilometer, or 0 for empty input
func PaceSecondsPerKm(distanceMeters float64, durationSeconds int) float64 {
	if distanceMeters <= 0 || durationSeconds <= 0 {
		return 0
	}
	return float64(durationSeconds) / (distanceMeters / 1000)
}
