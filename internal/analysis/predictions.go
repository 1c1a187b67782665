package analysis

import (
	"math"
	"time"

	"strava-wrapped/internal/strava"
)

// PredictionTargets are the distances predictions are made for
var PredictionTargets = []RaceDistance{
	RaceDistances[1], // 5K
	RaceDistances[2], // 10K
	RaceDistances[3], // half
	RaceDistances[4], // marathon
}

// SourceRun is the result predictions are extrapolated from
type SourceRun struct {
	Race            RaceDistance
	ActivityID      int64
	Name            string
	DistanceMeters  float64
	DurationSeconds int
	AchievedAt      time.Time
}

// RacePrediction is a predicted finish time for one target
type RacePrediction struct {
	Target           RaceDistance
	PredictedSeconds int
	PaceSecPerKm     float64
	VDOT             float64
	Confidence       string  // "high", "medium", "low"
	ConfidenceScore  float64 // 0.0 to 1.0
}

// SelectSourceRun picks the run predictions start from: among runs in the
// year before now that match a race distance, the longest race category
// wins and, within it, the fastest time. Earlier activities win ties.
func SelectSourceRun(activities []strava.Activity, now time.Time) *SourceRun {
	cutoff := now.AddDate(-1, 0, 0)

	var best *SourceRun
	bestRank := -1
	for _, a := range activities {
		if !a.IsRun() || a.MovingTime <= 0 {
			continue
		}
		start := a.LocalStart()
		if start.IsZero() || start.Before(cutoff) || start.After(now) {
			continue
		}

		rank, race, ok := raceRank(a.Distance.Float64())
		if !ok {
			continue
		}
		seconds := int(math.Round(a.MovingTime.Float64()))

		if rank > bestRank || (rank == bestRank && seconds < best.DurationSeconds) {
			bestRank = rank
			best = &SourceRun{
				Race:            race,
				ActivityID:      a.ID,
				Name:            a.Name,
				DistanceMeters:  a.Distance.Float64(),
				DurationSeconds: seconds,
				AchievedAt:      start,
			}
		}
	}
	return best
}

func raceRank(meters float64) (int, RaceDistance, bool) {
	for i, rd := range RaceDistances {
		if MatchesRaceDistance(meters, rd.Meters) {
			return i, rd, true
		}
	}
	return 0, RaceDistance{}, false
}

// CalculateConfidence scores a prediction from the extrapolation ratio
// and how old the source run is
func CalculateConfidence(source *SourceRun, targetMeters float64, now time.Time) (float64, string) {
	if source == nil || source.DistanceMeters <= 0 {
		return 0, "low"
	}

	score := 1.0

	ratio := targetMeters / source.DistanceMeters
	if ratio < 1 {
		ratio = 1 / ratio
	}
	switch {
	case ratio > 4:
		score *= 0.7
	case ratio > 2:
		score *= 0.85
	case ratio > 1.5:
		score *= 0.95
	}

	days := now.Sub(source.AchievedAt).Hours() / 24
	switch {
	case days > 180:
		score *= 0.75
	case days > 90:
		score *= 0.9
	case days > 30:
		score *= 0.95
	}

	switch {
	case score >= 0.85:
		return score, "high"
	case score >= 0.65:
		return score, "medium"
	default:
		return score, "low"
	}
}

// GeneratePredictions predicts every target except the source's own
// distance. It returns nil without a usable source.
func GeneratePredictions(source *SourceRun, now time.Time) []RacePrediction {
	if source == nil {
		return nil
	}

	vdot := CalculateVDOT(source.DistanceMeters, source.DurationSeconds)
	if vdot <= 0 {
		return nil
	}

	var predictions []RacePrediction
	for _, target := range PredictionTargets {
		if MatchesRaceDistance(source.DistanceMeters, target.Meters) {
			continue
		}

		seconds := PredictTime(vdot, target.Meters)
		if seconds <= 0 {
			continue
		}

		score, label := CalculateConfidence(source, target.Meters, now)
		predictions = append(predictions, RacePrediction{
			Target:           target,
			PredictedSeconds: seconds,
			PaceSecPerKm:     PaceSecondsPerKm(target.Meters, seconds),
			VDOT:             vdot,
			Confidence:       label,
			ConfidenceScore:  math.Round(score*100) / 100,
		})
	}
	return predictions
}
