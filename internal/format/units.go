// Package format renders distances, paces and durations for display.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"strava-wrapped/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units formats values according to the display preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}

// Distance converts kilometers to the preferred unit
func (u Units) Distance(km float64) float64 {
	if u.IsMiles() {
		return km * metersPerKm / metersPerMile
	}
	return km
}

// FormatDistance formats kilometers in the preferred unit with separators
func (u Units) FormatDistance(km float64) string {
	return oneDecimal(u.Distance(km)) + " " + u.DistanceLabel()
}

// FormatMeters formats a distance in meters in the preferred unit
func (u Units) FormatMeters(meters float64) string {
	return fmt.Sprintf("%.1f %s", u.Distance(meters/metersPerKm), u.DistanceLabel())
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// PaceLabel returns the pace unit label ("min/mi" or "min/km")
func (u Units) PaceLabel() string {
	if u.cfg.PaceUnit == "min/mi" {
		return "min/mi"
	}
	return "min/km"
}

// FormatPace formats a pace given in minutes per kilometer as m:ss in the
// preferred unit. nil or non-positive paces render as "-".
func (u Units) FormatPace(minPerKm *float64) string {
	if minPerKm == nil || *minPerKm <= 0 {
		return "-"
	}
	pace := *minPerKm
	if u.cfg.PaceUnit == "min/mi" {
		pace = pace * metersPerMile / metersPerKm
	}
	return MinSec(pace*60) + "/" + shortPaceUnit(u.cfg.PaceUnit)
}

// FormatActivityPace formats the pace of one activity
func (u Units) FormatActivityPace(movingSeconds, meters float64) string {
	if meters <= 0 || movingSeconds <= 0 {
		return "-"
	}
	pace := (movingSeconds / 60) / (meters / metersPerKm)
	return u.FormatPace(&pace)
}

func shortPaceUnit(paceUnit string) string {
	if paceUnit == "min/mi" {
		return "mi"
	}
	return "km"
}

// MinSec formats seconds as m:ss
func MinSec(seconds float64) string {
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Duration formats seconds as "1h 05m" or "42m"
func Duration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// RaceTime formats a finish time as h:mm:ss or m:ss
func RaceTime(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Hours formats a total in hours with separators
func Hours(h float64) string {
	return oneDecimal(h) + " h"
}

// oneDecimal rounds before formatting since CommafWithDigits truncates
func oneDecimal(v float64) string {
	return humanize.CommafWithDigits(math.Round(v*10)/10, 1)
}

// Count formats an integer with thousands separators
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Ago describes t relative to now, e.g. "3 days ago"
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Truncate shortens s to max runes, ending with "..."
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
