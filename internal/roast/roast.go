// Package roast turns a year of numbers into a few unkind sentences.
package roast

import (
	"fmt"
	"strings"

	"strava-wrapped/internal/format"
	"strava-wrapped/internal/stats"
)

// Roast is a titled list of lines
type Roast struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// String renders the roast as plain text
func (r Roast) String() string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n\n")
	for _, line := range r.Lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Generate builds a roast from aggregate stats. Output depends only on its
// inputs; the same stats always produce the same lines.
func Generate(name string, s stats.AggregateStats, units format.Units) Roast {
	if name == "" {
		name = "Athlete"
	}
	r := Roast{Title: fmt.Sprintf("The Roast of %s", name)}

	if s.ActivityCount == 0 {
		r.Lines = []string{
			"Zero activities. Your running shoes have filed a missing persons report.",
			"We'd roast your pace, but you need to move for that.",
		}
		return r
	}

	r.Lines = append(r.Lines, distanceLine(s, units))
	r.Lines = append(r.Lines, paceLine(s, units))
	if line := typeLine(s); line != "" {
		r.Lines = append(r.Lines, line)
	}
	r.Lines = append(r.Lines, streakLine(s))
	if line := weekdayLine(s); line != "" {
		r.Lines = append(r.Lines, line)
	}
	if line := elevationLine(s); line != "" {
		r.Lines = append(r.Lines, line)
	}
	return r
}

func distanceLine(s stats.AggregateStats, units format.Units) string {
	total := units.FormatDistance(s.TotalDistanceKm)
	switch {
	case s.TotalDistanceKm < 50:
		return fmt.Sprintf("%s in total. Most people cover that walking to the fridge.", total)
	case s.TotalDistanceKm < 500:
		return fmt.Sprintf("%s logged. Respectable, in the way a participation trophy is respectable.", total)
	case s.TotalDistanceKm < 2000:
		return fmt.Sprintf("%s. Your knees would like a word.", total)
	default:
		return fmt.Sprintf("%s. At this point Strava should be paying you.", total)
	}
}

func paceLine(s stats.AggregateStats, units format.Units) string {
	if s.AveragePaceMinPerKm == nil {
		return "No runs at all, so your pace stays a closely guarded secret."
	}

	pace := units.FormatPace(s.AveragePaceMinPerKm)
	switch p := *s.AveragePaceMinPerKm; {
	case p >= 7:
		return fmt.Sprintf("Average pace %s. Snails have started asking for your training plan.", pace)
	case p >= 5.5:
		return fmt.Sprintf("Average pace %s. Solidly, reliably, aggressively mid-pack.", pace)
	case p >= 4:
		return fmt.Sprintf("Average pace %s. Fast enough to be smug about it.", pace)
	default:
		return fmt.Sprintf("Average pace %s. Either you're elite or your GPS is lying.", pace)
	}
}

func typeLine(s stats.AggregateStats) string {
	types := stats.SortedTypes(s.TypeHistogram)
	if len(types) == 0 {
		return ""
	}

	top := types[0]
	count := s.TypeHistogram[top]
	switch {
	case top == stats.UnknownType:
		return fmt.Sprintf("%d activities with no type. Mysterious. Possibly just sitting.", count)
	case top != "Run":
		return fmt.Sprintf("%d %s activities and you call yourself a runner?", count, strings.ToLower(top))
	case len(types) == 1:
		return "Nothing but runs. Cross-training is not a personality flaw, you know."
	default:
		return ""
	}
}

func streakLine(s stats.AggregateStats) string {
	switch {
	case s.LongestStreakDays >= 30:
		return fmt.Sprintf("A %d-day streak. Rest days are allowed. Legally.", s.LongestStreakDays)
	case s.LongestStreakDays >= 7:
		return fmt.Sprintf("Longest streak: %d days. Then something shiny came along.", s.LongestStreakDays)
	case s.LongestStreakDays > 1:
		return fmt.Sprintf("Longest streak: %d days. Commitment issues, much?", s.LongestStreakDays)
	default:
		return "You never once went two days in a row. Consistency called; you let it go to voicemail."
	}
}

func weekdayLine(s stats.AggregateStats) string {
	day, ok := s.Weekdays.Busiest()
	if !ok {
		return ""
	}
	n := s.Weekdays[day]
	if n*2 <= s.ActivityCount {
		return ""
	}
	return fmt.Sprintf("%d of %d activities on a %s. The other six days are apparently optional.",
		n, s.ActivityCount, day)
}

func elevationLine(s stats.AggregateStats) string {
	climb := s.PersonalRecords.MostElevation
	if climb == nil || climb.TotalElevationGain <= 0 {
		return "Zero climbing recorded. The flattest year in human history."
	}
	name := climb.Name
	if name == "" {
		name = "one activity"
	}
	return fmt.Sprintf("Your biggest climb was %s at %.0f m. Everything else was suspiciously flat.",
		format.Truncate(name, 40), climb.TotalElevationGain.Float64())
}
