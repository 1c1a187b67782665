package strava

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Quantity is a non-negative measurement (meters, seconds, m/s, bpm).
// Absent, null, malformed or negative JSON values decode as zero instead
// of failing the whole response.
type Quantity float64

// UnmarshalJSON accepts numbers and numeric strings.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = 0

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	b = bytes.Trim(b, `"`)

	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	*q = Quantity(v)
	return nil
}

// Float64 returns the quantity as a plain float
func (q Quantity) Float64() float64 {
	return float64(q)
}

// Timestamp is a Strava ISO-8601 time. Absent, empty or unparseable values
// decode to the zero time, which callers treat as missing.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses the time leniently.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}

	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// MarshalJSON writes missing times as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// NewTimestamp wraps a time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}
