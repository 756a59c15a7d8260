package domain

import (
	"math"
	"strconv"
)

// StopStatus represents the delivery state of a single stop.
type StopStatus string

const (
	// StopStatusPending indicates the stop has not been attempted yet.
	StopStatusPending StopStatus = "PENDING"
	// StopStatusDelivered indicates the delivery was verified.
	StopStatusDelivered StopStatus = "DELIVERED"
	// StopStatusIssue indicates the partner reported a problem at the stop.
	StopStatusIssue StopStatus = "ISSUE"
	// StopStatusSkipped indicates the stop was skipped for the day.
	StopStatusSkipped StopStatus = "SKIPPED"
)

// Stop is one delivery location on a partner's run sheet.
//
// Record carries the full run-sheet entry as received from the core
// platform, so fields this subsystem does not understand survive a
// round trip through the optimizer untouched.
type Stop struct {
	// ID is the stable identifier assigned by the run-sheet source.
	ID string `json:"id"`
	// Lat is the latitude in degrees. NaN when missing or malformed.
	Lat float64 `json:"lat"`
	// Lng is the longitude in degrees. NaN when missing or malformed.
	Lng float64 `json:"lng"`
	// Sequence is the 1-based visiting position within the route.
	Sequence int `json:"sequence"`
	// Status is the delivery state of the stop.
	Status StopStatus `json:"status,omitempty"`
	// Record is the raw run-sheet entry this stop was parsed from.
	Record map[string]interface{} `json:"-"`
}

// HasValidCoordinates reports whether the stop can participate in
// route optimization.
func (s Stop) HasValidCoordinates() bool {
	if math.IsNaN(s.Lat) || math.IsNaN(s.Lng) {
		return false
	}
	return s.Lat >= -90 && s.Lat <= 90 && s.Lng >= -180 && s.Lng <= 180
}

// StopFromRecord parses a raw run-sheet entry into a Stop.
// Coordinates that are absent or non-numeric come back as NaN so the
// stop is carried through unoptimized rather than rejected.
func StopFromRecord(rec map[string]interface{}) Stop {
	return Stop{
		ID:       stringValue(rec["id"]),
		Lat:      coordValue(rec["lat"]),
		Lng:      coordValue(rec["lng"]),
		Sequence: intValue(rec["sequence"]),
		Status:   StopStatus(stringValue(rec["status"])),
		Record:   rec,
	}
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func coordValue(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func intValue(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
