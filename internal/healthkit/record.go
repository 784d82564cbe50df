// Package healthkit decodes workout payloads uploaded by the iOS app and turns
// them into per-metric sample streams.
package healthkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedRecord = errors.New("malformed healthkit record")

// TimestampLayout is the format the app uses for every date in the payload.
// Fractional seconds are optional and of any precision.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// Number is a JSON number that also accepts numeric strings. Anything else
// leaves it invalid instead of failing the decode.
type Number struct {
	Value float64
	Valid bool
	Raw   string
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{Raw: string(b)}
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Quantity is HealthKit's {"doubleValue": ..., "unit": ...} wrapper.
type Quantity struct {
	DoubleValue Number `json:"doubleValue"`
	Unit        string `json:"unit,omitempty"`
}

// QuantitySample is a heart rate or distance reading over [startTime, endTime].
type QuantitySample struct {
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Quantity  Quantity `json:"quantity"`
	Device    string   `json:"device,omitempty"`
}

// Location is one GPS fix.
type Location struct {
	Timestamp string   `json:"timestamp"`
	Altitude  Number   `json:"altitude"`
	Speed     Quantity `json:"speed"`
}

// Record is the workout payload as posted by the app.
type Record struct {
	AppleUUID                     string            `json:"appleUUID"`
	ActivityType                  int               `json:"activityType"`
	StartDate                     string            `json:"startDate"`
	EndDate                       string            `json:"endDate"`
	Duration                      Quantity          `json:"duration"`
	TotalDistance                 Quantity          `json:"totalDistance"`
	TotalCalories                 Quantity          `json:"totalCalories"`
	WorkoutEvents                 []json.RawMessage `json:"workoutEvents"`
	HeartRateSamples              []QuantitySample  `json:"heartRateSamples"`
	Locations                     []Location        `json:"locations"`
	DistanceWalkingRunningSamples []QuantitySample  `json:"distanceWalkingRunningSamples"`
}

var requiredKeys = []string{
	"appleUUID",
	"activityType",
	"startDate",
	"endDate",
	"duration",
	"totalDistance",
	"totalCalories",
	"workoutEvents",
	"heartRateSamples",
	"locations",
	"distanceWalkingRunningSamples",
}

var quantityKeys = []string{"duration", "totalDistance", "totalCalories"}

// CheckStructure verifies that every required key is present and that the
// quantity wrappers carry a doubleValue. It does not look at the values.
func CheckStructure(raw []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := top[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing keys %s", ErrMalformedRecord, strings.Join(missing, ","))
	}

	for _, key := range quantityKeys {
		var q map[string]json.RawMessage
		if err := json.Unmarshal(top[key], &q); err != nil || q == nil {
			return fmt.Errorf("%w: %s is not a quantity", ErrMalformedRecord, key)
		}
		if _, ok := q["doubleValue"]; !ok {
			return fmt.Errorf("%w: missing key %s.doubleValue", ErrMalformedRecord, key)
		}
	}
	return nil
}

// Parse checks the structure of raw and decodes it.
func Parse(raw []byte) (*Record, error) {
	if err := CheckStructure(raw); err != nil {
		return nil, err
	}

	var rec Record
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if strings.TrimSpace(rec.AppleUUID) == "" {
		return nil, fmt.Errorf("%w: appleUUID is empty", ErrMalformedRecord)
	}
	return &rec, nil
}

// ParseTime parses a payload timestamp. RFC 3339 is accepted as well; zoneless
// values are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedRecord, s)
}

func secondsBetween(from, to string) (float64, error) {
	a, err := ParseTime(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseTime(to)
	if err != nil {
		return 0, err
	}
	return b.Sub(a).Seconds(), nil
}
