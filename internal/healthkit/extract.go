package healthkit

import (
	"io"
	"log/slog"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
)

// MetersPerSecondToKmh converts HealthKit speeds to km/h.
const MetersPerSecondToKmh = 3.6

// QuickFacts are the scalar workout fields taken from the payload as is.
type QuickFacts struct {
	ExternalID   string    `json:"appleUUID"`
	ActivityType int       `json:"type"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Duration     *float64  `json:"duration"`
	Distance     *float64  `json:"distance"`
	Kcal         *float64  `json:"kcal"`
}

// Overview holds the heart rate and speed statistics of the raw streams.
// Averages of empty streams are 0, extremes are nil.
type Overview struct {
	HeartRateAvg float64  `json:"heartRateAvg"`
	HeartRateMin *float64 `json:"heartRateMin"`
	HeartRateMax *float64 `json:"heartRateMax"`
	SpeedAvg     float64  `json:"speedAvg"`
	SpeedMin     *float64 `json:"speedMin"`
	SpeedMax     *float64 `json:"speedMax"`
}

// Extraction is everything derived from a single record without resampling.
type Extraction struct {
	QuickFacts
	Overview
	TerrainUp   float64            `json:"terrainUp"`
	TerrainDown float64            `json:"terrainDown"`
	Streams     timeseries.Streams `json:"-"`
}

// Extractor turns records into sample streams. It holds no state besides the
// logger and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{logger: logger}
}

// ExtractJSON parses raw and extracts it.
func (e *Extractor) ExtractJSON(raw []byte) (*Extraction, error) {
	rec, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return e.Extract(rec)
}

// Extract builds the four streams and the scalar facts of rec. Missing arrays
// produce empty streams; an unparsable timestamp fails with ErrMalformedRecord.
func (e *Extractor) Extract(rec *Record) (*Extraction, error) {
	start, err := ParseTime(rec.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseTime(rec.EndDate)
	if err != nil {
		return nil, err
	}

	out := &Extraction{
		QuickFacts: QuickFacts{
			ExternalID:   rec.AppleUUID,
			ActivityType: rec.ActivityType,
			StartTime:    start,
			EndTime:      end,
			Duration:     e.coerce("duration", rec.Duration.DoubleValue),
			Distance:     e.coerce("totalDistance", rec.TotalDistance.DoubleValue),
			Kcal:         e.coerce("totalCalories", rec.TotalCalories.DoubleValue),
		},
	}

	if out.Streams.HeartRate, err = e.heartRate(rec.HeartRateSamples); err != nil {
		return nil, err
	}
	if out.Streams.Altitude, err = e.altitude(rec.Locations); err != nil {
		return nil, err
	}

	device := PrioritizeDevice(rec.DistanceWalkingRunningSamples)
	if len(rec.Locations) > 0 {
		out.Streams.Speed, err = e.locationSpeed(rec.Locations)
	} else {
		out.Streams.Speed, err = e.deviceSpeed(rec.DistanceWalkingRunningSamples, device)
	}
	if err != nil {
		return nil, err
	}
	if out.Streams.Distance, err = e.distance(rec.DistanceWalkingRunningSamples, device); err != nil {
		return nil, err
	}

	out.TerrainUp, out.TerrainDown = terrain(rec.Locations)
	out.Overview = overview(out.Streams.HeartRate, out.Streams.Speed)
	return out, nil
}

func (e *Extractor) coerce(field string, n Number) *float64 {
	if !n.Valid {
		e.logger.Warn("healthkit: value is not a number", "field", field, "raw", n.Raw)
		return nil
	}
	v := n.Value
	return &v
}

// clock measures seconds from a fixed payload timestamp.
type clock struct {
	origin time.Time
}

func newClock(ts string) (clock, error) {
	t, err := ParseTime(ts)
	return clock{origin: t}, err
}

func (c clock) since(ts string) (float64, error) {
	t, err := ParseTime(ts)
	if err != nil {
		return 0, err
	}
	return t.Sub(c.origin).Seconds(), nil
}

func (e *Extractor) heartRate(samples []QuantitySample) ([]timeseries.Sample, error) {
	out := []timeseries.Sample{}
	if len(samples) == 0 {
		return out, nil
	}
	c, err := newClock(samples[0].StartTime)
	if err != nil {
		return nil, err
	}
	for i, s := range samples {
		at, err := c.since(s.EndTime)
		if err != nil {
			return nil, err
		}
		if !s.Quantity.DoubleValue.Valid {
			e.logger.Warn("healthkit: skipping heart rate sample", "index", i, "raw", s.Quantity.DoubleValue.Raw)
			continue
		}
		out = append(out, timeseries.Sample{SecondsSinceStart: at, Value: s.Quantity.DoubleValue.Value})
	}
	return out, nil
}

func (e *Extractor) altitude(locations []Location) ([]timeseries.Sample, error) {
	out := []timeseries.Sample{}
	if len(locations) == 0 {
		return out, nil
	}
	c, err := newClock(locations[0].Timestamp)
	if err != nil {
		return nil, err
	}
	for i, l := range locations {
		at, err := c.since(l.Timestamp)
		if err != nil {
			return nil, err
		}
		if !l.Altitude.Valid {
			e.logger.Warn("healthkit: skipping altitude", "index", i, "raw", l.Altitude.Raw)
			continue
		}
		out = append(out, timeseries.Sample{SecondsSinceStart: at, Value: l.Altitude.Value})
	}
	return out, nil
}

func (e *Extractor) locationSpeed(locations []Location) ([]timeseries.Sample, error) {
	out := []timeseries.Sample{}
	c, err := newClock(locations[0].Timestamp)
	if err != nil {
		return nil, err
	}
	for i, l := range locations {
		at, err := c.since(l.Timestamp)
		if err != nil {
			return nil, err
		}
		if !l.Speed.DoubleValue.Valid {
			e.logger.Warn("healthkit: skipping location speed", "index", i, "raw", l.Speed.DoubleValue.Raw)
			continue
		}
		out = append(out, timeseries.Sample{
			SecondsSinceStart: at,
			Value:             l.Speed.DoubleValue.Value * MetersPerSecondToKmh,
		})
	}
	return out, nil
}

// deviceSpeed derives speed from the distance samples of device when the
// workout has no GPS fixes. Times are relative to the first sample overall.
func (e *Extractor) deviceSpeed(samples []QuantitySample, device string) ([]timeseries.Sample, error) {
	out := []timeseries.Sample{}
	if len(samples) == 0 {
		return out, nil
	}
	c, err := newClock(samples[0].StartTime)
	if err != nil {
		return nil, err
	}
	for i, s := range samples {
		if ParseDeviceTag(s.Device).Key != device {
			continue
		}
		elapsed, err := secondsBetween(s.StartTime, s.EndTime)
		if err != nil {
			return nil, err
		}
		if elapsed == 0 {
			continue
		}
		if !s.Quantity.DoubleValue.Valid {
			e.logger.Warn("healthkit: skipping distance sample", "index", i, "raw", s.Quantity.DoubleValue.Raw)
			continue
		}
		at, err := c.since(s.EndTime)
		if err != nil {
			return nil, err
		}
		out = append(out, timeseries.Sample{
			SecondsSinceStart: at,
			Value:             s.Quantity.DoubleValue.Value / elapsed * MetersPerSecondToKmh,
		})
	}
	return out, nil
}

// distance accumulates the deltas reported by device.
func (e *Extractor) distance(samples []QuantitySample, device string) ([]timeseries.Sample, error) {
	out := []timeseries.Sample{}
	if len(samples) == 0 {
		return out, nil
	}
	c, err := newClock(samples[0].StartTime)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for i, s := range samples {
		if ParseDeviceTag(s.Device).Key != device {
			continue
		}
		at, err := c.since(s.EndTime)
		if err != nil {
			return nil, err
		}
		if !s.Quantity.DoubleValue.Valid {
			e.logger.Warn("healthkit: skipping distance sample", "index", i, "raw", s.Quantity.DoubleValue.Raw)
			continue
		}
		total += s.Quantity.DoubleValue.Value
		out = append(out, timeseries.Sample{SecondsSinceStart: at, Value: total})
	}
	return out, nil
}

// terrain sums the climbs and descents between consecutive GPS fixes.
func terrain(locations []Location) (up, down float64) {
	var previous *float64
	for _, l := range locations {
		if !l.Altitude.Valid {
			continue
		}
		h := l.Altitude.Value
		if previous != nil {
			if h > *previous {
				up += h - *previous
			} else {
				down += *previous - h
			}
		}
		previous = &h
	}
	return up, down
}

func overview(hr, speed []timeseries.Sample) Overview {
	var o Overview
	o.HeartRateAvg, o.HeartRateMin, o.HeartRateMax = stats(hr)
	o.SpeedAvg, o.SpeedMin, o.SpeedMax = stats(speed)
	return o
}

func stats(samples []timeseries.Sample) (avg float64, lo, hi *float64) {
	sum := 0.0
	for _, s := range samples {
		sum += s.Value
	}
	avg = sum / float64(max(len(samples), 1))
	if l, h, ok := timeseries.Bounds(samples); ok {
		lo, hi = &l, &h
	}
	return avg, lo, hi
}
