package zones

import (
	"errors"
	"fmt"

	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
)

// Metric names the profile column a set of boundaries applies to.
type Metric string

const (
	MetricHeartRate Metric = "HEARTRATE"
	MetricSpeed     Metric = "SPEED"
)

var ErrInvalidBoundaries = errors.New("invalid zone boundaries")

// ParseMetric accepts the stored metric names.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricHeartRate, MetricSpeed:
		return Metric(s), nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidBoundaries, s)
}

// Boundaries are the exclusive upper bounds of zones 0..3; zone 4 is open.
type Boundaries [4]float64

// Validate requires strictly increasing bounds.
func (b Boundaries) Validate() error {
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return fmt.Errorf("%w: upper%dBound must be greater than upper%dBound", ErrInvalidBoundaries, i, i-1)
		}
	}
	return nil
}

// Zone returns the zone of v. A value equal to a bound belongs to the higher zone.
func (b Boundaries) Zone(v float64) int {
	for i, upper := range b {
		if v < upper {
			return i
		}
	}
	return len(b)
}

// Distribution counts profile buckets per zone. Total is the profile length,
// null values included.
type Distribution struct {
	Total int `json:"total"`
	Zone0 int `json:"zone0"`
	Zone1 int `json:"zone1"`
	Zone2 int `json:"zone2"`
	Zone3 int `json:"zone3"`
	Zone4 int `json:"zone4"`
}

// Counts returns the zone counters in order.
func (d Distribution) Counts() [5]int {
	return [5]int{d.Zone0, d.Zone1, d.Zone2, d.Zone3, d.Zone4}
}

// Main returns the zone with the most samples; ties go to the lower zone.
func (d Distribution) Main() int {
	counts := d.Counts()
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

// Classify distributes the metric column of profile over b. It returns nil
// when no boundaries apply.
func Classify(profile timeseries.CombinedProfile, metric Metric, b *Boundaries) *Distribution {
	if b == nil {
		return nil
	}

	d := &Distribution{Total: len(profile)}
	for _, bucket := range profile {
		v := valueOf(bucket, metric)
		if v == nil {
			continue
		}
		switch b.Zone(*v) {
		case 0:
			d.Zone0++
		case 1:
			d.Zone1++
		case 2:
			d.Zone2++
		case 3:
			d.Zone3++
		default:
			d.Zone4++
		}
	}
	return d
}

func valueOf(b timeseries.Bucket, metric Metric) *float64 {
	switch metric {
	case MetricHeartRate:
		return b.HeartRate
	case MetricSpeed:
		return b.Speed
	}
	return nil
}

// TrainingZones is the pair of distributions stored with a workout.
type TrainingZones struct {
	HeartRate *Distribution `json:"heartRate"`
	Speed     *Distribution `json:"speed"`
}

// MainHeartRateZone returns the dominant heart rate zone, or nil without a
// heart rate distribution.
func (z TrainingZones) MainHeartRateZone() *int {
	if z.HeartRate == nil {
		return nil
	}
	m := z.HeartRate.Main()
	return &m
}
