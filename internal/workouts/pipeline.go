package workouts

import (
	"log/slog"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/healthkit"
	"github.com/Boris-Bot69/fitness-ios/internal/pace"
	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
)

// ZoneBounds are the boundaries active for one workout. Nil means no
// boundaries are registered for that metric.
type ZoneBounds struct {
	HeartRate *zones.Boundaries
	Speed     *zones.Boundaries
}

// Derivation is the full artifact set computed from one raw record.
type Derivation struct {
	*healthkit.Extraction
	Period        float64
	Profile       timeseries.CombinedProfile
	TrainingZones zones.TrainingZones
	Pace          pace.Result
}

// Pipeline runs extraction, resampling, zone classification and pace
// segmentation. It keeps no mutable state and is safe for concurrent use.
type Pipeline struct {
	extractor *healthkit.Extractor
	period    float64
	unit      float64
}

func NewPipeline(logger *slog.Logger, periodSeconds, unitMeters float64) *Pipeline {
	if periodSeconds <= 0 {
		periodSeconds = timeseries.DefaultPeriodSeconds
	}
	if unitMeters <= 0 {
		unitMeters = pace.UnitMeters
	}
	return &Pipeline{
		extractor: healthkit.NewExtractor(logger),
		period:    periodSeconds,
		unit:      unitMeters,
	}
}

// Period is the default bucket period in seconds.
func (p *Pipeline) Period() float64 { return p.period }

// Extract parses raw and builds its streams. Errors wrap
// healthkit.ErrMalformedRecord.
func (p *Pipeline) Extract(raw []byte) (*healthkit.Extraction, error) {
	return p.extractor.ExtractJSON(raw)
}

// Derive resamples ext at the default period and computes zones and pace.
func (p *Pipeline) Derive(ext *healthkit.Extraction, bounds ZoneBounds) *Derivation {
	profile := p.Profile(ext.Streams, ext.StartTime, ext.EndTime, p.period)
	return &Derivation{
		Extraction: ext,
		Period:     p.period,
		Profile:    profile,
		TrainingZones: zones.TrainingZones{
			HeartRate: zones.Classify(profile, zones.MetricHeartRate, bounds.HeartRate),
			Speed:     zones.Classify(profile, zones.MetricSpeed, bounds.Speed),
		},
		Pace: pace.SplitEvery(profile, p.period, p.unit),
	}
}

// Profile resamples streams at an arbitrary period.
func (p *Pipeline) Profile(streams timeseries.Streams, start, end time.Time, period float64) timeseries.CombinedProfile {
	return timeseries.Resample(streams, start, end, period)
}
