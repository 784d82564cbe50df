package workouts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/healthkit"
	"github.com/Boris-Bot69/fitness-ios/internal/pace"
	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
	"github.com/google/uuid"
)

// ============================================================================
// DTOs
// ============================================================================

// WorkoutSummary is one item of the workout list.
type WorkoutSummary struct {
	ID uuid.UUID `json:"id"`
	healthkit.QuickFacts
	OwnerID           string    `json:"ownerId"`
	MainHeartRateZone *int      `json:"mainHeartRateZone"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// WorkoutDetail is a stored workout with its derivations. CombinedProfile is
// recomputed from the raw streams at SampleRate seconds.
type WorkoutDetail struct {
	WorkoutSummary
	healthkit.Overview
	TerrainUp       float64                    `json:"terrainUp"`
	TerrainDown     float64                    `json:"terrainDown"`
	TrainingZones   zones.TrainingZones        `json:"trainingZones"`
	KilometerPace   []pace.Segment             `json:"kilometerPace"`
	PaceMin         float64                    `json:"paceMin"`
	PaceMax         float64                    `json:"paceMax"`
	SampleRate      float64                    `json:"sampleRate"`
	CombinedProfile timeseries.CombinedProfile `json:"combinedProfile"`
	RawStreams      timeseries.Streams         `json:"rawStreams"`
}

type ListResponse struct {
	Workouts []WorkoutSummary `json:"workouts"`
}

// RawPayload is either the stored body or a link to its archived copy.
type RawPayload struct {
	Data        []byte
	RedirectURL string
}

// ============================================================================
// Converters
// ============================================================================

func recordFromDerivation(d *Derivation, ownerID string) (*storage.WorkoutRecord, error) {
	rec := &storage.WorkoutRecord{
		ExternalID:   d.ExternalID,
		OwnerID:      ownerID,
		ActivityType: d.ActivityType,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		Duration:     d.Duration,
		Kcal:         d.Kcal,
		Distance:     d.Distance,
		TerrainUp:    d.TerrainUp,
		TerrainDown:  d.TerrainDown,
		HeartRateAvg: d.HeartRateAvg,
		HeartRateMin: d.HeartRateMin,
		HeartRateMax: d.HeartRateMax,
		SpeedAvg:     d.SpeedAvg,
		SpeedMin:     d.SpeedMin,
		SpeedMax:     d.SpeedMax,
		PaceMin:      d.Pace.Min,
		PaceMax:      d.Pace.Max,
	}

	columns := []struct {
		dst *[]byte
		src any
	}{
		{&rec.TrainingZones, d.TrainingZones},
		{&rec.HeartRateSamples, nonNilSamples(d.Streams.HeartRate)},
		{&rec.SpeedSamples, nonNilSamples(d.Streams.Speed)},
		{&rec.AltitudeSamples, nonNilSamples(d.Streams.Altitude)},
		{&rec.DistanceSamples, nonNilSamples(d.Streams.Distance)},
		{&rec.KilometerPace, nonNilSegments(d.Pace.Segments)},
	}
	for _, c := range columns {
		b, err := json.Marshal(c.src)
		if err != nil {
			return nil, fmt.Errorf("marshal workout column: %w", err)
		}
		*c.dst = b
	}
	return rec, nil
}

func summaryFromRecord(rec *storage.WorkoutRecord) (WorkoutSummary, zones.TrainingZones, error) {
	var tz zones.TrainingZones
	if len(rec.TrainingZones) > 0 {
		if err := json.Unmarshal(rec.TrainingZones, &tz); err != nil {
			return WorkoutSummary{}, tz, fmt.Errorf("decode training zones: %w", err)
		}
	}
	return WorkoutSummary{
		ID: rec.ID,
		QuickFacts: healthkit.QuickFacts{
			ExternalID:   rec.ExternalID,
			ActivityType: rec.ActivityType,
			StartTime:    rec.StartTime,
			EndTime:      rec.EndTime,
			Duration:     rec.Duration,
			Distance:     rec.Distance,
			Kcal:         rec.Kcal,
		},
		OwnerID:           rec.OwnerID,
		MainHeartRateZone: tz.MainHeartRateZone(),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}, tz, nil
}

// detailFromRecord decodes everything stored for rec. The combined profile is
// left to the caller.
func detailFromRecord(rec *storage.WorkoutRecord) (*WorkoutDetail, error) {
	summary, tz, err := summaryFromRecord(rec)
	if err != nil {
		return nil, err
	}

	d := &WorkoutDetail{
		WorkoutSummary: summary,
		Overview: healthkit.Overview{
			HeartRateAvg: rec.HeartRateAvg,
			HeartRateMin: rec.HeartRateMin,
			HeartRateMax: rec.HeartRateMax,
			SpeedAvg:     rec.SpeedAvg,
			SpeedMin:     rec.SpeedMin,
			SpeedMax:     rec.SpeedMax,
		},
		TerrainUp:     rec.TerrainUp,
		TerrainDown:   rec.TerrainDown,
		TrainingZones: tz,
		PaceMin:       rec.PaceMin,
		PaceMax:       rec.PaceMax,
	}

	columns := []struct {
		name string
		src  []byte
		dst  any
	}{
		{"heart rate samples", rec.HeartRateSamples, &d.RawStreams.HeartRate},
		{"speed samples", rec.SpeedSamples, &d.RawStreams.Speed},
		{"altitude samples", rec.AltitudeSamples, &d.RawStreams.Altitude},
		{"distance samples", rec.DistanceSamples, &d.RawStreams.Distance},
		{"kilometer pace", rec.KilometerPace, &d.KilometerPace},
	}
	for _, c := range columns {
		if len(c.src) == 0 {
			continue
		}
		if err := json.Unmarshal(c.src, c.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
	}
	if d.KilometerPace == nil {
		d.KilometerPace = []pace.Segment{}
	}
	return d, nil
}

func nonNilSamples(s []timeseries.Sample) []timeseries.Sample {
	if s == nil {
		return []timeseries.Sample{}
	}
	return s
}

func nonNilSegments(s []pace.Segment) []pace.Segment {
	if s == nil {
		return []pace.Segment{}
	}
	return s
}
