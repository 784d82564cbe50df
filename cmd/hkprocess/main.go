// Command hkprocess runs the workout pipeline over a HealthKit JSON export
// and prints the derived artifacts. It needs neither a database nor a server.
//
//	hkprocess -hr-zones 120,140,160,175 workout.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Boris-Bot69/fitness-ios/internal/healthkit"
	"github.com/Boris-Bot69/fitness-ios/internal/pace"
	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
	"github.com/Boris-Bot69/fitness-ios/internal/workouts"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
)

type output struct {
	healthkit.QuickFacts
	healthkit.Overview
	TerrainUp       float64                    `json:"terrainUp"`
	TerrainDown     float64                    `json:"terrainDown"`
	SampleRate      float64                    `json:"sampleRate"`
	TrainingZones   zones.TrainingZones        `json:"trainingZones"`
	KilometerPace   []pace.Segment             `json:"kilometerPace"`
	PaceMin         float64                    `json:"paceMin"`
	PaceMax         float64                    `json:"paceMax"`
	CombinedProfile timeseries.CombinedProfile `json:"combinedProfile,omitempty"`
}

func main() {
	period := flag.Float64("period", timeseries.DefaultPeriodSeconds, "bucket period in seconds")
	unit := flag.Float64("unit", pace.UnitMeters, "pace segment length in meters")
	hrZones := flag.String("hr-zones", "", "heart rate zone upper bounds, 4 comma separated values")
	speedZones := flag.String("speed-zones", "", "speed zone upper bounds in km/h, 4 comma separated values")
	withProfile := flag.Bool("profile", false, "include the combined profile")
	verbose := flag.Bool("v", false, "log skipped samples to stderr")
	flag.Parse()

	raw, err := readInput(flag.Arg(0))
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var bounds workouts.ZoneBounds
	if bounds.HeartRate, err = parseBounds(*hrZones); err != nil {
		log.Fatalf("-hr-zones: %v", err)
	}
	if bounds.Speed, err = parseBounds(*speedZones); err != nil {
		log.Fatalf("-speed-zones: %v", err)
	}

	var logger *slog.Logger
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	pipeline := workouts.NewPipeline(logger, *period, *unit)
	ext, err := pipeline.Extract(raw)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}
	d := pipeline.Derive(ext, bounds)

	out := output{
		QuickFacts:    d.QuickFacts,
		Overview:      d.Overview,
		TerrainUp:     d.TerrainUp,
		TerrainDown:   d.TerrainDown,
		SampleRate:    d.Period,
		TrainingZones: d.TrainingZones,
		KilometerPace: d.Pace.Segments,
		PaceMin:       d.Pace.Min,
		PaceMax:       d.Pace.Max,
	}
	if *withProfile {
		out.CombinedProfile = d.Profile
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parseBounds(s string) (*zones.Boundaries, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 values, got %d", len(parts))
	}
	var b zones.Boundaries
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		b[i] = v
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
