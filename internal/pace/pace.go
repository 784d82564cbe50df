// Package pace splits a combined profile into per-kilometre segments.
//
// The pace of a segment is its elapsed time over the cumulative distance at
// the point it closes: the crossed boundary for a completed segment, the last
// bucket's distance for the final one.
//
// A bucket that crosses several boundaries at once closes one segment per
// boundary, each taking its share of the bucket period, instead of folding
// them into a single segment.
package pace

import (
	"math"

	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
)

// UnitMeters is the distance covered by one segment.
const UnitMeters = 1000.0

// Segment summarizes one completed (or the final partial) distance unit.
type Segment struct {
	Index          int      `json:"kilometre"`
	Minutes        int      `json:"minutes"`
	Seconds        float64  `json:"seconds"`
	ElapsedSeconds float64  `json:"elapsedSeconds"`
	AvgHeartRate   *float64 `json:"avgHeartRate"`
	MaxHeartRate   *float64 `json:"maxHeartRate"`
	AvgSpeed       *float64 `json:"avgSpeed"`
	MaxSpeed       *float64 `json:"maxSpeed"`
}

// TotalSeconds is the pace in seconds per kilometre.
func (s Segment) TotalSeconds() float64 {
	return float64(s.Minutes)*60 + s.Seconds
}

// Result is the segment list with the fastest and slowest pace in seconds.
type Result struct {
	Segments []Segment `json:"kilometerPace"`
	Min      float64   `json:"paceMin"`
	Max      float64   `json:"paceMax"`
}

// Kilometer converts seconds spent over meters into minutes and seconds per
// kilometre.
func Kilometer(seconds, meters float64) (int, float64) {
	if meters <= 0 {
		return 0, 0
	}
	perKm := seconds / (meters / 1000)
	return int(math.Floor(perKm / 60)), math.Mod(perKm, 60)
}

type running struct {
	sum, max float64
	n        int
}

func (r *running) add(v *float64) {
	if v == nil {
		return
	}
	if r.n == 0 || *v > r.max {
		r.max = *v
	}
	r.sum += *v
	r.n++
}

func (r running) avg() *float64 {
	if r.n == 0 {
		return nil
	}
	v := r.sum / float64(r.n)
	return &v
}

func (r running) maximum() *float64 {
	if r.n == 0 {
		return nil
	}
	v := r.max
	return &v
}

type segmenter struct {
	period   float64
	elapsed  float64
	hr       running
	speed    running
	segments []Segment
}

// emit closes the current segment. cumulative is the total distance from the
// start of the profile to the end of the segment.
func (s *segmenter) emit(cumulative float64) {
	minutes, seconds := Kilometer(s.elapsed, cumulative)
	s.segments = append(s.segments, Segment{
		Index:          len(s.segments) + 1,
		Minutes:        minutes,
		Seconds:        seconds,
		ElapsedSeconds: s.elapsed,
		AvgHeartRate:   s.hr.avg(),
		MaxHeartRate:   s.hr.maximum(),
		AvgSpeed:       s.speed.avg(),
		MaxSpeed:       s.speed.maximum(),
	})
	s.elapsed = 0
	s.hr = running{}
	s.speed = running{}
}

// Split walks profile by cumulative distance with buckets of period seconds.
// A bucket that crosses a unit boundary has its period divided between the
// closing and the next segment in proportion to the distance on either side.
func Split(profile timeseries.CombinedProfile, period float64) Result {
	return SplitEvery(profile, period, UnitMeters)
}

// SplitEvery is Split with a custom segment length.
func SplitEvery(profile timeseries.CombinedProfile, period, unit float64) Result {
	if len(profile) == 0 || profile[0].Distance == nil || unit <= 0 {
		return Result{Segments: []Segment{}}
	}

	s := &segmenter{period: period}
	previous := 0.0
	boundary := unit

	for _, b := range profile {
		distance := previous
		if b.Distance != nil {
			distance = *b.Distance
		}

		if distance < boundary {
			s.elapsed += period
			s.hr.add(b.HeartRate)
			s.speed.add(b.Speed)
			previous = distance
			continue
		}

		// previous < boundary <= distance, so the span is positive.
		span := distance - previous
		from := previous
		for distance >= boundary {
			s.elapsed += period * (boundary - from) / span
			s.emit(boundary)
			from = boundary
			boundary += unit
		}
		s.elapsed += period * (distance - from) / span
		previous = distance
	}

	s.emit(previous)

	res := Result{Segments: s.segments}
	for i, seg := range s.segments {
		p := seg.TotalSeconds()
		if i == 0 || p < res.Min {
			res.Min = p
		}
		if i == 0 || p > res.Max {
			res.Max = p
		}
	}
	return res
}
