package timeseries

import (
	"math"
	"time"
)

// DistanceOriginThreshold is the distance below which the first distance
// sample is taken as the start of motion.
const DistanceOriginThreshold = 200.0

// DefaultPeriodSeconds is the bucket period used for stored derivations.
const DefaultPeriodSeconds = 10.0

// BucketCount returns ceil(span/period) - 1 with span in whole seconds; the
// trailing partial bucket is dropped.
func BucketCount(start, end time.Time, period float64) int {
	if period <= 0 {
		return 0
	}
	span := end.Sub(start).Truncate(time.Second).Seconds()
	n := int(math.Ceil(span/period)) - 1
	if n < 0 {
		return 0
	}
	return n
}

// TimeOrigin returns the offset that becomes second zero of the profile.
func TimeOrigin(distance []Sample) float64 {
	if len(distance) > 0 && distance[0].Value < DistanceOriginThreshold {
		return distance[0].SecondsSinceStart
	}
	return 0
}

// Resample merges the four streams onto a fixed grid of period seconds
// spanning start..end. Each stream is read through its own cursor, which
// only moves forward, so the whole run is linear in the stream lengths.
func Resample(streams Streams, start, end time.Time, period float64) CombinedProfile {
	total := BucketCount(start, end, period)
	profile := make(CombinedProfile, 0, total)

	origin := TimeOrigin(streams.Distance)
	hr := newCursor(streams.HeartRate)
	speed := newCursor(streams.Speed)
	altitude := newCursor(streams.Altitude)
	distance := newCursor(streams.Distance)

	lower := origin
	for i := 0; i < total; i++ {
		upper := lower + period
		profile = append(profile, Bucket{
			SecondsSinceStart: lower - origin,
			HeartRate:         hr.next(lower, upper),
			Speed:             speed.next(lower, upper),
			Altitude:          altitude.next(lower, upper),
			Distance:          distance.next(lower, upper),
		})
		lower = upper
	}
	return profile
}

// cursor is a read pointer into one stream.
type cursor struct {
	samples []Sample
	pos     int
}

func newCursor(samples []Sample) *cursor {
	return &cursor{samples: samples}
}

// next returns the value of the stream for [lower, upper) and moves the
// pointer forward:
//   - samples inside the interval are averaged and consumed;
//   - a sample at or past upper, met before any inside sample, is
//     interpolated against its predecessor at lower and left unconsumed;
//   - past the end of the stream the last value is held.
func (c *cursor) next(lower, upper float64) *float64 {
	if len(c.samples) == 0 {
		return nil
	}

	for i := c.pos; i < len(c.samples); i++ {
		t := c.samples[i].SecondsSinceStart
		if t < lower {
			continue
		}
		if t >= upper {
			c.pos = i
			v := Interpolate(c.before(i), c.samples[i], lower)
			return &v
		}

		sum, n := 0.0, 0
		j := i
		for ; j < len(c.samples); j++ {
			s := c.samples[j]
			if s.SecondsSinceStart < lower || s.SecondsSinceStart >= upper {
				break
			}
			sum += s.Value
			n++
		}
		c.pos = j
		v := sum / float64(n)
		return &v
	}

	c.pos = len(c.samples)
	v := c.samples[len(c.samples)-1].Value
	return &v
}

// before returns the sample preceding index i, or a zero sample at time 0.
func (c *cursor) before(i int) Sample {
	if i == 0 {
		return Sample{}
	}
	return c.samples[i-1]
}
