package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2021, 6, 7, 18, 0, 0, 0, time.UTC)

func samples(pairs ...float64) []Sample {
	out := make([]Sample, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Sample{SecondsSinceStart: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestBucketCountDropsTrailingBucket(t *testing.T) {
	require.Equal(t, 3, BucketCount(t0, t0.Add(20*time.Second), 5))
	require.Equal(t, 3, BucketCount(t0, t0.Add(19*time.Second), 5))
	require.Equal(t, 0, BucketCount(t0, t0.Add(5*time.Second), 5))
	require.Equal(t, 0, BucketCount(t0, t0, 5))
	require.Equal(t, 0, BucketCount(t0, t0.Add(time.Minute), 0))
}

func TestBucketCountIgnoresFractionalSeconds(t *testing.T) {
	require.Equal(t, 1, BucketCount(t0, t0.Add(20500*time.Millisecond), 10))
	require.Equal(t, 2, BucketCount(t0, t0.Add(21*time.Second), 10))
	require.Equal(t, 0, BucketCount(t0, t0.Add(999*time.Millisecond), 1))
}

func TestResampleDistanceScenario(t *testing.T) {
	streams := Streams{Distance: samples(0, 0, 5, 400, 10, 900, 15, 1500)}

	profile := Resample(streams, t0, t0.Add(20*time.Second), 5)

	require.Len(t, profile, 3)
	require.NotNil(t, profile[2].Distance)
	require.Equal(t, 10.0, profile[2].SecondsSinceStart)
	require.Equal(t, 900.0, *profile[2].Distance)
	require.Nil(t, profile[0].HeartRate)
	require.Nil(t, profile[0].Speed)
	require.Nil(t, profile[0].Altitude)

	require.InDelta(t, 1140.0, Interpolate(streams.Distance[2], streams.Distance[3], 12), 1e-9)
}

func TestResampleAveragesSamplesInsideBucket(t *testing.T) {
	streams := Streams{HeartRate: samples(1, 100, 4, 110, 7, 120, 12, 130)}

	profile := Resample(streams, t0, t0.Add(30*time.Second), 10)

	require.Len(t, profile, 2)
	require.InDelta(t, 110.0, *profile[0].HeartRate, 1e-9)
	require.InDelta(t, 130.0, *profile[1].HeartRate, 1e-9)
}

func TestResampleInterpolatesAcrossGap(t *testing.T) {
	// nothing inside [10,20): value at 10 between (5,100) and (25,140)
	streams := Streams{Speed: samples(5, 100, 25, 140)}

	profile := Resample(streams, t0, t0.Add(40*time.Second), 10)

	require.Len(t, profile, 3)
	require.InDelta(t, 100.0, *profile[0].Speed, 1e-9)
	require.InDelta(t, 110.0, *profile[1].Speed, 1e-9)
	require.InDelta(t, 140.0, *profile[2].Speed, 1e-9)
}

func TestResampleInterpolatesFromZeroWhenNothingPrecedes(t *testing.T) {
	streams := Streams{Altitude: samples(20, 40)}

	profile := Resample(streams, t0, t0.Add(40*time.Second), 10)

	require.Len(t, profile, 3)
	require.InDelta(t, 0.0, *profile[0].Altitude, 1e-9)
	require.InDelta(t, 20.0, *profile[1].Altitude, 1e-9)
	require.InDelta(t, 40.0, *profile[2].Altitude, 1e-9)
}

func TestResampleSampleOnUpperBoundIsNotSkipped(t *testing.T) {
	streams := Streams{HeartRate: samples(0, 100, 10, 120)}

	profile := Resample(streams, t0, t0.Add(30*time.Second), 10)

	require.Len(t, profile, 2)
	require.InDelta(t, 100.0, *profile[0].HeartRate, 1e-9)
	require.InDelta(t, 120.0, *profile[1].HeartRate, 1e-9)
}

func TestResampleHoldsLastValueAfterStreamEnds(t *testing.T) {
	streams := Streams{HeartRate: samples(0, 90, 3, 95)}

	profile := Resample(streams, t0, t0.Add(50*time.Second), 10)

	require.Len(t, profile, 4)
	for _, b := range profile[1:] {
		require.InDelta(t, 95.0, *b.HeartRate, 1e-9)
	}
}

func TestResampleShiftsOriginToFirstDistanceSample(t *testing.T) {
	streams := Streams{
		Distance:  samples(4, 10, 14, 50, 24, 90),
		HeartRate: samples(0, 80, 5, 100, 15, 120),
	}

	profile := Resample(streams, t0, t0.Add(40*time.Second), 10)

	require.Len(t, profile, 3)
	require.Equal(t, 0.0, profile[0].SecondsSinceStart)
	require.Equal(t, 10.0, profile[1].SecondsSinceStart)
	// first bucket covers [4,14)
	require.InDelta(t, 10.0, *profile[0].Distance, 1e-9)
	require.InDelta(t, 100.0, *profile[0].HeartRate, 1e-9)
}

func TestResampleKeepsOriginWhenFirstDistanceIsLarge(t *testing.T) {
	streams := Streams{Distance: samples(4, 250, 14, 300)}

	profile := Resample(streams, t0, t0.Add(30*time.Second), 10)

	require.Len(t, profile, 2)
	require.Equal(t, 0.0, profile[0].SecondsSinceStart)
	// [0,10) only has the sample at 4
	require.InDelta(t, 250.0, *profile[0].Distance, 1e-9)
}

func TestCursorNeverRewinds(t *testing.T) {
	c := newCursor(samples(0, 1, 2, 2, 2, 3, 9, 4, 9, 5, 21, 6, 35, 7))
	last := 0
	for lower := 0.0; lower < 60; lower += 5 {
		c.next(lower, lower+5)
		require.GreaterOrEqual(t, c.pos, last)
		last = c.pos
	}
	require.Equal(t, len(c.samples), c.pos)
}

func TestResampleStaysWithinStreamRange(t *testing.T) {
	hr := samples(0, 120, 3, 131, 7, 118, 14, 142, 22, 150, 31, 139, 44, 160, 58, 155)
	lo, hi, ok := Bounds(hr)
	require.True(t, ok)

	profile := Resample(Streams{HeartRate: hr}, t0, t0.Add(90*time.Second), 10)

	for _, b := range profile {
		require.NotNil(t, b.HeartRate)
		require.GreaterOrEqual(t, *b.HeartRate, lo)
		require.LessOrEqual(t, *b.HeartRate, hi)
	}
}

func TestInterpolateSameTimestamp(t *testing.T) {
	require.Equal(t, 7.0, Interpolate(Sample{SecondsSinceStart: 3, Value: 1}, Sample{SecondsSinceStart: 3, Value: 7}, 3))
}
