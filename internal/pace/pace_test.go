package pace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
)

func ptr(v float64) *float64 { return &v }

func distances(ds ...float64) timeseries.CombinedProfile {
	p := make(timeseries.CombinedProfile, len(ds))
	for i, d := range ds {
		p[i] = timeseries.Bucket{SecondsSinceStart: float64(i * 10), Distance: ptr(d)}
	}
	return p
}

func elapsedSum(segments []Segment) float64 {
	total := 0.0
	for _, s := range segments {
		total += s.ElapsedSeconds
	}
	return total
}

func TestSplitCrossingBucketIsDividedProportionally(t *testing.T) {
	res := Split(distances(950, 1050), 10)

	require.Len(t, res.Segments, 2)
	require.InDelta(t, 15.0, res.Segments[0].ElapsedSeconds, 1e-9)
	require.InDelta(t, 5.0, res.Segments[1].ElapsedSeconds, 1e-9)
	require.Equal(t, 1, res.Segments[0].Index)
	require.Equal(t, 2, res.Segments[1].Index)

	// 15 s over the first 1000 m, then 5 s over a cumulative 1050 m.
	require.Equal(t, 0, res.Segments[0].Minutes)
	require.InDelta(t, 15.0, res.Segments[0].Seconds, 1e-9)
	require.Equal(t, 0, res.Segments[1].Minutes)
	require.InDelta(t, 5/1.05, res.Segments[1].Seconds, 1e-9)

	require.InDelta(t, 5/1.05, res.Min, 1e-9)
	require.InDelta(t, 15.0, res.Max, 1e-9)
}

func TestSplitPaceUsesCumulativeDistance(t *testing.T) {
	res := Split(distances(500, 1000, 1500, 2000, 2500), 10)

	require.Len(t, res.Segments, 3)
	require.InDelta(t, 20.0, res.Segments[0].ElapsedSeconds, 1e-9)
	require.InDelta(t, 20.0, res.Segments[1].ElapsedSeconds, 1e-9)
	require.InDelta(t, 10.0, res.Segments[2].ElapsedSeconds, 1e-9)

	require.InDelta(t, 20.0, res.Segments[0].TotalSeconds(), 1e-9) // 20 s / 1 km
	require.InDelta(t, 10.0, res.Segments[1].TotalSeconds(), 1e-9) // 20 s / 2 km
	require.InDelta(t, 4.0, res.Segments[2].TotalSeconds(), 1e-9)  // 10 s / 2.5 km

	require.InDelta(t, 4.0, res.Min, 1e-9)
	require.InDelta(t, 20.0, res.Max, 1e-9)
}

func TestSplitEndingOnBoundaryKeepsRealPace(t *testing.T) {
	res := Split(distances(500, 1000, 1000), 10)

	require.Len(t, res.Segments, 2)
	last := res.Segments[1]
	require.InDelta(t, 10.0, last.ElapsedSeconds, 1e-9)
	require.InDelta(t, 10.0, last.TotalSeconds(), 1e-9)
	require.InDelta(t, 10.0, res.Min, 1e-9)
	require.InDelta(t, 20.0, res.Max, 1e-9)

	// A tiny remainder after the boundary must not inflate the slowest pace.
	res = Split(distances(500, 1000, 1000.5, 1000.5, 1000.5, 1000.5, 1000.5), 10)
	require.Len(t, res.Segments, 2)
	require.Less(t, res.Max, 60.0)
}

func TestSplitConservesTime(t *testing.T) {
	profile := distances(120, 380, 640, 910, 1180, 1420, 1700, 1990, 2260, 2530, 2780)

	res := Split(profile, 10)

	require.Len(t, res.Segments, 3)
	require.InDelta(t, float64(len(profile))*10, elapsedSum(res.Segments), 1e-9)
}

func TestSplitBucketCrossingSeveralUnits(t *testing.T) {
	res := Split(distances(500, 2500), 10)

	require.Len(t, res.Segments, 3)
	require.InDelta(t, 12.5, res.Segments[0].ElapsedSeconds, 1e-9)
	require.InDelta(t, 5.0, res.Segments[1].ElapsedSeconds, 1e-9)
	require.InDelta(t, 2.5, res.Segments[2].ElapsedSeconds, 1e-9)
	require.InDelta(t, 20.0, elapsedSum(res.Segments), 1e-9)

	require.InDelta(t, 12.5, res.Segments[0].TotalSeconds(), 1e-9)
	require.InDelta(t, 2.5, res.Segments[1].TotalSeconds(), 1e-9)
	require.InDelta(t, 1.0, res.Segments[2].TotalSeconds(), 1e-9)
}

func TestSplitAveragesAndMaxima(t *testing.T) {
	profile := timeseries.CombinedProfile{
		{Distance: ptr(100), HeartRate: ptr(100), Speed: ptr(10)},
		{Distance: ptr(600), HeartRate: ptr(120), Speed: ptr(12)},
		{Distance: ptr(1100), HeartRate: ptr(200), Speed: ptr(20)},
		{Distance: ptr(1500), HeartRate: ptr(140), Speed: ptr(14)},
	}

	res := Split(profile, 10)

	require.Len(t, res.Segments, 2)
	first, last := res.Segments[0], res.Segments[1]

	require.InDelta(t, 28.0, first.ElapsedSeconds, 1e-9)
	require.InDelta(t, 110.0, *first.AvgHeartRate, 1e-9)
	require.InDelta(t, 120.0, *first.MaxHeartRate, 1e-9)
	require.InDelta(t, 11.0, *first.AvgSpeed, 1e-9)
	require.InDelta(t, 12.0, *first.MaxSpeed, 1e-9)

	require.InDelta(t, 12.0, last.ElapsedSeconds, 1e-9)
	require.InDelta(t, 140.0, *last.AvgHeartRate, 1e-9)
	require.InDelta(t, 140.0, *last.MaxHeartRate, 1e-9)
	require.Equal(t, 0, last.Minutes)
	require.InDelta(t, 8.0, last.Seconds, 1e-9)
}

func TestSplitWithoutHeartRateLeavesNulls(t *testing.T) {
	res := Split(distances(200, 400), 10)

	require.Len(t, res.Segments, 1)
	require.Nil(t, res.Segments[0].AvgHeartRate)
	require.Nil(t, res.Segments[0].MaxHeartRate)
	require.Nil(t, res.Segments[0].AvgSpeed)
}

func TestSplitRequiresDistance(t *testing.T) {
	res := Split(timeseries.CombinedProfile{{HeartRate: ptr(120)}}, 10)
	require.Empty(t, res.Segments)
	require.Zero(t, res.Min)
	require.Zero(t, res.Max)

	res = Split(nil, 10)
	require.NotNil(t, res.Segments)
	require.Empty(t, res.Segments)
}

func TestKilometer(t *testing.T) {
	minutes, seconds := Kilometer(330, 1000)
	require.Equal(t, 5, minutes)
	require.InDelta(t, 30.0, seconds, 1e-9)

	minutes, seconds = Kilometer(100, 0)
	require.Zero(t, minutes)
	require.Zero(t, seconds)
}
