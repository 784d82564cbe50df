package zones

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Boris-Bot69/fitness-ios/internal/timeseries"
)

func ptr(v float64) *float64 { return &v }

func TestZoneBoundaryGoesToHigherZone(t *testing.T) {
	b := Boundaries{120, 140, 160, 180}

	require.Equal(t, 0, b.Zone(119.9))
	require.Equal(t, 1, b.Zone(120))
	require.Equal(t, 2, b.Zone(140))
	require.Equal(t, 3, b.Zone(160))
	require.Equal(t, 4, b.Zone(180))
	require.Equal(t, 4, b.Zone(230))
}

func TestClassifyCountsNullsOnlyInTotal(t *testing.T) {
	profile := timeseries.CombinedProfile{
		{HeartRate: ptr(100), Speed: ptr(8)},
		{HeartRate: ptr(120), Speed: ptr(10)},
		{HeartRate: nil, Speed: ptr(12)},
		{HeartRate: ptr(175)},
		{HeartRate: ptr(181)},
	}
	b := &Boundaries{120, 140, 160, 180}

	d := Classify(profile, MetricHeartRate, b)

	require.NotNil(t, d)
	require.Equal(t, Distribution{Total: 5, Zone0: 1, Zone1: 1, Zone3: 1, Zone4: 1}, *d)
	sum := 0
	for _, c := range d.Counts() {
		sum += c
	}
	require.Less(t, sum, d.Total)
}

func TestClassifyFullProfileSumsToTotal(t *testing.T) {
	profile := timeseries.CombinedProfile{{Speed: ptr(5)}, {Speed: ptr(9)}, {Speed: ptr(15)}}

	d := Classify(profile, MetricSpeed, &Boundaries{6, 8, 10, 12})

	require.Equal(t, 3, d.Total)
	require.Equal(t, 1, d.Zone0)
	require.Equal(t, 1, d.Zone2)
	require.Equal(t, 1, d.Zone4)
}

func TestClassifyWithoutBoundaries(t *testing.T) {
	require.Nil(t, Classify(timeseries.CombinedProfile{{HeartRate: ptr(1)}}, MetricHeartRate, nil))
}

func TestMainZoneFirstWins(t *testing.T) {
	d := Distribution{Total: 9, Zone1: 3, Zone2: 3, Zone4: 3}
	require.Equal(t, 1, d.Main())

	main := TrainingZones{HeartRate: &d}.MainHeartRateZone()
	require.NotNil(t, main)
	require.Equal(t, 1, *main)
	require.Nil(t, TrainingZones{}.MainHeartRateZone())
}

func TestBoundariesValidate(t *testing.T) {
	require.NoError(t, Boundaries{1, 2, 3, 4}.Validate())
	require.ErrorIs(t, Boundaries{1, 2, 2, 4}.Validate(), ErrInvalidBoundaries)

	_, err := ParseMetric("CADENCE")
	require.ErrorIs(t, err, ErrInvalidBoundaries)
	m, err := ParseMetric("SPEED")
	require.NoError(t, err)
	require.Equal(t, MetricSpeed, m)
}
