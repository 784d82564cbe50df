package timeseries

// Sample is one reading of a metric, timed relative to the origin of its stream.
type Sample struct {
	SecondsSinceStart float64 `json:"secondsSinceStart"`
	Value             float64 `json:"value"`
}

// Bucket is one fixed-period slot of a CombinedProfile. A nil metric means the
// corresponding stream was empty.
type Bucket struct {
	SecondsSinceStart float64  `json:"secondsSinceStart"`
	HeartRate         *float64 `json:"heartRate"`
	Speed             *float64 `json:"speed"`
	Altitude          *float64 `json:"altitude"`
	Distance          *float64 `json:"distance"`
}

// CombinedProfile is the ordered sequence of buckets produced by Resample.
type CombinedProfile []Bucket

// Streams holds the four per-metric sample sequences of one workout.
type Streams struct {
	HeartRate []Sample `json:"heartRate"`
	Speed     []Sample `json:"speed"`
	Altitude  []Sample `json:"altitude"`
	Distance  []Sample `json:"distance"`
}

// Interpolate evaluates the line through a and b at time t.
func Interpolate(a, b Sample, t float64) float64 {
	dt := b.SecondsSinceStart - a.SecondsSinceStart
	if dt == 0 {
		return b.Value
	}
	return a.Value + (t-a.SecondsSinceStart)/dt*(b.Value-a.Value)
}

// Bounds returns the smallest and largest value of samples. ok is false for an
// empty slice.
func Bounds(samples []Sample) (lo, hi float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}
	lo, hi = samples[0].Value, samples[0].Value
	for _, s := range samples[1:] {
		if s.Value < lo {
			lo = s.Value
		}
		if s.Value > hi {
			hi = s.Value
		}
	}
	return lo, hi, true
}
