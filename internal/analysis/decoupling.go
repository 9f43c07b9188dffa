package analysis

import "math"

// Sample is one point of a per-second activity stream.
type Sample struct {
	Velocity  float64 // m/s
	Heartrate float64 // bpm
}

// SamplesFromStreams pairs velocity and heart rate streams point by point.
// Points past the shorter stream, or with a non-finite value, are dropped.
func SamplesFromStreams(velocity, heartrate []float64) []Sample {
	n := min(len(velocity), len(heartrate))
	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		if !finite(velocity[i], heartrate[i]) {
			continue
		}
		samples = append(samples, Sample{Velocity: velocity[i], Heartrate: heartrate[i]})
	}
	return samples
}

// AnalyzeDecoupling calculates the pace:HR drift between first and second half
// Returns percentage - positive means second half was less efficient
// Odd-length series put the extra sample in the second half.
func AnalyzeDecoupling(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}

	mid := len(samples) / 2
	firstEF := SessionEF(samples[:mid])
	secondEF := SessionEF(samples[mid:])

	if firstEF == 0 {
		return 0
	}

	return round2((firstEF - secondEF) / firstEF * 100)
}

// SessionEF computes the efficiency factor from mean velocity and mean
// heart rate over samples.
func SessionEF(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var totalVelocity, totalHR float64
	for _, s := range samples {
		totalVelocity += s.Velocity
		totalHR += s.Heartrate
	}
	n := float64(len(samples))
	return EfficiencyFactor(totalVelocity/n*60, totalHR/n)
}

// AverageHR returns the mean heart rate over samples with a positive reading.
func AverageHR(samples []Sample) float64 {
	var total float64
	var count int
	for _, s := range samples {
		if s.Heartrate > 0 {
			total += s.Heartrate
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Round(total / float64(count))
}

// DecouplingBand describes aerobic durability from a decoupling percentage.
// Negative drift (a stronger second half) counts as durable.
func DecouplingBand(pct float64) string {
	switch {
	case pct < 5:
		return "durable"
	case pct < 10:
		return "some drift"
	default:
		return "significant drift"
	}
}
