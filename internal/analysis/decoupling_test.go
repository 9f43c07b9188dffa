package analysis

import (
	"math"
	"testing"
)

func constantSamples(n int, velocity, hr float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Velocity: velocity, Heartrate: hr}
	}
	return samples
}

func TestAnalyzeDecoupling(t *testing.T) {
	tests := []struct {
		name     string
		samples  []Sample
		expected float64
	}{
		{
			name:     "empty series",
			samples:  nil,
			expected: 0,
		},
		{
			name:     "single sample",
			samples:  constantSamples(1, 3.0, 150),
			expected: 0,
		},
		{
			name:     "flat series",
			samples:  constantSamples(200, 3.0, 150),
			expected: 0,
		},
		{
			name: "positive decoupling - second half less efficient",
			samples: append(
				constantSamples(100, 3.0, 150),
				constantSamples(100, 2.7, 150)...,
			),
			// EF1 = 180/150 = 1.2, EF2 = 162/150 = 1.08
			// (1.2 - 1.08) / 1.2 * 100 = 10
			expected: 10,
		},
		{
			name: "negative decoupling - negative split",
			samples: append(
				constantSamples(100, 2.7, 150),
				constantSamples(100, 3.0, 150)...,
			),
			// EF1 = 1.08, EF2 = 1.2
			expected: -11.11,
		},
		{
			name: "odd length puts extra sample in second half",
			samples: []Sample{
				{Velocity: 3.0, Heartrate: 150},
				{Velocity: 2.7, Heartrate: 150},
				{Velocity: 2.7, Heartrate: 150},
			},
			expected: 10,
		},
		{
			name: "no HR in first half",
			samples: append(
				constantSamples(50, 3.0, 0),
				constantSamples(50, 3.0, 150)...,
			),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnalyzeDecoupling(tt.samples)
			if result != tt.expected {
				t.Errorf("AnalyzeDecoupling() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSamplesFromStreams(t *testing.T) {
	velocity := []float64{3.0, math.NaN(), 3.1, 3.2}
	heartrate := []float64{140, 141, 142}

	samples := SamplesFromStreams(velocity, heartrate)

	if len(samples) != 2 {
		t.Fatalf("SamplesFromStreams() returned %d samples, want 2", len(samples))
	}
	if samples[1].Velocity != 3.1 || samples[1].Heartrate != 142 {
		t.Errorf("samples[1] = %+v, want {3.1 142}", samples[1])
	}
}

func TestAverageHR(t *testing.T) {
	tests := []struct {
		name     string
		samples  []Sample
		expected float64
	}{
		{"empty", nil, 0},
		{"all zero", constantSamples(10, 3.0, 0), 0},
		{"ignores dropouts", []Sample{{3.0, 150}, {3.0, 0}, {3.0, 160}}, 155},
		{"rounds to whole beats", []Sample{{3.0, 150}, {3.0, 151}}, 151},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageHR(tt.samples); got != tt.expected {
				t.Errorf("AverageHR() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSessionEF(t *testing.T) {
	if got := SessionEF(nil); got != 0 {
		t.Errorf("SessionEF(nil) = %v, want 0", got)
	}
	// mean velocity 2.85 m/s = 171 m/min at 150 bpm
	samples := append(constantSamples(10, 3.0, 150), constantSamples(10, 2.7, 150)...)
	if got := SessionEF(samples); got != 1.14 {
		t.Errorf("SessionEF() = %v, want 1.14", got)
	}
}

func TestDecouplingBand(t *testing.T) {
	tests := []struct {
		pct      float64
		expected string
	}{
		{-11.11, "durable"},
		{0, "durable"},
		{4.99, "durable"},
		{5, "some drift"},
		{9.99, "some drift"},
		{10, "significant drift"},
		{25, "significant drift"},
	}

	for _, tt := range tests {
		if got := DecouplingBand(tt.pct); got != tt.expected {
			t.Errorf("DecouplingBand(%v) = %q, want %q", tt.pct, got, tt.expected)
		}
	}
}
