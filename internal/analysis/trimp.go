package analysis

import "math"

// Heart rates assumed when the athlete profile leaves them unset.
const (
	DefaultMaxHR  = 185
	DefaultRestHR = 55
)

// Intensity bands for a single session's TRIMP.
const (
	highIntensityTRIMP   = 120
	mediumIntensityTRIMP = 70
)

// Intensity labels a session by its TRIMP.
type Intensity string

const (
	IntensityHigh   Intensity = "High"
	IntensityMedium Intensity = "Medium"
	IntensityEasy   Intensity = "Easy/Recovery"
	IntensityNoData Intensity = "No Data"
	IntensityError  Intensity = "Error"
)

// HRProfile is the athlete's heart rate reserve range.
type HRProfile struct {
	MaxHR  float64
	RestHR float64
}

// DefaultProfile returns the profile used when none is configured.
func DefaultProfile() HRProfile {
	return HRProfile{
		MaxHR:  DefaultMaxHR,
		RestHR: DefaultRestHR,
	}
}

// TRIMPResult is a session load score and its intensity band.
type TRIMPResult struct {
	TRIMP     float64
	Intensity Intensity
}

// ComputeTRIMP calculates Training Impulse (Banister model)
// TRIMP = duration (min) * hrr * 0.64 * e^(1.92 * hrr)
// where hrr is the heart rate reserve fraction, floored at zero.
// Missing duration or heart rate yields "No Data"; unusable input yields "Error".
func ComputeTRIMP(durationMin, avgHR float64, profile HRProfile) TRIMPResult {
	if avgHR == 0 || durationMin == 0 {
		return TRIMPResult{Intensity: IntensityNoData}
	}
	if !finite(durationMin, avgHR, profile.MaxHR, profile.RestHR) ||
		durationMin < 0 || avgHR < 0 {
		return TRIMPResult{Intensity: IntensityError}
	}

	reserve := profile.MaxHR - profile.RestHR
	if reserve <= 0 {
		return TRIMPResult{Intensity: IntensityError}
	}

	hrr := math.Max(0, (avgHR-profile.RestHR)/reserve)
	weight := 0.64 * math.Exp(1.92*hrr)

	trimp := round2(durationMin * hrr * weight)
	if !finite(trimp) {
		return TRIMPResult{Intensity: IntensityError}
	}

	return TRIMPResult{TRIMP: trimp, Intensity: classifyIntensity(trimp)}
}

func classifyIntensity(trimp float64) Intensity {
	switch {
	case trimp > highIntensityTRIMP:
		return IntensityHigh
	case trimp > mediumIntensityTRIMP:
		return IntensityMedium
	default:
		return IntensityEasy
	}
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
