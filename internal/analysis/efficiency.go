package analysis

// EfficiencyFactor calculates pace:HR efficiency
// EF = (speed in m/min) / (average HR), rounded to 2 decimals
// Higher is better - you're running faster for the same HR
// Typical values range from 1.0 to 2.0
func EfficiencyFactor(speedMPerMin, avgHR float64) float64 {
	if avgHR == 0 || !finite(speedMPerMin, avgHR) {
		return 0
	}
	return round2(speedMPerMin / avgHR)
}

// SpeedMPerMin converts a session's distance and moving time to metres per minute.
func SpeedMPerMin(distanceKm, movingTimeMin float64) float64 {
	if movingTimeMin <= 0 {
		return 0
	}
	return distanceKm * 1000 / movingTimeMin
}

// GradeAdjustedVelocity estimates the flat-ground equivalent of a velocity
// run on a gradient. Each percent of grade is worth 4.5% of speed.
func GradeAdjustedVelocity(velocity, gradePct float64) float64 {
	return velocity * (1 + gradePct*0.045)
}

// PaceMinPerKm converts a velocity in m/s to minutes per kilometre.
func PaceMinPerKm(velocity float64) float64 {
	if velocity <= 0 {
		return 0
	}
	return (1000 / velocity) / 60
}
