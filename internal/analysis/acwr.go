package analysis

// ACWR band edges, applied to the rounded ratio.
const (
	underTrainingRatio = 0.8
	overreachingRatio  = 1.3
	dangerRatio        = 1.5
)

// ACWRStatus classifies an acute:chronic workload ratio.
type ACWRStatus string

const (
	StatusNoChronicData ACWRStatus = "No Chronic Data"
	StatusUnderTraining ACWRStatus = "Under-training"
	StatusSweetSpot     ACWRStatus = "Sweet Spot (Optimal)"
	StatusOverreaching  ACWRStatus = "Overreaching (Caution)"
	StatusDanger        ACWRStatus = "Danger Zone (High Injury Risk)"
)

// ACWRResult is the ratio of 7-day load to average weekly 28-day load.
type ACWRResult struct {
	Ratio  float64
	Status ACWRStatus
}

// ACWR computes the Acute:Chronic Workload Ratio.
// Without chronic load there is nothing to compare against, which is
// reported as its own status rather than as a ratio.
func ACWR(acuteLoad7d, chronicLoad28d float64) ACWRResult {
	if !finite(acuteLoad7d, chronicLoad28d) {
		return ACWRResult{Status: StatusNoChronicData}
	}

	weeklyChronic := chronicLoad28d / 4
	if chronicLoad28d == 0 || weeklyChronic == 0 {
		return ACWRResult{Status: StatusNoChronicData}
	}

	ratio := round2(acuteLoad7d / weeklyChronic)

	var status ACWRStatus
	switch {
	case ratio < underTrainingRatio:
		status = StatusUnderTraining
	case ratio > dangerRatio:
		status = StatusDanger
	case ratio > overreachingRatio:
		status = StatusOverreaching
	default:
		status = StatusSweetSpot
	}

	return ACWRResult{Ratio: ratio, Status: status}
}
