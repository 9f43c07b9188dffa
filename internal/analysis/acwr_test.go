package analysis

import "testing"

func TestACWR(t *testing.T) {
	tests := []struct {
		name    string
		acute   float64
		chronic float64
		ratio   float64
		status  ACWRStatus
	}{
		{"no history", 0, 0, 0, StatusNoChronicData},
		{"acute only", 50, 0, 0, StatusNoChronicData},
		{"steady load", 7, 28, 1.0, StatusSweetSpot},
		{"rest week", 0, 28, 0, StatusUnderTraining},
		{"just under 0.8", 7.9, 40, 0.79, StatusUnderTraining},
		{"exactly 0.8", 8, 40, 0.8, StatusSweetSpot},
		{"exactly 1.3", 13, 40, 1.3, StatusSweetSpot},
		{"just over 1.3", 13.1, 40, 1.31, StatusOverreaching},
		{"exactly 1.5", 15, 40, 1.5, StatusOverreaching},
		{"just over 1.5", 15.1, 40, 1.51, StatusDanger},
		{"spike", 400, 400, 4.0, StatusDanger},
		{"rounds before banding", 8.0, 40.1, 0.8, StatusSweetSpot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ACWR(tt.acute, tt.chronic)
			if result.Ratio != tt.ratio {
				t.Errorf("ACWR(%v, %v).Ratio = %v, want %v", tt.acute, tt.chronic, result.Ratio, tt.ratio)
			}
			if result.Status != tt.status {
				t.Errorf("ACWR(%v, %v).Status = %q, want %q", tt.acute, tt.chronic, result.Status, tt.status)
			}
		})
	}
}
