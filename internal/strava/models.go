package strava

import (
	"time"

	"runcoach/internal/analysis"
)

// Activity represents a Strava activity summary from the API
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	AverageHeartrate   float64   `json:"average_heartrate"`    // bpm
	MaxHeartrate       float64   `json:"max_heartrate"`        // bpm
	SufferScore        *int      `json:"suffer_score"`
	HasHeartrate       bool      `json:"has_heartrate"`
}

// runTypes are the activity types treated as running sessions
var runTypes = map[string]bool{
	"Run":        true,
	"TrailRun":   true,
	"VirtualRun": true,
}

// IsRun reports whether the activity is a running session.
func (a Activity) IsRun() bool {
	return runTypes[a.Type] || runTypes[a.SportType]
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time           *StreamData[int]     `json:"time"`
	VelocitySmooth *StreamData[float64] `json:"velocity_smooth"`
	Heartrate      *StreamData[int]     `json:"heartrate"`
	GradeSmooth    *StreamData[float64] `json:"grade_smooth"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// HasHeartrate returns true if heartrate data exists
func (s *Streams) HasHeartrate() bool {
	return s != nil && s.Heartrate != nil && len(s.Heartrate.Data) > 0
}

// Samples pairs velocity and heart rate for analysis. With adjustForGrade
// and a matching grade stream, velocity is grade adjusted.
func (s *Streams) Samples(adjustForGrade bool) []analysis.Sample {
	if !s.HasHeartrate() || s.VelocitySmooth == nil {
		return nil
	}

	velocity := make([]float64, len(s.VelocitySmooth.Data))
	copy(velocity, s.VelocitySmooth.Data)
	if adjustForGrade && s.GradeSmooth != nil && len(s.GradeSmooth.Data) == len(velocity) {
		for i, g := range s.GradeSmooth.Data {
			velocity[i] = analysis.GradeAdjustedVelocity(velocity[i], g)
		}
	}

	heartrate := make([]float64, len(s.Heartrate.Data))
	for i, hr := range s.Heartrate.Data {
		heartrate[i] = float64(hr)
	}
	return analysis.SamplesFromStreams(velocity, heartrate)
}

// AthleteStats holds running totals from /athletes/{id}/stats
type AthleteStats struct {
	RecentRunTotals Totals `json:"recent_run_totals"` // last 4 weeks
	YTDRunTotals    Totals `json:"ytd_run_totals"`
	AllRunTotals    Totals `json:"all_run_totals"`
}

// Totals is an aggregate of activities
type Totals struct {
	Count         int     `json:"count"`
	Distance      float64 `json:"distance"`    // meters
	MovingTime    int     `json:"moving_time"` // seconds
	ElevationGain float64 `json:"elevation_gain"`
}
