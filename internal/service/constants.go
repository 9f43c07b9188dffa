package service

const (
	// Manual sync presets
	DefaultSyncLimit = 3
	MonthSyncLimit   = 50
	MonthSyncDays    = 30

	// Strava caps per_page at 200
	MaxSyncLimit = 200

	// Scheduled harvest looks back a little further than the interval
	ScheduledHarvestLimit = 10
	ScheduledHarvestDays  = 3

	// Concurrent stream requests per harvest
	DefaultStreamWorkers = 4

	// Briefing
	BriefingRecentRuns = 5

	SecondsPerMinute = 60
	MetersPerKm      = 1000
)

// SyncPresetMonth is the sync argument for a month-long backfill
const SyncPresetMonth = "month"
