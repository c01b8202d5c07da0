package settings

// DB config keys and defaults for runtime-tunable marketplace settings.
const (
	// ProximityRadiusMetersKey controls the redemption unlock radius.
	ProximityRadiusMetersKey = "PROXIMITY_RADIUS_METERS"
	// RevealHoldMillisKey controls the ghost reveal hold duration.
	RevealHoldMillisKey = "REVEAL_HOLD_MILLIS"
	// RevealStepPercentKey controls reveal progress added per hold tick.
	RevealStepPercentKey = "REVEAL_STEP_PERCENT"
	// FeedRefreshSecondsKey controls the feed cache refresh interval.
	FeedRefreshSecondsKey = "FEED_REFRESH_SECONDS"
	// EventsRetentionDaysKey controls how long claim/use events are kept.
	EventsRetentionDaysKey = "EVENTS_RETENTION_DAYS"

	// DefaultProximityRadiusMeters is the fallback unlock radius.
	DefaultProximityRadiusMeters = 100.0
	// DefaultRevealHoldMillis is the fallback hold duration.
	DefaultRevealHoldMillis = 1200
	// DefaultRevealStepPercent is the fallback progress per tick.
	DefaultRevealStepPercent = 10
	// DefaultFeedRefreshSeconds is the fallback refresh interval.
	DefaultFeedRefreshSeconds = 30
	// DefaultEventsRetentionDays is the fallback event retention window.
	DefaultEventsRetentionDays = 90
)
