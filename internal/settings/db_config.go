// Package settings keeps an atomic in-memory snapshot of DB-backed
// runtime configuration (unlock radius, reveal timing, refresh cadence).
package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// dbConfigSnapshot holds the in-memory DB config values.
type dbConfigSnapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// globalDBConfig stores the latest dbConfigSnapshot atomically.
var globalDBConfig atomic.Value // stores dbConfigSnapshot

func init() {
	globalDBConfig.Store(dbConfigSnapshot{values: map[string]json.RawMessage{}})
}

// StoreDBConfig replaces the in-memory snapshot of DB-backed settings.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		copied := make([]byte, len(v))
		copy(copied, v)
		next[key] = copied
	}

	globalDBConfig.Store(dbConfigSnapshot{
		updatedAt: updatedAt.UTC(),
		values:    next,
	})
}

// DBConfigValue returns a copy of the raw config value for a key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	cfg := loadDBConfig()
	val, ok := cfg.values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	copied := make([]byte, len(val))
	copy(copied, val)
	return copied, true
}

// loadDBConfig returns the current snapshot with safe defaults.
func loadDBConfig() dbConfigSnapshot {
	v := globalDBConfig.Load()
	cfg, ok := v.(dbConfigSnapshot)
	if !ok || cfg.values == nil {
		return dbConfigSnapshot{values: map[string]json.RawMessage{}}
	}
	return cfg
}

// floatValue decodes a numeric setting, falling back when absent or bad.
func floatValue(key string, fallback float64) float64 {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var out float64
	if errDecode := json.Unmarshal(raw, &out); errDecode != nil || out <= 0 {
		return fallback
	}
	return out
}

// intValue decodes an integer setting, falling back when absent or bad.
func intValue(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var out int
	if errDecode := json.Unmarshal(raw, &out); errDecode != nil || out <= 0 {
		return fallback
	}
	return out
}

// ProximityRadiusMeters returns the configured redemption unlock radius.
func ProximityRadiusMeters() float64 {
	return floatValue(ProximityRadiusMetersKey, DefaultProximityRadiusMeters)
}

// RevealHold returns the configured ghost reveal hold duration.
func RevealHold() time.Duration {
	millis := intValue(RevealHoldMillisKey, DefaultRevealHoldMillis)
	return time.Duration(millis) * time.Millisecond
}

// RevealStepPercent returns progress added per continuous hold tick.
func RevealStepPercent() int {
	return intValue(RevealStepPercentKey, DefaultRevealStepPercent)
}

// FeedRefresh returns the feed cache refresh interval.
func FeedRefresh() time.Duration {
	seconds := intValue(FeedRefreshSecondsKey, DefaultFeedRefreshSeconds)
	return time.Duration(seconds) * time.Second
}

// EventsRetentionDays returns how long claim/use events are kept.
func EventsRetentionDays() int {
	return intValue(EventsRetentionDaysKey, DefaultEventsRetentionDays)
}
