// Package expiry makes validity a pure function of stored timestamps and
// the current time. There is no background job; every read boundary calls
// into this package instead of trusting a persisted status field.
package expiry

import "time"

// IsExpired reports whether expiresAt has passed. The expiry instant
// itself counts as expired.
func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// Breakdown is the remaining time rendered for countdown display.
type Breakdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Expired bool `json:"expired"`
}

// Remaining returns the duration until expiresAt broken into days, hours,
// and minutes. Once expired the breakdown is zeroed with Expired set, so
// callers never render a negative countdown.
func Remaining(expiresAt, now time.Time) Breakdown {
	if IsExpired(expiresAt, now) {
		return Breakdown{Expired: true}
	}
	left := expiresAt.Sub(now)
	return Breakdown{
		Days:    int(left.Hours()) / 24,
		Hours:   int(left.Hours()) % 24,
		Minutes: int(left.Minutes()) % 60,
	}
}
