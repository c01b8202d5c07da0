// Package reveal implements the ghost-deal reveal gate: a press-and-hold
// ritual that accumulates progress from 0 to 100 over a continuous hold
// and unlocks claiming once complete. Progress is non-sticky — releasing
// early resets to zero — but a full reveal stays valid per (user, deal)
// until its TTL lapses.
package reveal

import (
	"context"
	"time"

	"github.com/hotplate-app/hotplate/internal/settings"
)

// revealedTTL bounds how long a completed reveal stays claimable, so
// abandoned sessions don't pin state forever.
const revealedTTL = 30 * time.Minute

// holdTickTolerance is the longest gap between hold ticks still counted
// as one continuous hold. Clients tick every ~120ms; anything slower
// means the finger lifted.
const holdTickTolerance = 500 * time.Millisecond

// holdTickInterval is the cadence clients send hold ticks at while the
// finger stays down.
const holdTickInterval = 120 * time.Millisecond

// Progress reports the state of one reveal interaction.
type Progress struct {
	Percent  int  `json:"percent"`
	Revealed bool `json:"revealed"`
}

// Gate tracks reveal progress per (user, deal).
type Gate interface {
	// Hold registers one continuous-hold tick and returns updated progress.
	Hold(ctx context.Context, userID, dealID uint64) (Progress, error)
	// Release ends the hold; partial progress resets to zero.
	Release(ctx context.Context, userID, dealID uint64) error
	// Revealed reports whether the user has fully revealed the deal.
	Revealed(ctx context.Context, userID, dealID uint64) (bool, error)
}

// stepPercent derives the per-tick increment from the configured hold
// duration: a full hold spans RevealHold worth of ticks, each advancing
// an equal share of the 100 percent. The step setting is the fallback
// when the hold duration is unusable.
func stepPercent() int {
	if hold := settings.RevealHold(); hold > 0 {
		if ticks := int(hold / holdTickInterval); ticks > 0 {
			step := (100 + ticks - 1) / ticks
			if step <= 100 {
				return step
			}
		}
	}
	step := settings.RevealStepPercent()
	if step <= 0 || step > 100 {
		step = settings.DefaultRevealStepPercent
	}
	return step
}
