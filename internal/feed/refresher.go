// Package feed keeps a periodically refreshed snapshot of the public deal
// listing so the browse feed doesn't hit the database on every request.
//
// Reconciliation rule: last writer wins by UpdatedAt. A background
// refresh replaces a cached deal only when the fetched row is not older
// than the cached one, so a refresh that was in flight while a claim
// landed can never resurrect a stale remaining count.
package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/settings"
)

// Refresher maintains the feed cache.
type Refresher struct {
	store    *deal.Store
	interval func() time.Duration

	mu          sync.RWMutex
	deals       map[uint64]models.Deal
	refreshedAt time.Time
}

// NewRefresher constructs a feed refresher over the deal store.
func NewRefresher(store *deal.Store) *Refresher {
	return &Refresher{
		store:    store,
		interval: settings.FeedRefresh,
		deals:    make(map[uint64]models.Deal),
	}
}

// Start launches the refresh loop in a background goroutine.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	go r.run(ctx)
	log.Infof("feed refresher started (interval=%s)", r.interval())
}

func (r *Refresher) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		r.RefreshOnce(ctx)
		timer := time.NewTimer(r.interval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// RefreshOnce fetches the active listing and merges it into the cache.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	active := models.DealStatusActive
	fetched, errList := r.store.List(ctx, deal.Filter{Status: &active})
	if errList != nil {
		log.WithError(errList).Warn("feed refresh failed")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]struct{}, len(fetched))
	for _, row := range fetched {
		seen[row.ID] = struct{}{}
		cached, ok := r.deals[row.ID]
		if ok && row.UpdatedAt.Before(cached.UpdatedAt) {
			// The cached copy carries a newer local write; keep it.
			continue
		}
		r.deals[row.ID] = row
	}
	// Deals missing from the active listing have ended or been withdrawn.
	for id := range r.deals {
		if _, ok := seen[id]; !ok {
			delete(r.deals, id)
		}
	}
	r.refreshedAt = time.Now().UTC()
}

// ApplyLocal folds a just-written deal into the cache immediately, ahead
// of the next background refresh.
func (r *Refresher) ApplyLocal(row models.Deal) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.deals[row.ID]
	if ok && row.UpdatedAt.Before(cached.UpdatedAt) {
		return
	}
	if row.Status != models.DealStatusActive {
		delete(r.deals, row.ID)
		return
	}
	r.deals[row.ID] = row
}

// Snapshot returns the cached feed ordered soonest-expiring first, and
// whether the cache has been populated at all.
func (r *Refresher) Snapshot() ([]models.Deal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.refreshedAt.IsZero() {
		return nil, false
	}
	out := make([]models.Deal, 0, len(r.deals))
	for _, row := range r.deals {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out, true
}
