package feed

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/models"
)

func openTestStore(t *testing.T) (*deal.Store, *gorm.DB) {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return deal.NewStore(conn), conn
}

func publish(t *testing.T, store *deal.Store, title string, expiresAt time.Time) *models.Deal {
	t.Helper()
	row, errCreate := store.Create(context.Background(), 1, deal.Definition{
		Title:        title,
		TotalCoupons: 5,
		ExpiresAt:    expiresAt,
	})
	if errCreate != nil {
		t.Fatalf("create deal: %v", errCreate)
	}
	return row
}

func TestSnapshotEmptyUntilFirstRefresh(t *testing.T) {
	store, _ := openTestStore(t)
	r := NewRefresher(store)

	if _, ok := r.Snapshot(); ok {
		t.Fatalf("snapshot reported ready before any refresh")
	}

	r.RefreshOnce(context.Background())
	if _, ok := r.Snapshot(); !ok {
		t.Fatalf("snapshot not ready after refresh")
	}
}

func TestRefreshListsActiveDealsSoonestFirst(t *testing.T) {
	store, _ := openTestStore(t)
	now := time.Now().UTC()
	publish(t, store, "later", now.Add(3*time.Hour))
	publish(t, store, "sooner", now.Add(time.Hour))

	r := NewRefresher(store)
	r.RefreshOnce(context.Background())

	rows, ok := r.Snapshot()
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 cached deals, got %d (ready=%v)", len(rows), ok)
	}
	if rows[0].Title != "sooner" {
		t.Fatalf("expected soonest-expiring first, got %q", rows[0].Title)
	}
}

func TestRefreshKeepsNewerLocalWrite(t *testing.T) {
	store, _ := openTestStore(t)
	row := publish(t, store, "lunch", time.Now().UTC().Add(time.Hour))

	r := NewRefresher(store)
	r.RefreshOnce(context.Background())

	// A claim landed locally after the background fetch was read: the
	// cached copy is newer than what the next refresh returns.
	local := *row
	local.RemainingCoupons = 1
	local.UpdatedAt = time.Now().UTC().Add(time.Minute)
	r.ApplyLocal(local)

	r.RefreshOnce(context.Background())

	rows, _ := r.Snapshot()
	if len(rows) != 1 {
		t.Fatalf("expected 1 cached deal, got %d", len(rows))
	}
	if rows[0].RemainingCoupons != 1 {
		t.Fatalf("stale refresh overwrote newer local write: remaining %d", rows[0].RemainingCoupons)
	}
}

func TestApplyLocalDropsTerminalDeals(t *testing.T) {
	store, _ := openTestStore(t)
	row := publish(t, store, "lunch", time.Now().UTC().Add(time.Hour))

	r := NewRefresher(store)
	r.RefreshOnce(context.Background())

	canceled := *row
	canceled.Status = models.DealStatusCanceled
	canceled.UpdatedAt = time.Now().UTC().Add(time.Minute)
	r.ApplyLocal(canceled)

	rows, _ := r.Snapshot()
	if len(rows) != 0 {
		t.Fatalf("canceled deal still in feed")
	}
}

func TestRefreshDropsDealsMissingFromListing(t *testing.T) {
	store, conn := openTestStore(t)
	row := publish(t, store, "lunch", time.Now().UTC().Add(time.Hour))

	r := NewRefresher(store)
	r.RefreshOnce(context.Background())

	if errUpdate := conn.Model(&models.Deal{}).Where("id = ?", row.ID).
		UpdateColumn("status", models.DealStatusCanceled).Error; errUpdate != nil {
		t.Fatalf("cancel deal: %v", errUpdate)
	}
	r.RefreshOnce(context.Background())

	rows, _ := r.Snapshot()
	if len(rows) != 0 {
		t.Fatalf("withdrawn deal survived refresh")
	}
}
