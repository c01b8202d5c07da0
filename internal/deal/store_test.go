package deal

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/models"
)

func openTestStore(t *testing.T) *Store {
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
	return NewStore(conn)
}

func testDefinition(expiresAt time.Time) Definition {
	return Definition{
		Title:        "Lunch set 50% off",
		TotalCoupons: 10,
		ExpiresAt:    expiresAt,
	}
}

func TestCreateValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	cases := []struct {
		name string
		def  Definition
	}{
		{"empty title", Definition{Title: "  ", TotalCoupons: 1, ExpiresAt: future}},
		{"negative total", Definition{Title: "x", TotalCoupons: -1, ExpiresAt: future}},
		{"past expiry", Definition{Title: "x", TotalCoupons: 1, ExpiresAt: time.Now().UTC().Add(-time.Minute)}},
		{"negative price", Definition{Title: "x", TotalCoupons: 1, ExpiresAt: future, OriginalPrice: -1}},
		{"unknown benefit", Definition{Title: "x", TotalCoupons: 1, ExpiresAt: future, BenefitType: "BOGUS"}},
	}
	for _, tc := range cases {
		if _, errCreate := store.Create(ctx, 1, tc.def); !apperr.IsKind(errCreate, apperr.KindValidation) {
			t.Fatalf("%s: expected VALIDATION, got %v", tc.name, errCreate)
		}
	}
}

func TestCreateStartsActiveWithFullInventory(t *testing.T) {
	store := openTestStore(t)

	row, errCreate := store.Create(context.Background(), 1, testDefinition(time.Now().UTC().Add(time.Hour)))
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if row.Status != models.DealStatusActive {
		t.Fatalf("expected ACTIVE, got %s", row.Status)
	}
	if row.RemainingCoupons != row.TotalCoupons || row.RemainingCoupons != 10 {
		t.Fatalf("expected remaining == total == 10, got %d/%d", row.RemainingCoupons, row.TotalCoupons)
	}
}

func TestListExcludesGhostsByDefault(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	def := testDefinition(future)
	if _, errCreate := store.Create(ctx, 1, def); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	def.IsGhost = true
	def.Title = "Mystery benefit"
	if _, errCreate := store.Create(ctx, 1, def); errCreate != nil {
		t.Fatalf("create ghost: %v", errCreate)
	}

	rows, errList := store.List(ctx, Filter{})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 1 || rows[0].IsGhost {
		t.Fatalf("expected 1 non-ghost deal, got %d", len(rows))
	}

	rows, errList = store.List(ctx, Filter{IncludeGhosts: true})
	if errList != nil {
		t.Fatalf("list with ghosts: %v", errList)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 deals with ghosts, got %d", len(rows))
	}
}

func TestListOrdersSoonestExpiringFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		if _, errCreate := store.Create(ctx, 1, testDefinition(now.Add(offset))); errCreate != nil {
			t.Fatalf("create: %v", errCreate)
		}
	}

	rows, errList := store.List(ctx, Filter{})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].ExpiresAt.Before(rows[i-1].ExpiresAt) {
			t.Fatalf("listing not ordered by expiry: %v after %v", rows[i].ExpiresAt, rows[i-1].ExpiresAt)
		}
	}
}

func TestListReconcilesExpiredStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	row, errCreate := store.Create(ctx, 1, testDefinition(now.Add(time.Hour)))
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	store.now = func() time.Time { return now.Add(2 * time.Hour) }

	active := models.DealStatusActive
	rows, errList := store.List(ctx, Filter{Status: &active})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 0 {
		t.Fatalf("expired deal still listed as ACTIVE")
	}

	reloaded, errGet := store.Get(ctx, row.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if reloaded.Status != models.DealStatusEnded {
		t.Fatalf("expected persisted ENDED, got %s", reloaded.Status)
	}
}

func TestAddQuantityRaisesBothCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	row, errCreate := store.Create(ctx, 1, testDefinition(time.Now().UTC().Add(time.Hour)))
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	if errAdd := store.AddQuantity(ctx, 1, row.ID, 5); errAdd != nil {
		t.Fatalf("add quantity: %v", errAdd)
	}
	reloaded, errGet := store.Get(ctx, row.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if reloaded.TotalCoupons != 15 || reloaded.RemainingCoupons != 15 {
		t.Fatalf("expected 15/15 after restock, got %d/%d", reloaded.RemainingCoupons, reloaded.TotalCoupons)
	}

	if errAdd := store.AddQuantity(ctx, 1, row.ID, 0); !apperr.IsKind(errAdd, apperr.KindValidation) {
		t.Fatalf("expected VALIDATION for zero add, got %v", errAdd)
	}
	if errAdd := store.AddQuantity(ctx, 2, row.ID, 1); !apperr.IsKind(errAdd, apperr.KindNotFound) {
		t.Fatalf("expected NOT_FOUND for wrong merchant, got %v", errAdd)
	}
}

func TestCopyCreatesFreshActiveDeal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	src, errCreate := store.Create(ctx, 1, testDefinition(time.Now().UTC().Add(time.Hour)))
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	canceled := models.DealStatusCanceled
	if errUpdate := store.Update(ctx, 1, src.ID, Update{Status: &canceled}); errUpdate != nil {
		t.Fatalf("cancel: %v", errUpdate)
	}

	copyExpiry := time.Now().UTC().Add(48 * time.Hour)
	dup, errCopy := store.Copy(ctx, 1, src.ID, copyExpiry)
	if errCopy != nil {
		t.Fatalf("copy: %v", errCopy)
	}
	if dup.ID == src.ID {
		t.Fatalf("copy reused the source id")
	}
	if dup.Status != models.DealStatusActive {
		t.Fatalf("expected copy to start ACTIVE, got %s", dup.Status)
	}
	if dup.RemainingCoupons != src.TotalCoupons {
		t.Fatalf("expected fresh inventory %d, got %d", src.TotalCoupons, dup.RemainingCoupons)
	}

	if _, errCopy := store.Copy(ctx, 2, src.ID, copyExpiry); !apperr.IsKind(errCopy, apperr.KindNotFound) {
		t.Fatalf("expected NOT_FOUND copying another merchant's deal, got %v", errCopy)
	}
}

func TestUpdateTerminalDealRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	row, errCreate := store.Create(ctx, 1, testDefinition(time.Now().UTC().Add(time.Hour)))
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	canceled := models.DealStatusCanceled
	if errUpdate := store.Update(ctx, 1, row.ID, Update{Status: &canceled}); errUpdate != nil {
		t.Fatalf("cancel: %v", errUpdate)
	}

	title := "new title"
	if errUpdate := store.Update(ctx, 1, row.ID, Update{Title: &title}); !apperr.IsKind(errUpdate, apperr.KindValidation) {
		t.Fatalf("expected VALIDATION editing terminal deal, got %v", errUpdate)
	}

	active := models.DealStatusActive
	if errUpdate := store.Update(ctx, 1, row.ID, Update{Status: &active}); !apperr.IsKind(errUpdate, apperr.KindValidation) {
		t.Fatalf("expected VALIDATION reactivating terminal deal, got %v", errUpdate)
	}
}
