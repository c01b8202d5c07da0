package claim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/events"
	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/reveal"
)

// openTestDB opens an in-memory database limited to a single connection so
// concurrent transactions serialize the way a real database would.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("raw db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedDeal(t *testing.T, conn *gorm.DB, total int, ghost bool, expiresAt time.Time) *models.Deal {
	t.Helper()
	merchant := models.Merchant{Username: "kimbap-heaven", Password: "x", Name: "Kimbap Heaven", Latitude: 37.5665, Longitude: 126.9780}
	if errCreate := conn.Create(&merchant).Error; errCreate != nil {
		t.Fatalf("seed merchant: %v", errCreate)
	}
	deal := models.Deal{
		MerchantID:       merchant.ID,
		Title:            "Kimbap set",
		TotalCoupons:     total,
		RemainingCoupons: total,
		ExpiresAt:        expiresAt,
		Status:           models.DealStatusActive,
		IsGhost:          ghost,
	}
	if errCreate := conn.Create(&deal).Error; errCreate != nil {
		t.Fatalf("seed deal: %v", errCreate)
	}
	return &deal
}

func newTestEngine(conn *gorm.DB) *Engine {
	return NewEngine(conn, reveal.NewMemoryGate(), events.NewRecorder(conn))
}

func TestClaimIssuesCouponSnapshot(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 5, false, time.Now().UTC().Add(time.Hour))
	engine := newTestEngine(conn)

	coupon, errClaim := engine.Claim(context.Background(), 7, deal.ID)
	if errClaim != nil {
		t.Fatalf("claim: %v", errClaim)
	}
	if coupon.UserID != 7 || coupon.DealID != deal.ID {
		t.Fatalf("coupon owner mismatch: user %d deal %d", coupon.UserID, coupon.DealID)
	}
	if coupon.Title != deal.Title || coupon.RestaurantName != "Kimbap Heaven" {
		t.Fatalf("snapshot fields not copied: %q / %q", coupon.Title, coupon.RestaurantName)
	}
	if coupon.Status != models.CouponStatusAvailable {
		t.Fatalf("expected AVAILABLE, got %s", coupon.Status)
	}

	var reloaded models.Deal
	if errFind := conn.First(&reloaded, deal.ID).Error; errFind != nil {
		t.Fatalf("reload deal: %v", errFind)
	}
	if reloaded.RemainingCoupons != 4 {
		t.Fatalf("expected remaining 4, got %d", reloaded.RemainingCoupons)
	}
}

func TestClaimNeverOversells(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 3, false, time.Now().UTC().Add(time.Hour))
	engine := newTestEngine(conn)

	const claimants = 10
	var wg sync.WaitGroup
	results := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = engine.Claim(context.Background(), uint64(i+1), deal.ID)
		}(i)
	}
	wg.Wait()

	wins, soldOut := 0, 0
	for _, errClaim := range results {
		switch {
		case errClaim == nil:
			wins++
		case apperr.IsKind(errClaim, apperr.KindSoldOut):
			soldOut++
		default:
			t.Fatalf("unexpected claim error: %v", errClaim)
		}
	}
	if wins != 3 || soldOut != 7 {
		t.Fatalf("expected 3 winners and 7 sold out, got %d/%d", wins, soldOut)
	}

	var reloaded models.Deal
	if errFind := conn.First(&reloaded, deal.ID).Error; errFind != nil {
		t.Fatalf("reload deal: %v", errFind)
	}
	if reloaded.RemainingCoupons != 0 {
		t.Fatalf("remaining went to %d, want 0", reloaded.RemainingCoupons)
	}
	var coupons int64
	conn.Model(&models.Coupon{}).Where("deal_id = ?", deal.ID).Count(&coupons)
	if coupons != 3 {
		t.Fatalf("issued %d coupons, want 3", coupons)
	}
}

func TestClaimRejectsDuplicateForSameUser(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 5, false, time.Now().UTC().Add(time.Hour))
	engine := newTestEngine(conn)
	ctx := context.Background()

	first, errClaim := engine.Claim(ctx, 7, deal.ID)
	if errClaim != nil {
		t.Fatalf("first claim: %v", errClaim)
	}

	second, errDup := engine.Claim(ctx, 7, deal.ID)
	if !apperr.IsKind(errDup, apperr.KindAlreadyClaimed) {
		t.Fatalf("expected ALREADY_CLAIMED, got %v", errDup)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("duplicate claim did not surface the outstanding coupon")
	}

	var reloaded models.Deal
	conn.First(&reloaded, deal.ID)
	if reloaded.RemainingCoupons != 4 {
		t.Fatalf("duplicate claim changed inventory: remaining %d", reloaded.RemainingCoupons)
	}
}

func TestClaimExpiredDealPersistsEnded(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 5, false, time.Now().UTC().Add(time.Hour))
	engine := newTestEngine(conn)
	engine.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	if _, errClaim := engine.Claim(context.Background(), 7, deal.ID); !apperr.IsKind(errClaim, apperr.KindExpired) {
		t.Fatalf("expected EXPIRED, got %v", errClaim)
	}

	var reloaded models.Deal
	conn.First(&reloaded, deal.ID)
	if reloaded.Status != models.DealStatusEnded {
		t.Fatalf("expected persisted ENDED after expired claim, got %s", reloaded.Status)
	}
}

func TestClaimSoldOutDeal(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 0, false, time.Now().UTC().Add(time.Hour))
	engine := newTestEngine(conn)

	if _, errClaim := engine.Claim(context.Background(), 7, deal.ID); !apperr.IsKind(errClaim, apperr.KindSoldOut) {
		t.Fatalf("expected SOLD_OUT, got %v", errClaim)
	}
}

func TestClaimMissingDeal(t *testing.T) {
	conn := openTestDB(t)
	engine := newTestEngine(conn)

	if _, errClaim := engine.Claim(context.Background(), 7, 12345); !apperr.IsKind(errClaim, apperr.KindNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", errClaim)
	}
}

func TestClaimExpiredGhostReportsExpired(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 5, true, time.Now().UTC().Add(time.Hour))
	engine := newTestEngine(conn)
	engine.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	// Expiry outranks the reveal gate even when the ghost was never held.
	if _, errClaim := engine.Claim(context.Background(), 7, deal.ID); !apperr.IsKind(errClaim, apperr.KindExpired) {
		t.Fatalf("expected EXPIRED for a dead unrevealed ghost, got %v", errClaim)
	}
}

func TestClaimGhostRequiresReveal(t *testing.T) {
	conn := openTestDB(t)
	deal := seedDeal(t, conn, 5, true, time.Now().UTC().Add(time.Hour))
	gate := reveal.NewMemoryGate()
	engine := NewEngine(conn, gate, events.NewRecorder(conn))
	ctx := context.Background()

	if _, errClaim := engine.Claim(ctx, 7, deal.ID); !apperr.IsKind(errClaim, apperr.KindNotRevealed) {
		t.Fatalf("expected NOT_REVEALED, got %v", errClaim)
	}

	for i := 0; i < 20; i++ {
		progress, errHold := gate.Hold(ctx, 7, deal.ID)
		if errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		if progress.Revealed {
			break
		}
	}
	revealed, errRevealed := gate.Revealed(ctx, 7, deal.ID)
	if errRevealed != nil || !revealed {
		t.Fatalf("reveal did not complete: %v", errRevealed)
	}

	if _, errClaim := engine.Claim(ctx, 7, deal.ID); errClaim != nil {
		t.Fatalf("claim after reveal: %v", errClaim)
	}
}
