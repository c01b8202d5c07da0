// Package app assembles the marketplace server from its components.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hotplate-app/hotplate/internal/claim"
	"github.com/hotplate-app/hotplate/internal/config"
	"github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/events"
	"github.com/hotplate-app/hotplate/internal/feed"
	relayhttp "github.com/hotplate-app/hotplate/internal/http"
	"github.com/hotplate-app/hotplate/internal/http/api/front"
	fronthandlers "github.com/hotplate-app/hotplate/internal/http/api/front/handlers"
	"github.com/hotplate-app/hotplate/internal/http/api/merchant"
	merchanthandlers "github.com/hotplate-app/hotplate/internal/http/api/merchant/handlers"
	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/redeem"
	"github.com/hotplate-app/hotplate/internal/reveal"
	"github.com/hotplate-app/hotplate/internal/settings"
)

// Migrate opens the database, runs migrations, and seeds runtime settings
// that have no row yet.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return seedSettings(ctx, conn, cfg)
}

// RunServer boots the HTTP server with database-backed components and
// blocks until ctx is canceled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := seedSettings(ctx, conn, cfg); errSeed != nil {
		return errSeed
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	var gate reveal.Gate
	if cfg.RedisAddr != "" {
		gate = reveal.NewRedisGate(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		log.Infof("reveal gate backed by redis at %s", cfg.RedisAddr)
	} else {
		gate = reveal.NewMemoryGate()
	}

	recorder := events.NewRecorder(conn)
	dealStore := deal.NewStore(conn)
	claimEngine := claim.NewEngine(conn, gate, recorder)
	verifier := redeem.NewVerifier(conn, recorder)

	refresher := feed.NewRefresher(dealStore)
	refresher.Start(ctx)
	events.NewRetentionCleaner(conn).Start(ctx)

	engine := buildRouter(conn, cfg, dealStore, claimEngine, verifier, gate, refresher)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("shutdown incomplete")
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

func buildRouter(conn *gorm.DB, cfg config.AppConfig, dealStore *deal.Store, claimEngine *claim.Engine, verifier *redeem.Verifier, gate reveal.Gate, refresher *feed.Refresher) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), relayhttp.RequestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	front.RegisterRoutes(engine, fronthandlers.NewHandler(conn, cfg.JWT, dealStore, claimEngine, verifier, gate, refresher))
	merchant.RegisterRoutes(engine, merchanthandlers.NewHandler(conn, cfg.JWT, dealStore, refresher))
	return engine
}

// seedSettings inserts config-file defaults for runtime-tunable settings,
// leaving existing rows alone so admin edits survive restarts.
func seedSettings(ctx context.Context, conn *gorm.DB, cfg config.AppConfig) error {
	rows := []models.Setting{
		{Key: settings.ProximityRadiusMetersKey, Value: mustJSON(cfg.Redemption.ProximityRadiusMeters)},
		{Key: settings.RevealHoldMillisKey, Value: mustJSON(cfg.Redemption.RevealHold.Milliseconds())},
		{Key: settings.RevealStepPercentKey, Value: mustJSON(settings.DefaultRevealStepPercent)},
		{Key: settings.FeedRefreshSecondsKey, Value: mustJSON(int64(cfg.Redemption.FeedRefresh.Seconds()))},
		{Key: settings.EventsRetentionDaysKey, Value: mustJSON(settings.DefaultEventsRetentionDays)},
	}
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func mustJSON(v any) json.RawMessage {
	data, errMarshal := json.Marshal(v)
	if errMarshal != nil {
		// Only primitives pass through here.
		return json.RawMessage("null")
	}
	return data
}
