// Package events records claim and redemption attempts for the audit
// trail and prunes old rows on an interval.
package events

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/models"
)

// Recorder persists attempt events. Writes are fire-and-forget with their
// own timeout so the hot path never blocks on the audit trail.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder { return &Recorder{db: db} }

// Record stores one attempt. A nil err records a success; a semantic
// error records its kind; anything else records TRANSIENT with detail.
func (r *Recorder) Record(eventType string, userID, dealID uint64, couponID *uint64, err error) {
	if r == nil || r.db == nil {
		return
	}

	row := models.Event{
		Type:     eventType,
		UserID:   userID,
		DealID:   dealID,
		CouponID: couponID,
		Outcome:  "OK",
	}
	if err != nil {
		row.Failed = true
		kind, ok := apperr.KindOf(err)
		if !ok {
			kind = apperr.KindTransient
		}
		row.Outcome = string(kind)
		if detail, errMarshal := json.Marshal(map[string]string{"error": err.Error()}); errMarshal == nil {
			row.Detail = datatypes.JSON(detail)
		}
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if errCreate := r.db.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("record event failed")
	}
}
