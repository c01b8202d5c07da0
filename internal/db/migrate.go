package db

import (
	"fmt"

	"github.com/hotplate-app/hotplate/internal/models"
	"gorm.io/gorm"
)

// Migrate applies schema migrations for all marketplace tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Merchant{},
		&models.Deal{},
		&models.Coupon{},
		&models.Event{},
		&models.Setting{},
	)
}
