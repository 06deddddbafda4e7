package db

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zapcodes-dev/zapcodes/internal/models"
	internalsettings "github.com/zapcodes-dev/zapcodes/internal/settings"

	"gorm.io/gorm"
)

// Migrate applies the schema and seeds default settings.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.CoinTransaction{},
		&models.Site{},
		&models.WebhookEvent{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// ensureDefaultSettings inserts missing settings rows with their defaults.
func ensureDefaultSettings(conn *gorm.DB) error {
	defaults := map[string]any{
		internalsettings.SiteNameKey:              internalsettings.DefaultSiteName,
		internalsettings.RateLimitKey:             internalsettings.DefaultRateLimit,
		internalsettings.RateLimitRedisEnabledKey: false,
		internalsettings.RateLimitRedisAddrKey:    "",
		internalsettings.RateLimitRedisPrefixKey:  internalsettings.DefaultRateLimitRedisPrefix,
		internalsettings.ScanMaxFilesKey:          internalsettings.DefaultScanMaxFiles,
	}

	for key, value := range defaults {
		var existing models.Setting
		errFind := conn.Where("key = ?", key).Take(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: read setting %s: %w", key, errFind)
		}
		raw, errMarshal := json.Marshal(value)
		if errMarshal != nil {
			return fmt.Errorf("db: encode setting %s: %w", key, errMarshal)
		}
		if errCreate := conn.Create(&models.Setting{Key: key, Value: raw}).Error; errCreate != nil {
			return fmt.Errorf("db: seed setting %s: %w", key, errCreate)
		}
	}
	return nil
}
