package settings

import (
	"encoding/json"
	"sync"

	"github.com/zapcodes-dev/zapcodes/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// snapshot caches the settings table for lock-free reads on hot paths.
var snapshot struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// Reload replaces the cached settings snapshot from the database.
func Reload(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	var rows []models.Setting
	if errFind := conn.Find(&rows).Error; errFind != nil {
		return errFind
	}
	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = json.RawMessage(row.Value)
	}
	snapshot.mu.Lock()
	snapshot.values = values
	snapshot.mu.Unlock()
	return nil
}

// ReloadQuietly refreshes the snapshot and logs instead of failing.
func ReloadQuietly(conn *gorm.DB) {
	if errReload := Reload(conn); errReload != nil {
		log.WithError(errReload).Warn("settings: reload failed")
	}
}

// DBConfigValue returns the cached raw JSON value for a settings key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snapshot.mu.RLock()
	defer snapshot.mu.RUnlock()
	raw, ok := snapshot.values[key]
	return raw, ok
}

// StringValue returns a settings value decoded as a string, or the fallback.
func StringValue(key, fallback string) string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var parsed string
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return fallback
	}
	return parsed
}

// IntValue returns a settings value decoded as an int, or the fallback.
func IntValue(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var parsed int
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return fallback
	}
	return parsed
}
