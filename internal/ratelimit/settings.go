package ratelimit

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	internalsettings "github.com/zapcodes-dev/zapcodes/internal/settings"
)

// SettingsConfig captures the rate limit settings stored in the DB.
type SettingsConfig struct {
	Limit         int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig reads the current rate limit settings snapshot.
//
// Admin-entered values arrive as JSON of whatever shape the operator typed,
// so numbers are accepted as numbers or numeric strings and booleans as
// booleans, strings, or 0/1.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{
		Limit:       internalsettings.DefaultRateLimit,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}

	if limit, ok := settingInt(internalsettings.RateLimitKey); ok {
		cfg.Limit = limit
	}
	if enabled, ok := settingBool(internalsettings.RateLimitRedisEnabledKey); ok {
		cfg.RedisEnabled = enabled
	}
	if addr, ok := settingString(internalsettings.RateLimitRedisAddrKey); ok {
		cfg.RedisAddr = addr
	}
	if password, ok := settingString(internalsettings.RateLimitRedisPasswordKey); ok {
		cfg.RedisPassword = password
	}
	if db, ok := settingInt(internalsettings.RateLimitRedisDBKey); ok {
		cfg.RedisDB = db
	}
	if prefix, ok := settingString(internalsettings.RateLimitRedisPrefixKey); ok && prefix != "" {
		cfg.RedisPrefix = prefix
	}
	return cfg
}

// DefaultSettingsLimit returns the settings-configured default request limit.
func DefaultSettingsLimit() int {
	return LoadSettingsConfig().Limit
}

// settingValue decodes one settings key into its loosest JSON form.
func settingValue(key string) (any, bool) {
	raw, ok := internalsettings.DBConfigValue(key)
	if !ok {
		return nil, false
	}
	var value any
	if errUnmarshal := json.Unmarshal(raw, &value); errUnmarshal != nil {
		return nil, false
	}
	return value, true
}

func settingString(key string) (string, bool) {
	value, ok := settingValue(key)
	if !ok {
		return "", false
	}
	s, isString := value.(string)
	if !isString {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func settingInt(key string) (int, bool) {
	value, ok := settingValue(key)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < 0 {
			return 0, false
		}
		return int(v), true
	case string:
		n, errParse := strconv.Atoi(strings.TrimSpace(v))
		if errParse != nil || n < 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func settingBool(key string) (bool, bool) {
	value, ok := settingValue(key)
	if !ok {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		if v == 1 {
			return true, true
		}
		if v == 0 {
			return false, true
		}
		return false, false
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}
