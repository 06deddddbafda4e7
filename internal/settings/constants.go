package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the product site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback product site name.
	DefaultSiteName = "ZapCodes"
	// RateLimitKey controls the default per-user request limit per second.
	RateLimitKey = "RATE_LIMIT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// ScanMaxFilesKey caps how many repository files a scan sends to the LLM.
	ScanMaxFilesKey = "SCAN_MAX_FILES"
	// DefaultRateLimit is the fallback per-user limit (0 means unlimited).
	DefaultRateLimit = 0
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "zc:rl"
	// DefaultScanMaxFiles is the fallback scan file cap.
	DefaultScanMaxFiles = 20
)
