package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// breakerCooldown is how long the manager stops trying Redis after a failure.
const breakerCooldown = 30 * time.Second

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Manager enforces rate limits through the best available backend: Redis
// when configured and healthy, process memory otherwise. A Redis failure
// trips a cooldown breaker instead of failing requests.
type Manager struct {
	provider  SettingsProvider
	nowFn     func() time.Time
	fallback  Limiter
	newClient RedisClientFactory

	mu        sync.Mutex
	shared    *RedisLimiter
	sharedKey string
	downUntil time.Time
}

// NewManager constructs a Manager with default dependencies when nil.
func NewManager(provider SettingsProvider, nowFn func() time.Time, newClient RedisClientFactory) *Manager {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if newClient == nil {
		newClient = redis.NewClient
	}
	return &Manager{
		provider:  provider,
		nowFn:     nowFn,
		fallback:  NewMemoryLimiter(),
		newClient: newClient,
	}
}

// Allow checks whether the request should be allowed under the given key.
func (m *Manager) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if m == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := m.nowFn()
	cfg := m.provider()

	if cfg.RedisEnabled && !m.breakerActive(now) {
		limiter, errShared := m.sharedLimiter(ctx, cfg)
		if errShared == nil {
			result, errAllow := limiter.Allow(ctx, key, limit, now)
			if errAllow == nil {
				return result, nil
			}
			m.tripBreaker(errAllow, now)
		} else {
			m.tripBreaker(errShared, now)
		}
	}
	return m.fallback.Allow(ctx, key, limit, now)
}

// breakerActive reports whether the Redis cooldown is still running.
func (m *Manager) breakerActive(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downUntil.IsZero() {
		return false
	}
	if now.Before(m.downUntil) {
		return true
	}
	m.downUntil = time.Time{}
	return false
}

// tripBreaker starts the Redis cooldown and logs the cause once.
func (m *Manager) tripBreaker(err error, now time.Time) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.downUntil.IsZero() && now.Before(m.downUntil) {
		return
	}
	m.downUntil = now.Add(breakerCooldown)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}

// sharedLimiter returns the Redis limiter for the current settings, building
// a fresh client when the connection settings changed.
func (m *Manager) sharedLimiter(ctx context.Context, cfg SettingsConfig) (*RedisLimiter, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis: missing address")
	}
	db := cfg.RedisDB
	if db < 0 {
		db = 0
	}
	key := addr + "\x00" + cfg.RedisPassword + "\x00" + cfg.RedisPrefix + "\x00" + strconv.Itoa(db)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shared != nil && m.sharedKey == key {
		return m.shared, nil
	}
	if m.shared != nil {
		_ = m.shared.client.Close()
		m.shared = nil
	}

	client := m.newClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, errPing
	}

	m.shared = NewRedisLimiter(client, cfg.RedisPrefix)
	m.sharedKey = key
	return m.shared, nil
}
