// Package front registers the end-user API routes.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/billing"
	"github.com/zapcodes-dev/zapcodes/internal/config"
	handlers "github.com/zapcodes-dev/zapcodes/internal/http/api/front/handlers"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/ratelimit"
	"github.com/zapcodes-dev/zapcodes/internal/repairs"
	"github.com/zapcodes-dev/zapcodes/internal/scaffold"
	"github.com/zapcodes-dev/zapcodes/internal/security"
	"github.com/zapcodes-dev/zapcodes/internal/sites"
	"gorm.io/gorm"
)

// Dependencies carries the services the front routes are built on.
type Dependencies struct {
	DB          *gorm.DB
	JWT         config.JWTConfig
	Ledger      *ledger.Service
	Repairs     *repairs.Service
	Scaffold    *scaffold.Service
	Sites       *sites.Service
	Webhook     *billing.WebhookHandler
	RateLimiter *ratelimit.Manager
}

// RegisterFrontRoutes registers front routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.DB == nil {
		return
	}

	frontGroup := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	frontGroup.POST("/auth/register", authHandler.Register)
	frontGroup.POST("/auth/login", authHandler.Login)
	frontGroup.POST("/auth/login/totp", authHandler.LoginTOTP)

	planHandler := handlers.NewPlanFrontHandler()
	frontGroup.GET("/plans", planHandler.List)

	if deps.Webhook != nil {
		frontGroup.POST("/webhooks/stripe", deps.Webhook.Handle)
	}

	authed := frontGroup.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	accountHandler := handlers.NewAccountHandler(deps.Ledger)
	authed.GET("/me/entitlements", accountHandler.Entitlements)
	authed.POST("/me/claim", accountHandler.Claim)
	authed.GET("/me/transactions", accountHandler.Transactions)

	limited := authed.Group("")
	limited.Use(rateLimitMiddleware(deps.RateLimiter))

	if deps.Repairs != nil {
		repairHandler := handlers.NewRepairHandler(deps.Repairs)
		limited.POST("/repairs/scan", repairHandler.Scan)
		limited.POST("/repairs/fix", repairHandler.Fix)
		limited.POST("/repairs/push", repairHandler.Push)
	}

	if deps.Scaffold != nil {
		scaffoldHandler := handlers.NewScaffoldHandler(deps.Scaffold)
		limited.POST("/scaffold/generate", scaffoldHandler.Generate)
	}

	if deps.Sites != nil {
		siteHandler := handlers.NewSiteHandler(deps.Sites)
		authed.GET("/sites", siteHandler.List)
		limited.POST("/sites", siteHandler.Deploy)
		limited.PUT("/sites/:id/badge", siteHandler.SetBadge)
		limited.POST("/sites/:id/pwa", siteHandler.EnablePWA)
		authed.DELETE("/sites/:id", siteHandler.Delete)
	}
}

// userAuthMiddleware validates session JWTs and loads the user record.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.Active || user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

// rateLimitMiddleware enforces the per-user fixed-window request limit on
// coin-consuming routes.
func rateLimitMiddleware(manager *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			c.Next()
			return
		}
		user := handlers.CurrentUser(c)
		if user == nil {
			c.Next()
			return
		}

		decision := ratelimit.ResolveLimit(user)
		key := ratelimit.KeyForDecision(user.ID, decision)
		if key == "" {
			c.Next()
			return
		}

		result, errAllow := manager.Allow(c.Request.Context(), key, decision.Limit)
		if errAllow != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":    "rate limit exceeded",
				"reset_at": result.Reset,
			})
			return
		}
		c.Next()
	}
}
