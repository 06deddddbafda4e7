// Package admin registers the admin console routes behind role-based
// authorization.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/billing"
	"github.com/zapcodes-dev/zapcodes/internal/config"
	handlers "github.com/zapcodes-dev/zapcodes/internal/http/api/admin/handlers"
	"github.com/zapcodes-dev/zapcodes/internal/http/api/admin/permissions"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/security"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, sync *billing.Synchronizer, ledgerSvc *ledger.Service) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	// MFA enrollment is self-service: any authenticated admin may manage
	// their own factors, so these routes skip the route policy.
	selfAuthed := adminGroup.Group("")
	selfAuthed.Use(adminAuthMiddleware(db, jwtCfg))

	mfaHandler := handlers.NewMFAHandler(db)
	selfAuthed.GET("/mfa/status", mfaHandler.Status)
	selfAuthed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	selfAuthed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	selfAuthed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))
	authed.Use(adminPermissionMiddleware())

	userHandler := handlers.NewUserHandler(db, sync, ledgerSvc)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id", userHandler.Update)
	authed.DELETE("/users/:id", userHandler.Delete)
	authed.POST("/users/:id/disable", userHandler.Disable)
	authed.POST("/users/:id/enable", userHandler.Enable)
	authed.PUT("/users/:id/role", userHandler.ChangeRole)
	authed.PUT("/users/:id/plan", userHandler.ChangePlan)
	authed.POST("/users/:id/coins", userHandler.AdjustCoins)
	authed.GET("/users/:id/transactions", userHandler.Transactions)

	siteHandler := handlers.NewSiteAdminHandler(db)
	authed.GET("/sites", siteHandler.List)
	authed.DELETE("/sites/:id", siteHandler.Delete)

	settingHandler := handlers.NewSettingHandler(db)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)

	dashboardHandler := handlers.NewDashboardHandler(db)
	authed.GET("/dashboard/stats", dashboardHandler.Stats)

	authed.GET("/permissions", func(c *gin.Context) {
		role := currentRole(c)
		c.JSON(http.StatusOK, gin.H{"permissions": permissions.DefinitionsForRole(role)})
	})
}

// adminAuthMiddleware validates session JWTs and requires an admin role.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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
		if !user.Role.CanAdministrate() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("adminUser", &user)
		c.Next()
	}
}

// adminPermissionMiddleware enforces the data-driven route policy.
func adminPermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := currentRole(c)
		if !permissions.Allowed(role, c.Request.Method, c.FullPath()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

// currentRole returns the authenticated admin's role.
func currentRole(c *gin.Context) models.Role {
	value, ok := c.Get("adminUser")
	if !ok {
		return models.RoleUser
	}
	user, ok := value.(*models.User)
	if !ok {
		return models.RoleUser
	}
	return user.Role
}
