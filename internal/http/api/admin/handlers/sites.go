package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/zapcodes-dev/zapcodes/internal/db"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"gorm.io/gorm"
)

// SiteAdminHandler manages deployed sites from the admin console.
type SiteAdminHandler struct {
	db *gorm.DB
}

// NewSiteAdminHandler constructs a SiteAdminHandler.
func NewSiteAdminHandler(db *gorm.DB) *SiteAdminHandler {
	return &SiteAdminHandler{db: db}
}

// List returns sites with optional filters.
func (h *SiteAdminHandler) List(c *gin.Context) {
	var (
		subdomainQ = strings.TrimSpace(c.Query("subdomain"))
		userQ      = strings.TrimSpace(c.Query("user_id"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Site{})
	if subdomainQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+subdomainQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "subdomain"), pattern)
	}
	if userQ != "" {
		if userID, errParse := strconv.ParseUint(userQ, 10, 64); errParse == nil {
			q = q.Where("user_id = ?", userID)
		}
	}

	var rows []models.Site
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list sites failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"user_id":    row.UserID,
			"subdomain":  row.Subdomain,
			"title":      row.Title,
			"show_badge": row.ShowBadge,
			"pwa":        row.PWA,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sites": out})
}

// Delete removes any site by ID.
func (h *SiteAdminHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	result := h.db.WithContext(c.Request.Context()).Delete(&models.Site{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete site failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
