package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/quota"
	"gorm.io/gorm"
)

// DashboardHandler serves aggregate stats for the admin console.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// Stats returns account, site, and ledger aggregates plus today's usage.
func (h *DashboardHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	today := quota.Day(time.Now())

	var totalUsers, disabledUsers, totalSites int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&totalUsers).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).
		Where("disabled = ?", true).Count(&disabledUsers).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.Site{}).Count(&totalSites).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	var planRows []struct {
		Plan  string
		Count int64
	}
	if errFind := h.db.WithContext(ctx).Model(&models.User{}).
		Select("plan, COUNT(*) AS count").
		Group("plan").
		Find(&planRows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	planCounts := make(map[string]int64, len(planRows))
	for _, row := range planRows {
		planCounts[row.Plan] = row.Count
	}

	var usage struct {
		Generations  int64
		CodeFixes    int64
		GithubPushes int64
	}
	if errFind := h.db.WithContext(ctx).Model(&models.User{}).
		Select(
			"COALESCE(SUM(daily_generations), 0) AS generations, " +
				"COALESCE(SUM(daily_code_fixes), 0) AS code_fixes, " +
				"COALESCE(SUM(daily_github_pushes), 0) AS github_pushes").
		Where("daily_usage_date = ?", today).
		Find(&usage).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	var coins struct {
		Total int64
	}
	if errFind := h.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(coin_balance), 0) AS total").
		Find(&coins).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{
			"total":    totalUsers,
			"disabled": disabledUsers,
			"by_plan":  planCounts,
		},
		"sites": gin.H{"total": totalSites},
		"coins": gin.H{"outstanding": coins.Total},
		"usage_today": gin.H{
			"date":          today,
			"generations":   usage.Generations,
			"code_fixes":    usage.CodeFixes,
			"github_pushes": usage.GithubPushes,
		},
	})
}
