package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/sites"
)

// SiteHandler serves the user's deployed sites.
type SiteHandler struct {
	svc *sites.Service
}

// NewSiteHandler constructs a SiteHandler.
func NewSiteHandler(svc *sites.Service) *SiteHandler {
	return &SiteHandler{svc: svc}
}

// siteJSON renders one site row.
func siteJSON(site *models.Site) gin.H {
	return gin.H{
		"id":         site.ID,
		"subdomain":  site.Subdomain,
		"title":      site.Title,
		"show_badge": site.ShowBadge,
		"pwa":        site.PWA,
		"created_at": site.CreatedAt,
		"updated_at": site.UpdatedAt,
	}
}

// deployRequest defines the request body for site deployment.
type deployRequest struct {
	Subdomain string `json:"subdomain"`
	Title     string `json:"title"`
}

// Deploy claims a subdomain and creates a site.
func (h *SiteHandler) Deploy(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body deployRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	site, errDeploy := h.svc.Deploy(c.Request.Context(), user, body.Subdomain, body.Title)
	if errDeploy != nil {
		renderError(c, errDeploy)
		return
	}
	c.JSON(http.StatusCreated, siteJSON(site))
}

// List returns the user's sites.
func (h *SiteHandler) List(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rows, errList := h.svc.List(c.Request.Context(), user.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list sites failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, siteJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sites": out})
}

// badgeRequest defines the request body for the badge toggle.
type badgeRequest struct {
	ShowBadge bool `json:"show_badge"`
}

// SetBadge toggles the hosted badge. Hiding is a paid tier-gated action.
func (h *SiteHandler) SetBadge(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	siteID, okID := pathID(c)
	if !okID {
		return
	}
	var body badgeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if body.ShowBadge {
		site, errShow := h.svc.ShowBadge(c.Request.Context(), user, siteID)
		if errShow != nil {
			renderError(c, errShow)
			return
		}
		c.JSON(http.StatusOK, gin.H{"site": siteJSON(site)})
		return
	}

	site, outcome, errHide := h.svc.HideBadge(c.Request.Context(), user, siteID)
	if errHide != nil {
		renderError(c, errHide)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": siteJSON(site), "outcome": outcome})
}

// EnablePWA rebuilds the site as a PWA. Paid and tier-gated.
func (h *SiteHandler) EnablePWA(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	siteID, okID := pathID(c)
	if !okID {
		return
	}

	site, outcome, errEnable := h.svc.EnablePWA(c.Request.Context(), user, siteID)
	if errEnable != nil {
		renderError(c, errEnable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": siteJSON(site), "outcome": outcome})
}

// Delete removes a site owned by the user.
func (h *SiteHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	siteID, okID := pathID(c)
	if !okID {
		return
	}

	if errDelete := h.svc.Delete(c.Request.Context(), user.ID, siteID); errDelete != nil {
		renderError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// pathID parses the :id path parameter, writing the error response itself.
func pathID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
