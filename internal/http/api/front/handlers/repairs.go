package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/repairs"
)

// RepairHandler serves the repository repair pipeline.
type RepairHandler struct {
	svc *repairs.Service
}

// NewRepairHandler constructs a RepairHandler.
func NewRepairHandler(svc *repairs.Service) *RepairHandler {
	return &RepairHandler{svc: svc}
}

// Scan runs a repository bug scan.
func (h *RepairHandler) Scan(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req repairs.ScanRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errScan := h.svc.Scan(c.Request.Context(), user, req)
	if errScan != nil {
		renderError(c, errScan)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Fix generates corrected files for a bug report.
func (h *RepairHandler) Fix(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req repairs.FixRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errFix := h.svc.Fix(c.Request.Context(), user, req)
	if errFix != nil {
		renderError(c, errFix)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Push commits fixed files on a branch and opens a pull request.
func (h *RepairHandler) Push(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req repairs.PushRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errPush := h.svc.Push(c.Request.Context(), user, req)
	if errPush != nil {
		renderError(c, errPush)
		return
	}
	c.JSON(http.StatusOK, result)
}
