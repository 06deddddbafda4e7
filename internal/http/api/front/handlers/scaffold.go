package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/scaffold"
)

// ScaffoldHandler serves site and app generation.
type ScaffoldHandler struct {
	svc *scaffold.Service
}

// NewScaffoldHandler constructs a ScaffoldHandler.
func NewScaffoldHandler(svc *scaffold.Service) *ScaffoldHandler {
	return &ScaffoldHandler{svc: svc}
}

// Generate produces scaffolding files from a prompt.
func (h *ScaffoldHandler) Generate(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req scaffold.Request
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errGenerate := h.svc.Generate(c.Request.Context(), user, req)
	if errGenerate != nil {
		renderError(c, errGenerate)
		return
	}
	c.JSON(http.StatusOK, result)
}
