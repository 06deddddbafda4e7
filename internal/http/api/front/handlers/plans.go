package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/tier"
)

// PlanFrontHandler serves the public tier table.
type PlanFrontHandler struct{}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler() *PlanFrontHandler {
	return &PlanFrontHandler{}
}

// List returns the capability table for every plan in ascending tier order.
// Unbounded caps render as "∞".
func (h *PlanFrontHandler) List(c *gin.Context) {
	slugs := tier.Plans()
	out := make([]tier.Capabilities, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, tier.Resolve(slug))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
