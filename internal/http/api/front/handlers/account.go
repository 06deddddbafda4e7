package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/quota"
	"github.com/zapcodes-dev/zapcodes/internal/tier"
)

// AccountHandler serves the authenticated user's account endpoints.
type AccountHandler struct {
	ledger *ledger.Service
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(ledgerSvc *ledger.Service) *AccountHandler {
	return &AccountHandler{ledger: ledgerSvc}
}

// Entitlements returns the balance, claim state, daily usage, and the tier
// capability table for the current user.
func (h *AccountHandler) Entitlements(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	now := time.Now().UTC()
	canClaim, nextIn := ledger.ClaimStatus(user, now)

	c.JSON(http.StatusOK, gin.H{
		"balance":               user.CoinBalance,
		"plan":                  user.Plan,
		"can_claim":             canClaim,
		"next_claim_in_seconds": int64(nextIn.Seconds()),
		"daily_usage":           quota.SnapshotFor(user, now),
		"tier_config":           tier.FromStored(user.Plan, user.TierLimits),
	})
}

// Claim credits the daily coins, plus the signup bonus on the first claim.
func (h *AccountHandler) Claim(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, errClaim := h.ledger.Claim(c.Request.Context(), user.ID)
	if errClaim != nil {
		renderError(c, errClaim)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"claimed":       result.Claimed,
		"signup_bonus":  result.SignupBonus,
		"balance":       result.Balance,
		"next_claim_at": result.NextClaimAt,
	})
}

// Transactions returns the retained ledger entries, oldest first.
func (h *AccountHandler) Transactions(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rows, errList := h.ledger.Transactions(c.Request.Context(), user.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":            row.ID,
			"kind":          row.Kind,
			"amount":        row.Amount,
			"balance_after": row.BalanceAfter,
			"description":   row.Description,
			"created_at":    row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}
