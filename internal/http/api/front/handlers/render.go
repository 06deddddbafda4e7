package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/guard"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/quota"
	"github.com/zapcodes-dev/zapcodes/internal/scaffold"
	"github.com/zapcodes-dev/zapcodes/internal/sites"
)

// CurrentUser returns the authenticated user loaded by the auth middleware.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// renderError maps service errors onto the JSON error surface.
func renderError(c *gin.Context, err error) {
	var (
		errLimit     *quota.LimitReachedError
		errFunds     *ledger.InsufficientFundsError
		errClaimed   *ledger.AlreadyClaimedError
		errFeature   *guard.PlanFeatureLockedError
		errModel     *guard.ModelNotAllowedError
		errProvider  *guard.ProviderFailureError
		errPrompt    *scaffold.PromptTooLongError
		errSubdomain *sites.InvalidSubdomainError
		errTaken     *sites.SubdomainTakenError
		errSiteLimit *sites.SiteLimitReachedError
	)
	switch {
	case errors.As(err, &errLimit):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":  "daily limit reached",
			"action": string(errLimit.Action),
			"cap":    errLimit.Cap,
			"used":   errLimit.Used,
			"hint":   "upgrade your plan for higher daily limits",
		})
	case errors.As(err, &errFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "insufficient coins",
			"required":  errFunds.Required,
			"available": errFunds.Available,
			"hint":      "claim your daily coins or upgrade your plan",
		})
	case errors.As(err, &errClaimed):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":                 "already claimed",
			"next_claim_in_seconds": int64(errClaimed.NextIn.Seconds()),
		})
	case errors.As(err, &errFeature):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "feature locked",
			"feature": errFeature.Feature,
			"plan":    errFeature.Plan,
			"hint":    "upgrade your plan to unlock this feature",
		})
	case errors.As(err, &errModel):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "model not available",
			"model": errModel.Model,
			"plan":  errModel.Plan,
		})
	case errors.As(err, &errProvider):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "provider failed, coins refunded",
			"action":   errProvider.Action,
			"refunded": true,
		})
	case errors.As(err, &errPrompt):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":  "prompt too long",
			"length": errPrompt.Length,
			"max":    errPrompt.Max,
		})
	case errors.As(err, &errSubdomain):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "invalid subdomain",
			"subdomain": errSubdomain.Subdomain,
			"reason":    errSubdomain.Reason,
		})
	case errors.As(err, &errTaken):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "subdomain taken",
			"subdomain": errTaken.Subdomain,
		})
	case errors.As(err, &errSiteLimit):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "site limit reached",
			"cap":   errSiteLimit.Cap,
			"used":  errSiteLimit.Used,
			"hint":  "upgrade your plan to deploy more sites",
		})
	case errors.Is(err, sites.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
