package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/billing"
	dbutil "github.com/zapcodes-dev/zapcodes/internal/db"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"gorm.io/gorm"
)

// UserHandler manages user accounts from the admin console.
type UserHandler struct {
	db     *gorm.DB
	sync   *billing.Synchronizer
	ledger *ledger.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, sync *billing.Synchronizer, ledgerSvc *ledger.Service) *UserHandler {
	return &UserHandler{db: db, sync: sync, ledger: ledgerSvc}
}

// userJSON renders one user row for the console.
func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"name":         user.Name,
		"role":         user.Role,
		"plan":         user.Plan,
		"coin_balance": user.CoinBalance,
		"active":       user.Active,
		"disabled":     user.Disabled,
		"created_at":   user.CreatedAt,
		"updated_at":   user.UpdatedAt,
	}
}

// List returns users with optional filters.
func (h *UserHandler) List(c *gin.Context) {
	var (
		emailQ  = strings.TrimSpace(c.Query("email"))
		planQ   = strings.TrimSpace(c.Query("plan"))
		roleQ   = strings.TrimSpace(c.Query("role"))
		searchQ = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}
	if planQ != "" {
		q = q.Where("plan = ?", planQ)
	}
	if roleQ != "" {
		q = q.Where("role = ?", roleQ)
	}
	if searchQ != "" {
		ciPattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR CAST(id AS TEXT) LIKE ?",
			ciPattern,
			ciPattern,
			"%"+searchQ+"%",
		)
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, userJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Get returns a user by ID.
func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

// updateUserRequest defines the mutable profile fields.
type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Update edits a user's profile fields.
func (h *UserHandler) Update(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		updates["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*body.Email))
		if email == "" || !strings.Contains(email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
			return
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, userJSON(user))
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

// Delete removes a user account.
func (h *UserHandler) Delete(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	if errDelete := h.db.WithContext(c.Request.Context()).Delete(user).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete user failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Disable blocks a user from signing in.
func (h *UserHandler) Disable(c *gin.Context) {
	h.setDisabled(c, true)
}

// Enable restores a disabled user.
func (h *UserHandler) Enable(c *gin.Context) {
	h.setDisabled(c, false)
}

func (h *UserHandler) setDisabled(c *gin.Context, disabled bool) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).
		Updates(map[string]any{"disabled": disabled, "active": !disabled}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "disabled": disabled})
}

// changeRoleRequest defines the request body for a role change.
type changeRoleRequest struct {
	Role models.Role `json:"role"`
}

// ChangeRole assigns a role from the closed role set.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	var body changeRoleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !models.ValidRole(body.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).
		Update("role", body.Role).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update role failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "role": body.Role})
}

// changePlanRequest defines the request body for a manual plan change.
type changePlanRequest struct {
	Plan string `json:"plan"`
}

// ChangePlan assigns a plan manually, re-deriving the denormalized limits.
func (h *UserHandler) ChangePlan(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	var body changePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if errApply := h.sync.ApplyPlanChange(c.Request.Context(), user.ID, body.Plan, "", ""); errApply != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "plan": strings.ToLower(strings.TrimSpace(body.Plan))})
}

// adjustCoinsRequest defines the request body for a manual balance adjustment.
type adjustCoinsRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// AdjustCoins grants or deducts coins through the ledger, so the adjustment
// shows up as a transaction and respects the non-negative balance rule.
func (h *UserHandler) AdjustCoins(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	var body adjustCoinsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Amount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be non-zero"})
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "admin adjustment"
	}

	var (
		snap    ledger.Snapshot
		errMove error
	)
	if body.Amount > 0 {
		snap, errMove = h.ledger.Credit(c.Request.Context(), user.ID, body.Amount, models.KindAdminAdjust, reason)
	} else {
		snap, errMove = h.ledger.Debit(c.Request.Context(), user.ID, -body.Amount, models.KindAdminAdjust, reason)
	}
	if errMove != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "adjustment failed", "detail": errMove.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "balance": snap.Balance, "applied": snap.Amount})
}

// Transactions returns a user's retained ledger entries.
func (h *UserHandler) Transactions(c *gin.Context) {
	user, ok := h.load(c)
	if !ok {
		return
	}
	rows, errList := h.ledger.Transactions(c.Request.Context(), user.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

// load fetches the user named by the :id path parameter, writing the error
// response itself.
func (h *UserHandler) load(c *gin.Context) (*models.User, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return nil, false
	}
	return &user, true
}
