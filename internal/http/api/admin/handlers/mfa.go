package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/security"
	internalsettings "github.com/zapcodes-dev/zapcodes/internal/settings"
	"gorm.io/gorm"
)

// MFAHandler manages TOTP enrollment for the signed-in admin account.
type MFAHandler struct {
	db *gorm.DB
}

// NewMFAHandler constructs an MFA handler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

// currentAdmin returns the admin account set by the auth middleware.
func currentAdmin(c *gin.Context) *models.User {
	value, ok := c.Get("adminUser")
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Status reports whether TOTP is enabled for the current account.
func (h *MFAHandler) Status(c *gin.Context) {
	user := currentAdmin(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totp_enabled": user.TOTPEnabled,
		"totp_pending": user.TOTPSecret != "" && !user.TOTPEnabled,
	})
}

// PrepareTOTP provisions a fresh secret and returns the enrollment URL. The
// secret stays inactive until ConfirmTOTP proves the authenticator works.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	user := currentAdmin(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.TOTPEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "totp already enabled"})
		return
	}

	issuer := internalsettings.StringValue(internalsettings.SiteNameKey, internalsettings.DefaultSiteName)
	secret, url, errGenerate := security.GenerateTOTPSecret(issuer, user.Email)
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}

	errSave := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"totp_secret": secret, "totp_enabled": false}).Error
	if errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store totp secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// totpCodeRequest defines the request body carrying an authenticator code.
type totpCodeRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP activates the pending secret after verifying one code from the
// enrolled authenticator.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	user := currentAdmin(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if user.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending totp secret"})
		return
	}
	if !security.VerifyTOTP(user.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
		return
	}

	errSave := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("totp_enabled", true).Error
	if errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": true})
}

// DisableTOTP turns TOTP off. A valid code is required so a stolen session
// cannot silently weaken the account.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	user := currentAdmin(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !user.TOTPEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enabled"})
		return
	}
	if !security.VerifyTOTP(user.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
		return
	}

	errSave := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"totp_secret": "", "totp_enabled": false}).Error
	if errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": false})
}
