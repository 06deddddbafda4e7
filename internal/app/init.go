package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/security"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	envInitialAdminEmail    = "INITIAL_ADMIN_EMAIL"
	envInitialAdminPassword = "INITIAL_ADMIN_PASSWORD"

	defaultAdminEmail = "admin@localhost"
)

// HasSuperAdmin reports whether a super-admin account exists.
func HasSuperAdmin(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil database connection")
	}
	var count int64
	errCount := conn.Model(&models.User{}).
		Where("role = ?", models.RoleSuperAdmin).
		Count(&count).Error
	if errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// EnsureSuperAdmin creates the first super-admin account on a fresh
// database. The credentials come from the environment; a missing password is
// generated and logged once.
func EnsureSuperAdmin(conn *gorm.DB) error {
	exists, errCheck := HasSuperAdmin(conn)
	if errCheck != nil {
		return errCheck
	}
	if exists {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(os.Getenv(envInitialAdminEmail)))
	if email == "" {
		email = defaultAdminEmail
	}
	password := strings.TrimSpace(os.Getenv(envInitialAdminPassword))
	generated := false
	if password == "" {
		random, errRandom := security.GenerateRandomString(18)
		if errRandom != nil {
			return fmt.Errorf("generate admin password: %w", errRandom)
		}
		password = random
		generated = true
	}

	return CreateSuperAdmin(conn, email, password, generated)
}

// CreateSuperAdmin creates a super-admin account with the given credentials.
func CreateSuperAdmin(conn *gorm.DB, email, password string, logPassword bool) error {
	if conn == nil {
		return fmt.Errorf("nil database connection")
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}
	rawLimits, errLimits := json.Marshal(tier.Resolve(tier.PlanDiamond))
	if errLimits != nil {
		return fmt.Errorf("encode tier limits: %w", errLimits)
	}

	admin := models.User{
		Email:      email,
		Name:       "Administrator",
		Password:   hash,
		Provider:   "local",
		Role:       models.RoleSuperAdmin,
		Plan:       tier.PlanDiamond,
		TierLimits: datatypes.JSON(rawLimits),
		Active:     true,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin user: %w", errCreate)
	}

	fields := log.Fields{"email": email}
	if logPassword {
		fields["password"] = password
	}
	log.WithFields(fields).Info("created initial super-admin account")
	return nil
}
