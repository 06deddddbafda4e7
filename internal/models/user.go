package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role identifies an account's authorization level.
type Role string

// Role constants define the closed role set.
const (
	// RoleUser is a regular end user.
	RoleUser Role = "user"
	// RoleModerator may review user content but not administer accounts.
	RoleModerator Role = "moderator"
	// RoleCoAdmin may use the admin console.
	RoleCoAdmin Role = "co-admin"
	// RoleSuperAdmin has every capability and bypasses usage limits.
	RoleSuperAdmin Role = "super-admin"
)

// BypassesLimits reports whether the role is exempt from daily caps and coin charges.
func (r Role) BypassesLimits() bool {
	return r == RoleSuperAdmin
}

// CanAdministrate reports whether the role may access the admin console.
func (r Role) CanAdministrate() bool {
	return r == RoleCoAdmin || r == RoleSuperAdmin
}

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleModerator, RoleCoAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"`   // Unique login email.
	Name     string `gorm:"type:text"`                        // Display name.
	Password string `gorm:"type:text;not null"`               // Hashed password.
	Provider string `gorm:"type:text;not null;default:local"` // Auth provider identifier.

	Role Role   `gorm:"type:text;not null;default:user;index"` // Authorization role.
	Plan string `gorm:"type:text;not null;default:free;index"` // Active plan slug.

	CoinBalance int64          `gorm:"not null;default:0"`               // Coin balance, never negative.
	TierLimits  datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Denormalized capability snapshot for the active plan.

	DailyUsageDate    string `gorm:"type:text;not null;default:''"` // UTC calendar day the counters belong to.
	DailyGenerations  int    `gorm:"not null;default:0"`            // Generations performed on DailyUsageDate.
	DailyCodeFixes    int    `gorm:"not null;default:0"`            // Code fixes performed on DailyUsageDate.
	DailyGithubPushes int    `gorm:"not null;default:0"`            // GitHub pushes performed on DailyUsageDate.

	LastClaimAt        *time.Time `gorm:""`                       // Last successful daily coin claim.
	SignupBonusGranted bool       `gorm:"not null;default:false"` // Latch for the one-time signup bonus.

	StripeCustomerID     string `gorm:"type:text;index"` // Billing provider customer ID.
	StripeSubscriptionID string `gorm:"type:text"`       // Billing provider subscription ID.

	TOTPSecret  string `gorm:"type:text"`              // TOTP secret, set at enrollment.
	TOTPEnabled bool   `gorm:"not null;default:false"` // Whether login requires a TOTP code; set once enrollment is confirmed.

	Active   bool `gorm:"not null;default:true"`  // Whether the user can sign in.
	Disabled bool `gorm:"not null;default:false"` // Explicit disable flag.

	Transactions []CoinTransaction `gorm:"foreignKey:UserID"` // Related ledger entries.
	Sites        []Site            `gorm:"foreignKey:UserID"` // Related deployed sites.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
