package models

import "time"

// TransactionKind labels the origin of a ledger entry.
type TransactionKind string

// TransactionKind constants define ledger entry origins.
const (
	// KindGeneration charges a scaffolding generation.
	KindGeneration TransactionKind = "generation"
	// KindCodeFix charges a code fix.
	KindCodeFix TransactionKind = "code_fix"
	// KindGithubPush charges a GitHub push.
	KindGithubPush TransactionKind = "github_push"
	// KindPWABuild charges a PWA build.
	KindPWABuild TransactionKind = "pwa_build"
	// KindBadgeRemoval charges a badge removal.
	KindBadgeRemoval TransactionKind = "badge_removal"
	// KindDailyClaim credits the daily coin claim.
	KindDailyClaim TransactionKind = "daily_claim"
	// KindSignupBonus credits the one-time signup bonus.
	KindSignupBonus TransactionKind = "signup_bonus"
	// KindRefund credits back a failed external action.
	KindRefund TransactionKind = "refund"
	// KindAdminAdjust records a manual admin grant or deduction.
	KindAdminAdjust TransactionKind = "admin_adjust"
)

// CoinTransaction records a single coin ledger entry.
//
// Entries carry the post-operation balance snapshot, not just the delta,
// so the newest entry always equals the account's current balance.
type CoinTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	Kind         TransactionKind `gorm:"type:text;not null"` // Entry origin.
	Amount       int64           `gorm:"not null"`           // Signed coin delta.
	BalanceAfter int64           `gorm:"not null"`           // Balance snapshot after the operation.
	Description  string          `gorm:"type:text"`          // Human-readable description.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// MaxTransactionsPerUser bounds the retained ledger length per account.
const MaxTransactionsPerUser = 100
