package models

import "time"

// Site records a deployed site owned by a user.
type Site struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	Subdomain string `gorm:"type:text;not null;uniqueIndex"` // Globally unique subdomain.
	Title     string `gorm:"type:text;not null"`             // Display title.

	ShowBadge bool `gorm:"not null;default:true"`  // Whether the hosted badge is visible.
	PWA       bool `gorm:"not null;default:false"` // Whether the site is built as a PWA.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
