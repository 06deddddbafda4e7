package models

import "time"

// WebhookEvent journals processed billing webhook events.
//
// The unique event ID makes webhook replays idempotent: an event that is
// already journaled is skipped instead of re-applied.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID string `gorm:"type:text;not null;uniqueIndex"` // Provider event ID.
	Type    string `gorm:"type:text;not null"`             // Provider event type.

	ProcessedAt time.Time `gorm:"not null"` // Time the event was applied.
}
