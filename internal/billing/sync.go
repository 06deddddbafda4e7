// Package billing keeps accounts in sync with the external billing provider.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Synchronizer applies billing events to user accounts.
type Synchronizer struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(db *gorm.DB) *Synchronizer {
	return &Synchronizer{db: db, nowFn: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Synchronizer) WithNow(nowFn func() time.Time) *Synchronizer {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// ApplyPlanChange sets the user's plan and re-derives the denormalized
// capability snapshot in the same UPDATE, so the plan slug and its limits
// can never drift apart.
func (s *Synchronizer) ApplyPlanChange(ctx context.Context, userID uint64, plan, customerID, subscriptionID string) error {
	if !tier.KnownPlan(plan) {
		return fmt.Errorf("billing: unknown plan %q", plan)
	}
	caps := tier.Resolve(plan)
	rawLimits, errMarshal := json.Marshal(caps)
	if errMarshal != nil {
		return fmt.Errorf("billing: encode tier limits: %w", errMarshal)
	}

	updates := map[string]any{
		"plan":        caps.Plan,
		"tier_limits": rawLimits,
		"updated_at":  s.nowFn().UTC(),
	}
	if customerID != "" {
		updates["stripe_customer_id"] = customerID
	}
	if subscriptionID != "" {
		updates["stripe_subscription_id"] = subscriptionID
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RevertToFree downgrades the user to the free plan on subscription
// cancellation and clears the subscription linkage.
func (s *Synchronizer) RevertToFree(ctx context.Context, userID uint64) error {
	caps := tier.Resolve(tier.PlanFree)
	rawLimits, errMarshal := json.Marshal(caps)
	if errMarshal != nil {
		return fmt.Errorf("billing: encode tier limits: %w", errMarshal)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"plan":                   tier.PlanFree,
			"tier_limits":            rawLimits,
			"stripe_subscription_id": "",
			"updated_at":             s.nowFn().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ProcessEvent journals the event and applies it inside a single transaction.
// A failed apply rolls the journal row back with it, so the provider's retry
// delivery is processed instead of being dismissed as a replay. It reports
// false when the event was already journaled.
func (s *Synchronizer) ProcessEvent(ctx context.Context, eventID, eventType string, apply func(ctx context.Context, sync *Synchronizer) error) (bool, error) {
	fresh := false
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := &Synchronizer{db: tx, nowFn: s.nowFn}
		var errMark error
		fresh, errMark = scoped.MarkEventProcessed(ctx, eventID, eventType)
		if errMark != nil {
			return errMark
		}
		if !fresh {
			return nil
		}
		return apply(ctx, scoped)
	})
	if errTx != nil {
		return false, errTx
	}
	return fresh, nil
}

// MarkEventProcessed journals a webhook event ID. It reports false when the
// event was already journaled, which makes webhook replays no-ops.
func (s *Synchronizer) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	row := models.WebhookEvent{
		EventID:     eventID,
		Type:        eventType,
		ProcessedAt: s.nowFn().UTC(),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UserIDByCustomer resolves a user from the billing provider customer ID.
func (s *Synchronizer) UserIDByCustomer(ctx context.Context, customerID string) (uint64, error) {
	if customerID == "" {
		return 0, gorm.ErrRecordNotFound
	}
	var row struct {
		ID uint64
	}
	errFind := s.db.WithContext(ctx).Model(&models.User{}).
		Select("id").
		Where("stripe_customer_id = ?", customerID).
		Take(&row).Error
	if errFind != nil {
		return 0, errFind
	}
	return row.ID, nil
}
