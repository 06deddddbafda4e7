// Package guard runs coin-consuming actions through one fixed sequence:
// capability check, daily-cap check, debit, usage record, external call,
// and compensating refund on failure.
package guard

import (
	"context"
	"time"

	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/quota"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service coordinates the usage-guard sequence.
type Service struct {
	db     *gorm.DB
	ledger *ledger.Service
	nowFn  func() time.Time
}

// NewService constructs a guard Service.
func NewService(db *gorm.DB, ledgerSvc *ledger.Service) *Service {
	return &Service{db: db, ledger: ledgerSvc, nowFn: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(nowFn func() time.Time) *Service {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// Outcome reports the account state after a guarded action, for client display.
type Outcome struct {
	Balance int64          // Coin balance after the action.
	Charged int64          // Coins actually charged (zero for exempt roles).
	Usage   quota.Snapshot // Daily usage after the action.
}

// Run executes op under the usage guard for the given action.
//
// Ordering matters: the debit happens before any external side effect, and a
// failed or empty op is compensated by an exact refund plus a counter
// decrement before the error is reported. A rejection from any step leaves
// balance and counters exactly as they were.
func (s *Service) Run(ctx context.Context, user *models.User, action tier.Action, op func(ctx context.Context) error) (Outcome, error) {
	caps := tier.Resolve(user.Plan)
	now := s.nowFn()

	used, cap, allowed := quota.Evaluate(user, action, caps, now)
	if !allowed {
		return Outcome{}, &quota.LimitReachedError{Action: action, Cap: cap, Used: used}
	}

	cost := tier.Cost(action)
	snap, errDebit := s.ledger.Debit(ctx, user.ID, cost, models.TransactionKind(action), string(action))
	if errDebit != nil {
		return Outcome{}, errDebit
	}

	recorded := false
	if !user.Role.BypassesLimits() {
		if errRecord := quota.Record(ctx, s.db, user.ID, action, now); errRecord != nil {
			s.compensate(ctx, user.ID, snap, action, recorded, now)
			return Outcome{}, errRecord
		}
		recorded = true
	}

	if errOp := op(ctx); errOp != nil {
		s.compensate(ctx, user.ID, snap, action, recorded, now)
		return Outcome{}, &ProviderFailureError{Action: string(action), Err: errOp}
	}

	return s.outcome(ctx, user.ID, snap)
}

// RequireFeature gates tier-flagged features. Roles that bypass limits are
// always allowed.
func RequireFeature(user *models.User, feature string) error {
	if user.Role.BypassesLimits() {
		return nil
	}
	caps := tier.Resolve(user.Plan)
	allowed := false
	switch feature {
	case FeaturePWA:
		allowed = caps.AllowPWA
	case FeatureBadgeRemoval:
		allowed = caps.AllowBadgeRemoval
	case FeatureProTools:
		allowed = caps.AllowProTools
	}
	if !allowed {
		return &PlanFeatureLockedError{Feature: feature, Plan: caps.Plan}
	}
	return nil
}

// ResolveModel picks the model for a completion. An empty request falls back
// to the plan default; anything outside the plan's model list is rejected.
// Roles that bypass limits may use any model.
func ResolveModel(user *models.User, requested string) (string, error) {
	caps := tier.Resolve(user.Plan)
	if requested == "" {
		return caps.DefaultModel(), nil
	}
	if user.Role.BypassesLimits() || caps.AllowsModel(requested) {
		return requested, nil
	}
	return "", &ModelNotAllowedError{Model: requested, Plan: caps.Plan}
}

// compensate refunds the debit and reverts the usage counter after a failure.
func (s *Service) compensate(ctx context.Context, userID uint64, snap ledger.Snapshot, action tier.Action, recorded bool, now time.Time) {
	if snap.Amount != 0 {
		if _, errRefund := s.ledger.Refund(ctx, userID, -snap.Amount, action); errRefund != nil {
			log.WithError(errRefund).
				WithField("user_id", userID).
				WithField("action", string(action)).
				Error("guard: refund failed")
		}
	}
	if recorded {
		if errRevert := quota.Revert(ctx, s.db, userID, action, now); errRevert != nil {
			log.WithError(errRevert).
				WithField("user_id", userID).
				WithField("action", string(action)).
				Error("guard: usage revert failed")
		}
	}
}

// outcome reads the post-action account state for the response payload.
func (s *Service) outcome(ctx context.Context, userID uint64, snap ledger.Snapshot) (Outcome, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, userID).Error; errFind != nil {
		return Outcome{}, errFind
	}
	return Outcome{
		Balance: user.CoinBalance,
		Charged: -snap.Amount,
		Usage:   quota.SnapshotFor(&user, s.nowFn()),
	}, nil
}
