// Package ledger maintains per-user coin balances backed by a capped
// append-only transaction log.
//
// Balance mutations are single conditional UPDATEs so that concurrent
// requests cannot produce lost updates or a negative balance.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimInterval is the rolling window between daily claims.
const claimInterval = 24 * time.Hour

// Service performs coin ledger operations.
type Service struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewService constructs a ledger Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, nowFn: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(nowFn func() time.Time) *Service {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// Snapshot describes the account state after a ledger operation.
type Snapshot struct {
	Balance int64 // Balance after the operation.
	Amount  int64 // Signed amount applied; zero for exempt roles.
}

// Debit withdraws coins from the user.
//
// The withdrawal is a conditional UPDATE guarded by the current balance, so
// a losing race simply re-reads and reports InsufficientFundsError rather
// than driving the balance negative. Roles that bypass limits are charged
// nothing and produce no ledger entry.
func (s *Service) Debit(ctx context.Context, userID uint64, amount int64, kind models.TransactionKind, description string) (Snapshot, error) {
	if amount <= 0 {
		return s.currentSnapshot(ctx, userID)
	}

	var snap Snapshot
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Select("id", "role", "coin_balance").First(&user, userID).Error; errFind != nil {
			return errFind
		}
		if user.Role.BypassesLimits() {
			snap = Snapshot{Balance: user.CoinBalance}
			return nil
		}

		now := s.nowFn().UTC()
		res := tx.Model(&models.User{}).
			Where("id = ? AND coin_balance >= ?", userID, amount).
			Updates(map[string]any{
				"coin_balance": gorm.Expr("coin_balance - ?", amount),
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// The earlier read may be stale by the time the guarded UPDATE
			// loses, so report the balance as it stands now.
			available, errAvail := readBalance(tx, userID)
			if errAvail != nil {
				return errAvail
			}
			return &InsufficientFundsError{Required: amount, Available: available}
		}

		balance, errBalance := readBalance(tx, userID)
		if errBalance != nil {
			return errBalance
		}
		if errAppend := appendTransaction(tx, userID, kind, -amount, balance, description, now); errAppend != nil {
			return errAppend
		}
		snap = Snapshot{Balance: balance, Amount: -amount}
		return nil
	})
	if errTx != nil {
		return Snapshot{}, errTx
	}
	return snap, nil
}

// Credit deposits coins into the user. It always succeeds for existing users
// and is used for grants and for refunding a prior debit.
func (s *Service) Credit(ctx context.Context, userID uint64, amount int64, kind models.TransactionKind, description string) (Snapshot, error) {
	if amount <= 0 {
		return s.currentSnapshot(ctx, userID)
	}

	var snap Snapshot
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.nowFn().UTC()
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"coin_balance": gorm.Expr("coin_balance + ?", amount),
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		balance, errBalance := readBalance(tx, userID)
		if errBalance != nil {
			return errBalance
		}
		if errAppend := appendTransaction(tx, userID, kind, amount, balance, description, now); errAppend != nil {
			return errAppend
		}
		snap = Snapshot{Balance: balance, Amount: amount}
		return nil
	})
	if errTx != nil {
		return Snapshot{}, errTx
	}
	return snap, nil
}

// Refund credits back the exact amount of a prior debit after a failed
// external action, making the action net-zero on failure.
func (s *Service) Refund(ctx context.Context, userID uint64, amount int64, action tier.Action) (Snapshot, error) {
	return s.Credit(ctx, userID, amount, models.KindRefund, "refund: "+string(action)+" failed")
}

// ClaimResult describes a successful daily claim.
type ClaimResult struct {
	Claimed     int64 // Coins credited by the claim itself.
	SignupBonus int64 // One-time bonus credited, zero after the first claim.
	Balance     int64 // Balance after all credits.
	NextClaimAt time.Time
}

// Claim credits the plan's daily coin amount no more than once per rolling
// 24 hour window, plus the one-time signup bonus on the very first claim.
func (s *Service) Claim(ctx context.Context, userID uint64) (ClaimResult, error) {
	var result ClaimResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; errFind != nil {
			return errFind
		}

		now := s.nowFn().UTC()
		if user.LastClaimAt != nil {
			elapsed := now.Sub(*user.LastClaimAt)
			if elapsed < claimInterval {
				return &AlreadyClaimedError{NextIn: claimInterval - elapsed}
			}
		}

		caps := tier.Resolve(user.Plan)
		claimAmount := caps.DailyClaimCoins
		bonus := int64(0)
		if !user.SignupBonusGranted {
			bonus = tier.SignupBonusCoins
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"coin_balance":         gorm.Expr("coin_balance + ?", claimAmount+bonus),
				"last_claim_at":        now,
				"signup_bonus_granted": true,
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}

		balance, errBalance := readBalance(tx, userID)
		if errBalance != nil {
			return errBalance
		}

		bonusBalance := balance - claimAmount
		if bonus > 0 {
			if errAppend := appendTransaction(tx, userID, models.KindSignupBonus, bonus, bonusBalance, "signup bonus", now); errAppend != nil {
				return errAppend
			}
		}
		if errAppend := appendTransaction(tx, userID, models.KindDailyClaim, claimAmount, balance, "daily claim", now); errAppend != nil {
			return errAppend
		}

		result = ClaimResult{
			Claimed:     claimAmount,
			SignupBonus: bonus,
			Balance:     balance,
			NextClaimAt: now.Add(claimInterval),
		}
		return nil
	})
	if errTx != nil {
		return ClaimResult{}, errTx
	}
	return result, nil
}

// ClaimStatus reports whether a claim is currently allowed and the wait if not.
func ClaimStatus(user *models.User, now time.Time) (canClaim bool, nextIn time.Duration) {
	if user == nil || user.LastClaimAt == nil {
		return true, 0
	}
	elapsed := now.UTC().Sub(*user.LastClaimAt)
	if elapsed >= claimInterval {
		return true, 0
	}
	return false, claimInterval - elapsed
}

// Transactions returns the retained ledger entries, oldest first.
func (s *Service) Transactions(ctx context.Context, userID uint64) ([]models.CoinTransaction, error) {
	var rows []models.CoinTransaction
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// currentSnapshot reads the balance without mutating anything.
func (s *Service) currentSnapshot(ctx context.Context, userID uint64) (Snapshot, error) {
	balance, errBalance := readBalance(s.db.WithContext(ctx), userID)
	if errBalance != nil {
		return Snapshot{}, errBalance
	}
	return Snapshot{Balance: balance}, nil
}

// readBalance fetches the current coin balance inside the given handle.
func readBalance(tx *gorm.DB, userID uint64) (int64, error) {
	var row struct {
		CoinBalance int64
	}
	errFind := tx.Model(&models.User{}).
		Select("coin_balance").
		Where("id = ?", userID).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, errFind
	}
	return row.CoinBalance, nil
}

// appendTransaction inserts one ledger row and truncates the per-user log to
// the newest MaxTransactionsPerUser entries, oldest evicted first.
func appendTransaction(tx *gorm.DB, userID uint64, kind models.TransactionKind, amount, balanceAfter int64, description string, now time.Time) error {
	row := models.CoinTransaction{
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  description,
		CreatedAt:    now,
	}
	if errCreate := tx.Create(&row).Error; errCreate != nil {
		return errCreate
	}

	return tx.Exec(`
		DELETE FROM coin_transactions
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM coin_transactions
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`, userID, userID, models.MaxTransactionsPerUser).Error
}
