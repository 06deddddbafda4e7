// Package quota tracks per-user, per-calendar-day action counters.
//
// Counters reset lazily: a stored date other than today means the counters
// read as zero, and nothing is written until the next recorded usage.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	"gorm.io/gorm"
)

// dayLayout formats a UTC calendar day.
const dayLayout = "2006-01-02"

// Day returns the UTC calendar-day string for the given time.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// counterColumn maps an action to its counter column.
func counterColumn(action tier.Action) string {
	switch action {
	case tier.ActionGeneration:
		return "daily_generations"
	case tier.ActionCodeFix:
		return "daily_code_fixes"
	case tier.ActionGithubPush:
		return "daily_github_pushes"
	default:
		return ""
	}
}

// capFor returns the daily cap for an action from the capability table.
// Actions without a daily counter are unlimited here; they are gated by
// feature flags and coin cost instead.
func capFor(action tier.Action, caps tier.Capabilities) tier.Limit {
	switch action {
	case tier.ActionGeneration:
		return caps.DailyGenerationCap
	case tier.ActionCodeFix:
		return caps.DailyFixCap
	case tier.ActionGithubPush:
		return caps.DailyPushCap
	default:
		return tier.Unlimited
	}
}

// usedFor reads the in-memory counter for an action, applying the lazy reset.
func usedFor(user *models.User, action tier.Action, today string) int {
	if user == nil || user.DailyUsageDate != today {
		return 0
	}
	switch action {
	case tier.ActionGeneration:
		return user.DailyGenerations
	case tier.ActionCodeFix:
		return user.DailyCodeFixes
	case tier.ActionGithubPush:
		return user.DailyGithubPushes
	default:
		return 0
	}
}

// Snapshot is the daily usage state reported to clients.
type Snapshot struct {
	Date         string `json:"date"`          // UTC calendar day.
	Generations  int    `json:"generations"`   // Generations used today.
	CodeFixes    int    `json:"code_fixes"`    // Code fixes used today.
	GithubPushes int    `json:"github_pushes"` // GitHub pushes used today.
}

// SnapshotFor builds the usage snapshot for a user as of now, applying the
// lazy reset without writing anything.
func SnapshotFor(user *models.User, now time.Time) Snapshot {
	today := Day(now)
	snap := Snapshot{Date: today}
	if user == nil || user.DailyUsageDate != today {
		return snap
	}
	snap.Generations = user.DailyGenerations
	snap.CodeFixes = user.DailyCodeFixes
	snap.GithubPushes = user.DailyGithubPushes
	return snap
}

// LimitReachedError reports a denied action with cap and usage detail.
type LimitReachedError struct {
	Action tier.Action // Denied action.
	Cap    tier.Limit  // Daily cap for the plan.
	Used   int         // Usage already recorded today.
}

// Error renders the denial detail.
func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("daily limit reached for %s: used %d of %s", e.Action, e.Used, e.Cap)
}

// Evaluate returns today's usage, the applicable cap, and whether one more
// action is allowed. It never mutates state; resetting is observable only
// when Record next writes.
func Evaluate(user *models.User, action tier.Action, caps tier.Capabilities, now time.Time) (used int, cap tier.Limit, allowed bool) {
	cap = capFor(action, caps)
	if user != nil && user.Role.BypassesLimits() {
		return 0, cap, true
	}
	used = usedFor(user, action, Day(now))
	return used, cap, cap.Allows(used)
}

// CanPerform reports whether the user may perform the action right now.
func CanPerform(user *models.User, action tier.Action, caps tier.Capabilities, now time.Time) bool {
	_, _, allowed := Evaluate(user, action, caps, now)
	return allowed
}

// Record increments the action counter for today in a single UPDATE.
//
// When the stored date is stale every counter restarts from zero, so the
// write is expressed as CASE on the stored date rather than a read-modify-write.
func Record(ctx context.Context, db *gorm.DB, userID uint64, action tier.Action, now time.Time) error {
	column := counterColumn(action)
	if column == "" {
		return nil
	}
	today := Day(now)

	updates := map[string]any{
		"daily_usage_date": today,
		"updated_at":       now.UTC(),
	}
	for _, col := range []string{"daily_generations", "daily_code_fixes", "daily_github_pushes"} {
		if col == column {
			updates[col] = gorm.Expr("CASE WHEN daily_usage_date = ? THEN "+col+" + 1 ELSE 1 END", today)
		} else {
			updates[col] = gorm.Expr("CASE WHEN daily_usage_date = ? THEN "+col+" ELSE 0 END", today)
		}
	}

	res := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Revert decrements the action counter by one, clamped at zero, and only
// when the stored date is still today. Used to undo the increment after a
// failed external operation.
func Revert(ctx context.Context, db *gorm.DB, userID uint64, action tier.Action, now time.Time) error {
	column := counterColumn(action)
	if column == "" {
		return nil
	}
	today := Day(now)

	res := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND daily_usage_date = ?", userID, today).
		Updates(map[string]any{
			column:       gorm.Expr("CASE WHEN "+column+" > 0 THEN "+column+" - 1 ELSE 0 END"),
			"updated_at": now.UTC(),
		})
	return res.Error
}
