package billing

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/zapcodes-dev/zapcodes/internal/db"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "zc-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:    "billing@example.com",
		Password: "x",
		Role:     models.RoleUser,
		Plan:     tier.PlanFree,
	}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return user
}

func TestApplyPlanChange_SyncsDenormalizedLimits(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()
	user := seedUser(t, conn)

	if errApply := sync.ApplyPlanChange(ctx, user.ID, tier.PlanGold, "cus_123", "sub_456"); errApply != nil {
		t.Fatalf("apply plan change: %v", errApply)
	}

	var got models.User
	if errFind := conn.First(&got, user.ID).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.Plan != tier.PlanGold {
		t.Fatalf("unexpected plan %q", got.Plan)
	}
	if got.StripeCustomerID != "cus_123" || got.StripeSubscriptionID != "sub_456" {
		t.Fatalf("stripe linkage not stored: %+v", got)
	}

	var caps tier.Capabilities
	if errDecode := json.Unmarshal(got.TierLimits, &caps); errDecode != nil {
		t.Fatalf("decode tier limits: %v", errDecode)
	}
	want := tier.Resolve(tier.PlanGold)
	if caps.Plan != want.Plan || caps.DailyFixCap != want.DailyFixCap || caps.AllowPWA != want.AllowPWA {
		t.Fatalf("denormalized limits out of sync: %+v", caps)
	}
}

func TestApplyPlanChange_EmptyStripeIDsLeaveLinkage(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()
	user := seedUser(t, conn)

	if errApply := sync.ApplyPlanChange(ctx, user.ID, tier.PlanSilver, "cus_123", "sub_456"); errApply != nil {
		t.Fatalf("apply plan change: %v", errApply)
	}
	// An admin-driven change passes empty IDs and must not clear the linkage.
	if errApply := sync.ApplyPlanChange(ctx, user.ID, tier.PlanBronze, "", ""); errApply != nil {
		t.Fatalf("apply plan change: %v", errApply)
	}

	var got models.User
	if errFind := conn.First(&got, user.ID).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.Plan != tier.PlanBronze || got.StripeCustomerID != "cus_123" || got.StripeSubscriptionID != "sub_456" {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestApplyPlanChange_RejectsUnknownPlan(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	user := seedUser(t, conn)

	if errApply := sync.ApplyPlanChange(context.Background(), user.ID, "platinum", "", ""); errApply == nil {
		t.Fatalf("unknown plan must be rejected")
	}
}

func TestRevertToFree(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()
	user := seedUser(t, conn)

	if errApply := sync.ApplyPlanChange(ctx, user.ID, tier.PlanDiamond, "cus_123", "sub_456"); errApply != nil {
		t.Fatalf("apply plan change: %v", errApply)
	}
	if errRevert := sync.RevertToFree(ctx, user.ID); errRevert != nil {
		t.Fatalf("revert to free: %v", errRevert)
	}

	var got models.User
	if errFind := conn.First(&got, user.ID).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.Plan != tier.PlanFree {
		t.Fatalf("unexpected plan %q", got.Plan)
	}
	if got.StripeSubscriptionID != "" {
		t.Fatalf("subscription linkage must be cleared, got %q", got.StripeSubscriptionID)
	}
	if got.StripeCustomerID != "cus_123" {
		t.Fatalf("customer linkage must survive cancellation, got %q", got.StripeCustomerID)
	}
}

func TestMarkEventProcessed_ReplayIsNoop(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()

	first, errMark := sync.MarkEventProcessed(ctx, "evt_1", "customer.subscription.updated")
	if errMark != nil {
		t.Fatalf("mark: %v", errMark)
	}
	if !first {
		t.Fatalf("first delivery must report fresh")
	}

	replay, errReplay := sync.MarkEventProcessed(ctx, "evt_1", "customer.subscription.updated")
	if errReplay != nil {
		t.Fatalf("mark replay: %v", errReplay)
	}
	if replay {
		t.Fatalf("replayed event must report already processed")
	}

	var count int64
	if errCount := conn.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_1").Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one journal row, got %d", count)
	}
}

func TestProcessEvent_FailedApplyRollsBackJournal(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()
	user := seedUser(t, conn)

	errBoom := errors.New("no account matches the reference")
	_, errFirst := sync.ProcessEvent(ctx, "evt_2", "checkout.session.completed",
		func(ctx context.Context, sync *Synchronizer) error {
			return errBoom
		})
	if !errors.Is(errFirst, errBoom) {
		t.Fatalf("expected apply error, got %v", errFirst)
	}

	var count int64
	if errCount := conn.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_2").Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("journal row must be rolled back with the failed apply, got %d", count)
	}

	// The provider retries the identical delivery. It must now be applied,
	// not dismissed as a replay.
	fresh, errRetry := sync.ProcessEvent(ctx, "evt_2", "checkout.session.completed",
		func(ctx context.Context, sync *Synchronizer) error {
			return sync.ApplyPlanChange(ctx, user.ID, tier.PlanSilver, "cus_retry", "sub_retry")
		})
	if errRetry != nil {
		t.Fatalf("retry: %v", errRetry)
	}
	if !fresh {
		t.Fatalf("retry after rollback must report fresh")
	}

	var got models.User
	if errFind := conn.First(&got, user.ID).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.Plan != tier.PlanSilver {
		t.Fatalf("retried event not applied, plan %q", got.Plan)
	}
}

func TestProcessEvent_ReplayIsNoop(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()
	user := seedUser(t, conn)

	apply := func(ctx context.Context, sync *Synchronizer) error {
		return sync.ApplyPlanChange(ctx, user.ID, tier.PlanGold, "", "")
	}
	fresh, errFirst := sync.ProcessEvent(ctx, "evt_3", "checkout.session.completed", apply)
	if errFirst != nil || !fresh {
		t.Fatalf("first delivery: fresh=%v err=%v", fresh, errFirst)
	}

	applied := false
	replay, errReplay := sync.ProcessEvent(ctx, "evt_3", "checkout.session.completed",
		func(ctx context.Context, sync *Synchronizer) error {
			applied = true
			return nil
		})
	if errReplay != nil {
		t.Fatalf("replay: %v", errReplay)
	}
	if replay || applied {
		t.Fatalf("replayed event must not be applied again: fresh=%v applied=%v", replay, applied)
	}
}

func TestUserIDByCustomer(t *testing.T) {
	conn := openTestDB(t)
	sync := NewSynchronizer(conn)
	ctx := context.Background()
	user := seedUser(t, conn)

	if errApply := sync.ApplyPlanChange(ctx, user.ID, tier.PlanBronze, "cus_lookup", ""); errApply != nil {
		t.Fatalf("apply plan change: %v", errApply)
	}

	id, errLookup := sync.UserIDByCustomer(ctx, "cus_lookup")
	if errLookup != nil || id != user.ID {
		t.Fatalf("lookup: id=%d err=%v", id, errLookup)
	}

	_, errMissing := sync.UserIDByCustomer(ctx, "cus_unknown")
	if !errors.Is(errMissing, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", errMissing)
	}
}
