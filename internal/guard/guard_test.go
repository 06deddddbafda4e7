package guard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zapcodes-dev/zapcodes/internal/db"
	"github.com/zapcodes-dev/zapcodes/internal/ledger"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/quota"
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

func newTestGuard(t *testing.T, conn *gorm.DB, now time.Time) *Service {
	t.Helper()
	nowFn := func() time.Time { return now }
	ledgerSvc := ledger.NewService(conn).WithNow(nowFn)
	return NewService(conn, ledgerSvc).WithNow(nowFn)
}

func seedUser(t *testing.T, conn *gorm.DB, user *models.User) {
	t.Helper()
	if user.Email == "" {
		user.Email = "guard@example.com"
	}
	if user.Password == "" {
		user.Password = "x"
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Plan == "" {
		user.Plan = tier.PlanFree
	}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
}

func reload(t *testing.T, conn *gorm.DB, id uint64) models.User {
	t.Helper()
	var got models.User
	if errFind := conn.First(&got, id).Error; errFind != nil {
		t.Fatalf("reload user: %v", errFind)
	}
	return got
}

func TestRun_ChargesAndRecords(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestGuard(t, conn, now)

	user := &models.User{CoinBalance: 5000}
	seedUser(t, conn, user)

	outcome, errRun := svc.Run(context.Background(), user, tier.ActionGeneration, func(context.Context) error {
		return nil
	})
	if errRun != nil {
		t.Fatalf("run: %v", errRun)
	}
	if outcome.Balance != 0 || outcome.Charged != tier.Cost(tier.ActionGeneration) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Usage.Generations != 1 {
		t.Fatalf("expected one recorded generation, got %+v", outcome.Usage)
	}

	// An immediate second attempt at zero balance is rejected on funds.
	fresh := reload(t, conn, user.ID)
	_, errSecond := svc.Run(context.Background(), &fresh, tier.ActionGeneration, func(context.Context) error {
		t.Fatalf("op must not run without a successful debit")
		return nil
	})
	var errFunds *ledger.InsufficientFundsError
	if !errors.As(errSecond, &errFunds) {
		t.Fatalf("expected InsufficientFundsError, got %v", errSecond)
	}
	if got := reload(t, conn, user.ID); got.CoinBalance != 0 {
		t.Fatalf("failed attempt must leave the balance at zero, got %d", got.CoinBalance)
	}
}

func TestRun_DailyCapStopsBeforeDebit(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestGuard(t, conn, now)

	cap := tier.Resolve(tier.PlanBronze).DailyFixCap
	user := &models.User{Plan: tier.PlanBronze, CoinBalance: 1_000_000}
	seedUser(t, conn, user)

	for i := 0; i < int(cap); i++ {
		fresh := reload(t, conn, user.ID)
		if _, errRun := svc.Run(context.Background(), &fresh, tier.ActionCodeFix, func(context.Context) error {
			return nil
		}); errRun != nil {
			t.Fatalf("fix %d within the cap: %v", i, errRun)
		}
	}

	fresh := reload(t, conn, user.ID)
	balanceBefore := fresh.CoinBalance
	_, errRun := svc.Run(context.Background(), &fresh, tier.ActionCodeFix, func(context.Context) error {
		t.Fatalf("op must not run past a cap denial")
		return nil
	})
	var errLimit *quota.LimitReachedError
	if !errors.As(errRun, &errLimit) {
		t.Fatalf("expected LimitReachedError, got %v", errRun)
	}
	if errLimit.Used != int(cap) || errLimit.Cap != cap {
		t.Fatalf("unexpected limit detail: %+v", errLimit)
	}

	got := reload(t, conn, user.ID)
	if got.CoinBalance != balanceBefore {
		t.Fatalf("cap denial must not charge, balance %d", got.CoinBalance)
	}
	if got.DailyCodeFixes != int(cap) {
		t.Fatalf("cap denial must not touch the counter, got %d", got.DailyCodeFixes)
	}
}

func TestRun_InsufficientFundsStopsBeforeOp(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestGuard(t, conn, now)

	user := &models.User{CoinBalance: 4999}
	seedUser(t, conn, user)

	_, errRun := svc.Run(context.Background(), user, tier.ActionGeneration, func(context.Context) error {
		t.Fatalf("op must not run without a successful debit")
		return nil
	})
	var errFunds *ledger.InsufficientFundsError
	if !errors.As(errRun, &errFunds) {
		t.Fatalf("expected InsufficientFundsError, got %v", errRun)
	}

	got := reload(t, conn, user.ID)
	if got.CoinBalance != 4999 || got.DailyGenerations != 0 {
		t.Fatalf("denial must leave state untouched: %+v", got)
	}
}

func TestRun_FailedOpRefundsAndReverts(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestGuard(t, conn, now)

	user := &models.User{CoinBalance: 25000}
	seedUser(t, conn, user)

	_, errRun := svc.Run(context.Background(), user, tier.ActionCodeFix, func(context.Context) error {
		return errors.New("provider unreachable")
	})
	var errProvider *ProviderFailureError
	if !errors.As(errRun, &errProvider) {
		t.Fatalf("expected ProviderFailureError, got %v", errRun)
	}

	got := reload(t, conn, user.ID)
	if got.CoinBalance != 25000 {
		t.Fatalf("failed op must refund exactly, balance %d", got.CoinBalance)
	}
	if got.DailyCodeFixes != 0 {
		t.Fatalf("failed op must revert the usage counter, got %d", got.DailyCodeFixes)
	}

	// The charge and its refund both remain visible in the ledger.
	var rows []models.CoinTransaction
	if errFind := conn.Where("user_id = ?", user.ID).Order("id ASC").Find(&rows).Error; errFind != nil {
		t.Fatalf("list transactions: %v", errFind)
	}
	if len(rows) != 2 || rows[0].Kind != models.KindCodeFix || rows[1].Kind != models.KindRefund {
		t.Fatalf("unexpected ledger: %+v", rows)
	}
}

func TestRun_EmptyResultRefunds(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestGuard(t, conn, now)

	user := &models.User{CoinBalance: 5000}
	seedUser(t, conn, user)

	_, errRun := svc.Run(context.Background(), user, tier.ActionGeneration, func(context.Context) error {
		return ErrEmptyResult
	})
	if errRun == nil {
		t.Fatalf("expected an error for an empty result")
	}
	got := reload(t, conn, user.ID)
	if got.CoinBalance != 5000 || got.DailyGenerations != 0 {
		t.Fatalf("empty result must be net-zero: %+v", got)
	}
}

func TestRun_SuperAdminUnchargedUncounted(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestGuard(t, conn, now)

	user := &models.User{Role: models.RoleSuperAdmin, Plan: tier.PlanFree, CoinBalance: 0}
	seedUser(t, conn, user)

	outcome, errRun := svc.Run(context.Background(), user, tier.ActionCodeFix, func(context.Context) error {
		return nil
	})
	if errRun != nil {
		t.Fatalf("run: %v", errRun)
	}
	if outcome.Charged != 0 || outcome.Balance != 0 {
		t.Fatalf("exempt role must not be charged: %+v", outcome)
	}

	got := reload(t, conn, user.ID)
	if got.DailyCodeFixes != 0 {
		t.Fatalf("exempt role must not consume quota, got %d", got.DailyCodeFixes)
	}
}

func TestRequireFeature(t *testing.T) {
	free := &models.User{Role: models.RoleUser, Plan: tier.PlanFree}
	errLocked := RequireFeature(free, FeaturePWA)
	var errFeature *PlanFeatureLockedError
	if !errors.As(errLocked, &errFeature) {
		t.Fatalf("expected PlanFeatureLockedError, got %v", errLocked)
	}

	gold := &models.User{Role: models.RoleUser, Plan: tier.PlanGold}
	if errAllowed := RequireFeature(gold, FeaturePWA); errAllowed != nil {
		t.Fatalf("gold plan must allow pwa: %v", errAllowed)
	}

	admin := &models.User{Role: models.RoleSuperAdmin, Plan: tier.PlanFree}
	if errAdmin := RequireFeature(admin, FeatureBadgeRemoval); errAdmin != nil {
		t.Fatalf("super-admin must bypass feature locks: %v", errAdmin)
	}
}

func TestResolveModel(t *testing.T) {
	free := &models.User{Role: models.RoleUser, Plan: tier.PlanFree}
	caps := tier.Resolve(tier.PlanFree)

	model, errResolve := ResolveModel(free, "")
	if errResolve != nil || model != caps.DefaultModel() {
		t.Fatalf("empty request must fall back to the plan default, got %q (%v)", model, errResolve)
	}

	restricted := ""
	for _, m := range tier.Resolve(tier.PlanDiamond).Models {
		if !caps.AllowsModel(m) {
			restricted = m
			break
		}
	}
	if restricted == "" {
		t.Fatalf("every diamond model is available on free")
	}
	_, errDenied := ResolveModel(free, restricted)
	var errModel *ModelNotAllowedError
	if !errors.As(errDenied, &errModel) {
		t.Fatalf("expected ModelNotAllowedError, got %v", errDenied)
	}

	admin := &models.User{Role: models.RoleSuperAdmin, Plan: tier.PlanFree}
	model, errResolve = ResolveModel(admin, restricted)
	if errResolve != nil || model != restricted {
		t.Fatalf("super-admin must resolve any model, got %q (%v)", model, errResolve)
	}
}
