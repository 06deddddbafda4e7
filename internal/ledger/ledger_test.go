package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

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

func seedUser(t *testing.T, conn *gorm.DB, user *models.User) {
	t.Helper()
	if user.Email == "" {
		user.Email = "ledger@example.com"
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

func TestDebit_InsufficientFunds(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	user := &models.User{CoinBalance: 4000}
	seedUser(t, conn, user)

	_, errDebit := svc.Debit(ctx, user.ID, 5000, models.KindGeneration, "spend: generation")
	var errFunds *InsufficientFundsError
	if !errors.As(errDebit, &errFunds) {
		t.Fatalf("expected InsufficientFundsError, got %v", errDebit)
	}
	if errFunds.Required != 5000 || errFunds.Available != 4000 {
		t.Fatalf("unexpected error detail: %+v", errFunds)
	}

	var got models.User
	if errFind := conn.First(&got, user.ID).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.CoinBalance != 4000 {
		t.Fatalf("failed debit must not touch the balance, got %d", got.CoinBalance)
	}
	rows, errList := svc.Transactions(ctx, user.ID)
	if errList != nil {
		t.Fatalf("transactions: %v", errList)
	}
	if len(rows) != 0 {
		t.Fatalf("failed debit must not append a ledger entry, got %d", len(rows))
	}
}

func TestDebit_LosingRaceReportsLiveBalance(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	user := &models.User{CoinBalance: 3000}
	seedUser(t, conn, user)

	// Drain the balance right after the first read, before the guarded
	// UPDATE runs, the way a concurrent debit would.
	drained := false
	errCb := conn.Callback().Query().After("gorm:query").Register("ledger_test_drain", func(tx *gorm.DB) {
		if drained || tx.Statement.Table != "users" {
			return
		}
		drained = true
		errExec := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE users SET coin_balance = coin_balance - 1500 WHERE id = ?", user.ID).Error
		if errExec != nil {
			t.Errorf("drain balance: %v", errExec)
		}
	})
	if errCb != nil {
		t.Fatalf("register callback: %v", errCb)
	}
	defer conn.Callback().Query().Remove("ledger_test_drain")

	_, errDebit := svc.Debit(ctx, user.ID, 2000, models.KindGeneration, "spend: generation")
	var errFunds *InsufficientFundsError
	if !errors.As(errDebit, &errFunds) {
		t.Fatalf("expected InsufficientFundsError, got %v", errDebit)
	}
	if errFunds.Available != 1500 {
		t.Fatalf("error must report the balance after the losing race, got %d", errFunds.Available)
	}
}

func TestDebit_RecordsSnapshotBalance(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	user := &models.User{CoinBalance: 12000}
	seedUser(t, conn, user)

	snap, errDebit := svc.Debit(ctx, user.ID, 10000, models.KindCodeFix, "spend: code_fix")
	if errDebit != nil {
		t.Fatalf("debit: %v", errDebit)
	}
	if snap.Balance != 2000 || snap.Amount != -10000 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	rows, errList := svc.Transactions(ctx, user.ID)
	if errList != nil {
		t.Fatalf("transactions: %v", errList)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one entry, got %d", len(rows))
	}
	if rows[0].Kind != models.KindCodeFix || rows[0].Amount != -10000 || rows[0].BalanceAfter != 2000 {
		t.Fatalf("unexpected entry: %+v", rows[0])
	}
}

func TestDebit_SuperAdminExempt(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	user := &models.User{Role: models.RoleSuperAdmin, CoinBalance: 100}
	seedUser(t, conn, user)

	snap, errDebit := svc.Debit(ctx, user.ID, 99999, models.KindGeneration, "spend: generation")
	if errDebit != nil {
		t.Fatalf("debit: %v", errDebit)
	}
	if snap.Balance != 100 || snap.Amount != 0 {
		t.Fatalf("exempt role must be charged nothing, got %+v", snap)
	}
	rows, errList := svc.Transactions(ctx, user.ID)
	if errList != nil {
		t.Fatalf("transactions: %v", errList)
	}
	if len(rows) != 0 {
		t.Fatalf("exempt debit must not append an entry, got %d", len(rows))
	}
}

func TestRefund_RestoresExactAmount(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	user := &models.User{CoinBalance: 10000}
	seedUser(t, conn, user)

	if _, errDebit := svc.Debit(ctx, user.ID, 10000, models.KindCodeFix, "spend: code_fix"); errDebit != nil {
		t.Fatalf("debit: %v", errDebit)
	}
	snap, errRefund := svc.Refund(ctx, user.ID, 10000, tier.ActionCodeFix)
	if errRefund != nil {
		t.Fatalf("refund: %v", errRefund)
	}
	if snap.Balance != 10000 {
		t.Fatalf("refund must restore the exact amount, got %d", snap.Balance)
	}

	rows, errList := svc.Transactions(ctx, user.ID)
	if errList != nil {
		t.Fatalf("transactions: %v", errList)
	}
	if len(rows) != 2 || rows[1].Kind != models.KindRefund || rows[1].Amount != 10000 {
		t.Fatalf("unexpected ledger after refund: %+v", rows)
	}
}

func TestTransactions_CappedAtNewestHundred(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	user := &models.User{}
	seedUser(t, conn, user)

	for i := 0; i < models.MaxTransactionsPerUser+10; i++ {
		if _, errCredit := svc.Credit(ctx, user.ID, 1, models.KindAdminAdjust, "grant"); errCredit != nil {
			t.Fatalf("credit %d: %v", i, errCredit)
		}
	}

	rows, errList := svc.Transactions(ctx, user.ID)
	if errList != nil {
		t.Fatalf("transactions: %v", errList)
	}
	if len(rows) != models.MaxTransactionsPerUser {
		t.Fatalf("expected %d retained entries, got %d", models.MaxTransactionsPerUser, len(rows))
	}
	// Oldest first, and the newest entry reflects the final balance.
	last := rows[len(rows)-1]
	if last.BalanceAfter != int64(models.MaxTransactionsPerUser+10) {
		t.Fatalf("newest entry balance %d, want %d", last.BalanceAfter, models.MaxTransactionsPerUser+10)
	}
	if rows[0].ID >= last.ID {
		t.Fatalf("entries must be ordered oldest first")
	}
}

func TestClaim_GrantsBonusOnceAndEnforcesWindow(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(conn).WithNow(func() time.Time { return now })
	ctx := context.Background()

	user := &models.User{}
	seedUser(t, conn, user)

	freeDaily := tier.Resolve(tier.PlanFree).DailyClaimCoins

	first, errClaim := svc.Claim(ctx, user.ID)
	if errClaim != nil {
		t.Fatalf("first claim: %v", errClaim)
	}
	if first.Claimed != freeDaily || first.SignupBonus != tier.SignupBonusCoins {
		t.Fatalf("unexpected first claim: %+v", first)
	}
	if first.Balance != freeDaily+tier.SignupBonusCoins {
		t.Fatalf("unexpected balance after first claim: %d", first.Balance)
	}

	// Inside the 24h window claims are rejected with the remaining wait.
	now = now.Add(23 * time.Hour)
	_, errClaim = svc.Claim(ctx, user.ID)
	var errAlready *AlreadyClaimedError
	if !errors.As(errClaim, &errAlready) {
		t.Fatalf("expected AlreadyClaimedError, got %v", errClaim)
	}
	if errAlready.NextIn != time.Hour {
		t.Fatalf("unexpected wait %v", errAlready.NextIn)
	}

	// After the window the claim succeeds and the bonus is not repeated.
	now = now.Add(2 * time.Hour)
	second, errSecond := svc.Claim(ctx, user.ID)
	if errSecond != nil {
		t.Fatalf("second claim: %v", errSecond)
	}
	if second.SignupBonus != 0 {
		t.Fatalf("signup bonus must only be granted once, got %d", second.SignupBonus)
	}
	if second.Balance != first.Balance+freeDaily {
		t.Fatalf("unexpected balance after second claim: %d", second.Balance)
	}
}

func TestClaimStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	if can, _ := ClaimStatus(&models.User{}, now); !can {
		t.Fatalf("user without prior claim must be able to claim")
	}

	last := now.Add(-30 * time.Hour)
	if can, _ := ClaimStatus(&models.User{LastClaimAt: &last}, now); !can {
		t.Fatalf("expired window must allow a claim")
	}

	recent := now.Add(-time.Hour)
	can, nextIn := ClaimStatus(&models.User{LastClaimAt: &recent}, now)
	if can || nextIn != 23*time.Hour {
		t.Fatalf("unexpected status: can=%v nextIn=%v", can, nextIn)
	}
}
