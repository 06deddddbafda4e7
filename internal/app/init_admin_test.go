package app

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/zapcodes-dev/zapcodes/internal/db"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/security"
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

func TestEnsureSuperAdmin_CreatesOnce(t *testing.T) {
	conn := openTestDB(t)
	t.Setenv("INITIAL_ADMIN_EMAIL", "root@zapcodes.dev")
	t.Setenv("INITIAL_ADMIN_PASSWORD", "initial-password")

	if errEnsure := EnsureSuperAdmin(conn); errEnsure != nil {
		t.Fatalf("ensure super admin: %v", errEnsure)
	}

	var admin models.User
	if errFind := conn.Where("role = ?", models.RoleSuperAdmin).First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if admin.Email != "root@zapcodes.dev" || admin.Plan != tier.PlanDiamond || !admin.Active {
		t.Fatalf("unexpected admin account: %+v", admin)
	}
	if !security.CheckPassword(admin.Password, "initial-password") {
		t.Fatalf("stored password hash does not verify")
	}
	var caps tier.Capabilities
	if errDecode := json.Unmarshal(admin.TierLimits, &caps); errDecode != nil {
		t.Fatalf("decode tier limits: %v", errDecode)
	}
	if caps.Plan != tier.PlanDiamond {
		t.Fatalf("tier limits must be seeded for the diamond plan, got %q", caps.Plan)
	}

	// A second run must not create another super-admin.
	if errEnsure := EnsureSuperAdmin(conn); errEnsure != nil {
		t.Fatalf("ensure super admin again: %v", errEnsure)
	}
	var count int64
	if errCount := conn.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; errCount != nil {
		t.Fatalf("count admins: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one super-admin, got %d", count)
	}
}

func TestEnsureSuperAdmin_GeneratesPassword(t *testing.T) {
	conn := openTestDB(t)
	t.Setenv("INITIAL_ADMIN_EMAIL", "")
	t.Setenv("INITIAL_ADMIN_PASSWORD", "")

	if errEnsure := EnsureSuperAdmin(conn); errEnsure != nil {
		t.Fatalf("ensure super admin: %v", errEnsure)
	}

	exists, errHas := HasSuperAdmin(conn)
	if errHas != nil {
		t.Fatalf("has super admin: %v", errHas)
	}
	if !exists {
		t.Fatalf("super-admin must exist after EnsureSuperAdmin")
	}
}
