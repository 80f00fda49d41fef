// Package testutil builds in-memory backing stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

// NewDB opens an isolated in-memory database with every model migrated. A single
// connection serialises access, so concurrent tests exercise the conditional
// updates rather than SQLite's table locks.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// NewRedis starts a miniredis server and returns it with a connected client.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func Logger() *zap.Logger {
	return zap.NewNop()
}

// CreateCustomer inserts a verified customer-only account.
func CreateCustomer(t testing.TB, gdb *gorm.DB, email string) *models.User {
	t.Helper()

	u := &models.User{
		Name:       "Customer " + email,
		Email:      email,
		Password:   "x",
		Roles:      []models.Role{models.RoleCustomer},
		ActiveRole: models.RoleCustomer,
		IsActive:   true,
		IsVerified: true,
		Location:   "Nairobi",
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return u
}

// CreateFundi inserts an account holding both roles with fundi active. When
// onboarded is true a FundiProfile with coordinates is attached as well.
func CreateFundi(t testing.TB, gdb *gorm.DB, email string, onboarded bool, skills ...string) *models.User {
	t.Helper()

	lat, lng := -1.2921, 36.8219
	u := &models.User{
		Name:               "Fundi " + email,
		Email:              email,
		Password:           "x",
		Roles:              []models.Role{models.RoleCustomer, models.RoleFundi},
		ActiveRole:         models.RoleFundi,
		IsActive:           true,
		IsVerified:         true,
		OnboardingComplete: onboarded,
		Location:           "Nairobi Westlands",
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create fundi: %v", err)
	}

	if onboarded {
		if len(skills) == 0 {
			skills = []string{"Plumbing"}
		}
		p := &models.FundiProfile{
			UserID:             u.ID,
			Skills:             skills,
			Availability:       true,
			Latitude:           &lat,
			Longitude:          &lng,
			VerificationStatus: models.VerificationPending,
		}
		if err := gdb.Create(p).Error; err != nil {
			t.Fatalf("create profile: %v", err)
		}
		u.FundiProfile = p
	}
	return u
}

// CreateJob inserts an open job owned by customer with the given budget bounds
// (nil for unset).
func CreateJob(t testing.TB, gdb *gorm.DB, customer *models.User, budgetMin, budgetMax *int64) *models.Job {
	t.Helper()

	j := &models.Job{
		Title:       "Fix kitchen sink",
		Description: "Leaking pipe under the sink",
		CustomerID:  customer.ID,
		Location:    "Nairobi Westlands",
		Status:      models.JobStatusOpen,
		Urgency:     models.UrgencyMedium,
	}
	if budgetMin != nil {
		j.BudgetMin = decimal.NewNullDecimal(decimal.NewFromInt(*budgetMin))
	}
	if budgetMax != nil {
		j.BudgetMax = decimal.NewNullDecimal(decimal.NewFromInt(*budgetMax))
	}
	if err := gdb.Create(j).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func Int64(v int64) *int64 { return &v }
