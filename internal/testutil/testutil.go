package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/glansab/backoffice/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema applies every down migration in reverse order, then every up
// migration in order.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downs, err := filepath.Glob(filepath.Join(root, "migrations", "*.down.sql"))
	if err != nil {
		return fmt.Errorf("list down migrations: %w", err)
	}
	ups, err := filepath.Glob(filepath.Join(root, "migrations", "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list up migrations: %w", err)
	}
	sort.Strings(ups)
	sort.Strings(downs)
	slices.Reverse(downs)

	for _, path := range append(downs, ups...) {
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filepath.Base(path), err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(path), err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProfile creates an active hourly worker profile.
func NewTestProfile(t testing.TB, orgID string) *model.UserProfile {
	t.Helper()
	rate := 250.0
	return &model.UserProfile{
		ID:             uuid.New().String(),
		OrganisationID: orgID,
		FullName:       "Test Worker",
		Email:          UniqueEmail("worker"),
		Role:           model.RoleWorker,
		EmploymentType: model.EmploymentHourly,
		BaseHourlyRate: &rate,
		IsActive:       true,
	}
}

// NewTestCustomer creates a company customer with sensible defaults.
func NewTestCustomer(t testing.TB, orgID, name string) *model.Customer {
	t.Helper()
	now := time.Now().UTC()
	email := UniqueEmail("kund")
	return &model.Customer{
		ID:                    uuid.New().String(),
		OrganisationID:        orgID,
		Name:                  name,
		Email:                 &email,
		CustomerType:          model.CustomerCompany,
		VATHandling:           model.VATStandard,
		InvoiceDeliveryMethod: model.DeliveryEmail,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// NewTestOrder creates an open order without line items.
func NewTestOrder(t testing.TB, orgID, title string) *model.Order {
	t.Helper()
	return &model.Order{
		ID:             uuid.New().String(),
		OrganisationID: orgID,
		Title:          title,
		Status:         model.OrderOpen,
		CreatedAt:      time.Now().UTC(),
	}
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.se", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
