package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
	"github.com/cmlabs-hris/leave-portal-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/leave-portal-go/migrations"
	"github.com/stretchr/testify/require"
)

var truncatedTables = []string{
	"audit_logs",
	"attendances",
	"notifications",
	"leave_requests",
	"refresh_tokens",
	"users",
}

// newTestDatabase connects to TEST_DATABASE_URL, applies migrations and
// empties every table. The test is skipped when no database is configured.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolConfig{MaxConns: 5, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx, migrations.FS))

	for _, table := range truncatedTables {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "truncate %s", table)
	}

	return db
}

func createUser(t *testing.T, db *database.DB, name string, role user.Role, department string) user.User {
	t.Helper()

	repo := postgresql.NewUserRepository(db)
	u, err := repo.Create(context.Background(), user.User{
		Name:       name,
		Email:      fmt.Sprintf("%s.%d@campus.test", role, time.Now().UnixNano()),
		Role:       role,
		Department: department,
		IsActive:   true,
	})
	require.NoError(t, err)
	return u
}
