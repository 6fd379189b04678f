// internal/plan/plan_test.go
package plan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/model"
)

func setupService(t *testing.T) (*Service, *db.DB, *model.Admin) {
	t.Helper()
	database, err := db.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })

	admin, err := auth.NewService(database, "test-secret").CreateAdmin("owner@example.com", "secret123", "Warung")
	require.NoError(t, err)

	return NewService(database), database, admin
}

func TestGetAndList(t *testing.T) {
	s, _, _ := setupService(t)

	p, err := s.Get("free")
	require.NoError(t, err)
	require.Equal(t, 5, p.MaxTables)
	require.Equal(t, 25, p.MaxMenus)

	_, err = s.Get("enterprise")
	require.Error(t, err)

	plans, err := s.List()
	require.NoError(t, err)
	require.Len(t, plans, 3)
	require.Equal(t, "free", plans[0].ID, "ordered by price")
}

func TestCheckTableLimit(t *testing.T) {
	s, database, admin := setupService(t)

	// Fill the free tier's table allowance.
	for i := 0; i < 5; i++ {
		_, err := database.Exec(`
			INSERT INTO dining_tables (admin_id, name, code) VALUES (?, ?, ?)
		`, admin.ID, fmt.Sprintf("Table %d", i+1), fmt.Sprintf("code-%d", i+1))
		require.NoError(t, err)
	}

	err := s.CheckTableLimit(admin.ID)
	require.Error(t, err)

	var limitErr *ErrLimitReached
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, "tables", limitErr.Resource)
	require.Equal(t, 5, limitErr.Limit)
}

func TestCheckTableLimitUnderCeiling(t *testing.T) {
	s, _, admin := setupService(t)
	require.NoError(t, s.CheckTableLimit(admin.ID))
}

func TestChangePlanRaisesCeiling(t *testing.T) {
	s, database, admin := setupService(t)

	for i := 0; i < 5; i++ {
		_, err := database.Exec(`
			INSERT INTO dining_tables (admin_id, name, code) VALUES (?, ?, ?)
		`, admin.ID, fmt.Sprintf("Table %d", i+1), fmt.Sprintf("code-%d", i+1))
		require.NoError(t, err)
	}
	require.Error(t, s.CheckTableLimit(admin.ID))

	require.NoError(t, s.ChangePlan(admin.ID, "starter"))
	require.NoError(t, s.CheckTableLimit(admin.ID))
}

func TestChangePlanValidation(t *testing.T) {
	s, _, admin := setupService(t)

	require.Error(t, s.ChangePlan(admin.ID, "enterprise"))
	require.Error(t, s.ChangePlan("missing-admin", "pro"))
}
