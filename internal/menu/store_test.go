// internal/menu/store_test.go
package menu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/db"
)

func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	database, err := db.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })

	admin, err := auth.NewService(database, "test-secret").CreateAdmin("owner@example.com", "secret123", "Warung")
	require.NoError(t, err)

	return NewStore(database), admin.ID
}

func TestCategoryLifecycle(t *testing.T) {
	store, adminID := setupStore(t)

	created, err := store.CreateCategory(adminID, "Mains", "🍛", 1)
	require.NoError(t, err)
	require.Equal(t, "Mains", created.Name)

	_, err = store.CreateCategory(adminID, "Mains", "", 2)
	require.Error(t, err, "duplicate name within a tenant is rejected")

	updated, err := store.UpdateCategory(adminID, created.ID, "Main Dishes", "🍛", 3)
	require.NoError(t, err)
	require.Equal(t, "Main Dishes", updated.Name)
	require.Equal(t, 3, updated.SortOrder)

	require.NoError(t, store.DeleteCategory(adminID, created.ID))
	require.ErrorIs(t, store.DeleteCategory(adminID, created.ID), ErrNotFound)
}

func TestCategoriesAreTenantScoped(t *testing.T) {
	store, adminID := setupStore(t)

	created, err := store.CreateCategory(adminID, "Drinks", "", 0)
	require.NoError(t, err)

	_, err = store.GetCategory("another-tenant", created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.DeleteCategory("another-tenant", created.ID), ErrNotFound)
}

func TestIngredientStock(t *testing.T) {
	store, adminID := setupStore(t)

	ing, err := store.CreateIngredient(adminID, "Rice", "kg", 10)
	require.NoError(t, err)

	updated, err := store.UpdateIngredientStock(adminID, ing.ID, 7.5)
	require.NoError(t, err)
	require.Equal(t, 7.5, updated.Stock)

	list, err := store.ListIngredients(adminID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMenuLifecycle(t *testing.T) {
	store, adminID := setupStore(t)

	category, err := store.CreateCategory(adminID, "Mains", "", 0)
	require.NoError(t, err)
	rice, err := store.CreateIngredient(adminID, "Rice", "kg", 10)
	require.NoError(t, err)
	egg, err := store.CreateIngredient(adminID, "Egg", "pcs", 30)
	require.NoError(t, err)

	created, err := store.CreateMenu(adminID, MenuInput{
		CategoryID:    &category.ID,
		Name:          "Nasi Goreng",
		Description:   "Fried rice",
		PriceCents:    2500,
		IngredientIDs: []int64{rice.ID, egg.ID},
	})
	require.NoError(t, err)
	require.True(t, created.Available, "new items default to available")
	require.ElementsMatch(t, []int64{rice.ID, egg.ID}, created.Ingredients)

	updated, err := store.UpdateMenu(adminID, created.ID, MenuInput{
		CategoryID:    &category.ID,
		Name:          "Nasi Goreng Spesial",
		PriceCents:    3000,
		IngredientIDs: []int64{rice.ID},
	})
	require.NoError(t, err)
	require.Equal(t, "Nasi Goreng Spesial", updated.Name)
	require.Equal(t, []int64{rice.ID}, updated.Ingredients)
	require.True(t, updated.Available, "availability survives an update that omits it")

	off, err := store.SetMenuAvailability(adminID, created.ID, false)
	require.NoError(t, err)
	require.False(t, off.Available)

	available, err := store.ListMenus(adminID, true)
	require.NoError(t, err)
	require.Empty(t, available)

	all, err := store.ListMenus(adminID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, store.DeleteMenu(adminID, created.ID))
	_, err = store.GetMenu(adminID, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategoryKeepsMenus(t *testing.T) {
	store, adminID := setupStore(t)

	category, err := store.CreateCategory(adminID, "Mains", "", 0)
	require.NoError(t, err)
	item, err := store.CreateMenu(adminID, MenuInput{
		CategoryID: &category.ID,
		Name:       "Satay",
		PriceCents: 1800,
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteCategory(adminID, category.ID))

	got, err := store.GetMenu(adminID, item.ID)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID, "orphaned items keep existing without a category")
}

func TestSetMenuImage(t *testing.T) {
	store, adminID := setupStore(t)

	item, err := store.CreateMenu(adminID, MenuInput{Name: "Satay", PriceCents: 1800})
	require.NoError(t, err)

	updated, err := store.SetMenuImage(adminID, item.ID, adminID+"/menus/abc.jpg")
	require.NoError(t, err)
	require.Equal(t, adminID+"/menus/abc.jpg", updated.ImageKey)
}
