// internal/order/store_test.go
package order

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/menu"
	"github.com/markb/tably/internal/model"
	"github.com/markb/tably/internal/table"
)

type fixture struct {
	store   *Store
	adminID string
	tableID int64
	nasiID  int64
	satayID int64
	soldOut int64
	menus   *menu.Store
}

func setup(t *testing.T) fixture {
	t.Helper()
	database, err := db.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })

	admin, err := auth.NewService(database, "test-secret").CreateAdmin("owner@example.com", "secret123", "Warung")
	require.NoError(t, err)

	tbl, err := table.NewStore(database).Create(admin.ID, "Window 1", "")
	require.NoError(t, err)

	menus := menu.NewStore(database)
	nasi, err := menus.CreateMenu(admin.ID, menu.MenuInput{Name: "Nasi Goreng", PriceCents: 2500})
	require.NoError(t, err)
	satay, err := menus.CreateMenu(admin.ID, menu.MenuInput{Name: "Satay", PriceCents: 1800})
	require.NoError(t, err)
	gone, err := menus.CreateMenu(admin.ID, menu.MenuInput{Name: "Sold Out", PriceCents: 1000})
	require.NoError(t, err)
	_, err = menus.SetMenuAvailability(admin.ID, gone.ID, false)
	require.NoError(t, err)

	return fixture{
		store:   NewStore(database),
		adminID: admin.ID,
		tableID: tbl.ID,
		nasiID:  nasi.ID,
		satayID: satay.ID,
		soldOut: gone.ID,
		menus:   menus,
	}
}

func TestCreateSnapshotsAndTotals(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "less spicy", []ItemInput{
		{MenuID: f.nasiID, Quantity: 2},
		{MenuID: f.satayID, Quantity: 1, Notes: "no peanut sauce"},
	})
	require.NoError(t, err)

	require.Equal(t, model.OrderPending, created.Status)
	require.Equal(t, 2*2500+1800, created.TotalCents, "total is computed server-side")
	require.NotEmpty(t, created.TableCode)
	require.Len(t, created.Items, 2)
	require.Equal(t, "Nasi Goreng", created.Items[0].MenuName)
	require.Equal(t, 2500, created.Items[0].PriceCents)
	require.Equal(t, "no peanut sauce", created.Items[1].Notes)
}

func TestCreateRejections(t *testing.T) {
	f := setup(t)

	_, err := f.store.Create(f.adminID, f.tableID, "", nil)
	require.ErrorIs(t, err, ErrEmptyOrder)

	_, err = f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 0}})
	require.Error(t, err, "zero quantity rejected")

	_, err = f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.soldOut, Quantity: 1}})
	require.Error(t, err, "unavailable item rejects the whole order")

	_, err = f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: 99999, Quantity: 1}})
	require.Error(t, err, "unknown item rejected")
}

func TestSnapshotSurvivesMenuEdits(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)

	_, err = f.menus.UpdateMenu(f.adminID, f.nasiID, menu.MenuInput{Name: "Renamed", PriceCents: 9900})
	require.NoError(t, err)
	require.NoError(t, f.menus.DeleteMenu(f.adminID, f.nasiID))

	got, err := f.store.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, "Nasi Goreng", got.Items[0].MenuName)
	require.Equal(t, 2500, got.Items[0].PriceCents)
	require.Equal(t, 2500, got.TotalCents)
}

func TestStatusProgression(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)

	for _, status := range []string{
		model.OrderPreparing, model.OrderReady, model.OrderDelivered, model.OrderPaid,
	} {
		updated, err := f.store.UpdateStatus(f.adminID, created.ID, status)
		require.NoError(t, err)
		require.Equal(t, status, updated.Status)
	}
}

func TestStatusSkipsRejected(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)

	_, err = f.store.UpdateStatus(f.adminID, created.ID, model.OrderReady)
	var transitionErr *ErrInvalidTransition
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, model.OrderPending, transitionErr.From)

	_, err = f.store.UpdateStatus(f.adminID, created.ID, "bogus")
	require.Error(t, err)
}

func TestCancelFromAnyNonTerminal(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)
	_, err = f.store.UpdateStatus(f.adminID, created.ID, model.OrderPreparing)
	require.NoError(t, err)

	cancelled, err := f.store.UpdateStatus(f.adminID, created.ID, model.OrderCancelled)
	require.NoError(t, err)
	require.Equal(t, model.OrderCancelled, cancelled.Status)

	_, err = f.store.UpdateStatus(f.adminID, created.ID, model.OrderPreparing)
	require.Error(t, err, "cancelled is terminal")
	_, err = f.store.UpdateStatus(f.adminID, created.ID, model.OrderCancelled)
	require.Error(t, err, "cannot cancel twice")
}

func TestListFiltersByStatus(t *testing.T) {
	f := setup(t)

	first, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)
	_, err = f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.satayID, Quantity: 1}})
	require.NoError(t, err)

	_, err = f.store.UpdateStatus(f.adminID, first.ID, model.OrderPreparing)
	require.NoError(t, err)

	all, err := f.store.List(f.adminID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all[0].Items, 1, "list includes items")

	preparing, err := f.store.List(f.adminID, model.OrderPreparing)
	require.NoError(t, err)
	require.Len(t, preparing, 1)
	require.Equal(t, first.ID, preparing[0].ID)
}

func TestGetForAdminScopesTenant(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)

	_, err = f.store.GetForAdmin("other-tenant", created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.store.Get(created.ID)
	require.NoError(t, err, "plain Get is the customer's tracking handle")
	require.Equal(t, created.ID, got.ID)
}

func TestCreateReturnsCommittedRow(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{
		{MenuID: f.nasiID, Quantity: 2},
		{MenuID: f.satayID, Quantity: 1},
	})
	require.NoError(t, err)

	// The returned row is assembled at commit time, not re-read. It must
	// still match what a direct re-fetch sees.
	fetched, err := f.store.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, fetched.ID, created.ID)
	require.Equal(t, fetched.TableCode, created.TableCode)
	require.Equal(t, fetched.TotalCents, created.TotalCents)
	require.Len(t, created.Items, len(fetched.Items))
	for i := range fetched.Items {
		require.Equal(t, fetched.Items[i].MenuName, created.Items[i].MenuName)
		require.Equal(t, fetched.Items[i].Quantity, created.Items[i].Quantity)
		require.Equal(t, fetched.Items[i].PriceCents, created.Items[i].PriceCents)
	}
}

func TestUpdateStatusReturnsFullRow(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)

	updated, err := f.store.UpdateStatus(f.adminID, created.ID, model.OrderPreparing)
	require.NoError(t, err)

	// Dashboard payloads carry the full row, so the patched result must
	// keep its items and table code.
	require.Equal(t, model.OrderPreparing, updated.Status)
	require.Equal(t, created.TableCode, updated.TableCode)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "Nasi Goreng", updated.Items[0].MenuName)

	fetched, err := f.store.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderPreparing, fetched.Status)
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	f := setup(t)

	created, err := f.store.Create(f.adminID, f.tableID, "", []ItemInput{{MenuID: f.nasiID, Quantity: 1}})
	require.NoError(t, err)

	const workers = 8
	results := make(chan error, workers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < workers; i++ {
		go func() {
			start.Wait()
			_, err := f.store.UpdateStatus(f.adminID, created.ID, model.OrderPreparing)
			results <- err
		}()
	}
	start.Done()

	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-results
		if err == nil {
			succeeded++
			continue
		}
		var transitionErr *ErrInvalidTransition
		require.ErrorAs(t, err, &transitionErr)
	}
	require.Equal(t, 1, succeeded, "exactly one transition from pending may apply")

	got, err := f.store.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderPreparing, got.Status)
}
