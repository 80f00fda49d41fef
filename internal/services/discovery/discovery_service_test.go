package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
)

func TestFundiLocations(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	svc := NewDiscoveryService(gdb)

	plumber := testutil.CreateFundi(t, gdb, "p@example.com", true, "Plumbing", "Tiling")
	electrician := testutil.CreateFundi(t, gdb, "e@example.com", true, "Electrical Wiring")
	testutil.CreateFundi(t, gdb, "new@example.com", false)
	switched := testutil.CreateFundi(t, gdb, "s@example.com", true, "Plumbing")
	require.NoError(t, gdb.Model(switched).Update("active_role", models.RoleCustomer).Error)
	busy := testutil.CreateFundi(t, gdb, "b@example.com", true, "Plumbing")
	require.NoError(t, gdb.Model(&models.FundiProfile{}).Where("user_id = ?", busy.ID).Update("availability", false).Error)
	noCoords := testutil.CreateFundi(t, gdb, "n@example.com", true, "Plumbing")
	require.NoError(t, gdb.Model(&models.FundiProfile{}).Where("user_id = ?", noCoords.ID).
		Updates(map[string]interface{}{"latitude": nil, "longitude": nil}).Error)

	all, err := svc.FundiLocations(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := svc.FundiLocations(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	wiring, err := svc.FundiLocations(ctx, "WIRING", true)
	require.NoError(t, err)
	require.Len(t, wiring, 1)
	assert.Equal(t, electrician.ID, wiring[0].ID)
	assert.InDelta(t, -1.2921, wiring[0].Latitude, 1e-6)

	plumbing, err := svc.FundiLocations(ctx, "plumb", true)
	require.NoError(t, err)
	require.Len(t, plumbing, 1)
	assert.Equal(t, plumber.ID, plumbing[0].ID)
	assert.Equal(t, []string{"Plumbing", "Tiling"}, plumbing[0].Skills)
}
