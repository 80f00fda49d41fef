package jobs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
)

func newJobService(t *testing.T) (*JobService, *gorm.DB) {
	t.Helper()
	gdb := testutil.NewDB(t)
	n := notify.NewNotifyService(gdb, nil, nil, testutil.Logger())
	return NewJobService(gdb, n, testutil.Logger()), gdb
}

func reloadJob(t *testing.T, gdb *gorm.DB, id uuid.UUID) *models.Job {
	t.Helper()
	var j models.Job
	require.NoError(t, gdb.First(&j, "id = ?", id).Error)
	return &j
}

func notificationsFor(t *testing.T, gdb *gorm.DB, userID uuid.UUID) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, gdb.Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error)
	return out
}

// assertInvariant checks that status and fundi columns agree.
func assertInvariant(t *testing.T, gdb *gorm.DB, id uuid.UUID) {
	t.Helper()
	_, err := StateOf(reloadJob(t, gdb, id))
	require.NoError(t, err)
}
