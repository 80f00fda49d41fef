package jobs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

func TestStateOf(t *testing.T) {
	f := uuid.New()

	cases := []struct {
		status models.JobStatus
		fundi  *uuid.UUID
		want   State
	}{
		{models.JobStatusOpen, nil, Open{}},
		{models.JobStatusOpen, &f, Assigned{Fundi: f}},
		{models.JobStatusInProgress, &f, InProgress{Fundi: f}},
		{models.JobStatusCompletionRequested, &f, CompletionRequested{Fundi: f}},
		{models.JobStatusCompleted, &f, Completed{Fundi: f}},
		{models.JobStatusCancelled, nil, Cancelled{}},
	}
	for _, tc := range cases {
		t.Run(tc.want.Name(), func(t *testing.T) {
			st, err := StateOf(&models.Job{Status: tc.status, FundiID: tc.fundi})
			require.NoError(t, err)
			assert.Equal(t, tc.want, st)

			got, ok := FundiOf(st)
			assert.Equal(t, tc.fundi != nil, ok)
			if ok {
				assert.Equal(t, f, got)
			}
		})
	}
}

func TestStateOfRejectsInconsistentRows(t *testing.T) {
	f := uuid.New()
	for _, j := range []models.Job{
		{Status: models.JobStatusInProgress},
		{Status: models.JobStatusCompletionRequested},
		{Status: models.JobStatusCompleted},
		{Status: models.JobStatusCancelled, FundiID: &f},
		{Status: "archived"},
	} {
		_, err := StateOf(&j)
		assert.Error(t, err, string(j.Status))
	}
}
