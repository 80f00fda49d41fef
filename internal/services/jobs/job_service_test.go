package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
)

func budget(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestCreateJob(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	cat := models.Category{Name: "Plumbing"}
	require.NoError(t, gdb.Create(&cat).Error)

	job, err := svc.Create(ctx, customer, JobInput{
		Title:       " Fix sink ",
		Description: "Leaks",
		Location:    "Kilimani",
		CategoryID:  &cat.ID,
		BudgetMin:   budget(600),
		BudgetMax:   budget(900),
		ImageURLs:   []string{"https://cdn.example.com/a.jpg", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fix sink", job.Title)
	assert.Equal(t, models.UrgencyMedium, job.Urgency)

	st, err := StateOf(job)
	require.NoError(t, err)
	assert.Equal(t, Open{}, st)

	got, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 1)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Plumbing", got.Category.Name)
}

func TestCreateJobValidation(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	fundi := testutil.CreateFundi(t, gdb, "f@example.com", true)
	missing := uint(99)

	for name, in := range map[string]JobInput{
		"missing title":    {Description: "d", Location: "l"},
		"bad urgency":      {Title: "t", Description: "d", Location: "l", Urgency: "whenever"},
		"inverted budget":  {Title: "t", Description: "d", Location: "l", BudgetMin: budget(900), BudgetMax: budget(100)},
		"negative budget":  {Title: "t", Description: "d", Location: "l", BudgetMax: budget(-1)},
		"unknown category": {Title: "t", Description: "d", Location: "l", CategoryID: &missing},
	} {
		_, err := svc.Create(ctx, customer, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}

	_, err := svc.Create(ctx, fundi, JobInput{Title: "t", Description: "d", Location: "l"})
	assert.ErrorIs(t, err, apperr.ErrRoleError)

	require.NoError(t, gdb.Model(customer).Update("is_verified", false).Error)
	customer.IsVerified = false
	_, err = svc.Create(ctx, customer, JobInput{Title: "t", Description: "d", Location: "l"})
	assert.ErrorIs(t, err, apperr.ErrUnverified)
}

func TestUpdateJob(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	other := testutil.CreateCustomer(t, gdb, "o@example.com")
	job := testutil.CreateJob(t, gdb, customer, nil, nil)

	in := JobInput{Title: "New title", Description: "New", Location: "Karen", Urgency: models.UrgencyUrgent, BudgetMax: budget(400)}

	_, err := svc.Update(ctx, job.ID, other, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := svc.Update(ctx, job.ID, customer, in)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, models.UrgencyUrgent, got.Urgency)
	assert.True(t, got.BudgetMax.Valid)

	require.NoError(t, gdb.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobStatusCancelled).Error)
	_, err = svc.Update(ctx, job.ID, customer, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDeleteJobCascades(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	fundi := testutil.CreateFundi(t, gdb, "f@example.com", true)
	job := testutil.CreateJob(t, gdb, customer, testutil.Int64(1000), nil)

	app, err := svc.Apply(ctx, job.ID, fundi, ApplyInput{Message: "I can help"})
	require.NoError(t, err)
	res, err := svc.Accept(ctx, job.ID, app.ID, customer)
	require.NoError(t, err)
	require.NotNil(t, res.Fee)
	require.NoError(t, gdb.Create(&models.Message{JobID: job.ID, SenderID: customer.ID, RecipientID: fundi.ID, Content: "hi"}).Error)

	assert.ErrorIs(t, svc.Delete(ctx, job.ID, fundi), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, job.ID, customer))

	_, err = svc.Get(ctx, job.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var apps, msgs int64
	gdb.Model(&models.JobApplication{}).Where("job_id = ?", job.ID).Count(&apps)
	gdb.Model(&models.Message{}).Where("job_id = ?", job.ID).Count(&msgs)
	assert.Zero(t, apps)
	assert.Zero(t, msgs)

	var fee models.Payment
	require.NoError(t, gdb.First(&fee, "id = ?", res.Fee.ID).Error)
	assert.Nil(t, fee.JobID)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), customer), apperr.ErrNotFound)
}

func TestListOpenExcludesAssigned(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	fundi := testutil.CreateFundi(t, gdb, "f@example.com", true)
	cat := models.Category{Name: "Electrical"}
	require.NoError(t, gdb.Create(&cat).Error)

	open, err := svc.Create(ctx, customer, JobInput{Title: "Wire the garage", Description: "Sockets", Location: "Karen", CategoryID: &cat.ID, Urgency: models.UrgencyHigh})
	require.NoError(t, err)
	_, err = svc.Create(ctx, customer, JobInput{Title: "Paint fence", Description: "White", Location: "Westlands"})
	require.NoError(t, err)
	assigned := testutil.CreateJob(t, gdb, customer, nil, nil)
	require.NoError(t, gdb.Model(assigned).Update("fundi_id", fundi.ID).Error)

	all, total, err := svc.ListOpen(ctx, JobFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	byCat, _, err := svc.ListOpen(ctx, JobFilter{Category: "electrical"})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, open.ID, byCat[0].ID)

	bySearch, _, err := svc.ListOpen(ctx, JobFilter{Search: "GARAGE"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 1)

	byUrgency, _, err := svc.ListOpen(ctx, JobFilter{Urgency: models.UrgencyHigh, Location: "kar"})
	require.NoError(t, err)
	assert.Len(t, byUrgency, 1)

	paged, total, err := svc.ListOpen(ctx, JobFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, paged, 1)
}

func TestListForCustomerAndFundi(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	fundi := testutil.CreateFundi(t, gdb, "f@example.com", true)
	job := testutil.CreateJob(t, gdb, customer, nil, nil)
	testutil.CreateJob(t, gdb, customer, nil, nil)
	require.NoError(t, gdb.Model(job).Update("fundi_id", fundi.ID).Error)

	mine, err := svc.ListForCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, err := svc.ListForFundi(ctx, fundi)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, job.ID, assigned[0].ID)

	_, err = svc.ListForFundi(ctx, customer)
	assert.ErrorIs(t, err, apperr.ErrRoleError)
}

func TestNudge(t *testing.T) {
	ctx := context.Background()
	svc, gdb := newJobService(t)
	customer := testutil.CreateCustomer(t, gdb, "c@example.com")
	near := testutil.CreateFundi(t, gdb, "near@example.com", true)
	applied := testutil.CreateFundi(t, gdb, "applied@example.com", true)
	notOnboarded := testutil.CreateFundi(t, gdb, "new@example.com", false)
	far := testutil.CreateFundi(t, gdb, "far@example.com", true)
	require.NoError(t, gdb.Model(far).Update("location", "Mombasa").Error)

	job := testutil.CreateJob(t, gdb, customer, nil, nil)
	_, err := svc.Apply(ctx, job.ID, applied, ApplyInput{})
	require.NoError(t, err)

	n, err := svc.Nudge(ctx, job.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, notificationsFor(t, gdb, near.ID), 1)
	assert.Empty(t, notificationsFor(t, gdb, notOnboarded.ID))
	assert.Empty(t, notificationsFor(t, gdb, far.ID))

	_, err = svc.Nudge(ctx, job.ID, near)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCategories(t *testing.T) {
	svc, gdb := newJobService(t)
	require.NoError(t, gdb.Create(&[]models.Category{{Name: "Welding"}, {Name: "Carpentry"}}).Error)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Carpentry", cats[0].Name)
}
