package jobs

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/db"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/payment"
)

type ApplyInput struct {
	Message      string
	ProposedRate decimal.NullDecimal
}

// DuplicateError is returned by Apply when the fundi already applied. It
// carries the existing application.
type DuplicateError struct {
	Existing *models.JobApplication
	err      *apperr.Error
}

func (e *DuplicateError) Error() string { return e.err.Error() }
func (e *DuplicateError) Unwrap() error { return e.err }

func duplicate(existing *models.JobApplication) error {
	return &DuplicateError{
		Existing: existing,
		err:      apperr.New(apperr.KindDuplicateApplication, "you have already applied for this job"),
	}
}

// Apply records a fundi's application for an open job. At most one
// application exists per (job, fundi).
func (s *JobService) Apply(ctx context.Context, jobID uuid.UUID, actor *models.User, in ApplyInput) (*models.JobApplication, error) {
	if err := identity.Authorize(actor, models.RoleFundi); err != nil {
		return nil, err
	}
	job, st, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.CustomerID == actor.ID {
		return nil, apperr.Forbidden("you cannot apply to your own job")
	}
	// an existing application wins over the job's current state
	if existing, err := s.findApplication(ctx, job.ID, actor.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, duplicate(existing)
	}
	if _, ok := st.(Open); !ok {
		return nil, apperr.Forbidden("this job is no longer accepting applications")
	}
	if in.ProposedRate.Valid && in.ProposedRate.Decimal.IsNegative() {
		return nil, apperr.Validation("proposed rate cannot be negative")
	}

	app := &models.JobApplication{
		JobID:        job.ID,
		FundiID:      actor.ID,
		Message:      strings.TrimSpace(in.Message),
		ProposedRate: in.ProposedRate,
		Status:       models.ApplicationPending,
	}
	if err := s.DB.WithContext(ctx).Create(app).Error; err != nil {
		if db.IsUniqueViolation(err) {
			existing, ferr := s.findApplication(ctx, job.ID, actor.ID)
			if ferr != nil {
				return nil, ferr
			}
			return existing, duplicate(existing)
		}
		return nil, err
	}

	s.Log.Info("application created", zap.Stringer("job_id", job.ID), zap.Stringer("fundi_id", actor.ID))
	s.Notify.Send(ctx, job.CustomerID, actor.Name+" applied for "+job.Title, jobLink(job.ID))
	return app, nil
}

func (s *JobService) findApplication(ctx context.Context, jobID, fundiID uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	err := s.DB.WithContext(ctx).Where("job_id = ? AND fundi_id = ?", jobID, fundiID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *JobService) application(ctx context.Context, jobID, appID uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	err := s.DB.WithContext(ctx).First(&app, "id = ? AND job_id = ?", appID, jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

type AcceptResult struct {
	Application *models.JobApplication
	Job         *models.Job
	// Fee is nil when the job's budget carries no fee.
	Fee *models.Payment
}

// Accept assigns the applying fundi to the job and freezes the fee. The
// application, the assignment and the fee payment commit together; a job
// can be accepted only once.
func (s *JobService) Accept(ctx context.Context, jobID, appID uuid.UUID, actor *models.User) (*AcceptResult, error) {
	job, _, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	app, err := s.application(ctx, job.ID, appID)
	if err != nil {
		return nil, err
	}

	var (
		fee      *models.Payment
		rejected []uuid.UUID
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.JobApplication{}).
			Where("id = ? AND job_id = ? AND status = ?", app.ID, job.ID, models.ApplicationPending).
			Update("status", models.ApplicationAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.AlreadyProcessed("application has already been processed")
		}

		res = tx.Model(&models.Job{}).
			Where("id = ? AND status = ? AND fundi_id IS NULL", job.ID, models.JobStatusOpen).
			Update("fundi_id", app.FundiID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.AlreadyProcessed("a fundi has already been assigned to this job")
		}

		if err := tx.Model(&models.JobApplication{}).
			Where("job_id = ? AND status = ?", job.ID, models.ApplicationPending).
			Pluck("fundi_id", &rejected).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.JobApplication{}).
			Where("job_id = ? AND status = ?", job.ID, models.ApplicationPending).
			Update("status", models.ApplicationRejected).Error; err != nil {
			return err
		}

		var err error
		fee, err = payment.CreateFeePayment(tx, job, app.FundiID)
		return err
	})
	if err != nil {
		return nil, err
	}

	app.Status = models.ApplicationAccepted
	job.FundiID = &app.FundiID

	msg := "Your application for " + job.Title + " was accepted."
	if fee != nil {
		msg += " Pay the KES " + fee.Amount.StringFixed(0) + " connection fee to start chatting."
	}
	s.Log.Info("application accepted", zap.Stringer("job_id", job.ID), zap.Stringer("fundi_id", app.FundiID), zap.Bool("fee", fee != nil))
	s.Notify.Send(ctx, app.FundiID, msg, jobLink(job.ID))
	for _, id := range rejected {
		s.Notify.Send(ctx, id, "Another fundi was chosen for "+job.Title+".", jobLink(job.ID))
	}

	return &AcceptResult{Application: app, Job: job, Fee: fee}, nil
}

func (s *JobService) Reject(ctx context.Context, jobID, appID uuid.UUID, actor *models.User) (*models.JobApplication, error) {
	job, _, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	app, err := s.application(ctx, job.ID, appID)
	if err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.JobApplication{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
		Update("status", models.ApplicationRejected)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.AlreadyProcessed("application has already been processed")
	}
	app.Status = models.ApplicationRejected

	s.Notify.Send(ctx, app.FundiID, "Your application for "+job.Title+" was not selected.", jobLink(job.ID))
	return app, nil
}

// Withdraw lets the applying fundi retract a pending application.
func (s *JobService) Withdraw(ctx context.Context, appID uuid.UUID, actor *models.User) (*models.JobApplication, error) {
	if err := identity.Authorize(actor, models.RoleFundi); err != nil {
		return nil, err
	}

	var app models.JobApplication
	if err := s.DB.WithContext(ctx).First(&app, "id = ?", appID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, err
	}
	if app.FundiID != actor.ID {
		return nil, apperr.Forbidden("not your application")
	}

	res := s.DB.WithContext(ctx).Model(&models.JobApplication{}).
		Where("id = ? AND fundi_id = ? AND status = ?", app.ID, actor.ID, models.ApplicationPending).
		Update("status", models.ApplicationWithdrawn)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.AlreadyProcessed("application has already been processed")
	}
	app.Status = models.ApplicationWithdrawn
	return &app, nil
}

// ListApplications returns the applications of a job to its customer.
func (s *JobService) ListApplications(ctx context.Context, jobID uuid.UUID, actor *models.User) ([]models.JobApplication, error) {
	job, _, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	var out []models.JobApplication
	err = s.DB.WithContext(ctx).
		Preload("Fundi.FundiProfile").
		Where("job_id = ?", job.ID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// ListMyApplications returns the fundi's own applications.
func (s *JobService) ListMyApplications(ctx context.Context, actor *models.User) ([]models.JobApplication, error) {
	if err := identity.Authorize(actor, models.RoleFundi); err != nil {
		return nil, err
	}
	var out []models.JobApplication
	err := s.DB.WithContext(ctx).
		Preload("Job").
		Where("fundi_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
