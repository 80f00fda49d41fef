package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
)

// advance moves a job assigned to fundi from one status to the next. The
// update only matches while the job is still in the expected state.
func advance(tx *gorm.DB, jobID, fundi uuid.UUID, from, to models.JobStatus) error {
	res := tx.Model(&models.Job{}).
		Where("id = ? AND status = ? AND fundi_id = ?", jobID, from, fundi).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Forbidden("job is no longer in the expected state")
	}
	return nil
}

// Start moves an assigned job to in progress. Only the assigned fundi can start it.
func (s *JobService) Start(ctx context.Context, jobID uuid.UUID, actor *models.User) (*models.Job, error) {
	if err := identity.Authorize(actor, models.RoleFundi); err != nil {
		return nil, err
	}
	job, st, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	a, ok := st.(Assigned)
	if !ok || a.Fundi != actor.ID {
		return nil, apperr.Forbidden("only the assigned fundi can start this job")
	}

	if err := advance(s.DB.WithContext(ctx), job.ID, actor.ID, models.JobStatusOpen, models.JobStatusInProgress); err != nil {
		return nil, err
	}
	job.Status = models.JobStatusInProgress

	s.Log.Info("job started", zap.Stringer("job_id", job.ID), zap.Stringer("fundi_id", actor.ID))
	s.Notify.Send(ctx, job.CustomerID, actor.Name+" has started work on "+job.Title, jobLink(job.ID))
	return job, nil
}

// RequestCompletion asks the customer to confirm the work is done.
func (s *JobService) RequestCompletion(ctx context.Context, jobID uuid.UUID, actor *models.User) (*models.Job, error) {
	if err := identity.Authorize(actor, models.RoleFundi); err != nil {
		return nil, err
	}
	job, st, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	p, ok := st.(InProgress)
	if !ok || p.Fundi != actor.ID {
		return nil, apperr.Forbidden("only the assigned fundi can request completion of a job in progress")
	}

	if err := advance(s.DB.WithContext(ctx), job.ID, actor.ID, models.JobStatusInProgress, models.JobStatusCompletionRequested); err != nil {
		return nil, err
	}
	job.Status = models.JobStatusCompletionRequested

	s.Notify.Send(ctx, job.CustomerID, actor.Name+" marked "+job.Title+" as done. Please confirm completion.", jobLink(job.ID))
	return job, nil
}

// Complete confirms a completion request. The fundi's completed job count
// is incremented in the same transaction.
func (s *JobService) Complete(ctx context.Context, jobID uuid.UUID, actor *models.User) (*models.Job, error) {
	job, st, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	cr, ok := st.(CompletionRequested)
	if !ok {
		return nil, apperr.Forbidden("completion has not been requested for this job")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advance(tx, job.ID, cr.Fundi, models.JobStatusCompletionRequested, models.JobStatusCompleted); err != nil {
			return err
		}
		return tx.Model(&models.FundiProfile{}).
			Where("user_id = ?", cr.Fundi).
			Update("total_jobs_completed", gorm.Expr("total_jobs_completed + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatusCompleted

	s.Log.Info("job completed", zap.Stringer("job_id", job.ID), zap.Stringer("fundi_id", cr.Fundi))
	s.Notify.Send(ctx, cr.Fundi, job.Title+" has been marked complete by the customer.", jobLink(job.ID))
	return job, nil
}

// Cancel ends a job that has not been completed. The fundi is released and
// pending applications are rejected. Fees not yet sent to the gateway fail.
func (s *JobService) Cancel(ctx context.Context, jobID uuid.UUID, actor *models.User) (*models.Job, error) {
	job, st, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}

	var from models.JobStatus
	switch st.(type) {
	case Open, Assigned:
		from = models.JobStatusOpen
	case InProgress:
		from = models.JobStatusInProgress
	default:
		return nil, apperr.Forbidden("a " + st.Name() + " job cannot be cancelled")
	}
	fundi, assigned := FundiOf(st)

	var applicants []uuid.UUID
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Job{}).Where("id = ? AND customer_id = ? AND status = ?", job.ID, actor.ID, from)
		if assigned {
			q = q.Where("fundi_id = ?", fundi)
		} else {
			q = q.Where("fundi_id IS NULL")
		}
		res := q.Updates(map[string]interface{}{"status": models.JobStatusCancelled, "fundi_id": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Forbidden("job is no longer in the expected state")
		}

		// fees already at the gateway are left to settle normally
		if err := tx.Model(&models.Payment{}).
			Where("job_id = ? AND kind = ? AND status = ?", job.ID, models.PaymentKindFee, models.PaymentInitiated).
			Updates(map[string]interface{}{"status": models.PaymentFailed, "settled_at": time.Now()}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.JobApplication{}).
			Where("job_id = ? AND status = ?", job.ID, models.ApplicationPending).
			Pluck("fundi_id", &applicants).Error; err != nil {
			return err
		}
		return tx.Model(&models.JobApplication{}).
			Where("job_id = ? AND status = ?", job.ID, models.ApplicationPending).
			Update("status", models.ApplicationRejected).Error
	})
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatusCancelled
	job.FundiID = nil

	s.Log.Info("job cancelled", zap.Stringer("job_id", job.ID))
	if assigned {
		s.Notify.Send(ctx, fundi, job.Title+" has been cancelled by the customer.", jobLink(job.ID))
	}
	for _, id := range applicants {
		s.Notify.Send(ctx, id, job.Title+" is no longer accepting applications.", jobLink(job.ID))
	}
	return job, nil
}
