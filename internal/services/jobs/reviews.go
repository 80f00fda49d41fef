package jobs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/db"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

// CreateReview lets the customer rate the fundi of a completed job once.
// The fundi's rating becomes the average of all their reviews.
func (s *JobService) CreateReview(ctx context.Context, jobID uuid.UUID, actor *models.User, rating int, comment string) (*models.Review, error) {
	job, st, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	done, ok := st.(Completed)
	if !ok {
		return nil, apperr.Forbidden("only completed jobs can be reviewed")
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	review := &models.Review{
		JobID:      job.ID,
		ReviewerID: actor.ID,
		RevieweeID: done.Fundi,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Review{}).Where("job_id = ?", job.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.AlreadyProcessed("this job has already been reviewed")
		}
		if err := tx.Create(review).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.AlreadyProcessed("this job has already been reviewed")
			}
			return err
		}

		var avg float64
		if err := tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0)").
			Where("reviewee_id = ?", done.Fundi).
			Row().Scan(&avg); err != nil {
			return err
		}
		return tx.Model(&models.FundiProfile{}).
			Where("user_id = ?", done.Fundi).
			Update("rating", decimal.NewFromFloat(avg).Round(2)).Error
	})
	if err != nil {
		return nil, err
	}

	s.Notify.Send(ctx, done.Fundi, "You received a new review for "+job.Title, jobLink(job.ID))
	return review, nil
}

func (s *JobService) ReviewsFor(ctx context.Context, fundiID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	err := s.DB.WithContext(ctx).
		Preload("Reviewer").
		Where("reviewee_id = ?", fundiID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
