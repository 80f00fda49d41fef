package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
)

type JobService struct {
	DB     *gorm.DB
	Notify notify.Notifier
	Log    *zap.Logger
}

func NewJobService(db *gorm.DB, n notify.Notifier, log *zap.Logger) *JobService {
	return &JobService{DB: db, Notify: n, Log: log}
}

func jobLink(id uuid.UUID) string {
	return "/jobs/" + id.String()
}

type JobInput struct {
	Title       string
	Description string
	CategoryID  *uint
	Location    string
	Urgency     models.Urgency
	BudgetMin   decimal.NullDecimal
	BudgetMax   decimal.NullDecimal
	Deadline    *time.Time
	ImageURLs   []string
}

func (in *JobInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	if in.Title == "" || in.Description == "" || in.Location == "" {
		return apperr.Validation("title, description and location are required")
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyMedium
	}
	if !in.Urgency.Valid() {
		return apperr.Validation("urgency must be one of low, medium, high, urgent")
	}
	if (in.BudgetMin.Valid && in.BudgetMin.Decimal.IsNegative()) ||
		(in.BudgetMax.Valid && in.BudgetMax.Decimal.IsNegative()) {
		return apperr.Validation("budget cannot be negative")
	}
	if in.BudgetMin.Valid && in.BudgetMax.Valid && in.BudgetMin.Decimal.GreaterThan(in.BudgetMax.Decimal) {
		return apperr.Validation("minimum budget cannot exceed maximum budget")
	}
	return nil
}

func (s *JobService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Validation("unknown category")
	}
	return nil
}

// load fetches a job and decodes its state.
func (s *JobService) load(ctx context.Context, jobID uuid.UUID) (*models.Job, State, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("job not found")
		}
		return nil, nil, err
	}
	st, err := StateOf(&job)
	if err != nil {
		return nil, nil, err
	}
	return &job, st, nil
}

// ownJob loads a job and checks that actor is its customer acting as one.
func (s *JobService) ownJob(ctx context.Context, jobID uuid.UUID, actor *models.User) (*models.Job, State, error) {
	job, st, err := s.load(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.CustomerID != actor.ID {
		return nil, nil, apperr.Forbidden("only the job owner can do this")
	}
	if err := identity.Authorize(actor, models.RoleCustomer); err != nil {
		return nil, nil, err
	}
	return job, st, nil
}

func (s *JobService) Create(ctx context.Context, actor *models.User, in JobInput) (*models.Job, error) {
	if err := identity.Authorize(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	job := &models.Job{
		Title:       in.Title,
		Description: in.Description,
		CustomerID:  actor.ID,
		CategoryID:  in.CategoryID,
		Location:    in.Location,
		Status:      models.JobStatusOpen,
		Urgency:     in.Urgency,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Deadline:    in.Deadline,
	}
	for _, u := range in.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			job.Images = append(job.Images, models.JobImage{ImageURL: u})
		}
	}

	if err := s.DB.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	s.Log.Info("job created", zap.Stringer("job_id", job.ID), zap.Stringer("customer_id", actor.ID))
	return job, nil
}

// Update edits the descriptive fields of a job that has not reached a
// terminal state. The frozen fee of an accepted job is unaffected.
func (s *JobService) Update(ctx context.Context, jobID uuid.UUID, actor *models.User, in JobInput) (*models.Job, error) {
	job, st, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}
	if isTerminal(st) {
		return nil, apperr.Forbidden("a " + st.Name() + " job cannot be edited")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND customer_id = ? AND status NOT IN ?", job.ID, actor.ID,
			[]models.JobStatus{models.JobStatusCompleted, models.JobStatusCancelled}).
		Updates(map[string]interface{}{
			"title":       in.Title,
			"description": in.Description,
			"category_id": in.CategoryID,
			"location":    in.Location,
			"urgency":     in.Urgency,
			"budget_min":  in.BudgetMin,
			"budget_max":  in.BudgetMax,
			"deadline":    in.Deadline,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Forbidden("job can no longer be edited")
	}
	return s.Get(ctx, job.ID)
}

// Delete removes a job with its applications, images, messages and review.
// Payments keep their rows with the job reference cleared.
func (s *JobService) Delete(ctx context.Context, jobID uuid.UUID, actor *models.User) error {
	job, _, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payment{}).Where("job_id = ?", job.ID).Update("job_id", nil).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{&models.JobApplication{}, &models.JobImage{}, &models.Message{}, &models.Review{}} {
			if err := tx.Where("job_id = ?", job.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ? AND customer_id = ?", job.ID, actor.ID).Delete(&models.Job{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("job not found")
		}
		s.Log.Info("job deleted", zap.Stringer("job_id", job.ID))
		return nil
	})
}

func (s *JobService) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := s.DB.WithContext(ctx).
		Preload("Category").
		Preload("Images").
		Preload("Customer").
		First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job not found")
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

type JobFilter struct {
	Search   string
	Category string
	Location string
	Urgency  models.Urgency
	Page     int
	Limit    int
}

// ListOpen returns jobs that still accept applications.
func (s *JobService) ListOpen(ctx context.Context, f JobFilter) ([]models.Job, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 50 {
		f.Limit = 12
	}

	q := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("jobs.status = ? AND jobs.fundi_id IS NULL", models.JobStatusOpen)

	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(jobs.title) LIKE ? OR LOWER(jobs.description) LIKE ? OR LOWER(jobs.location) LIKE ?", like, like, like)
	}
	if cat := strings.TrimSpace(f.Category); cat != "" {
		q = q.Joins("JOIN categories ON categories.id = jobs.category_id").
			Where("LOWER(categories.name) = ?", strings.ToLower(cat))
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		q = q.Where("LOWER(jobs.location) LIKE ?", "%"+loc+"%")
	}
	if f.Urgency != "" {
		q = q.Where("jobs.urgency = ?", f.Urgency)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Job
	err := q.Select("jobs.*").Preload("Category").Preload("Images").
		Order("jobs.created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForCustomer returns the jobs posted by actor.
func (s *JobService) ListForCustomer(ctx context.Context, actor *models.User) ([]models.Job, error) {
	if err := identity.Authorize(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	var out []models.Job
	err := s.DB.WithContext(ctx).
		Preload("Fundi").
		Preload("Category").
		Where("customer_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListForFundi returns the jobs assigned to actor.
func (s *JobService) ListForFundi(ctx context.Context, actor *models.User) ([]models.Job, error) {
	if err := identity.Authorize(actor, models.RoleFundi); err != nil {
		return nil, err
	}
	var out []models.Job
	err := s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Category").
		Where("fundi_id = ?", actor.ID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

func (s *JobService) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// Nudge notifies onboarded, available fundis near the job's location that
// have not applied yet. It returns how many were notified.
func (s *JobService) Nudge(ctx context.Context, jobID uuid.UUID, actor *models.User) (int, error) {
	job, st, err := s.ownJob(ctx, jobID, actor)
	if err != nil {
		return 0, err
	}
	if _, ok := st.(Open); !ok {
		return 0, apperr.Forbidden("only open jobs can be promoted")
	}

	var ids []uuid.UUID
	err = s.DB.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN fundi_profiles ON fundi_profiles.user_id = users.id").
		Where("users.onboarding_complete = ? AND users.is_active = ?", true, true).
		Where("fundi_profiles.availability = ?", true).
		Where("LOWER(users.location) LIKE ?", "%"+strings.ToLower(job.Location)+"%").
		Where("users.id <> ?", job.CustomerID).
		Where("users.id NOT IN (?)", s.DB.Model(&models.JobApplication{}).Select("fundi_id").Where("job_id = ?", job.ID)).
		Pluck("users.id", &ids).Error
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.Notify.Send(ctx, id, "New job near you: "+job.Title, jobLink(job.ID))
	}
	s.Log.Info("job nudged", zap.Stringer("job_id", job.ID), zap.Int("fundis", len(ids)))
	return len(ids), nil
}
