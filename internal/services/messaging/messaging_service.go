package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/payment"
)

const maxContentLen = 4000

type MessagingService struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	RDB    *redis.Client
	Notify notify.Notifier
	Log    *zap.Logger
}

func NewMessagingService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client, n notify.Notifier, log *zap.Logger) *MessagingService {
	return &MessagingService{DB: db, Hub: hub, RDB: rdb, Notify: n, Log: log}
}

func ThreadChannel(jobID, fundiID uuid.UUID) string {
	return "job_thread:" + jobID.String() + ":" + fundiID.String()
}

// CanChat decides whether actor may exchange messages with the other party
// of the (job, fundi) thread. The customer side is always open; the fundi
// side opens once the latest fee payment for the pair, if any, completed.
func CanChat(db *gorm.DB, actorID uuid.UUID, job *models.Job, fundiID uuid.UUID) (bool, error) {
	if actorID != job.CustomerID && actorID != fundiID {
		return false, nil
	}
	if job.FundiID == nil || *job.FundiID != fundiID {
		return false, nil
	}
	if actorID == job.CustomerID {
		return true, nil
	}

	fee, err := payment.LatestFee(db, job.ID, fundiID)
	if err != nil {
		return false, err
	}
	return fee == nil || fee.Status == models.PaymentCompleted, nil
}

func (s *MessagingService) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, err
	}
	return &job, nil
}

// thread resolves the fundi of the conversation: the actor when they are
// not the customer, otherwise the job's assigned fundi.
func threadFundi(actorID uuid.UUID, job *models.Job) (uuid.UUID, bool) {
	if actorID != job.CustomerID {
		return actorID, true
	}
	if job.FundiID == nil {
		return uuid.Nil, false
	}
	return *job.FundiID, true
}

// Access reports whether actor may chat on the job thread.
func (s *MessagingService) Access(ctx context.Context, jobID uuid.UUID, actor *models.User) (bool, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	fundi, ok := threadFundi(actor.ID, job)
	if !ok {
		return false, nil
	}
	return CanChat(s.DB.WithContext(ctx), actor.ID, job, fundi)
}

func (s *MessagingService) Send(ctx context.Context, jobID uuid.UUID, actor *models.User, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("message cannot be empty")
	}
	if len(content) > maxContentLen {
		return nil, apperr.Validation("message is too long")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	fundi, ok := threadFundi(actor.ID, job)
	if !ok {
		return nil, apperr.Forbidden("no fundi has been assigned to this job yet")
	}
	allowed, err := CanChat(s.DB.WithContext(ctx), actor.ID, job, fundi)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("messaging is not available for this job")
	}

	recipient := job.CustomerID
	if actor.ID == job.CustomerID {
		recipient = fundi
	}

	msg := &models.Message{
		JobID:       job.ID,
		SenderID:    actor.ID,
		RecipientID: recipient,
		Content:     content,
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}

	ev := map[string]interface{}{"type": "message", "message": msg}
	if s.Hub != nil {
		s.Hub.SendToPair(actor.ID, recipient, ev)
	}
	if s.RDB != nil {
		if err := s.RDB.Publish(ctx, ThreadChannel(job.ID, fundi), msg.ID.String()).Err(); err != nil {
			s.Log.Warn("publish message", zap.Stringer("message_id", msg.ID), zap.Error(err))
		}
	}
	s.Notify.Send(ctx, recipient, "New message from "+actor.Name+" about "+job.Title, "/jobs/"+job.ID.String()+"/messages")
	return msg, nil
}

// List returns the job thread in chronological order and marks the
// actor's received messages as read.
func (s *MessagingService) List(ctx context.Context, jobID uuid.UUID, actor *models.User) ([]models.Message, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	fundi, ok := threadFundi(actor.ID, job)
	if !ok {
		return nil, apperr.Forbidden("no fundi has been assigned to this job yet")
	}
	allowed, err := CanChat(s.DB.WithContext(ctx), actor.ID, job, fundi)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("messaging is not available for this job")
	}

	var out []models.Message
	err = s.DB.WithContext(ctx).
		Preload("Sender").
		Where("job_id = ?", job.ID).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			job.CustomerID, fundi, fundi, job.CustomerID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("job_id = ? AND recipient_id = ? AND is_read = ?", job.ID, actor.ID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		s.Log.Warn("mark messages read", zap.Stringer("job_id", job.ID), zap.Error(err))
	}
	return out, nil
}

func (s *MessagingService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
