package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/realtime"
)

// Notifier delivers a short message with an optional link to a user.
// Delivery failures are logged by the implementation and never surfaced.
type Notifier interface {
	Send(ctx context.Context, userID uuid.UUID, message, link string)
}

type NotifyService struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
	Log *zap.Logger
}

func NewNotifyService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client, log *zap.Logger) *NotifyService {
	return &NotifyService{DB: db, Hub: hub, RDB: rdb, Log: log}
}

func Channel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

type event struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification"`
}

func (s *NotifyService) Send(ctx context.Context, userID uuid.UUID, message, link string) {
	n := models.Notification{
		UserID:  userID,
		Message: message,
		Link:    link,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		s.Log.Error("store notification", zap.Stringer("user_id", userID), zap.Error(err))
		return
	}

	ev := event{Type: "notification", Notification: &n}

	if s.Hub != nil {
		s.Hub.SendToUser(userID, ev)
	}

	if s.RDB != nil {
		payload, _ := json.Marshal(ev)
		if err := s.RDB.Publish(ctx, Channel(userID), payload).Err(); err != nil {
			s.Log.Warn("publish notification", zap.Stringer("user_id", userID), zap.Error(err))
		}
	}
}

func (s *NotifyService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var out []models.Notification
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *NotifyService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (s *NotifyService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	var n models.Notification
	if err := s.DB.WithContext(ctx).First(&n, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("notification not found")
		}
		return err
	}
	if n.IsRead {
		return nil
	}
	return s.DB.WithContext(ctx).Model(&n).Update("is_read", true).Error
}

func (s *NotifyService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
