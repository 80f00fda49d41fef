// internal/models/message.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message belongs to the (job, customer, fundi) thread formed by its job,
// sender and recipient.
type Message struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JobID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"job_id"`
	SenderID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"sender_id"`
	RecipientID uuid.UUID  `gorm:"type:uuid;index;not null" json:"recipient_id"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	IsRead      bool       `gorm:"default:false" json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
