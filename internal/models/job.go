package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusOpen                JobStatus = "open"
	JobStatusInProgress          JobStatus = "in_progress"
	JobStatusCompletionRequested JobStatus = "completion_requested"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusCancelled           JobStatus = "cancelled"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job columns status and fundi_id are only ever written together by the
// lifecycle operations in services/jobs.
type Job struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	FundiID     *uuid.UUID `gorm:"type:uuid;index" json:"fundi_id,omitempty"`
	CategoryID  *uint      `gorm:"index" json:"category_id,omitempty"`
	Location    string     `gorm:"type:varchar(100);not null" json:"location"`

	Status  JobStatus `gorm:"type:varchar(30);not null;default:'open';index" json:"status"`
	Urgency Urgency   `gorm:"type:varchar(10);not null;default:'medium'" json:"urgency"`

	BudgetMin decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"budget_min"`
	BudgetMax decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"budget_max"`
	Deadline  *time.Time          `json:"deadline,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Customer *User      `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Fundi    *User      `gorm:"foreignKey:FundiID" json:"fundi,omitempty"`
	Category *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Images   []JobImage `gorm:"foreignKey:JobID" json:"images,omitempty"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

type JobImage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID      uuid.UUID `gorm:"type:uuid;index;not null" json:"job_id"`
	ImageURL   string    `gorm:"type:text;not null" json:"image_url"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (i *JobImage) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
