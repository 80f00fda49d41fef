package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

type JobApplication struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	JobID        uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_application_job_fundi" json:"job_id"`
	FundiID      uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_application_job_fundi;index" json:"fundi_id"`
	Message      string              `gorm:"type:text" json:"message"`
	ProposedRate decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"proposed_rate"`
	Status       ApplicationStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job   *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Fundi *User `gorm:"foreignKey:FundiID" json:"fundi,omitempty"`
}

func (a *JobApplication) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
