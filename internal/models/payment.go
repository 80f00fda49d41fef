package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentKind string

const (
	// PaymentKindFee is the mediation fee frozen at acceptance.
	PaymentKindFee PaymentKind = "fee"
	// PaymentKindService is a customer payment for the work itself.
	PaymentKindService PaymentKind = "service"
)

type Payment struct {
	ID   uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Kind PaymentKind `gorm:"type:varchar(20);not null;index" json:"kind"`

	Amount      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Commission  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"commission"`
	FundiAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"fundi_amount"`

	Status PaymentStatus `gorm:"type:varchar(20);not null;default:'initiated';index" json:"status"`

	CustomerID uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	FundiID    *uuid.UUID `gorm:"type:uuid;index" json:"fundi_id,omitempty"`
	JobID      *uuid.UUID `gorm:"type:uuid;index" json:"job_id,omitempty"`

	// Gateway correlation id, set once the gateway accepts the charge.
	CorrelationID   *string    `gorm:"type:varchar(100);uniqueIndex" json:"correlation_id,omitempty"`
	Phone           string     `gorm:"type:varchar(30)" json:"phone"`
	CustomerMessage string     `gorm:"type:text" json:"customer_message"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
