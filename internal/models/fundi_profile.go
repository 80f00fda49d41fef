// internal/models/fundi_profile.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

type FundiProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Skills          datatypes.JSONSlice[string] `json:"skills"`
	Description     string                      `gorm:"type:text" json:"description"`
	ExperienceYears int                         `gorm:"not null;default:0" json:"experience_years"`
	HourlyRate      decimal.NullDecimal         `gorm:"type:numeric(8,2)" json:"hourly_rate"`
	Availability    bool                        `gorm:"not null;default:true" json:"availability"`

	// Running average of received reviews, two decimals.
	Rating             decimal.Decimal `gorm:"type:numeric(3,2);not null;default:0" json:"rating"`
	TotalJobsCompleted int             `gorm:"not null;default:0" json:"total_jobs_completed"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	PhotoURL      string `gorm:"type:text" json:"photo_url"`
	IDDocumentURL string `gorm:"type:text" json:"id_document_url"`

	VerificationStatus VerificationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"verification_status"`

	// Wallet balance credited by settled service payments.
	Balance decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PortfolioImages []PortfolioImage `gorm:"foreignKey:FundiProfileID" json:"portfolio_images,omitempty"`
}

func (p *FundiProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

type PortfolioImage struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FundiProfileID uuid.UUID `gorm:"type:uuid;index;not null" json:"fundi_profile_id"`
	ImageURL       string    `gorm:"type:text;not null" json:"image_url"`
	Title          string    `gorm:"type:varchar(100)" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	UploadedAt     time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (p *PortfolioImage) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
