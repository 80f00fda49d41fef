package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletTrxType string

const (
	WalletTrxCredit WalletTrxType = "credit" // Pendapatan masuk
	WalletTrxDebit  WalletTrxType = "debit"  // Penarikan
)

type WalletTransaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type        WalletTrxType   `gorm:"type:varchar(20);not null" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	// Payment that produced this entry; unique so a payment credits at most once.
	ReferenceID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"reference_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Relation
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (w *WalletTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return
}
