package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// CreditFundi adds funds to the fundi's balance and creates a ledger entry.
// This should be called within a DB transaction. The ledger's unique
// reference makes a second credit for the same payment fail.
func (s *WalletService) CreditFundi(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID, description string) error {
	if !amount.IsPositive() {
		return errors.New("amount to credit must be greater than zero")
	}

	// 1. Create WalletTransaction (Ledger)
	ledger := models.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.WalletTrxCredit,
		Description: description,
		ReferenceID: &referenceID,
	}
	if err := tx.Create(&ledger).Error; err != nil {
		return err
	}

	// 2. Update FundiProfile balance atomically
	result := tx.Model(&models.FundiProfile{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("fundi profile not found for user %s", userID)
	}

	return nil
}

type Summary struct {
	Balance      decimal.Decimal            `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

// Summary returns the balance and the latest ledger entries of a fundi.
func (s *WalletService) Summary(ctx context.Context, userID uuid.UUID, limit int) (*Summary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var profile models.FundiProfile
	if err := s.DB.WithContext(ctx).Select("balance").First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}

	var trx []models.WalletTransaction
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&trx).Error; err != nil {
		return nil, err
	}

	return &Summary{Balance: profile.Balance, Transactions: trx}, nil
}
