package dao

import (
	"time"

	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/models"
)

// CoinTransactionDAO handles the coin mutation journal
type CoinTransactionDAO struct {
	db *gorm.DB
}

func NewCoinTransactionDAO(db *gorm.DB) *CoinTransactionDAO {
	return &CoinTransactionDAO{db: db}
}

// Record implements ledger.Journal
func (d *CoinTransactionDAO) Record(userID, kind, reason string, amount, balanceAfter int64) error {
	tx := &models.CoinTransaction{
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: balanceAfter,
	}
	if err := d.db.Create(tx).Error; err != nil {
		return err
	}
	if kind == models.TxKindDebit {
		return d.db.Model(&models.User{}).
			Where("device_id = ?", userID).
			Update("coins_spent", gorm.Expr("coins_spent + ?", amount)).Error
	}
	return nil
}

// CountByReasonSince counts a user's transactions for a reason after a cutoff
func (d *CoinTransactionDAO) CountByReasonSince(userID, reason string, since time.Time) (int64, error) {
	var n int64
	err := d.db.Model(&models.CoinTransaction{}).
		Where("user_id = ? AND reason = ? AND created_at >= ?", userID, reason, since).
		Count(&n).Error
	return n, err
}

// CountByReason counts a user's transactions for a reason over all time
func (d *CoinTransactionDAO) CountByReason(userID, reason string) (int64, error) {
	var n int64
	err := d.db.Model(&models.CoinTransaction{}).
		Where("user_id = ? AND reason = ?", userID, reason).
		Count(&n).Error
	return n, err
}

// GetByUserID retrieves a user's transaction history, newest first
func (d *CoinTransactionDAO) GetByUserID(userID string, limit int) ([]models.CoinTransaction, error) {
	var txs []models.CoinTransaction
	q := d.db.Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
