package models

import "time"

// Coin transaction kinds
const (
	TxKindGrant  = "grant"
	TxKindCredit = "credit"
	TxKindDebit  = "debit"
)

// CoinTransaction journals every balance mutation applied by the ledger
type CoinTransaction struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	Kind         string    `gorm:"not null" json:"kind"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Reason       string    `gorm:"index" json:"reason"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
