package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's platform balance and payment password hash.
type Wallet struct {
	UserID              uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	BalanceCents        int64     `gorm:"column:balance_cents;not null;default:0"`
	PaymentPasswordHash *string   `gorm:"column:payment_password_hash"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallets" }
