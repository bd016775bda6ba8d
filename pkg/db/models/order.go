package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
)

// Order is a rental or task order row. Status changes only through the
// order store's conditional updates.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string               `gorm:"column:order_number;not null;uniqueIndex"`
	Kind              enums.OrderKind      `gorm:"column:kind;type:text;not null"`
	Title             string               `gorm:"column:title;not null"`
	BuyerID           uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID          uuid.UUID            `gorm:"column:seller_id;type:uuid;not null"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'PENDING'"`
	TotalCents        int64                `gorm:"column:total_cents;not null"`
	DepositCents      int64                `gorm:"column:deposit_cents;not null;default:0"`
	PlatformFeeCents  int64                `gorm:"column:platform_fee_cents;not null;default:0"`
	SellerIncomeCents int64                `gorm:"column:seller_income_cents;not null;default:0"`
	LeaseDays         int                  `gorm:"column:lease_days;not null;default:0"`
	PaidWithBalance   bool                 `gorm:"column:paid_with_balance;not null;default:false"`
	PaidAt            *time.Time           `gorm:"column:paid_at"`
	StartedAt         *time.Time           `gorm:"column:started_at"`
	EndAt             *time.Time           `gorm:"column:end_at"`
	ActualEndAt       *time.Time           `gorm:"column:actual_end_at"`
	Deadline          *time.Time           `gorm:"column:deadline"`
	CanceledAt        *time.Time           `gorm:"column:canceled_at"`
	CancelReason      *enums.CancelReason  `gorm:"column:cancel_reason"`
	DisputeReason     *enums.DisputeReason `gorm:"column:dispute_reason"`
	CompletionNotes   *string              `gorm:"column:completion_notes"`
	TicketNumber      *string              `gorm:"column:ticket_number"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// Settlement records the payout split of a completed order. One row per order.
type Settlement struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	SellerID           uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	SellerIncomeCents  int64     `gorm:"column:seller_income_cents;not null"`
	PlatformFeeCents   int64     `gorm:"column:platform_fee_cents;not null"`
	DepositRefundCents int64     `gorm:"column:deposit_refund_cents;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Settlement) TableName() string { return "settlements" }
