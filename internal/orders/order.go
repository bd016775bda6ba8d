package orders

import (
	"time"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
	"github.com/google/uuid"
)

// Order is the authoritative snapshot of a rental or task order as returned
// by the order store. Snapshots are never mutated after they are received.
type Order struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	Kind              enums.OrderKind     `json:"kind"`
	Title             string              `json:"title"`
	BuyerID           uuid.UUID           `json:"buyer_id"`
	SellerID          uuid.UUID           `json:"seller_id"`
	Status            enums.OrderStatus   `json:"status"`
	TotalCents        money.Cents         `json:"total_cents"`
	DepositCents      money.Cents         `json:"deposit_cents"`
	PlatformFeeCents  money.Cents         `json:"platform_fee_cents"`
	SellerIncomeCents money.Cents         `json:"seller_income_cents"`
	LeaseDays         int                 `json:"lease_days"`
	CreatedAt         time.Time           `json:"created_at"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	EndAt             *time.Time          `json:"end_at,omitempty"`
	ActualEndAt       *time.Time          `json:"actual_end_at,omitempty"`
	Deadline          *time.Time          `json:"deadline,omitempty"`
	CanceledAt        *time.Time          `json:"canceled_at,omitempty"`
	CancelReason      enums.CancelReason  `json:"cancel_reason,omitempty"`
	DisputeReason     enums.DisputeReason `json:"dispute_reason,omitempty"`
	CompletionNotes   string              `json:"completion_notes,omitempty"`
	TicketNumber      string              `json:"ticket_number,omitempty"`
}

// RoleOf reports which side of the order the user is on.
func (o *Order) RoleOf(userID uuid.UUID) (enums.ActorRole, bool) {
	if o == nil || userID == uuid.Nil {
		return "", false
	}
	switch userID {
	case o.BuyerID:
		return enums.ActorRoleBuyer, true
	case o.SellerID:
		return enums.ActorRoleSeller, true
	}
	return "", false
}

// Amounts holds the display strings for the monetary fields.
type Amounts struct {
	Total        string `json:"total"`
	Deposit      string `json:"deposit"`
	PlatformFee  string `json:"platform_fee"`
	SellerIncome string `json:"seller_income"`
}

// Amounts converts the minor-unit fields for presentation.
func (o *Order) Amounts() Amounts {
	return Amounts{
		Total:        o.TotalCents.Display(),
		Deposit:      o.DepositCents.Display(),
		PlatformFee:  o.PlatformFeeCents.Display(),
		SellerIncome: o.SellerIncomeCents.Display(),
	}
}

// Payload carries the action-specific inputs of a transition request.
type Payload struct {
	// LeaseDays is only sent for rental payments; zero is a valid choice.
	LeaseDays     *int
	UseBalance    bool
	CancelReason  enums.CancelReason
	DisputeReason enums.DisputeReason
	Outcome       enums.ResolutionOutcome
	Notes         string
}
