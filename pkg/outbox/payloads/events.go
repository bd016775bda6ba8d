package payloads

import (
	"time"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderTransitionEvent is emitted for every applied order action.
type OrderTransitionEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Kind        enums.OrderKind   `json:"kind"`
	Action      enums.OrderAction `json:"action"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	SellerID    uuid.UUID         `json:"seller_id"`
	TotalCents  int64             `json:"total_cents"`
	Reason      string            `json:"reason,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// OrderDisputedEvent adds the ticket spawned for the dispute.
type OrderDisputedEvent struct {
	OrderTransitionEvent
	TicketNumber string `json:"ticket_number"`
}

// OrderExpiredEvent is emitted by the expiry job when an unpaid order times out.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	ExpiredAt   time.Time `json:"expired_at"`
}

// TicketMessagePostedEvent is emitted when a party or support writes to a ticket.
type TicketMessagePostedEvent struct {
	TicketID        uuid.UUID        `json:"ticket_id"`
	TicketNumber    string           `json:"ticket_number"`
	OrderID         uuid.UUID        `json:"order_id"`
	MessageID       int64            `json:"message_id"`
	SenderType      enums.SenderType `json:"sender_type"`
	AttachmentCount int              `json:"attachment_count"`
}

// TicketClosedEvent is emitted when a ticket stops accepting messages.
type TicketClosedEvent struct {
	TicketID     uuid.UUID `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	OrderID      uuid.UUID `json:"order_id"`
	Reason       string    `json:"reason,omitempty"`
	ClosedAt     time.Time `json:"closed_at"`
}
