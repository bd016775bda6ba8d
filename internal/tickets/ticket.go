// Package tickets keeps a dispute ticket's message log in sync with the
// ticket store and dispatches new messages to it.
package tickets

import (
	"time"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/google/uuid"
)

// Message is one entry of a ticket's append-only log. IDs are assigned by
// the ticket store and define the log order.
type Message struct {
	ID          int64            `json:"id"`
	SenderType  enums.SenderType `json:"sender_type"`
	SenderID    *uuid.UUID       `json:"sender_id,omitempty"`
	Content     string           `json:"content"`
	Attachments []string         `json:"attachments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TicketDetail is the store's view of a ticket: its status and the message
// log as currently stored. Details are treated as immutable once received.
type TicketDetail struct {
	ID           uuid.UUID          `json:"id"`
	TicketNumber string             `json:"ticket_number"`
	OrderID      uuid.UUID          `json:"order_id"`
	Status       enums.TicketStatus `json:"status"`
	Reason       string             `json:"reason,omitempty"`
	Messages     []*Message         `json:"messages"`
}

// Closed reports whether the ticket accepts no further messages.
func (d *TicketDetail) Closed() bool {
	return d != nil && d.Status.IsClosed()
}
