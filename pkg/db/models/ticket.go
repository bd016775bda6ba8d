package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
)

// Ticket is the dispute conversation bound to exactly one order.
type Ticket struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	TicketNumber string             `gorm:"column:ticket_number;not null;uniqueIndex"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	OpenedBy     uuid.UUID          `gorm:"column:opened_by;type:uuid;not null"`
	Status       enums.TicketStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Reason       string             `gorm:"column:reason;not null"`
	CloseReason  *string            `gorm:"column:close_reason"`
	ClosedAt     *time.Time         `gorm:"column:closed_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Ticket) TableName() string { return "tickets" }

// TicketMessage is one entry of a ticket's append-only log. The
// auto-increment id defines the log order.
type TicketMessage struct {
	ID          int64            `gorm:"column:id;primaryKey;autoIncrement"`
	TicketID    uuid.UUID        `gorm:"column:ticket_id;type:uuid;not null;index"`
	SenderType  enums.SenderType `gorm:"column:sender_type;type:text;not null"`
	SenderID    *uuid.UUID       `gorm:"column:sender_id;type:uuid"`
	Content     string           `gorm:"column:content;not null;default:''"`
	Attachments []string         `gorm:"column:attachments;type:jsonb;serializer:json"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (TicketMessage) TableName() string { return "ticket_messages" }
