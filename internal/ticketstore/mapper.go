package ticketstore

import (
	"github.com/angelmondragon/taskrent-backend/internal/tickets"
	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
)

func toMessage(row models.TicketMessage) *tickets.Message {
	var attachments []string
	if len(row.Attachments) > 0 {
		attachments = append(attachments, row.Attachments...)
	}
	return &tickets.Message{
		ID:          row.ID,
		SenderType:  row.SenderType,
		SenderID:    row.SenderID,
		Content:     row.Content,
		Attachments: attachments,
		CreatedAt:   row.CreatedAt,
	}
}

func toDetail(ticket *models.Ticket, rows []models.TicketMessage) *tickets.TicketDetail {
	messages := make([]*tickets.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row))
	}
	return &tickets.TicketDetail{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		OrderID:      ticket.OrderID,
		Status:       ticket.Status,
		Reason:       ticket.Reason,
		Messages:     messages,
	}
}
