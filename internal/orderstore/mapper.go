package orderstore

import (
	"github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
)

// toSnapshot converts a row into the wire snapshot clients render.
func toSnapshot(row *models.Order) *orders.Order {
	if row == nil {
		return nil
	}
	out := &orders.Order{
		ID:                row.ID,
		OrderNumber:       row.OrderNumber,
		Kind:              row.Kind,
		Title:             row.Title,
		BuyerID:           row.BuyerID,
		SellerID:          row.SellerID,
		Status:            row.Status,
		TotalCents:        money.Cents(row.TotalCents),
		DepositCents:      money.Cents(row.DepositCents),
		PlatformFeeCents:  money.Cents(row.PlatformFeeCents),
		SellerIncomeCents: money.Cents(row.SellerIncomeCents),
		LeaseDays:         row.LeaseDays,
		CreatedAt:         row.CreatedAt,
		PaidAt:            row.PaidAt,
		StartedAt:         row.StartedAt,
		EndAt:             row.EndAt,
		ActualEndAt:       row.ActualEndAt,
		Deadline:          row.Deadline,
		CanceledAt:        row.CanceledAt,
	}
	if row.CancelReason != nil {
		out.CancelReason = *row.CancelReason
	}
	if row.DisputeReason != nil {
		out.DisputeReason = *row.DisputeReason
	}
	if row.CompletionNotes != nil {
		out.CompletionNotes = *row.CompletionNotes
	}
	if row.TicketNumber != nil {
		out.TicketNumber = *row.TicketNumber
	}
	return out
}
