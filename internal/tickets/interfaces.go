package tickets

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Store is the remote ticket store.
type Store interface {
	FetchTicketDetail(ctx context.Context, ticketNumber string) (*TicketDetail, error)
	SendMessage(ctx context.Context, ticketID uuid.UUID, content string, attachments []string) error
	CloseTicket(ctx context.Context, ticketID uuid.UUID, reason string) error
}

// AttachmentStore uploads images and returns their public URL.
type AttachmentStore interface {
	UploadImage(ctx context.Context, name string, r io.Reader) (string, error)
}
