package storeclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/taskrent-backend/internal/tickets"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
	"github.com/google/uuid"
)

var (
	_ tickets.Store           = (*Client)(nil)
	_ tickets.AttachmentStore = (*Client)(nil)
)

// FetchTicketDetail reads the ticket status and its message log.
func (c *Client) FetchTicketDetail(ctx context.Context, ticketNumber string) (*tickets.TicketDetail, error) {
	number := strings.TrimSpace(ticketNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket number is required")
	}
	var detail tickets.TicketDetail
	if err := c.do(ctx, request{method: http.MethodGet, path: "/tickets/" + url.PathEscape(number)}, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SendMessage appends a message to the ticket log.
func (c *Client) SendMessage(ctx context.Context, ticketID uuid.UUID, content string, attachments []string) error {
	if attachments == nil {
		attachments = []string{}
	}
	req, err := jsonRequest(http.MethodPost, fmt.Sprintf("/tickets/id/%s/messages", ticketID), types.TicketMessageRequest{
		Content:     content,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// CloseTicket closes the ticket with an optional reason.
func (c *Client) CloseTicket(ctx context.Context, ticketID uuid.UUID, reason string) error {
	req, err := jsonRequest(http.MethodPost, fmt.Sprintf("/tickets/id/%s/close", ticketID), types.CloseTicketRequest{Reason: reason})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// UploadImage sends one image as multipart form data and returns its URL.
func (c *Client) UploadImage(ctx context.Context, name string, r io.Reader) (string, error) {
	if r == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read image")
	}
	if err := form.Close(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}

	var result types.UploadResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/uploads",
		body:        &buf,
		contentType: form.FormDataContentType(),
	}, &result)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result.URL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeTransport, "upload response missing url")
	}
	return result.URL, nil
}
