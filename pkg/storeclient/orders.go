package storeclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
	"github.com/google/uuid"
)

var (
	_ orders.Store           = (*Client)(nil)
	_ orders.PaymentVerifier = (*Client)(nil)
)

// SubmitOrderAction posts one transition request. Every call carries a fresh
// idempotency key; the store replays the stored answer for a repeated key.
func (c *Client) SubmitOrderAction(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload orders.Payload) (*orders.Order, error) {
	body := types.OrderActionRequest{
		LeaseDays:     payload.LeaseDays,
		UseBalance:    types.FlexBool(payload.UseBalance),
		CancelReason:  string(payload.CancelReason),
		DisputeReason: string(payload.DisputeReason),
		Outcome:       string(payload.Outcome),
		Notes:         payload.Notes,
	}
	path := fmt.Sprintf("/orders/%s/actions/%s", orderID, url.PathEscape(string(action)))
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.idempotent = true

	var order orders.Order
	if err := c.do(ctx, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder reads the authoritative order snapshot.
func (c *Client) FetchOrder(ctx context.Context, orderID uuid.UUID) (*orders.Order, error) {
	var order orders.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/" + orderID.String()}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPaymentPassword checks the caller's wallet payment password.
func (c *Client) VerifyPaymentPassword(ctx context.Context, password string) error {
	req, err := jsonRequest(http.MethodPost, "/wallet/verify-password", types.VerifyPasswordRequest{Password: password})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
