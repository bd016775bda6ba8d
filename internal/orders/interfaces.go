package orders

import (
	"context"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/google/uuid"
)

// Store is the remote order store. It is the single source of truth for
// order status and enforces at-most-once application of each transition.
type Store interface {
	SubmitOrderAction(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error)
	FetchOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
}

// PaymentVerifier checks the buyer's payment password before a payment is submitted.
type PaymentVerifier interface {
	VerifyPaymentPassword(ctx context.Context, password string) error
}
