package types

import "time"

// OrderActionRequest is the body of POST /orders/{orderId}/actions/{action}.
// UseBalance travels as a "true"/"false" string.
type OrderActionRequest struct {
	LeaseDays     *int     `json:"lease_days,omitempty" validate:"omitempty,min=0"`
	UseBalance    FlexBool `json:"use_balance"`
	CancelReason  string   `json:"cancel_reason,omitempty"`
	DisputeReason string   `json:"dispute_reason,omitempty"`
	Outcome       string   `json:"outcome,omitempty" validate:"omitempty,oneof=completed canceled"`
	Notes         string   `json:"notes,omitempty" validate:"max=500"`
}

// TicketMessageRequest is the body of POST /tickets/id/{ticketId}/messages.
type TicketMessageRequest struct {
	Content     string   `json:"content" validate:"max=2000"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,url"`
}

// CloseTicketRequest is the body of POST /tickets/id/{ticketId}/close.
type CloseTicketRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// VerifyPasswordRequest is the body of POST /wallet/verify-password.
type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// UploadResult is the data of a successful POST /uploads.
type UploadResult struct {
	URL string `json:"url"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Kind         string     `json:"kind" validate:"required,oneof=rental task"`
	Title        string     `json:"title" validate:"required,max=120"`
	SellerID     string     `json:"seller_id" validate:"required,uuid"`
	TotalCents   int64      `json:"total_cents" validate:"required,min=1"`
	DepositCents int64      `json:"deposit_cents" validate:"min=0"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// SetPaymentPasswordRequest is the body of POST /wallet/payment-password.
type SetPaymentPasswordRequest struct {
	Password string `json:"password" validate:"required,len=6,numeric"`
}

// WalletBalance is the data of GET /wallet/balance.
type WalletBalance struct {
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
}
