package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregateTicket OutboxAggregateType = "ticket"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateTicket,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventOrderPaid       OutboxEventType = "order_paid"
	EventOrderStarted    OutboxEventType = "order_started"
	EventOrderCompleted  OutboxEventType = "order_completed"
	EventOrderCanceled   OutboxEventType = "order_canceled"
	EventOrderDisputed   OutboxEventType = "order_disputed"
	EventOrderResolved   OutboxEventType = "order_resolved"
	EventTicketMessage   OutboxEventType = "ticket_message_posted"
	EventTicketClosed    OutboxEventType = "ticket_closed"
	EventOrderAutoExpire OutboxEventType = "order_expired"
)

var validEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventOrderStarted,
	EventOrderCompleted,
	EventOrderCanceled,
	EventOrderDisputed,
	EventOrderResolved,
	EventTicketMessage,
	EventTicketClosed,
	EventOrderAutoExpire,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OrderEventType maps an applied order action to its event.
func OrderEventType(action OrderAction) (OutboxEventType, error) {
	switch action {
	case OrderActionPay:
		return EventOrderPaid, nil
	case OrderActionStart:
		return EventOrderStarted, nil
	case OrderActionComplete:
		return EventOrderCompleted, nil
	case OrderActionCancel:
		return EventOrderCanceled, nil
	case OrderActionDispute:
		return EventOrderDisputed, nil
	case OrderActionResolve:
		return EventOrderResolved, nil
	}
	return "", fmt.Errorf("no event for order action %q", action)
}

// OutboxDLQErrorReason records why an event was parked instead of published.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
