package enums

import "fmt"

// OrderStatus tracks the lifecycle of a rental or task order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusDisputed   OrderStatus = "DISPUTED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusCanceled,
	OrderStatusDisputed,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is defined from the status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCanceled
}

// Display returns the label and tone used to render the status.
// Unknown values panic: every status must be mapped here.
func (o OrderStatus) Display() Display {
	switch o {
	case OrderStatusPending:
		return Display{Label: "待支付", Tone: ToneWarning}
	case OrderStatusPaid:
		return Display{Label: "已支付", Tone: ToneInfo}
	case OrderStatusInProgress:
		return Display{Label: "进行中", Tone: ToneProgress}
	case OrderStatusCompleted:
		return Display{Label: "已完成", Tone: ToneSuccess}
	case OrderStatusCanceled:
		return Display{Label: "已取消", Tone: ToneNeutral}
	case OrderStatusDisputed:
		return Display{Label: "纠纷中", Tone: ToneDanger}
	}
	panic(fmt.Sprintf("enums: order status %q has no display mapping", string(o)))
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
