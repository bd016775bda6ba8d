package enums

import "fmt"

// OrderAction names an externally triggered lifecycle operation.
type OrderAction string

const (
	OrderActionPay      OrderAction = "pay"
	OrderActionStart    OrderAction = "start"
	OrderActionComplete OrderAction = "complete"
	OrderActionCancel   OrderAction = "cancel"
	OrderActionDispute  OrderAction = "dispute"
	OrderActionResolve  OrderAction = "resolve"
)

var validOrderActions = []OrderAction{
	OrderActionPay,
	OrderActionStart,
	OrderActionComplete,
	OrderActionCancel,
	OrderActionDispute,
	OrderActionResolve,
}

// OrderActions returns every known order action.
func OrderActions() []OrderAction {
	out := make([]OrderAction, len(validOrderActions))
	copy(out, validOrderActions)
	return out
}

// String implements fmt.Stringer.
func (o OrderAction) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderAction.
func (o OrderAction) IsValid() bool {
	for _, candidate := range validOrderActions {
		if candidate == o {
			return true
		}
	}
	return false
}

// Label returns the button text for the action.
func (o OrderAction) Label() string {
	switch o {
	case OrderActionPay:
		return "立即支付"
	case OrderActionStart:
		return "开始执行"
	case OrderActionComplete:
		return "确认完成"
	case OrderActionCancel:
		return "取消订单"
	case OrderActionDispute:
		return "申请纠纷"
	case OrderActionResolve:
		return "处理纠纷"
	}
	panic(fmt.Sprintf("enums: order action %q has no label", string(o)))
}

// ParseOrderAction converts raw input into an OrderAction.
func ParseOrderAction(value string) (OrderAction, error) {
	for _, candidate := range validOrderActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order action %q", value)
}
