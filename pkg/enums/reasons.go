package enums

import "fmt"

// CancelReason is the enumerated reason attached to a cancellation.
type CancelReason string

const (
	CancelReasonNoLongerWanted CancelReason = "不想要了"
	CancelReasonWrongDetails   CancelReason = "信息填写错误"
	CancelReasonSellerSilent   CancelReason = "卖家未及时响应"
	CancelReasonOther          CancelReason = "其他原因"
	// CancelReasonPaymentTimeout is only set by the expiry job.
	CancelReasonPaymentTimeout CancelReason = "支付超时"
)

var validCancelReasons = []CancelReason{
	CancelReasonNoLongerWanted,
	CancelReasonWrongDetails,
	CancelReasonSellerSilent,
	CancelReasonOther,
	CancelReasonPaymentTimeout,
}

// String implements fmt.Stringer.
func (c CancelReason) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancelReason.
func (c CancelReason) IsValid() bool {
	for _, candidate := range validCancelReasons {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCancelReason converts raw input into a CancelReason.
func ParseCancelReason(value string) (CancelReason, error) {
	for _, candidate := range validCancelReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancel reason %q", value)
}

// DisputeReason is the enumerated reason attached to a dispute.
type DisputeReason string

const (
	DisputeReasonAccountBanned  DisputeReason = "账号被平台封禁"
	DisputeReasonNotAsDescribed DisputeReason = "账号信息与描述不符"
	DisputeReasonCannotLogin    DisputeReason = "账号无法登录"
	DisputeReasonTaskIncomplete DisputeReason = "任务未按要求完成"
	DisputeReasonOther          DisputeReason = "其他问题"
)

var validDisputeReasons = []DisputeReason{
	DisputeReasonAccountBanned,
	DisputeReasonNotAsDescribed,
	DisputeReasonCannotLogin,
	DisputeReasonTaskIncomplete,
	DisputeReasonOther,
}

// String implements fmt.Stringer.
func (d DisputeReason) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeReason.
func (d DisputeReason) IsValid() bool {
	for _, candidate := range validDisputeReasons {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeReason converts raw input into a DisputeReason.
func ParseDisputeReason(value string) (DisputeReason, error) {
	for _, candidate := range validDisputeReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute reason %q", value)
}

// ResolutionOutcome is the externally decided end state of a dispute.
type ResolutionOutcome string

const (
	ResolutionOutcomeCompleted ResolutionOutcome = "completed"
	ResolutionOutcomeCanceled  ResolutionOutcome = "canceled"
)

// IsValid reports whether the value is a known ResolutionOutcome.
func (r ResolutionOutcome) IsValid() bool {
	return r == ResolutionOutcomeCompleted || r == ResolutionOutcomeCanceled
}

// Status returns the order status the outcome settles on.
func (r ResolutionOutcome) Status() (OrderStatus, error) {
	switch r {
	case ResolutionOutcomeCompleted:
		return OrderStatusCompleted, nil
	case ResolutionOutcomeCanceled:
		return OrderStatusCanceled, nil
	}
	return "", fmt.Errorf("invalid resolution outcome %q", string(r))
}
