// Package lifecycle holds the order transition table shared by rental and
// task orders. It performs no I/O; callers persist the result.
package lifecycle

import (
	"fmt"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
)

// Input carries the action-specific values the table validates.
type Input struct {
	CancelReason  enums.CancelReason
	DisputeReason enums.DisputeReason
	Outcome       enums.ResolutionOutcome
}

// Result describes an accepted transition and the side effects the persister
// must apply together with the status change.
type Result struct {
	Action     enums.OrderAction
	From       enums.OrderStatus
	To         enums.OrderStatus
	Idempotent bool

	StampPaidAt     bool
	StampStartedAt  bool
	StampEndedAt    bool
	StampCanceledAt bool
	Settle          bool
	OpenTicket      bool
	CloseTicket     bool
}

// Changed reports whether the status moves.
func (r Result) Changed() bool {
	return !r.Idempotent && r.From != r.To
}

// TransitionDetails is attached to INVALID_TRANSITION errors so callers can
// tell the user exactly which state blocked which action.
type TransitionDetails struct {
	Current enums.OrderStatus `json:"current_status"`
	Action  enums.OrderAction `json:"action"`
}

type rule struct {
	from  []enums.OrderStatus
	to    enums.OrderStatus
	roles []enums.ActorRole
}

var table = map[enums.OrderAction]rule{
	enums.OrderActionPay: {
		from:  []enums.OrderStatus{enums.OrderStatusPending},
		to:    enums.OrderStatusPaid,
		roles: []enums.ActorRole{enums.ActorRoleBuyer},
	},
	enums.OrderActionStart: {
		from:  []enums.OrderStatus{enums.OrderStatusPaid},
		to:    enums.OrderStatusInProgress,
		roles: []enums.ActorRole{enums.ActorRoleSeller},
	},
	enums.OrderActionComplete: {
		from:  []enums.OrderStatus{enums.OrderStatusInProgress},
		to:    enums.OrderStatusCompleted,
		roles: []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleSupport},
	},
	enums.OrderActionCancel: {
		from:  []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPaid},
		to:    enums.OrderStatusCanceled,
		roles: []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleSeller, enums.ActorRoleSystem},
	},
	enums.OrderActionDispute: {
		from:  []enums.OrderStatus{enums.OrderStatusInProgress},
		to:    enums.OrderStatusDisputed,
		roles: []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleSeller},
	},
	// resolve lands on COMPLETED or CANCELED depending on Input.Outcome.
	enums.OrderActionResolve: {
		from:  []enums.OrderStatus{enums.OrderStatusDisputed},
		roles: []enums.ActorRole{enums.ActorRoleSupport, enums.ActorRoleSystem},
	},
}

// Transition validates the requested action against the current status and
// actor role and returns the resulting status with its side effects.
func Transition(current enums.OrderStatus, action enums.OrderAction, role enums.ActorRole, in Input) (Result, error) {
	r, ok := table[action]
	if !ok {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order action %q", action))
	}
	if !current.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", current))
	}

	if action == enums.OrderActionComplete && current == enums.OrderStatusCompleted {
		if !containsRole(r.roles, role) {
			return Result{}, forbidden(action, role)
		}
		return Result{Action: action, From: current, To: current, Idempotent: true}, nil
	}

	if !containsStatus(r.from, current) {
		return Result{}, pkgerrors.New(
			pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot %s an order that is %s", action, current),
		).WithDetails(TransitionDetails{Current: current, Action: action})
	}
	if !containsRole(r.roles, role) {
		return Result{}, forbidden(action, role)
	}

	res := Result{Action: action, From: current, To: r.to}
	switch action {
	case enums.OrderActionPay:
		res.StampPaidAt = true
	case enums.OrderActionStart:
		res.StampStartedAt = true
	case enums.OrderActionComplete:
		res.StampEndedAt = true
		res.Settle = true
	case enums.OrderActionCancel:
		if err := validateCancelReason(in.CancelReason, role); err != nil {
			return Result{}, err
		}
		res.StampCanceledAt = true
	case enums.OrderActionDispute:
		if !in.DisputeReason.IsValid() {
			return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason must be one of the listed reasons")
		}
		res.OpenTicket = true
	case enums.OrderActionResolve:
		to, err := in.Outcome.Status()
		if err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolution outcome required")
		}
		res.To = to
		res.CloseTicket = true
		if to == enums.OrderStatusCompleted {
			res.StampEndedAt = true
			res.Settle = true
		} else {
			res.StampCanceledAt = true
		}
	}
	return res, nil
}

// Allowed lists the actions the role may take from the given status, in the
// order buttons are rendered.
func Allowed(current enums.OrderStatus, role enums.ActorRole) []enums.OrderAction {
	var out []enums.OrderAction
	for _, action := range enums.OrderActions() {
		r := table[action]
		if containsStatus(r.from, current) && containsRole(r.roles, role) {
			out = append(out, action)
		}
	}
	return out
}

func validateCancelReason(reason enums.CancelReason, role enums.ActorRole) error {
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}
	if !reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason must be one of the listed reasons")
	}
	if reason == enums.CancelReasonPaymentTimeout && role != enums.ActorRoleSystem {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason reserved for the system")
	}
	return nil
}

func forbidden(action enums.OrderAction, role enums.ActorRole) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s may not %s this order", role, action))
}

func containsStatus(list []enums.OrderStatus, s enums.OrderStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsRole(list []enums.ActorRole, role enums.ActorRole) bool {
	for _, candidate := range list {
		if candidate == role {
			return true
		}
	}
	return false
}
