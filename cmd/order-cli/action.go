package main

import (
	"context"
	"strings"

	"github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
)

type actionOptions struct {
	action     string
	leaseDays  int
	password   string
	useBalance bool
	reason     string
	outcome    string
	notes      string
}

// runAction maps the command line onto one gateway call.
func runAction(ctx context.Context, gw *orders.Gateway, view *orders.View, opts actionOptions) (*orders.Order, error) {
	action, err := enums.ParseOrderAction(strings.ToLower(strings.TrimSpace(opts.action)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action")
	}
	switch action {
	case enums.OrderActionPay:
		return gw.Pay(ctx, view, opts.leaseDays, opts.password, opts.useBalance)
	case enums.OrderActionStart:
		return gw.Start(ctx, view)
	case enums.OrderActionComplete:
		return gw.Complete(ctx, view, opts.notes)
	case enums.OrderActionCancel:
		reason, err := enums.ParseCancelReason(strings.TrimSpace(opts.reason))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cancel reason")
		}
		return gw.Cancel(ctx, view, reason)
	case enums.OrderActionDispute:
		reason, err := enums.ParseDisputeReason(strings.TrimSpace(opts.reason))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute reason")
		}
		return gw.OpenDispute(ctx, view, reason)
	default:
		return gw.Resolve(ctx, view, enums.ResolutionOutcome(strings.TrimSpace(opts.outcome)), opts.notes)
	}
}
