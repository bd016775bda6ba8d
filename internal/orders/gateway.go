// Package orders is the client-side order action gateway: it validates a
// requested transition locally, submits it to the remote order store and
// keeps the order view on the store's authoritative snapshot.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/taskrent-backend/internal/lifecycle"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/google/uuid"
)

const defaultMaxLeaseDays = 30

// Actor identifies who is pressing the buttons.
type Actor struct {
	UserID  uuid.UUID
	Support bool
}

// GatewayParams configure the gateway.
type GatewayParams struct {
	Store        Store
	Verifier     PaymentVerifier
	Logger       *logger.Logger
	Actor        Actor
	MaxLeaseDays int
	Now          func() time.Time
}

// Gateway translates UI intents into validated order store mutations.
type Gateway struct {
	store        Store
	verifier     PaymentVerifier
	logg         *logger.Logger
	actor        Actor
	maxLeaseDays int
	now          func() time.Time
}

// NewGateway builds an order action gateway.
func NewGateway(params GatewayParams) (*Gateway, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Actor.UserID == uuid.Nil && !params.Actor.Support {
		return nil, fmt.Errorf("actor user id required")
	}
	maxLeaseDays := params.MaxLeaseDays
	if maxLeaseDays <= 0 {
		maxLeaseDays = defaultMaxLeaseDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		store:        params.Store,
		verifier:     params.Verifier,
		logg:         params.Logger,
		actor:        params.Actor,
		maxLeaseDays: maxLeaseDays,
		now:          now,
	}, nil
}

// Pay submits a payment. For rental orders leaseDays must lie in
// [0, MaxLeaseDays]; 0 is accepted as an explicit choice.
func (g *Gateway) Pay(ctx context.Context, view *View, leaseDays int, password string, useBalance bool) (*Order, error) {
	snap := view.Snapshot()
	if snap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order snapshot required")
	}
	payload := Payload{UseBalance: useBalance}
	if snap.Kind == enums.OrderKindRental {
		if leaseDays < 0 || leaseDays > g.maxLeaseDays {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lease days out of range").
				WithDetails(map[string]any{"field": "lease_days", "min": 0, "max": g.maxLeaseDays})
		}
		days := leaseDays
		payload.LeaseDays = &days
	}
	var verify func(context.Context) error
	if g.verifier != nil {
		if strings.TrimSpace(password) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment password required")
		}
		verify = func(ctx context.Context) error {
			if err := g.verifier.VerifyPaymentPassword(ctx, password); err != nil {
				if pkgerrors.As(err) != nil {
					return err
				}
				return pkgerrors.Wrap(pkgerrors.CodeRejected, err, "payment password rejected")
			}
			return nil
		}
	}
	return g.submit(ctx, view, enums.OrderActionPay, payload, verify)
}

// Start marks execution as started (seller side).
func (g *Gateway) Start(ctx context.Context, view *View) (*Order, error) {
	return g.Submit(ctx, view, enums.OrderActionStart, Payload{})
}

// Complete confirms completion. Completing an already completed order
// succeeds without contacting the store.
func (g *Gateway) Complete(ctx context.Context, view *View, notes string) (*Order, error) {
	return g.Submit(ctx, view, enums.OrderActionComplete, Payload{Notes: strings.TrimSpace(notes)})
}

// Cancel cancels a pending or paid order.
func (g *Gateway) Cancel(ctx context.Context, view *View, reason enums.CancelReason) (*Order, error) {
	return g.Submit(ctx, view, enums.OrderActionCancel, Payload{CancelReason: reason})
}

// OpenDispute moves an in-progress order into dispute. The returned snapshot
// carries the number of the ticket the store opened for it.
func (g *Gateway) OpenDispute(ctx context.Context, view *View, reason enums.DisputeReason) (*Order, error) {
	return g.Submit(ctx, view, enums.OrderActionDispute, Payload{DisputeReason: reason})
}

// Resolve records the externally decided dispute outcome (support agents).
func (g *Gateway) Resolve(ctx context.Context, view *View, outcome enums.ResolutionOutcome, notes string) (*Order, error) {
	return g.Submit(ctx, view, enums.OrderActionResolve, Payload{Outcome: outcome, Notes: strings.TrimSpace(notes)})
}

// Refresh re-reads the order and replaces the view's snapshot.
func (g *Gateway) Refresh(ctx context.Context, view *View, orderID uuid.UUID) (*Order, error) {
	order, err := g.store.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view.settle(order)
	return order, nil
}

// Actions lists the buttons the actor may press for the current snapshot.
// Nothing is offered while an intent is pending.
func (g *Gateway) Actions(view *View) []enums.OrderAction {
	snap := view.Snapshot()
	if snap == nil || view.Pending() != nil {
		return nil
	}
	role, err := g.roleFor(snap)
	if err != nil {
		return nil
	}
	return lifecycle.Allowed(snap.Status, role)
}

// Submit validates the action against the view's snapshot and performs
// exactly one store mutation. Mutations are never retried here: a transport
// failure is returned for the user to retry explicitly.
func (g *Gateway) Submit(ctx context.Context, view *View, action enums.OrderAction, payload Payload) (*Order, error) {
	return g.submit(ctx, view, action, payload, nil)
}

// submit runs preflight, when set, after the intent is claimed and before the
// mutation, so a second press is refused without repeating the check.
func (g *Gateway) submit(ctx context.Context, view *View, action enums.OrderAction, payload Payload, preflight func(context.Context) error) (*Order, error) {
	if view == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order view required")
	}
	snap := view.Snapshot()
	if snap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order snapshot required")
	}
	ctx = g.logg.WithFields(ctx, map[string]any{
		"order_id": snap.ID.String(),
		"action":   string(action),
	})

	role, err := g.roleFor(snap)
	if err != nil {
		return nil, err
	}
	res, err := lifecycle.Transition(snap.Status, action, role, lifecycle.Input{
		CancelReason:  payload.CancelReason,
		DisputeReason: payload.DisputeReason,
		Outcome:       payload.Outcome,
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeInvalidTransition) && view.Pending() == nil {
			// the snapshot may be stale; show what the store holds now
			if current := g.fetchQuietly(ctx, snap.ID); current != nil {
				view.observe(current)
			}
		}
		return nil, err
	}
	if res.Idempotent {
		return snap, nil
	}

	if !view.begin(Intent{Action: action, Expected: res.To, StartedAt: g.now()}) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another action is already in flight for this order")
	}
	if preflight != nil {
		if err := preflight(ctx); err != nil {
			view.settle(nil)
			return nil, err
		}
	}

	updated, err := g.store.SubmitOrderAction(ctx, snap.ID, action, payload)
	if err != nil {
		var refreshed *Order
		if pkgerrors.Is(err, pkgerrors.CodeRejected) {
			refreshed = g.fetchQuietly(ctx, snap.ID)
		}
		view.settle(refreshed)
		g.logg.Warn(g.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "order action failed")
		return nil, err
	}
	if updated == nil {
		view.settle(nil)
		return nil, pkgerrors.New(pkgerrors.CodeTransport, "order store returned no snapshot")
	}

	view.settle(updated)
	if updated.Status != res.To {
		g.logg.Info(g.logg.WithField(ctx, "store_status", string(updated.Status)), "store status differs from expected transition")
	}
	return updated, nil
}

func (g *Gateway) roleFor(snap *Order) (enums.ActorRole, error) {
	if g.actor.Support {
		return enums.ActorRoleSupport, nil
	}
	if role, ok := snap.RoleOf(g.actor.UserID); ok {
		return role, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
}

// fetchQuietly re-reads the order after a refused action so the view shows
// the store's status. Failures keep the previous snapshot.
func (g *Gateway) fetchQuietly(ctx context.Context, orderID uuid.UUID) *Order {
	order, err := g.store.FetchOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logg.Warn(ctx, "refresh after refused action failed")
		}
		return nil
	}
	return order
}
