package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/api/middleware"
	"github.com/angelmondragon/taskrent-backend/api/responses"
	"github.com/angelmondragon/taskrent-backend/api/validators"
	internalorders "github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/internal/orderstore"
	"github.com/angelmondragon/taskrent-backend/pkg/auth"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
)

var listLimit = validators.PageLimit{Default: 50, Max: 200}

// Service is the order store surface the handlers need.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, in orderstore.CreateInput) (*internalorders.Order, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*internalorders.Order, error)
	List(ctx context.Context, actor auth.Actor, limit int) ([]internalorders.Order, error)
	Actions(actor auth.Actor, order *internalorders.Order) []enums.OrderAction
	Apply(ctx context.Context, in orderstore.ActionInput) (*internalorders.Order, error)
}

var _ Service = (*orderstore.Service)(nil)

// orderView is the order snapshot plus the actions the caller may take next.
type orderView struct {
	*internalorders.Order
	AllowedActions []enums.OrderAction `json:"allowed_actions"`
}

func view(svc Service, actor auth.Actor, order *internalorders.Order) orderView {
	actions := svc.Actions(actor, order)
	if actions == nil {
		actions = []enums.OrderAction{}
	}
	return orderView{Order: order, AllowedActions: actions}
}

// Create places a new order with the caller as buyer.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.CreateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := uuid.Parse(payload.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller_id"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		order, err := svc.Create(r.Context(), actor, orderstore.CreateInput{
			Kind:         enums.OrderKind(payload.Kind),
			Title:        validators.SanitizeString(payload.Title, 120),
			SellerID:     sellerID,
			TotalCents:   money.Cents(payload.TotalCents),
			DepositCents: money.Cents(payload.DepositCents),
			Deadline:     payload.Deadline,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "订单已创建", view(svc, actor, order))
	}
}

// List returns the caller's orders, newest first.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := listLimit.Parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		list, err := svc.List(r.Context(), actor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]orderView, 0, len(list))
		for i := range list {
			views = append(views, view(svc, actor, &list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// Detail returns one order visible to the caller.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view(svc, actor, order))
	}
}

// Action applies one lifecycle action and returns the updated snapshot.
func Action(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseOrderAction(strings.TrimSpace(chi.URLParam(r, "action")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order action"))
			return
		}

		var payload types.OrderActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := svc.Apply(ctx, orderstore.ActionInput{
			OrderID: orderID,
			Action:  action,
			Actor:   actor,
			Payload: internalorders.Payload{
				LeaseDays:     payload.LeaseDays,
				UseBalance:    payload.UseBalance.Bool(),
				CancelReason:  enums.CancelReason(strings.TrimSpace(payload.CancelReason)),
				DisputeReason: enums.DisputeReason(strings.TrimSpace(payload.DisputeReason)),
				Outcome:       enums.ResolutionOutcome(strings.TrimSpace(payload.Outcome)),
				Notes:         validators.SanitizeString(payload.Notes, 500),
			},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view(svc, actor, order))
	}
}
