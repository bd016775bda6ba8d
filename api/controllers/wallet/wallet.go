package wallet

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/api/middleware"
	"github.com/angelmondragon/taskrent-backend/api/responses"
	"github.com/angelmondragon/taskrent-backend/api/validators"
	"github.com/angelmondragon/taskrent-backend/internal/wallets"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
)

type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (money.Cents, error)
	SetPaymentPassword(ctx context.Context, userID uuid.UUID, password string) error
	VerifyPaymentPassword(ctx context.Context, userID uuid.UUID, password string) error
}

var _ Service = (*wallets.Service)(nil)

func callerID(r *http.Request) (uuid.UUID, error) {
	actor := middleware.ActorFromContext(r.Context())
	if actor.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor.UserID, nil
}

func Balance(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.WalletBalance{BalanceCents: int64(balance), Balance: balance.Display()})
	}
}

func SetPaymentPassword(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.SetPaymentPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetPaymentPassword(r.Context(), userID, payload.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "支付密码已设置", nil)
	}
}

// VerifyPassword checks the caller's payment password before a balance payment.
func VerifyPassword(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.VerifyPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.VerifyPaymentPassword(r.Context(), userID, payload.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "验证通过", map[string]bool{"verified": true})
	}
}
