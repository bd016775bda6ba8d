package tickets

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/api/middleware"
	"github.com/angelmondragon/taskrent-backend/api/responses"
	"github.com/angelmondragon/taskrent-backend/api/validators"
	internaltickets "github.com/angelmondragon/taskrent-backend/internal/tickets"
	"github.com/angelmondragon/taskrent-backend/internal/ticketstore"
	"github.com/angelmondragon/taskrent-backend/pkg/auth"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
)

type Service interface {
	Detail(ctx context.Context, actor auth.Actor, number string) (*internaltickets.TicketDetail, error)
	PostMessage(ctx context.Context, actor auth.Actor, ticketID uuid.UUID, content string, attachments []string) (*internaltickets.Message, error)
	Close(ctx context.Context, actor auth.Actor, ticketID uuid.UUID, reason string) (*internaltickets.TicketDetail, error)
}

var _ Service = (*ticketstore.Service)(nil)

// Detail returns the ticket status and its full message log.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "ticketNumber")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTicketNumber(ctx, number)
		}
		detail, err := svc.Detail(ctx, middleware.ActorFromContext(ctx), number)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// PostMessage appends one message to the ticket log.
func PostMessage(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParseUUIDParam(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.TicketMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.PostMessage(r.Context(), middleware.ActorFromContext(r.Context()), ticketID, payload.Content, payload.Attachments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "消息已发送", msg)
	}
}

// Close closes the ticket. Closing twice is not an error.
func Close(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParseUUIDParam(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.CloseTicketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Close(r.Context(), middleware.ActorFromContext(r.Context()), ticketID, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "工单已关闭", detail)
	}
}
