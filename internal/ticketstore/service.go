package ticketstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/taskrent-backend/internal/tickets"
	"github.com/angelmondragon/taskrent-backend/pkg/auth"
	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/outbox"
	"github.com/angelmondragon/taskrent-backend/pkg/outbox/payloads"
)

const (
	closedMessage     = "工单已关闭"
	disputeMessageFmt = "订单已进入纠纷处理，原因：%s"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the ticket store.
type ServiceParams struct {
	Repo           *Repository
	Tx             txRunner
	Outbox         outbox.Emitter
	Logger         *logger.Logger
	MaxAttachments int
	Now            func() time.Time
}

// OpenInput describes the ticket spawned when an order enters dispute.
type OpenInput struct {
	OrderID  uuid.UUID
	OpenedBy uuid.UUID
	Reason   string
}

// Service is the authoritative ticket store.
type Service struct {
	repo           *Repository
	tx             txRunner
	outbox         outbox.Emitter
	logg           *logger.Logger
	maxAttachments int
	now            func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("ticket repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	limit := params.MaxAttachments
	if limit <= 0 {
		limit = tickets.DefaultMaxAttachments
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:           params.Repo,
		tx:             params.Tx,
		outbox:         params.Outbox,
		logg:           params.Logger,
		maxAttachments: limit,
		now:            now,
	}, nil
}

// Detail returns the ticket with its full message log.
func (s *Service) Detail(ctx context.Context, actor auth.Actor, number string) (*tickets.TicketDetail, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket number required")
	}
	ticket, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, notFoundOr(err, "load ticket")
	}
	if _, err := s.senderFor(ctx, s.repo, actor, ticket); err != nil {
		return nil, err
	}
	return s.detail(ctx, s.repo, ticket)
}

// PostMessage appends a message from a party or support agent.
func (s *Service) PostMessage(ctx context.Context, actor auth.Actor, ticketID uuid.UUID, content string, attachments []string) (*tickets.Message, error) {
	content = strings.TrimSpace(content)
	attachments = tickets.FilterAttachments(attachments)
	if len(attachments) > s.maxAttachments {
		return nil, pkgerrors.New(pkgerrors.CodeTooManyAttachments, fmt.Sprintf("at most %d attachments per message", s.maxAttachments)).
			WithDetails(map[string]any{"max": s.maxAttachments})
	}
	if content == "" && len(attachments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyMessage, "message has no content")
	}

	var posted *tickets.Message
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.FindByID(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "load ticket")
		}
		sender, err := s.senderFor(ctx, repo, actor, ticket)
		if err != nil {
			return err
		}
		if ticket.Status.IsClosed() {
			return pkgerrors.New(pkgerrors.CodeRejected, closedMessage)
		}

		senderID := actor.UserID
		row := &models.TicketMessage{
			TicketID:    ticket.ID,
			SenderType:  sender,
			SenderID:    &senderID,
			Content:     content,
			Attachments: attachments,
			CreatedAt:   s.now().UTC(),
		}
		if err := repo.InsertMessage(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert ticket message")
		}

		if sender == enums.SenderTypeSupport && ticket.Status == enums.TicketStatusOpen {
			if _, err := repo.UpdateStatus(ctx, ticket.ID, []enums.TicketStatus{enums.TicketStatusOpen}, map[string]any{
				"status":     enums.TicketStatusInProgress,
				"updated_at": s.now().UTC(),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ticket in progress")
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketMessage,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(sender)},
			Data: payloads.TicketMessagePostedEvent{
				TicketID:        ticket.ID,
				TicketNumber:    ticket.TicketNumber,
				OrderID:         ticket.OrderID,
				MessageID:       row.ID,
				SenderType:      sender,
				AttachmentCount: len(attachments),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue ticket message event")
		}
		posted = toMessage(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// Close stops the ticket from accepting messages. Closing a closed ticket
// returns its detail unchanged.
func (s *Service) Close(ctx context.Context, actor auth.Actor, ticketID uuid.UUID, reason string) (*tickets.TicketDetail, error) {
	var detail *tickets.TicketDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.FindByID(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "load ticket")
		}
		if _, err := s.senderFor(ctx, repo, actor, ticket); err != nil {
			return err
		}
		if !ticket.Status.IsClosed() {
			if err := s.closeTx(ctx, tx, ticket, strings.TrimSpace(reason), actor); err != nil {
				return err
			}
		}
		detail, err = s.detail(ctx, repo, ticket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// OpenForOrder creates the dispute ticket inside the caller's transaction and
// seeds it with a system message carrying the reason.
func (s *Service) OpenForOrder(ctx context.Context, tx *gorm.DB, in OpenInput) (*models.Ticket, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	if existing, err := repo.FindByOrder(ctx, in.OrderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ticket")
	}

	now := s.now().UTC()
	ticket := &models.Ticket{
		ID:           uuid.New(),
		TicketNumber: newTicketNumber(now),
		OrderID:      in.OrderID,
		OpenedBy:     in.OpenedBy,
		Status:       enums.TicketStatusOpen,
		Reason:       in.Reason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateTicket(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket")
	}
	if err := repo.InsertMessage(ctx, &models.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: enums.SenderTypeSystem,
		Content:    fmt.Sprintf(disputeMessageFmt, in.Reason),
		CreatedAt:  now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert dispute message")
	}

	logCtx := s.logg.WithTicketNumber(s.logg.WithOrderID(ctx, in.OrderID.String()), ticket.TicketNumber)
	s.logg.Info(logCtx, "dispute ticket opened")
	return ticket, nil
}

// CloseForOrder closes the order's ticket inside the caller's transaction.
// Orders without a ticket are left alone.
func (s *Service) CloseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	ticket, err := s.repo.WithTx(tx).FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order ticket")
	}
	if ticket.Status.IsClosed() {
		return nil
	}
	return s.closeTx(ctx, tx, ticket, reason, auth.SystemActor())
}

func (s *Service) closeTx(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, reason string, actor auth.Actor) error {
	repo := s.repo.WithTx(tx)
	now := s.now().UTC()

	updates := map[string]any{
		"status":     enums.TicketStatusClosed,
		"closed_at":  now,
		"updated_at": now,
	}
	if reason != "" {
		updates["close_reason"] = reason
	}
	moved, err := repo.UpdateStatus(ctx, ticket.ID, []enums.TicketStatus{enums.TicketStatusOpen, enums.TicketStatusInProgress}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close ticket")
	}
	if !moved {
		return nil
	}

	content := closedMessage
	if reason != "" {
		content = closedMessage + "：" + reason
	}
	if err := repo.InsertMessage(ctx, &models.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: enums.SenderTypeSystem,
		Content:    content,
		CreatedAt:  now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert close message")
	}

	ticket.Status = enums.TicketStatusClosed
	ticket.ClosedAt = &now

	role := string(enums.ActorRoleSystem)
	if !actor.System {
		role = string(actor.Role)
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTicketClosed,
		AggregateType: enums.AggregateTicket,
		AggregateID:   ticket.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: role},
		Data: payloads.TicketClosedEvent{
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			OrderID:      ticket.OrderID,
			Reason:       reason,
			ClosedAt:     now,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue ticket closed event")
	}

	s.logg.Info(s.logg.WithTicketNumber(ctx, ticket.TicketNumber), "ticket closed")
	return nil
}

func (s *Service) detail(ctx context.Context, repo *Repository, ticket *models.Ticket) (*tickets.TicketDetail, error) {
	rows, err := repo.ListMessages(ctx, ticket.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ticket messages")
	}
	return toDetail(ticket, rows), nil
}

// senderFor authorizes the actor against the ticket and returns how their
// messages are labelled.
func (s *Service) senderFor(ctx context.Context, repo *Repository, actor auth.Actor, ticket *models.Ticket) (enums.SenderType, error) {
	switch {
	case actor.System:
		return enums.SenderTypeSystem, nil
	case actor.IsSupport():
		return enums.SenderTypeSupport, nil
	case actor.Anonymous():
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	buyerID, sellerID, err := repo.OrderParties(ctx, ticket.OrderID)
	if err != nil {
		return "", notFoundOr(err, "load ticket order")
	}
	switch actor.UserID {
	case buyerID:
		return enums.SenderTypeBuyer, nil
	case sellerID:
		return enums.SenderTypeSeller, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "ticket does not belong to user")
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func newTicketNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "TK" + now.Format("060102") + suffix
}
