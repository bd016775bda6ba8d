package orderstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/taskrent-backend/internal/lifecycle"
	"github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/internal/ticketstore"
	"github.com/angelmondragon/taskrent-backend/internal/wallets"
	"github.com/angelmondragon/taskrent-backend/pkg/auth"
	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/metrics"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
	"github.com/angelmondragon/taskrent-backend/pkg/outbox"
	"github.com/angelmondragon/taskrent-backend/pkg/outbox/payloads"
)

const (
	defaultMaxLeaseDays = 30
	defaultListLimit    = 50
	maxListLimit        = 200
	maxTitleLength      = 120
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the order store.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Outbox         outbox.Emitter
	Tickets        TicketLinker
	Wallets        wallets.Ledger
	Metrics        *metrics.OrderTransitionMetrics
	Logger         *logger.Logger
	MaxLeaseDays   int
	PlatformFeeBPS int
	Now            func() time.Time
}

// CreateInput describes a new order placed by the buyer.
type CreateInput struct {
	Kind         enums.OrderKind
	Title        string
	SellerID     uuid.UUID
	TotalCents   money.Cents
	DepositCents money.Cents
	Deadline     *time.Time
}

// ActionInput is one transition request against an order.
type ActionInput struct {
	OrderID uuid.UUID
	Action  enums.OrderAction
	Actor   auth.Actor
	Payload orders.Payload
}

// Service is the authoritative order store. Every status change is a
// conditional update so concurrent writers cannot apply the same transition
// twice.
type Service struct {
	repo         Repository
	tx           txRunner
	outbox       outbox.Emitter
	tickets      TicketLinker
	wallets      wallets.Ledger
	metrics      *metrics.OrderTransitionMetrics
	logg         *logger.Logger
	maxLeaseDays int
	feeBPS       int
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("order repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Tickets == nil {
		return nil, errors.New("ticket linker required")
	}
	if params.Wallets == nil {
		return nil, errors.New("wallet ledger required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.PlatformFeeBPS < 0 || params.PlatformFeeBPS > 10000 {
		return nil, fmt.Errorf("platform fee bps %d out of range", params.PlatformFeeBPS)
	}
	maxLeaseDays := params.MaxLeaseDays
	if maxLeaseDays <= 0 {
		maxLeaseDays = defaultMaxLeaseDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:         params.Repo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		tickets:      params.Tickets,
		wallets:      params.Wallets,
		metrics:      params.Metrics,
		logg:         params.Logger,
		maxLeaseDays: maxLeaseDays,
		feeBPS:       params.PlatformFeeBPS,
		now:          now,
	}, nil
}

// Create places a PENDING order with the actor as buyer.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*orders.Order, error) {
	if actor.Anonymous() || actor.System {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	if !in.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order kind must be rental or task")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}
	if in.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller required")
	}
	if in.SellerID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	}
	if in.TotalCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must be positive")
	}
	if in.DepositCents < 0 || in.DepositCents > in.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit must lie between zero and the total")
	}

	now := s.now().UTC()
	row := &models.Order{
		ID:           uuid.New(),
		OrderNumber:  newOrderNumber(in.Kind, now),
		Kind:         in.Kind,
		Title:        title,
		BuyerID:      actor.UserID,
		SellerID:     in.SellerID,
		Status:       enums.OrderStatusPending,
		TotalCents:   int64(in.TotalCents),
		DepositCents: int64(in.DepositCents),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Kind == enums.OrderKindTask && in.Deadline != nil {
		deadline := in.Deadline.UTC()
		row.Deadline = &deadline
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	s.logg.Info(s.logg.WithOrderID(ctx, row.ID.String()), "order created")
	return toSnapshot(row), nil
}

// Get returns the order if the actor may see it.
func (s *Service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*orders.Order, error) {
	row, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if _, err := roleFor(actor, row); err != nil {
		return nil, err
	}
	return toSnapshot(row), nil
}

// List returns the actor's orders, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor, limit int) ([]orders.Order, error) {
	if actor.Anonymous() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.repo.ListForUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]orders.Order, 0, len(rows))
	for i := range rows {
		out = append(out, *toSnapshot(&rows[i]))
	}
	return out, nil
}

// Actions lists what the actor may do next with the order.
func (s *Service) Actions(actor auth.Actor, order *orders.Order) []enums.OrderAction {
	if order == nil {
		return nil
	}
	role, err := roleFor(actor, &models.Order{BuyerID: order.BuyerID, SellerID: order.SellerID})
	if err != nil {
		return nil
	}
	return lifecycle.Allowed(order.Status, role)
}

// Apply validates and persists one transition. Replaying an action that
// already took effect returns the current snapshot without side effects.
func (s *Service) Apply(ctx context.Context, in ActionInput) (*orders.Order, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": in.OrderID.String(),
		"action":   string(in.Action),
	})

	var (
		snapshot *orders.Order
		outcome  = "applied"
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByID(ctx, in.OrderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		role, err := roleFor(in.Actor, row)
		if err != nil {
			return err
		}
		res, err := lifecycle.Transition(row.Status, in.Action, role, lifecycle.Input{
			CancelReason:  in.Payload.CancelReason,
			DisputeReason: in.Payload.DisputeReason,
			Outcome:       in.Payload.Outcome,
		})
		if err != nil {
			return err
		}
		if res.Idempotent {
			outcome = "idempotent"
			snapshot = toSnapshot(row)
			return nil
		}

		if err := s.persist(ctx, tx, repo, row, res, in); err != nil {
			return err
		}
		updated, err := repo.FindByID(ctx, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		snapshot = toSnapshot(updated)
		return nil
	})
	if err != nil {
		s.metrics.Inc(string(in.Action), string(pkgerrors.CodeOf(err)))
		s.logg.Warn(s.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "order action rejected")
		return nil, err
	}

	s.metrics.Inc(string(in.Action), outcome)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"status":  string(snapshot.Status),
		"outcome": outcome,
	}), "order action applied")
	return snapshot, nil
}

func (s *Service) persist(ctx context.Context, tx *gorm.DB, repo Repository, row *models.Order, res lifecycle.Result, in ActionInput) error {
	now := s.now().UTC()
	updates := map[string]any{
		"status":     res.To,
		"updated_at": now,
	}

	if res.Action == enums.OrderActionPay {
		if err := s.applyPayment(ctx, tx, row, in.Payload, updates); err != nil {
			return err
		}
	}
	if res.StampPaidAt {
		updates["paid_at"] = now
	}
	if res.StampStartedAt {
		updates["started_at"] = now
		if row.Kind == enums.OrderKindRental {
			updates["end_at"] = now.AddDate(0, 0, row.LeaseDays)
		}
	}
	if res.StampEndedAt {
		updates["actual_end_at"] = now
	}
	if res.StampCanceledAt {
		updates["canceled_at"] = now
	}
	if in.Payload.CancelReason != "" && res.Action == enums.OrderActionCancel {
		updates["cancel_reason"] = in.Payload.CancelReason
	}
	if res.Action == enums.OrderActionDispute {
		updates["dispute_reason"] = in.Payload.DisputeReason
	}
	if notes := strings.TrimSpace(in.Payload.Notes); notes != "" && res.To == enums.OrderStatusCompleted {
		updates["completion_notes"] = notes
	}

	var split settlement
	if res.Settle {
		split = s.split(row)
		updates["platform_fee_cents"] = int64(split.fee)
		updates["seller_income_cents"] = int64(split.income)
	}

	moved, err := repo.UpdateIfStatus(ctx, row.ID, res.From, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed while the action was applied")
	}

	var ticketNumber string
	if res.OpenTicket {
		ticket, err := s.tickets.OpenForOrder(ctx, tx, ticketstore.OpenInput{
			OrderID:  row.ID,
			OpenedBy: in.Actor.UserID,
			Reason:   string(in.Payload.DisputeReason),
		})
		if err != nil {
			return err
		}
		if err := repo.SetTicketNumber(ctx, row.ID, ticket.TicketNumber); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link ticket")
		}
		ticketNumber = ticket.TicketNumber
	}
	if res.CloseTicket {
		if err := s.tickets.CloseForOrder(ctx, tx, row.ID, resolutionNote(in.Payload.Outcome, in.Payload.Notes)); err != nil {
			return err
		}
	}

	if res.Settle {
		if err := s.settle(ctx, tx, repo, row, split); err != nil {
			return err
		}
	}
	if res.To == enums.OrderStatusCanceled && row.PaidAt != nil {
		if err := s.wallets.Credit(ctx, tx, row.BuyerID, money.Cents(row.TotalCents)); err != nil {
			return err
		}
	}

	return s.emit(ctx, tx, row, res, in, ticketNumber, now)
}

// applyPayment checks the lease length and debits the buyer's balance when
// the payment uses it.
func (s *Service) applyPayment(ctx context.Context, tx *gorm.DB, row *models.Order, payload orders.Payload, updates map[string]any) error {
	if row.Kind == enums.OrderKindRental {
		if payload.LeaseDays == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "lease days required for rental orders")
		}
		days := *payload.LeaseDays
		if days < 0 || days > s.maxLeaseDays {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lease days must be between 0 and %d", s.maxLeaseDays)).
				WithDetails(map[string]any{"min": 0, "max": s.maxLeaseDays})
		}
		updates["lease_days"] = days
		row.LeaseDays = days
	}
	if payload.UseBalance {
		if err := s.wallets.Debit(ctx, tx, row.BuyerID, money.Cents(row.TotalCents)); err != nil {
			return err
		}
		updates["paid_with_balance"] = true
	}
	return nil
}

type settlement struct {
	fee     money.Cents
	income  money.Cents
	deposit money.Cents
}

// split divides the non-deposit part of the total between platform and
// seller. The deposit goes back to the buyer.
func (s *Service) split(row *models.Order) settlement {
	deposit := money.Cents(row.DepositCents)
	gross := money.Cents(row.TotalCents) - deposit
	fee, income := money.FeeSplit(gross, s.feeBPS)
	return settlement{fee: fee, income: income, deposit: deposit}
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, repo Repository, row *models.Order, split settlement) error {
	if split.income > 0 {
		if err := s.wallets.Credit(ctx, tx, row.SellerID, split.income); err != nil {
			return err
		}
	}
	if split.deposit > 0 {
		if err := s.wallets.Credit(ctx, tx, row.BuyerID, split.deposit); err != nil {
			return err
		}
	}
	if err := repo.CreateSettlement(ctx, &models.Settlement{
		ID:                 uuid.New(),
		OrderID:            row.ID,
		SellerID:           row.SellerID,
		SellerIncomeCents:  int64(split.income),
		PlatformFeeCents:   int64(split.fee),
		DepositRefundCents: int64(split.deposit),
		CreatedAt:          s.now().UTC(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record settlement")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, row *models.Order, res lifecycle.Result, in ActionInput, ticketNumber string, now time.Time) error {
	eventType, err := enums.OrderEventType(res.Action)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map order event")
	}
	base := payloads.OrderTransitionEvent{
		OrderID:     row.ID,
		OrderNumber: row.OrderNumber,
		Kind:        row.Kind,
		Action:      res.Action,
		From:        res.From,
		To:          res.To,
		BuyerID:     row.BuyerID,
		SellerID:    row.SellerID,
		TotalCents:  row.TotalCents,
		Reason:      eventReason(res.Action, in.Payload),
		OccurredAt:  now,
	}
	var data any = base
	if res.Action == enums.OrderActionDispute {
		data = payloads.OrderDisputedEvent{OrderTransitionEvent: base, TicketNumber: ticketNumber}
	}

	role := string(enums.ActorRoleSystem)
	if !in.Actor.System {
		role = string(in.Actor.Role)
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   row.ID,
		Actor:         &outbox.ActorRef{UserID: in.Actor.UserID, Role: role},
		Data:          data,
		OccurredAt:    now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
	}
	return nil
}

// ExpirePending cancels PENDING orders created before cutoff. Each order is
// its own transaction; failures are collected and the sweep continues.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.repo.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending orders")
	}

	var (
		expired int
		errs    error
	)
	for i := range rows {
		row := rows[i]
		if ctx.Err() != nil {
			return expired, multierr.Append(errs, ctx.Err())
		}
		ok, err := s.expireOne(ctx, &row)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", row.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, errs
}

func (s *Service) expireOne(ctx context.Context, row *models.Order) (bool, error) {
	_, err := s.Apply(ctx, ActionInput{
		OrderID: row.ID,
		Action:  enums.OrderActionCancel,
		Actor:   auth.SystemActor(),
		Payload: orders.Payload{CancelReason: enums.CancelReasonPaymentTimeout},
	})
	if err != nil {
		// Paid or canceled by someone else since the listing.
		if pkgerrors.Is(err, pkgerrors.CodeInvalidTransition) || pkgerrors.Is(err, pkgerrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAutoExpire,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.ActorRoleSystem)},
			Data: payloads.OrderExpiredEvent{
				OrderID:     row.ID,
				OrderNumber: row.OrderNumber,
				BuyerID:     row.BuyerID,
				ExpiredAt:   s.now().UTC(),
			},
		})
	})
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue expiry event")
	}
	return true, nil
}

func roleFor(actor auth.Actor, row *models.Order) (enums.ActorRole, error) {
	switch {
	case actor.System:
		return enums.ActorRoleSystem, nil
	case actor.Anonymous():
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	case actor.IsSupport():
		return enums.ActorRoleSupport, nil
	case actor.UserID == row.BuyerID:
		return enums.ActorRoleBuyer, nil
	case actor.UserID == row.SellerID:
		return enums.ActorRoleSeller, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
}

func eventReason(action enums.OrderAction, payload orders.Payload) string {
	switch action {
	case enums.OrderActionCancel:
		return string(payload.CancelReason)
	case enums.OrderActionDispute:
		return string(payload.DisputeReason)
	case enums.OrderActionResolve:
		return string(payload.Outcome)
	}
	return ""
}

func resolutionNote(outcome enums.ResolutionOutcome, notes string) string {
	label := "订单完成"
	if outcome == enums.ResolutionOutcomeCanceled {
		label = "订单取消"
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		return "纠纷已处理，" + label + "：" + notes
	}
	return "纠纷已处理，" + label
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func newOrderNumber(kind enums.OrderKind, now time.Time) string {
	prefix := "TO"
	if kind == enums.OrderKindRental {
		prefix = "RO"
	}
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return prefix + now.Format("060102150405") + strings.ToUpper(uuid.NewString()[:8])
	}
	return prefix + now.Format("060102150405") + strings.ToUpper(hex.EncodeToString(buf))
}
