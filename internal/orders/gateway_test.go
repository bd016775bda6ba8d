package orders

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/google/uuid"
)

type submitCall struct {
	orderID uuid.UUID
	action  enums.OrderAction
	payload Payload
}

type stubStore struct {
	mu      sync.Mutex
	calls   []submitCall
	fetches int
	submit  func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error)
	fetch   func(ctx context.Context, orderID uuid.UUID) (*Order, error)
}

func (s *stubStore) SubmitOrderAction(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
	s.mu.Lock()
	s.calls = append(s.calls, submitCall{orderID: orderID, action: action, payload: payload})
	s.mu.Unlock()
	if s.submit != nil {
		return s.submit(ctx, orderID, action, payload)
	}
	return nil, errors.New("unexpected submit")
}

func (s *stubStore) FetchOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	if s.fetch != nil {
		return s.fetch(ctx, orderID)
	}
	return nil, errors.New("unexpected fetch")
}

func (s *stubStore) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubVerifier struct {
	err       error
	passwords []string
}

func (v *stubVerifier) VerifyPaymentPassword(ctx context.Context, password string) error {
	v.passwords = append(v.passwords, password)
	return v.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newOrder(status enums.OrderStatus, kind enums.OrderKind) *Order {
	return &Order{
		ID:          uuid.New(),
		OrderNumber: "RO202401010001",
		Kind:        kind,
		BuyerID:     uuid.New(),
		SellerID:    uuid.New(),
		Status:      status,
		TotalCents:  12000,
	}
}

func withStatus(order *Order, status enums.OrderStatus) *Order {
	next := *order
	next.Status = status
	return &next
}

func newTestGateway(t *testing.T, store *stubStore, actor Actor, verifier PaymentVerifier) *Gateway {
	t.Helper()
	gw, err := NewGateway(GatewayParams{
		Store:        store,
		Verifier:     verifier,
		Logger:       testLogger(),
		Actor:        actor,
		MaxLeaseDays: 30,
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gw
}

func TestNewGatewayRequiresDependencies(t *testing.T) {
	if _, err := NewGateway(GatewayParams{Logger: testLogger(), Actor: Actor{UserID: uuid.New()}}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewGateway(GatewayParams{Store: &stubStore{}, Actor: Actor{UserID: uuid.New()}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewGateway(GatewayParams{Store: &stubStore{}, Logger: testLogger()}); err == nil {
		t.Fatal("expected error without actor")
	}
}

func TestCancelPaidOrder(t *testing.T) {
	order := newOrder(enums.OrderStatusPaid, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			canceled := withStatus(order, enums.OrderStatusCanceled)
			canceled.CancelReason = payload.CancelReason
			return canceled, nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, nil)
	view := NewView(order)

	updated, err := gw.Cancel(context.Background(), view, enums.CancelReasonNoLongerWanted)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected CANCELED, got %s", updated.Status)
	}
	if store.submitCount() != 1 {
		t.Fatalf("expected exactly one submit, got %d", store.submitCount())
	}
	call := store.calls[0]
	if call.action != enums.OrderActionCancel || call.payload.CancelReason != enums.CancelReasonNoLongerWanted {
		t.Fatalf("unexpected call %+v", call)
	}
	if view.Snapshot() != updated {
		t.Fatal("view should hold the store snapshot")
	}
	if view.Pending() != nil {
		t.Fatal("pending intent should be cleared")
	}
}

func TestDisputeInProgressOrderOpensTicket(t *testing.T) {
	order := newOrder(enums.OrderStatusInProgress, enums.OrderKindRental)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			disputed := withStatus(order, enums.OrderStatusDisputed)
			disputed.DisputeReason = payload.DisputeReason
			disputed.TicketNumber = "TK202401010001"
			return disputed, nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, nil)

	updated, err := gw.OpenDispute(context.Background(), NewView(order), enums.DisputeReasonAccountBanned)
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if updated.Status != enums.OrderStatusDisputed {
		t.Fatalf("expected DISPUTED, got %s", updated.Status)
	}
	if updated.TicketNumber == "" {
		t.Fatal("expected ticket number on disputed order")
	}
	if store.calls[0].payload.DisputeReason != enums.DisputeReasonAccountBanned {
		t.Fatalf("unexpected dispute reason %q", store.calls[0].payload.DisputeReason)
	}
}

func TestCompleteTwiceIsIdempotent(t *testing.T) {
	order := newOrder(enums.OrderStatusInProgress, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return withStatus(order, enums.OrderStatusCompleted), nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, nil)
	view := NewView(order)

	first, err := gw.Complete(context.Background(), view, "done")
	if err != nil {
		t.Fatalf("first complete: %v", err)
	}
	second, err := gw.Complete(context.Background(), view, "")
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second != first {
		t.Fatal("second complete should return the current snapshot")
	}
	if store.submitCount() != 1 {
		t.Fatalf("expected one submit, got %d", store.submitCount())
	}
}

func TestInvalidTransitionSkipsStore(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindTask)
	store := &stubStore{
		fetch: func(ctx context.Context, orderID uuid.UUID) (*Order, error) {
			return withStatus(order, enums.OrderStatusCanceled), nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.SellerID}, nil)
	view := NewView(order)

	_, err := gw.Start(context.Background(), view)
	if !pkgerrors.Is(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if store.submitCount() != 0 {
		t.Fatalf("expected no submit, got %d", store.submitCount())
	}
	if store.fetches != 1 {
		t.Fatalf("expected one re-read, got %d", store.fetches)
	}
	if view.Snapshot().Status != enums.OrderStatusCanceled {
		t.Fatalf("expected view to show the store status, got %s", view.Snapshot().Status)
	}
}

func TestInvalidTransitionKeepsSnapshotWhenReReadFails(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindTask)
	store := &stubStore{}
	gw := newTestGateway(t, store, Actor{UserID: order.SellerID}, nil)
	view := NewView(order)

	if _, err := gw.Start(context.Background(), view); !pkgerrors.Is(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if view.Snapshot() != order {
		t.Fatal("failed re-read must keep the previous snapshot")
	}
}

func TestOutsiderIsForbidden(t *testing.T) {
	order := newOrder(enums.OrderStatusPaid, enums.OrderKindTask)
	store := &stubStore{}
	gw := newTestGateway(t, store, Actor{UserID: uuid.New()}, nil)

	_, err := gw.Cancel(context.Background(), NewView(order), enums.CancelReasonOther)
	if !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if store.submitCount() != 0 {
		t.Fatal("store must not be called")
	}
}

func TestTransportErrorKeepsSnapshot(t *testing.T) {
	order := newOrder(enums.OrderStatusPaid, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeTransport, "store unreachable")
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.SellerID}, nil)
	view := NewView(order)

	_, err := gw.Start(context.Background(), view)
	if !pkgerrors.Is(err, pkgerrors.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !pkgerrors.IsRetryable(err) {
		t.Fatal("transport errors should be retryable")
	}
	if view.Snapshot() != order {
		t.Fatal("snapshot should be unchanged")
	}
	if view.Pending() != nil {
		t.Fatal("pending intent should be dropped")
	}
	if store.fetches != 0 {
		t.Fatalf("transport errors must not refetch, got %d", store.fetches)
	}
	if store.submitCount() != 1 {
		t.Fatalf("mutations are not retried, got %d submits", store.submitCount())
	}
}

func TestRejectedRefreshesSnapshot(t *testing.T) {
	order := newOrder(enums.OrderStatusPaid, enums.OrderKindTask)
	remote := withStatus(order, enums.OrderStatusCanceled)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRejected, "订单状态已变更")
		},
		fetch: func(ctx context.Context, orderID uuid.UUID) (*Order, error) {
			return remote, nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.SellerID}, nil)
	view := NewView(order)

	_, err := gw.Start(context.Background(), view)
	if !pkgerrors.Is(err, pkgerrors.CodeRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	if view.Snapshot() != remote {
		t.Fatal("view should show the refreshed store status")
	}
	if actions := gw.Actions(view); len(actions) != 0 {
		t.Fatalf("canceled order should offer no actions, got %v", actions)
	}
}

func TestConcurrentIntentRefused(t *testing.T) {
	order := newOrder(enums.OrderStatusPaid, enums.OrderKindTask)
	entered := make(chan struct{})
	release := make(chan struct{})
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			close(entered)
			<-release
			return withStatus(order, enums.OrderStatusInProgress), nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.SellerID}, nil)
	view := NewView(order)

	done := make(chan error, 1)
	go func() {
		_, err := gw.Start(context.Background(), view)
		done <- err
	}()
	<-entered

	if view.Pending() == nil {
		t.Fatal("expected pending intent while submit is in flight")
	}
	if actions := gw.Actions(view); actions != nil {
		t.Fatalf("no actions while pending, got %v", actions)
	}
	_, err := gw.Cancel(context.Background(), view, enums.CancelReasonOther)
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Snapshot().Status != enums.OrderStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", view.Snapshot().Status)
	}
	if store.submitCount() != 1 {
		t.Fatalf("expected one submit, got %d", store.submitCount())
	}
}

func TestPayLeaseDays(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindRental)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return withStatus(order, enums.OrderStatusPaid), nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, nil)

	if _, err := gw.Pay(context.Background(), NewView(order), 31, "", false); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for 31 days, got %v", err)
	}
	if _, err := gw.Pay(context.Background(), NewView(order), -1, "", false); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative days, got %v", err)
	}
	if store.submitCount() != 0 {
		t.Fatal("out of range lease days must not reach the store")
	}

	updated, err := gw.Pay(context.Background(), NewView(order), 0, "", true)
	if err != nil {
		t.Fatalf("pay with zero days: %v", err)
	}
	if updated.Status != enums.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", updated.Status)
	}
	payload := store.calls[0].payload
	if payload.LeaseDays == nil || *payload.LeaseDays != 0 {
		t.Fatalf("expected explicit zero lease days, got %v", payload.LeaseDays)
	}
	if !payload.UseBalance {
		t.Fatal("expected use balance flag")
	}
}

func TestPayTaskOmitsLeaseDays(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return withStatus(order, enums.OrderStatusPaid), nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, nil)

	if _, err := gw.Pay(context.Background(), NewView(order), 99, "", false); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if store.calls[0].payload.LeaseDays != nil {
		t.Fatal("task payments carry no lease days")
	}
}

func TestPayVerifiesPassword(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return withStatus(order, enums.OrderStatusPaid), nil
		},
	}
	verifier := &stubVerifier{}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, verifier)

	if _, err := gw.Pay(context.Background(), NewView(order), 0, "  ", false); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank password, got %v", err)
	}

	verifier.err = errors.New("wrong password")
	if _, err := gw.Pay(context.Background(), NewView(order), 0, "000000", false); !pkgerrors.Is(err, pkgerrors.CodeRejected) {
		t.Fatalf("expected rejected for wrong password, got %v", err)
	}
	if store.submitCount() != 0 {
		t.Fatal("payment must not be submitted before the password is verified")
	}

	verifier.err = nil
	if _, err := gw.Pay(context.Background(), NewView(order), 0, "123456", false); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if len(verifier.passwords) != 2 || verifier.passwords[1] != "123456" {
		t.Fatalf("unexpected verifier calls %v", verifier.passwords)
	}
}

func TestSupportResolvesDispute(t *testing.T) {
	order := newOrder(enums.OrderStatusDisputed, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return withStatus(order, enums.OrderStatusCanceled), nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: uuid.New(), Support: true}, nil)
	view := NewView(order)

	if got := gw.Actions(view); len(got) != 1 || got[0] != enums.OrderActionResolve {
		t.Fatalf("expected resolve action, got %v", got)
	}
	if _, err := gw.Resolve(context.Background(), view, "", ""); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without outcome, got %v", err)
	}
	updated, err := gw.Resolve(context.Background(), view, enums.ResolutionOutcomeCanceled, "refund buyer")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if updated.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected CANCELED, got %s", updated.Status)
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	order := newOrder(enums.OrderStatusPaid, enums.OrderKindTask)
	remote := withStatus(order, enums.OrderStatusInProgress)
	store := &stubStore{
		fetch: func(ctx context.Context, orderID uuid.UUID) (*Order, error) {
			if orderID != order.ID {
				t.Fatalf("unexpected order id %s", orderID)
			}
			return remote, nil
		},
	}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, nil)
	view := NewView(order)

	if _, err := gw.Refresh(context.Background(), view, order.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if view.Snapshot() != remote {
		t.Fatal("expected refreshed snapshot")
	}
	if got := gw.Actions(view); len(got) != 2 {
		t.Fatalf("buyer on IN_PROGRESS should see complete and dispute, got %v", got)
	}
}

type blockingVerifier struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (v *blockingVerifier) VerifyPaymentPassword(ctx context.Context, password string) error {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	close(v.entered)
	<-v.release
	return nil
}

func TestPayDoublePressVerifiesOnce(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindTask)
	store := &stubStore{
		submit: func(ctx context.Context, orderID uuid.UUID, action enums.OrderAction, payload Payload) (*Order, error) {
			return withStatus(order, enums.OrderStatusPaid), nil
		},
	}
	verifier := &blockingVerifier{entered: make(chan struct{}), release: make(chan struct{})}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, verifier)
	view := NewView(order)

	done := make(chan error, 1)
	go func() {
		_, err := gw.Pay(context.Background(), view, 0, "123456", false)
		done <- err
	}()
	<-verifier.entered

	if _, err := gw.Pay(context.Background(), view, 0, "123456", false); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for second press, got %v", err)
	}
	close(verifier.release)
	if err := <-done; err != nil {
		t.Fatalf("pay: %v", err)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected one password check, got %d", verifier.calls)
	}
	if store.submitCount() != 1 {
		t.Fatalf("expected one submit, got %d", store.submitCount())
	}
}

func TestPayPasswordFailureReleasesIntent(t *testing.T) {
	order := newOrder(enums.OrderStatusPending, enums.OrderKindTask)
	store := &stubStore{}
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodeRejected, "支付密码错误")}
	gw := newTestGateway(t, store, Actor{UserID: order.BuyerID}, verifier)
	view := NewView(order)

	if _, err := gw.Pay(context.Background(), view, 0, "000000", false); !pkgerrors.Is(err, pkgerrors.CodeRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	if view.Pending() != nil {
		t.Fatal("failed password check must release the intent")
	}
	if len(gw.Actions(view)) == 0 {
		t.Fatal("actions should be offered again after a failed check")
	}
}
