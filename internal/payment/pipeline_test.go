package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/attempts"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// fakeBackend plays both the order and the payment collaborator.
type fakeBackend struct {
	mu        sync.Mutex
	orders    map[int64]order.Order
	handle    string
	payErr    error
	updateErr error
	payCalls  int
	updates   []payment.Report
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		handle: "H",
		orders: map[int64]order.Order{
			42: {ID: 42, Status: order.StatusInitialized, TotalAmount: decimal.RequireFromString("50.00")},
		},
	}
}

func (f *fakeBackend) Get(ctx context.Context, s session.Session, id int64) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return order.Order{}, apperr.New(apperr.ErrNotFound, "Order not found")
	}
	return o, nil
}

func (f *fakeBackend) Pay(ctx context.Context, s session.Session, orderID int64, amount decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payCalls++
	return f.handle, f.payErr
}

func (f *fakeBackend) Update(ctx context.Context, s session.Session, r payment.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, r)
	if f.updateErr != nil {
		return f.updateErr
	}
	o := f.orders[r.OrderID]
	o.PaymentStatus = order.PaymentFailed
	if r.Success {
		o.PaymentStatus = order.PaymentCompleted
	}
	f.orders[r.OrderID] = o
	return nil
}

// fakeGateway blocks in Confirm until release is closed when release is set,
// after signalling started.
type fakeGateway struct {
	mu      sync.Mutex
	result  payment.GatewayResult
	err     error
	seen    []payment.ConfirmRequest
	started chan struct{}
	release chan struct{}
}

func (g *fakeGateway) Confirm(ctx context.Context, req payment.ConfirmRequest) (payment.GatewayResult, error) {
	g.mu.Lock()
	g.seen = append(g.seen, req)
	started, release := g.started, g.release
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if ctx.Err() != nil {
		return payment.GatewayResult{}, ctx.Err()
	}
	return g.result, g.err
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *fakeGateway) block() {
	g.started = make(chan struct{}, 1)
	g.release = make(chan struct{})
}

type fakeEvents struct {
	mu       sync.Mutex
	reported []payment.Report
	failed   []payment.Attempt
}

func (e *fakeEvents) PublishPaymentReported(ctx context.Context, a payment.Attempt, r payment.Report) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reported = append(e.reported, r)
	return nil
}

func (e *fakeEvents) PublishReconciliationFailed(ctx context.Context, a payment.Attempt, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, a)
	return nil
}

type harness struct {
	backend  *fakeBackend
	gateway  *fakeGateway
	events   *fakeEvents
	ledger   *attempts.MemoryStore
	reporter *payment.Reporter
	pipeline *payment.Pipeline
}

func newHarness() *harness {
	h := &harness{
		backend: newFakeBackend(),
		gateway: &fakeGateway{result: payment.GatewayResult{Outcome: payment.OutcomeSucceeded, TransactionID: "T"}},
		events:  &fakeEvents{},
		ledger:  attempts.NewMemoryStore(),
	}
	log := logging.Discard()
	initiator := payment.NewInitiator(h.backend, h.backend, h.ledger, log)
	confirmer := payment.NewConfirmer(h.gateway, h.ledger, log)
	h.reporter = payment.NewReporter(h.backend, h.ledger, h.events, log)
	h.pipeline = payment.NewPipeline(initiator, confirmer, h.reporter, h.ledger)
	return h
}

var (
	customer = session.Session{Token: "t", Identity: session.Customer{ID: "c@x"}}
	other    = session.Session{Token: "t2", Identity: session.Customer{ID: "o@x"}}
	admin    = session.Session{Token: "t3", Identity: session.Admin{ID: "a@x"}}
	fifty    = decimal.RequireFromString("50.00")
)

func request() payment.Request {
	return payment.Request{OrderID: 42, Amount: fifty, PaymentMethod: "pm_card_visa"}
}

func TestPipelinePaysOrder(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	out, err := h.pipeline.Run(ctx, customer, request())
	require.NoError(t, err)
	assert.True(t, out.Receipt.Paid)
	assert.Equal(t, "T", out.Confirmation.TransactionID)
	assert.Equal(t, "H", h.gateway.seen[0].Handle)

	require.Len(t, h.backend.updates, 1)
	rep := h.backend.updates[0]
	assert.Equal(t, int64(42), rep.OrderID)
	assert.True(t, rep.Amount.Equal(fifty))
	assert.Equal(t, "T", rep.TransactionID)
	assert.True(t, rep.Success)

	o, err := h.backend.Get(ctx, customer, 42)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCompleted, o.PaymentStatus)

	a, err := h.ledger.Get(ctx, out.Intent.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeSucceeded, a.Gateway)
	assert.Equal(t, payment.Reported, a.Reconciliation)
	assert.Len(t, h.events.reported, 1)
	assert.Empty(t, h.events.failed)
}

func TestDeclinedPaymentIsStillReported(t *testing.T) {
	h := newHarness()
	h.gateway.result = payment.GatewayResult{Outcome: payment.OutcomeFailed, Message: "card declined"}

	out, err := h.pipeline.Run(context.Background(), customer, request())
	require.ErrorIs(t, err, apperr.ErrGateway)
	assert.Equal(t, "card declined", apperr.Message(err))
	assert.False(t, out.Receipt.Paid)

	require.Len(t, h.backend.updates, 1)
	assert.False(t, h.backend.updates[0].Success)
	assert.Equal(t, "H", h.backend.updates[0].TransactionID)
	assert.Equal(t, order.PaymentFailed, h.backend.orders[42].PaymentStatus)
}

func TestCancelledConfirmationIsReportedAsFailure(t *testing.T) {
	h := newHarness()
	h.gateway.err = context.Canceled

	_, err := h.pipeline.Run(context.Background(), customer, request())
	require.ErrorIs(t, err, apperr.ErrGateway)
	assert.Equal(t, "payment was cancelled", apperr.Message(err))
	require.Len(t, h.backend.updates, 1)
	assert.False(t, h.backend.updates[0].Success)
}

func TestReportFailureAfterChargeIsReconciliationGap(t *testing.T) {
	h := newHarness()
	h.backend.updateErr = apperr.New(apperr.ErrBackend, "order backend unavailable")
	ctx := context.Background()

	out, err := h.pipeline.Run(ctx, customer, request())
	require.ErrorIs(t, err, apperr.ErrReconciliation)
	assert.False(t, out.Receipt.Paid)
	require.Len(t, h.events.failed, 1)
	assert.Equal(t, "T", h.events.failed[0].TransactionID)

	gaps, err := h.ledger.ListUnreconciled(ctx)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, payment.ReportFailed, gaps[0].Reconciliation)

	// The charge went through, so a new attempt must not be opened.
	_, err = h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.ErrorIs(t, err, apperr.ErrPaymentInit)
	assert.Equal(t, 1, h.backend.payCalls)
	assert.Len(t, h.backend.updates, 1)
}

func TestDeclineWithFailedReportCombinesErrors(t *testing.T) {
	h := newHarness()
	h.gateway.result = payment.GatewayResult{Outcome: payment.OutcomeFailed, Message: "card declined"}
	h.backend.updateErr = apperr.New(apperr.ErrBackend, "order backend unavailable")

	_, err := h.pipeline.Run(context.Background(), customer, request())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrGateway)
	assert.ErrorIs(t, err, apperr.ErrBackend)
	assert.NotErrorIs(t, err, apperr.ErrReconciliation)
	assert.Empty(t, h.events.failed)
}

func TestReportRunsOncePerAttempt(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	out, err := h.pipeline.Run(ctx, customer, request())
	require.NoError(t, err)

	_, err = h.reporter.Report(ctx, customer, out.Confirmation)
	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Len(t, h.backend.updates, 1)
}

func TestInitiateRejectsPaidOrder(t *testing.T) {
	h := newHarness()
	o := h.backend.orders[42]
	o.PaymentStatus = order.PaymentCompleted
	h.backend.orders[42] = o

	_, err := h.pipeline.Initiate(context.Background(), customer, 42, fifty)
	require.ErrorIs(t, err, apperr.ErrPaymentInit)
	assert.Zero(t, h.backend.payCalls)
}

func TestInitiateValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.pipeline.Initiate(ctx, session.Anon(), 42, fifty)
	require.ErrorIs(t, err, apperr.ErrAuthRequired)

	_, err = h.pipeline.Initiate(ctx, customer, 42, decimal.Zero)
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = h.pipeline.Initiate(ctx, customer, 0, fifty)
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = h.pipeline.Initiate(ctx, customer, 42, decimal.RequireFromString("10.005"))
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = h.pipeline.Initiate(ctx, customer, 42, decimal.RequireFromString("50.01"))
	require.ErrorIs(t, err, apperr.ErrPaymentInit)

	_, err = h.pipeline.Initiate(ctx, customer, 7, fifty)
	require.ErrorIs(t, err, apperr.ErrPaymentInit)

	h.backend.payErr = apperr.New(apperr.ErrInvalid, "Payment already initiated")
	_, err = h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.ErrorIs(t, err, apperr.ErrPaymentInit)
	assert.Equal(t, "Payment already initiated", apperr.Message(err))

	assert.Empty(t, h.backend.updates)
}

func TestReinitiateSupersedesPendingAttempt(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)
	second, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)

	_, err = h.pipeline.Complete(ctx, customer, first.Attempt.ID, "pm_card_visa")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Empty(t, h.gateway.seen)

	out, err := h.pipeline.Complete(ctx, customer, second.Attempt.ID, "pm_card_visa")
	require.NoError(t, err)
	assert.True(t, out.Receipt.Paid)
	assert.Len(t, h.backend.updates, 1)
}

func TestCompleteChecksOwnership(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	intent, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)

	_, err = h.pipeline.Complete(ctx, other, intent.Attempt.ID, "pm_card_visa")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, h.gateway.seen)
}

func TestCompleteRequiresPaymentMethod(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	intent, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)

	_, err = h.pipeline.Complete(ctx, customer, intent.Attempt.ID, "  ")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Empty(t, h.gateway.seen)
}

func TestSettleOutlivesCallerCancellation(t *testing.T) {
	h := newHarness()

	intent, err := h.pipeline.Initiate(context.Background(), customer, 42, fifty)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.pipeline.Complete(ctx, customer, intent.Attempt.ID, "pm_card_visa")
	require.NoError(t, err)
	assert.True(t, out.Receipt.Paid)
	assert.Len(t, h.backend.updates, 1)
}

type settled struct {
	out payment.Outcome
	err error
}

func completeAsync(h *harness, intent payment.Intent) <-chan settled {
	done := make(chan settled, 1)
	go func() {
		out, err := h.pipeline.Complete(context.Background(), customer, intent.Attempt.ID, "pm_card_visa")
		done <- settled{out, err}
	}()
	return done
}

func TestConcurrentConfirmationsChargeOnce(t *testing.T) {
	h := newHarness()
	h.gateway.block()
	ctx := context.Background()

	intent, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)

	first := completeAsync(h, intent)
	<-h.gateway.started

	_, err = h.pipeline.Complete(ctx, customer, intent.Attempt.ID, "pm_card_visa")
	require.ErrorIs(t, err, apperr.ErrPaymentInit)
	assert.Equal(t, 1, h.gateway.calls())

	close(h.gateway.release)
	res := <-first
	require.NoError(t, res.err)
	assert.True(t, res.out.Receipt.Paid)

	assert.Equal(t, 1, h.gateway.calls())
	require.Len(t, h.backend.updates, 1)
	assert.True(t, h.backend.updates[0].Success)
}

func TestReinitiateWhileConfirmingIsRefused(t *testing.T) {
	h := newHarness()
	h.gateway.block()
	ctx := context.Background()

	intent, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)

	first := completeAsync(h, intent)
	<-h.gateway.started

	_, err = h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.ErrorIs(t, err, apperr.ErrPaymentInit)
	assert.Equal(t, 1, h.backend.payCalls)

	close(h.gateway.release)
	res := <-first
	require.NoError(t, res.err)
	assert.True(t, res.out.Receipt.Paid)

	a, err := h.ledger.Get(ctx, intent.Attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.Reported, a.Reconciliation)
	assert.Equal(t, payment.OutcomeSucceeded, a.Gateway)
}

// supersededLedger refuses every report claim and reports the attempt as
// abandoned.
type supersededLedger struct {
	*attempts.MemoryStore
}

func (l supersededLedger) ClaimReport(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	return payment.Attempt{}, payment.ErrAlreadyReported
}

func (l supersededLedger) Get(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	a, err := l.MemoryStore.Get(ctx, id)
	a.Reconciliation = payment.Abandoned
	return a, err
}

func TestChargeOnAbandonedAttemptIsReconciliationGap(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	ledger := supersededLedger{h.ledger}
	reporter := payment.NewReporter(h.backend, ledger, h.events, logging.Discard())

	intent, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)
	conf := payment.Confirmation{Attempt: intent.Attempt, Outcome: payment.OutcomeSucceeded, TransactionID: "T"}

	_, err = reporter.Report(ctx, customer, conf)
	require.ErrorIs(t, err, apperr.ErrReconciliation)
	require.Len(t, h.events.failed, 1)
	assert.Equal(t, "T", h.events.failed[0].TransactionID)
	assert.Equal(t, payment.OutcomeSucceeded, h.events.failed[0].Gateway)
	assert.Empty(t, h.backend.updates)
}

func TestDeclineOnAbandonedAttemptIsInvalid(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	reporter := payment.NewReporter(h.backend, supersededLedger{h.ledger}, h.events, logging.Discard())

	intent, err := h.pipeline.Initiate(ctx, customer, 42, fifty)
	require.NoError(t, err)
	conf := payment.Confirmation{Attempt: intent.Attempt, Outcome: payment.OutcomeFailed, TransactionID: "H"}

	_, err = reporter.Report(ctx, customer, conf)
	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Empty(t, h.events.failed)
}

// lossyLedger never records gateway outcomes.
type lossyLedger struct {
	*attempts.MemoryStore
}

func (l lossyLedger) RecordGatewayOutcome(ctx context.Context, id uuid.UUID, outcome payment.GatewayOutcome, transactionID, lastError string) (payment.Attempt, error) {
	return payment.Attempt{}, errors.New("ledger unavailable")
}

func TestReportUsesConfirmationWhenLedgerLags(t *testing.T) {
	h := newHarness()
	ledger := lossyLedger{h.ledger}
	log := logging.Discard()
	pipeline := payment.NewPipeline(
		payment.NewInitiator(h.backend, h.backend, ledger, log),
		payment.NewConfirmer(h.gateway, ledger, log),
		payment.NewReporter(h.backend, ledger, h.events, log),
		ledger,
	)

	out, err := pipeline.Run(context.Background(), customer, request())
	require.NoError(t, err)
	assert.True(t, out.Receipt.Paid)
	assert.Equal(t, payment.OutcomeSucceeded, out.Receipt.Attempt.Gateway)
	assert.Equal(t, "T", out.Receipt.Attempt.TransactionID)

	require.Len(t, h.events.reported, 1)
	assert.True(t, h.events.reported[0].Success)
	assert.Equal(t, "T", h.events.reported[0].TransactionID)
}

type fakeLister struct{ payments []payment.Payment }

func (f fakeLister) List(ctx context.Context, s session.Session) ([]payment.Payment, error) {
	return f.payments, nil
}

func (f fakeLister) Get(ctx context.Context, s session.Session, id int64) (payment.Payment, error) {
	for _, p := range f.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return payment.Payment{}, apperr.New(apperr.ErrNotFound, "Payment not found")
}

func TestDirectory(t *testing.T) {
	h := newHarness()
	h.backend.updateErr = errors.New("connection reset")
	ctx := context.Background()

	_, err := h.pipeline.Run(ctx, customer, request())
	require.ErrorIs(t, err, apperr.ErrReconciliation)

	dir := payment.NewDirectory(fakeLister{payments: []payment.Payment{{ID: 1, OrderID: 42, Amount: fifty}}}, h.ledger)

	_, err = dir.List(ctx, customer)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := dir.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = dir.Get(ctx, admin, 9)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	gaps, err := dir.Unreconciled(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, gaps, 1)

	mine, err := dir.Attempts(ctx, customer, 42)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := dir.Attempts(ctx, other, 42)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
