package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

type CheckoutState string

const (
	CheckoutPending    CheckoutState = "pending"
	CheckoutProcessing CheckoutState = "processing"
	CheckoutSuccess    CheckoutState = "success"
	CheckoutFailed     CheckoutState = "failed"
)

var (
	ErrNoPaymentMethod   = errors.New("no payment method selected")
	ErrNotAuthenticated  = errors.New("no authenticated user")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrStockShortage     = errors.New("cart exceeds available stock")
	ErrPaymentInProgress = errors.New("payment already processing")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrNotRetryable      = errors.New("checkout is not in a failed state")
)

const (
	defaultPaymentDelay = 2 * time.Second
	defaultFailureRate  = 0.2
	defaultArchiveQueue = 256
)

// The storefront's fixed payment method offering.
var paymentMethods = []domain.PaymentMethod{
	{ID: "1", Type: "credit_card", Name: "CMB Credit Card", Number: "**** **** **** 1234"},
	{ID: "2", Type: "debit_card", Name: "ICBC Debit Card", Number: "**** **** **** 5678"},
	{ID: "3", Type: "digital_wallet", Name: "Alipay", Number: "user@example.com"},
}

// Checkout drives a single purchase attempt: pending -> processing ->
// {success, failed}, with failed re-enterable through Retry. The processing
// guard is scoped to this context only; nothing stops a second context from
// paying for the same shared cart.
type Checkout struct {
	cart   *Cart
	orders *Orders
	bus    port.PurchaseBus
	auth   port.AuthSession
	log    *slog.Logger

	rand         *rand.Rand
	now          func() time.Time
	delay        time.Duration
	failureRate  float64
	forceSuccess bool

	mu          sync.Mutex
	state       CheckoutState
	failReason  string
	lastOrderID string

	archive chan domain.Order
}

func NewCheckout(cart *Cart, orders *Orders, bus port.PurchaseBus, auth port.AuthSession, log *slog.Logger) *Checkout {
	if log == nil {
		log = slog.Default()
	}
	return &Checkout{
		cart:        cart,
		orders:      orders,
		bus:         bus,
		auth:        auth,
		log:         log,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
		delay:       defaultPaymentDelay,
		failureRate: defaultFailureRate,
		state:       CheckoutPending,
		archive:     make(chan domain.Order, defaultArchiveQueue),
	}
}

func (s *Checkout) SetRand(r *rand.Rand) { s.rand = r }

func (s *Checkout) SetNow(now func() time.Time) { s.now = now }

func (s *Checkout) SetPaymentDelay(d time.Duration) { s.delay = d }

func (s *Checkout) SetFailureRate(rate float64) { s.failureRate = rate }

// SetForceSuccess is the test-mode override: payment always resolves to
// success regardless of the random draw.
func (s *Checkout) SetForceSuccess(on bool) { s.forceSuccess = on }

func (s *Checkout) State() CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Checkout) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failReason
}

func (s *Checkout) LastOrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOrderID
}

func (s *Checkout) PaymentMethods() []domain.PaymentMethod {
	methods := make([]domain.PaymentMethod, len(paymentMethods))
	copy(methods, paymentMethods)
	return methods
}

// ArchiveQueue exposes completed orders for durable archival. Best effort:
// when no worker drains it, orders are dropped from the queue, never from the
// ledger.
func (s *Checkout) ArchiveQueue() <-chan domain.Order {
	return s.archive
}

func (s *Checkout) Close() {
	close(s.archive)
}

// Submit runs one purchase attempt. Rejections leave the state machine
// untouched; a declined payment moves it to failed without creating an order
// or touching the cart.
func (s *Checkout) Submit(ctx context.Context, paymentMethodID string) (domain.Order, error) {
	method, ok := s.findMethod(paymentMethodID)
	if !ok {
		return domain.Order{}, ErrNoPaymentMethod
	}
	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		return domain.Order{}, ErrNotAuthenticated
	}

	items, err := s.cart.Items(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	if len(items) == 0 {
		return domain.Order{}, ErrCartEmpty
	}
	warnings, err := s.cart.CheckStock(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	for _, w := range warnings {
		if w.Blocking() {
			return domain.Order{}, ErrStockShortage
		}
	}

	s.mu.Lock()
	if s.state == CheckoutProcessing {
		s.mu.Unlock()
		return domain.Order{}, ErrPaymentInProgress
	}
	s.state = CheckoutProcessing
	s.failReason = ""
	s.mu.Unlock()

	// Simulated gateway latency. Once processing starts the attempt cannot
	// be cancelled.
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	success := s.forceSuccess || s.rand.Float64() > s.failureRate
	if !success {
		s.fail("payment gateway temporarily unavailable, please retry")
		return domain.Order{}, ErrPaymentDeclined
	}

	order := domain.NewOrder(user.ID, items, method.Name, s.now())

	if err := s.orders.Append(ctx, order); err != nil {
		s.fail("order could not be recorded")
		return domain.Order{}, err
	}
	if err := s.orders.AddSpent(ctx, user.ID, order.TotalAmount); err != nil {
		s.log.Error("total-spent update failed", "order_id", order.ID, "error", err)
	}

	event := domain.PurchaseEvent{
		OrderID: order.ID,
		UserID:  user.ID,
		Items:   purchaseLines(items),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.Error("purchase event publish failed", "order_id", order.ID, "error", err)
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.log.Error("cart clear failed", "order_id", order.ID, "error", err)
	}

	select {
	case s.archive <- order:
	default:
		s.log.Warn("archive queue full, order not archived", "order_id", order.ID)
	}

	s.mu.Lock()
	s.state = CheckoutSuccess
	s.lastOrderID = order.ID
	s.mu.Unlock()

	s.log.Info("checkout succeeded", "order_id", order.ID, "user_id", user.ID,
		"total", order.TotalAmount.StringFixed(2))
	return order, nil
}

// Retry resets a failed attempt to pending without altering the cart.
func (s *Checkout) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != CheckoutFailed {
		return ErrNotRetryable
	}
	s.state = CheckoutPending
	s.failReason = ""
	return nil
}

func (s *Checkout) fail(reason string) {
	s.mu.Lock()
	s.state = CheckoutFailed
	s.failReason = reason
	s.mu.Unlock()
	s.log.Info("checkout failed", "reason", reason)
}

func (s *Checkout) findMethod(id string) (domain.PaymentMethod, bool) {
	if id == "" {
		return domain.PaymentMethod{}, false
	}
	for _, m := range paymentMethods {
		if m.ID == id {
			return m, true
		}
	}
	return domain.PaymentMethod{}, false
}

func purchaseLines(items []domain.CartItem) []domain.PurchaseLine {
	lines := make([]domain.PurchaseLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.PurchaseLine{
			ProductName: item.Name,
			Quantity:    item.Quantity,
		})
	}
	return lines
}
