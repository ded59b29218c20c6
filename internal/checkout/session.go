// Package checkout drives the gated multi-step checkout: a step state
// machine fed by the cart and the address/payment repository, culminating in
// a one-shot order submission.
package checkout

import (
	"sync"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/order"
	"github.com/example/storefront/internal/signal"
)

type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepReview
	StepSuccess
)

// Cart is the cart surface the checkout reads, plus the single command it
// issues after a successful submission.
type Cart interface {
	Lines() []cart.Line
	TotalItemCount() int
	CartValue() float64
	Clear()
}

// Session holds the transient checkout state. It is the sole writer of the
// step and the selections; the repository and the submitter go through its
// operations.
type Session struct {
	cart Cart

	step       *signal.Cell[Step]
	address    *signal.Cell[*ShippingAddress]
	payment    *signal.Cell[*PaymentMethod]
	processing *signal.Cell[bool]
	lastOrder  *signal.Cell[*order.Order]

	mu sync.Mutex
	// Explicitly cleared selections stay cleared: auto-selection must not
	// fight the user. Reset re-arms both.
	addressCleared bool
	paymentCleared bool
}

func NewSession(c Cart) *Session {
	return &Session{
		cart:       c,
		step:       signal.NewCell(StepShipping),
		address:    signal.NewCell[*ShippingAddress](nil),
		payment:    signal.NewCell[*PaymentMethod](nil),
		processing: signal.NewCell(false),
		lastOrder:  signal.NewCell[*order.Order](nil),
	}
}

func (s *Session) CurrentStep() Step {
	return s.step.Get()
}

// GoToStep jumps unconditionally within [1,4]; it carries no precondition
// guard and exists for programmatic back-navigation. Callers gate forward
// jumps with CanProceedToStep. Navigation freezes at Success until Reset.
func (s *Session) GoToStep(step Step) {
	if s.step.Get() == StepSuccess {
		return
	}
	if step >= StepShipping && step <= StepSuccess {
		s.step.Set(step)
	}
}

func (s *Session) NextStep() {
	current := s.step.Get()
	if current == StepSuccess {
		return
	}
	if current < StepSuccess {
		s.step.Set(current + 1)
	}
}

func (s *Session) PreviousStep() {
	current := s.step.Get()
	if current == StepSuccess {
		return
	}
	if current > StepShipping {
		s.step.Set(current - 1)
	}
}

// CanProceedToStep evaluates the step's precondition gate fresh on each
// call; nothing is cached.
func (s *Session) CanProceedToStep(step Step) bool {
	switch step {
	case StepPayment:
		return s.cart.TotalItemCount() > 0
	case StepReview:
		return s.address.Get() != nil
	case StepSuccess:
		return s.address.Get() != nil && s.payment.Get() != nil
	default:
		return true
	}
}

// SetShippingAddress stores the selection; it never advances the step.
func (s *Session) SetShippingAddress(a *ShippingAddress) {
	s.mu.Lock()
	s.addressCleared = false
	s.mu.Unlock()
	s.address.Set(a)
}

// ClearShippingAddress is the user explicitly dropping the selection;
// auto-selection stays off until Reset.
func (s *Session) ClearShippingAddress() {
	s.mu.Lock()
	s.addressCleared = true
	s.mu.Unlock()
	s.address.Set(nil)
}

func (s *Session) ShippingAddress() *ShippingAddress {
	return s.address.Get()
}

func (s *Session) SetPaymentMethod(p *PaymentMethod) {
	s.mu.Lock()
	s.paymentCleared = false
	s.mu.Unlock()
	s.payment.Set(p)
}

func (s *Session) ClearPaymentMethod() {
	s.mu.Lock()
	s.paymentCleared = true
	s.mu.Unlock()
	s.payment.Set(nil)
}

func (s *Session) PaymentMethod() *PaymentMethod {
	return s.payment.Get()
}

func (s *Session) IsProcessing() bool {
	return s.processing.Get()
}

func (s *Session) LastOrder() *order.Order {
	return s.lastOrder.Get()
}

// Summary derives the current monetary summary from the cart.
func (s *Session) Summary() Summary {
	return Summarize(s.cart.CartValue(), s.cart.TotalItemCount())
}

// Reset returns the session to its initial state: step one, no selections,
// not processing, no retained order. Auto-selection is re-armed.
func (s *Session) Reset() {
	s.mu.Lock()
	s.addressCleared = false
	s.paymentCleared = false
	s.mu.Unlock()
	s.step.Set(StepShipping)
	s.address.Set(nil)
	s.payment.Set(nil)
	s.processing.Set(false)
	s.lastOrder.Set(nil)
}

// beginProcessing claims the submission slot; it reports false when a
// submission is already in flight.
func (s *Session) beginProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing.Get() {
		return false
	}
	s.processing.Set(true)
	return true
}

func (s *Session) endProcessing() {
	s.processing.Set(false)
}

// completeOrder is invoked on successful submission: selections are dropped,
// the created order is retained for display, and the step moves to Success,
// where navigation stays frozen until an explicit Reset.
func (s *Session) completeOrder(o *order.Order) {
	s.address.Set(nil)
	s.payment.Set(nil)
	s.lastOrder.Set(o)
	s.step.Set(StepSuccess)
}

// dropAddressSelection clears the selection because its backing record was
// removed. This is not a user-initiated clear, so auto-selection stays
// armed and will pick the next first entry.
func (s *Session) dropAddressSelection() {
	s.address.Set(nil)
}

func (s *Session) dropPaymentSelection() {
	s.payment.Set(nil)
}

func (s *Session) addressAutoSelectArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.addressCleared
}

func (s *Session) paymentAutoSelectArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.paymentCleared
}
