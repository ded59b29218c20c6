package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/order"
)

// Submitter turns the current cart and selections into a persisted order.
// Preconditions are checked in a fixed sequence so the first gap determines
// the reported error; nothing is sent to the network before all of them
// pass. Success clears the cart and moves the session to its Success step;
// failure leaves every piece of state exactly as it was, ready for a retry.
type Submitter struct {
	records  Records
	identity Identity
	cart     Cart
	session  *Session

	now func() time.Time
}

func NewSubmitter(records Records, ident Identity, c Cart, session *Session) *Submitter {
	return &Submitter{
		records:  records,
		identity: ident,
		cart:     c,
		session:  session,
		now:      time.Now,
	}
}

func (s *Submitter) IsProcessing() bool {
	return s.session.IsProcessing()
}

func (s *Submitter) LastOrder() *order.Order {
	return s.session.LastOrder()
}

// Submit builds an immutable snapshot of the cart and selections, rounds the
// totals, and creates the order with a pending status. At most one
// submission is initiated per user action: a second call while one is in
// flight is rejected without touching anything.
func (s *Submitter) Submit(ctx context.Context) (*order.Order, error) {
	if !s.session.beginProcessing() {
		return nil, ErrSubmissionInFlight
	}
	defer s.session.endProcessing()

	u := s.identity.Current()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	addr := s.session.ShippingAddress()
	if addr == nil {
		return nil, ErrNoShippingAddress
	}
	pay := s.session.PaymentMethod()
	if pay == nil {
		return nil, ErrNoPaymentMethod
	}
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
			ImageURL:    l.Product.ImageURL,
		})
	}

	sum := Summarize(s.cart.CartValue(), s.cart.TotalItemCount()).Rounded()
	now := s.now()

	draft := order.Order{
		OwnerID:           u.ID,
		Items:             items,
		Subtotal:          sum.Subtotal,
		Shipping:          sum.Shipping,
		Tax:               sum.Tax,
		Total:             sum.Total,
		Status:            order.StatusPending,
		OrderDate:         now.UTC(),
		ShippingAddress:   addr.DisplayLine(),
		PaymentMethodKind: string(pay.Kind),
		TrackingNumber:    trackingNumber(now),
	}

	var created order.Order
	if err := s.records.Create(ctx, collectionOrders, draft, &created); err != nil {
		log.Error().Err(err).Str("owner_id", u.ID).Msg("checkout: order submission failed")
		return nil, fmt.Errorf("order submission failed: %w", err)
	}

	s.cart.Clear()
	s.session.completeOrder(&created)
	log.Info().
		Str("order_id", created.ID).
		Str("tracking_number", created.TrackingNumber).
		Float64("total", created.Total).
		Msg("checkout: order placed")
	return &created, nil
}

// trackingNumber builds a display token from a time-derived prefix and a
// short random suffix. It only needs to be unique enough for display; the
// store assigns the authoritative order id.
func trackingNumber(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	suffix := strings.ToUpper(uuid.Must(uuid.NewV4()).String()[:4])
	return "TN" + ms + suffix
}
