package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/identity"
	"github.com/example/storefront/internal/signal"
)

const (
	collectionAddresses = "addresses"
	collectionPayments  = "payment-methods"
	collectionOrders    = "orders"
)

var (
	ErrNotSignedIn        = errors.New("not signed in")
	ErrNoShippingAddress  = errors.New("no shipping address selected")
	ErrNoPaymentMethod    = errors.New("no payment method selected")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSubmissionInFlight = errors.New("an order submission is already in progress")
)

// Records is the slice of the record store the checkout uses.
type Records interface {
	List(ctx context.Context, collection string, filter map[string]string, out any) error
	Create(ctx context.Context, collection string, body, out any) error
	Patch(ctx context.Context, collection, id string, body, out any) error
	Delete(ctx context.Context, collection, id string) error
}

// Identity reports the current shopper, or nil when anonymous.
type Identity interface {
	Current() *identity.User
}

// Repository caches the shopper's saved shipping addresses and payment
// methods: two independent collections following the same pattern. The
// cache mirrors the store (re-fetch wholesale, or patch locally after a
// write) and feeds the session's auto-selection.
type Repository struct {
	records  Records
	identity Identity
	session  *Session
	validate *validator.Validate

	addresses *signal.Cell[[]ShippingAddress]
	payments  *signal.Cell[[]PaymentMethod]
}

func NewRepository(records Records, ident Identity, session *Session) *Repository {
	r := &Repository{
		records:   records,
		identity:  ident,
		session:   session,
		validate:  validator.New(),
		addresses: signal.NewCell[[]ShippingAddress](nil),
		payments:  signal.NewCell[[]PaymentMethod](nil),
	}

	// Whenever a collection becomes non-empty with no current selection,
	// its first entry becomes the default, unless the user explicitly
	// cleared the selection.
	r.addresses.Subscribe(func(list []ShippingAddress) {
		if len(list) > 0 && session.ShippingAddress() == nil && session.addressAutoSelectArmed() {
			session.SetShippingAddress(&list[0])
		}
	})
	r.payments.Subscribe(func(list []PaymentMethod) {
		if len(list) > 0 && session.PaymentMethod() == nil && session.paymentAutoSelectArmed() {
			session.SetPaymentMethod(&list[0])
		}
	})

	return r
}

func (r *Repository) Addresses() []ShippingAddress {
	return r.addresses.Get()
}

func (r *Repository) PaymentMethods() []PaymentMethod {
	return r.payments.Get()
}

// RefreshAddresses replaces the cache wholesale with the store's view, in
// server order. Without an identity the cache empties. A failed fetch keeps
// the previous cache.
func (r *Repository) RefreshAddresses(ctx context.Context) ([]ShippingAddress, error) {
	u := r.identity.Current()
	if u == nil {
		r.addresses.Set(nil)
		return nil, nil
	}

	var list []ShippingAddress
	if err := r.records.List(ctx, collectionAddresses, map[string]string{"ownerId": u.ID}, &list); err != nil {
		return nil, fmt.Errorf("failed to refresh addresses: %w", err)
	}
	r.addresses.Set(list)
	return list, nil
}

func (r *Repository) AddAddress(ctx context.Context, a ShippingAddress) (*ShippingAddress, error) {
	u := r.identity.Current()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	if err := r.validate.Struct(a); err != nil {
		warnValidation(err)
		return nil, fmt.Errorf("invalid shipping address: %w", err)
	}

	a.ID = ""
	a.OwnerID = u.ID

	var created ShippingAddress
	if err := r.records.Create(ctx, collectionAddresses, a, &created); err != nil {
		return nil, fmt.Errorf("failed to save address: %w", err)
	}

	r.addresses.Update(func(list []ShippingAddress) []ShippingAddress {
		return append(append([]ShippingAddress(nil), list...), created)
	})
	return &created, nil
}

func (r *Repository) UpdateAddress(ctx context.Context, id string, a ShippingAddress) (*ShippingAddress, error) {
	u := r.identity.Current()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	if err := r.validate.Struct(a); err != nil {
		warnValidation(err)
		return nil, fmt.Errorf("invalid shipping address: %w", err)
	}

	a.ID = ""
	a.OwnerID = u.ID

	var updated ShippingAddress
	if err := r.records.Patch(ctx, collectionAddresses, id, a, &updated); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	r.addresses.Update(func(list []ShippingAddress) []ShippingAddress {
		next := append([]ShippingAddress(nil), list...)
		for i := range next {
			if next[i].ID == id {
				next[i] = updated
			}
		}
		return next
	})

	// Keep a live selection pointing at the fresh record.
	if sel := r.session.ShippingAddress(); sel != nil && sel.ID == id {
		r.session.SetShippingAddress(&updated)
	}
	return &updated, nil
}

func (r *Repository) RemoveAddress(ctx context.Context, id string) error {
	if err := r.records.Delete(ctx, collectionAddresses, id); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	if sel := r.session.ShippingAddress(); sel != nil && sel.ID == id {
		r.session.dropAddressSelection()
	}
	r.addresses.Update(func(list []ShippingAddress) []ShippingAddress {
		next := make([]ShippingAddress, 0, len(list))
		for _, a := range list {
			if a.ID != id {
				next = append(next, a)
			}
		}
		return next
	})
	return nil
}

// RefreshPaymentMethods mirrors RefreshAddresses for the payment collection.
func (r *Repository) RefreshPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	u := r.identity.Current()
	if u == nil {
		r.payments.Set(nil)
		return nil, nil
	}

	var list []PaymentMethod
	if err := r.records.List(ctx, collectionPayments, map[string]string{"ownerId": u.ID}, &list); err != nil {
		return nil, fmt.Errorf("failed to refresh payment methods: %w", err)
	}
	r.payments.Set(list)
	return list, nil
}

func (r *Repository) AddPaymentMethod(ctx context.Context, p PaymentMethod) (*PaymentMethod, error) {
	u := r.identity.Current()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	if err := r.validate.Struct(p); err != nil {
		warnValidation(err)
		return nil, fmt.Errorf("invalid payment method: %w", err)
	}

	p.ID = ""
	p.OwnerID = u.ID
	p.normalize()

	var created PaymentMethod
	if err := r.records.Create(ctx, collectionPayments, p, &created); err != nil {
		return nil, fmt.Errorf("failed to save payment method: %w", err)
	}

	r.payments.Update(func(list []PaymentMethod) []PaymentMethod {
		return append(append([]PaymentMethod(nil), list...), created)
	})
	return &created, nil
}

func (r *Repository) UpdatePaymentMethod(ctx context.Context, id string, p PaymentMethod) (*PaymentMethod, error) {
	u := r.identity.Current()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	if err := r.validate.Struct(p); err != nil {
		warnValidation(err)
		return nil, fmt.Errorf("invalid payment method: %w", err)
	}

	p.ID = ""
	p.OwnerID = u.ID
	p.normalize()

	var updated PaymentMethod
	if err := r.records.Patch(ctx, collectionPayments, id, p, &updated); err != nil {
		return nil, fmt.Errorf("failed to update payment method: %w", err)
	}

	r.payments.Update(func(list []PaymentMethod) []PaymentMethod {
		next := append([]PaymentMethod(nil), list...)
		for i := range next {
			if next[i].ID == id {
				next[i] = updated
			}
		}
		return next
	})

	if sel := r.session.PaymentMethod(); sel != nil && sel.ID == id {
		r.session.SetPaymentMethod(&updated)
	}
	return &updated, nil
}

func (r *Repository) RemovePaymentMethod(ctx context.Context, id string) error {
	if err := r.records.Delete(ctx, collectionPayments, id); err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}

	if sel := r.session.PaymentMethod(); sel != nil && sel.ID == id {
		r.session.dropPaymentSelection()
	}
	r.payments.Update(func(list []PaymentMethod) []PaymentMethod {
		next := make([]PaymentMethod, 0, len(list))
		for _, p := range list {
			if p.ID != id {
				next = append(next, p)
			}
		}
		return next
	})
	return nil
}

// warnValidation logs validator detail at debug level; callers still get the
// wrapped error.
func warnValidation(err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			log.Debug().Str("field", fe.Field()).Str("tag", fe.Tag()).Msg("checkout: validation failure")
		}
	}
}
