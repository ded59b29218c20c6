package checkout_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/identity"
	"github.com/example/storefront/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRecords struct {
	listFunc   func(ctx context.Context, collection string, filter map[string]string, out any) error
	createFunc func(ctx context.Context, collection string, body, out any) error
	patchFunc  func(ctx context.Context, collection, id string, body, out any) error
	deleteFunc func(ctx context.Context, collection, id string) error
}

func (m *mockRecords) List(ctx context.Context, collection string, filter map[string]string, out any) error {
	if m.listFunc == nil {
		return nil
	}
	return m.listFunc(ctx, collection, filter, out)
}

func (m *mockRecords) Create(ctx context.Context, collection string, body, out any) error {
	if m.createFunc == nil {
		return nil
	}
	return m.createFunc(ctx, collection, body, out)
}

func (m *mockRecords) Patch(ctx context.Context, collection, id string, body, out any) error {
	if m.patchFunc == nil {
		return nil
	}
	return m.patchFunc(ctx, collection, id, body, out)
}

func (m *mockRecords) Delete(ctx context.Context, collection, id string) error {
	if m.deleteFunc == nil {
		return nil
	}
	return m.deleteFunc(ctx, collection, id)
}

// echoCreate acts like the record store: assign an id and return the draft.
func echoCreate(id string) func(ctx context.Context, collection string, body, out any) error {
	return func(_ context.Context, _ string, body, out any) error {
		o := body.(order.Order)
		o.ID = id
		*out.(*order.Order) = o
		return nil
	}
}

func TestSubmit_PreconditionOrder(t *testing.T) {
	tests := []struct {
		name    string
		user    *identity.User
		addr    *checkout.ShippingAddress
		pay     *checkout.PaymentMethod
		cart    *mockCart
		wantErr error
	}{
		{
			name:    "anonymous",
			cart:    cartWith(line("pa", 20, 1)),
			addr:    addr("a1"),
			pay:     payment("pm1"),
			wantErr: checkout.ErrNotSignedIn,
		},
		{
			name:    "no_address",
			user:    &identity.User{ID: "u1"},
			pay:     payment("pm1"),
			cart:    cartWith(line("pa", 20, 1)),
			wantErr: checkout.ErrNoShippingAddress,
		},
		{
			name:    "no_payment",
			user:    &identity.User{ID: "u1"},
			addr:    addr("a1"),
			cart:    cartWith(line("pa", 20, 1)),
			wantErr: checkout.ErrNoPaymentMethod,
		},
		{
			name:    "empty_cart",
			user:    &identity.User{ID: "u1"},
			addr:    addr("a1"),
			pay:     payment("pm1"),
			cart:    cartWith(),
			wantErr: checkout.ErrEmptyCart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := checkout.NewSession(tt.cart)
			session.SetShippingAddress(tt.addr)
			session.SetPaymentMethod(tt.pay)
			session.GoToStep(checkout.StepReview)

			records := &mockRecords{
				createFunc: func(context.Context, string, any, any) error {
					t.Fatal("no order may be created when a precondition fails")
					return nil
				},
			}
			sub := checkout.NewSubmitter(records, &stubIdentity{user: tt.user}, tt.cart, session)

			got, err := sub.Submit(context.Background())
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.False(t, tt.cart.cleared)
			assert.Equal(t, checkout.StepReview, session.CurrentStep())
			assert.False(t, session.IsProcessing())
			assert.Nil(t, session.LastOrder())
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	c := cartWith(line("pa", 25, 2))
	session := checkout.NewSession(c)
	session.SetShippingAddress(addr("a1"))
	session.SetPaymentMethod(payment("pm1"))
	session.GoToStep(checkout.StepReview)

	records := &mockRecords{createFunc: echoCreate("o1")}
	sub := checkout.NewSubmitter(records, &stubIdentity{user: &identity.User{ID: "u1"}}, c, session)

	got, err := sub.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, "u1", got.OwnerID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "pa", got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, 25.0, got.Items[0].UnitPrice)

	assert.Equal(t, 50.0, got.Subtotal)
	assert.Equal(t, 9.99, got.Shipping)
	assert.Equal(t, 4.25, got.Tax)
	assert.Equal(t, 64.24, got.Total)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Equal(t, "1 Main St, Manila, NCR 1000", got.ShippingAddress)
	assert.Equal(t, "paypal", got.PaymentMethodKind)
	assert.Regexp(t, regexp.MustCompile(`^TN\d{8}[0-9A-F]{4}$`), got.TrackingNumber)
	assert.WithinDuration(t, time.Now().UTC(), got.OrderDate, 5*time.Second)

	assert.True(t, c.cleared)
	assert.Equal(t, checkout.StepSuccess, session.CurrentStep())
	assert.Equal(t, got, session.LastOrder())
	assert.Nil(t, session.ShippingAddress())
	assert.Nil(t, session.PaymentMethod())
	assert.False(t, session.IsProcessing())
}

func TestSubmit_SuccessFreezesNavigationUntilReset(t *testing.T) {
	c := cartWith(line("pa", 25, 2))
	session := checkout.NewSession(c)
	session.SetShippingAddress(addr("a1"))
	session.SetPaymentMethod(payment("pm1"))

	sub := checkout.NewSubmitter(&mockRecords{createFunc: echoCreate("o1")},
		&stubIdentity{user: &identity.User{ID: "u1"}}, c, session)

	_, err := sub.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, checkout.StepSuccess, session.CurrentStep())

	session.GoToStep(checkout.StepShipping)
	session.PreviousStep()
	session.NextStep()
	assert.Equal(t, checkout.StepSuccess, session.CurrentStep())

	session.Reset()
	assert.Equal(t, checkout.StepShipping, session.CurrentStep())
	assert.Nil(t, session.LastOrder())
}

func TestSubmit_FailureLeavesStateForRetry(t *testing.T) {
	c := cartWith(line("pa", 25, 2))
	session := checkout.NewSession(c)
	a := addr("a1")
	p := payment("pm1")
	session.SetShippingAddress(a)
	session.SetPaymentMethod(p)
	session.GoToStep(checkout.StepReview)

	records := &mockRecords{
		createFunc: func(context.Context, string, any, any) error {
			return errors.New("store unavailable")
		},
	}
	sub := checkout.NewSubmitter(records, &stubIdentity{user: &identity.User{ID: "u1"}}, c, session)

	got, err := sub.Submit(context.Background())
	assert.Nil(t, got)
	require.Error(t, err)

	assert.False(t, c.cleared)
	assert.Equal(t, checkout.StepReview, session.CurrentStep())
	assert.Equal(t, a, session.ShippingAddress())
	assert.Equal(t, p, session.PaymentMethod())
	assert.Nil(t, session.LastOrder())
	assert.False(t, session.IsProcessing())

	records.createFunc = echoCreate("o1")
	got, err = sub.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)
	assert.True(t, c.cleared)
	assert.Equal(t, checkout.StepSuccess, session.CurrentStep())
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	c := cartWith(line("pa", 25, 2))
	session := checkout.NewSession(c)
	session.SetShippingAddress(addr("a1"))
	session.SetPaymentMethod(payment("pm1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	records := &mockRecords{
		createFunc: func(_ context.Context, _ string, body, out any) error {
			close(entered)
			<-release
			return echoCreate("o1")(context.Background(), "orders", body, out)
		},
	}
	sub := checkout.NewSubmitter(records, &stubIdentity{user: &identity.User{ID: "u1"}}, c, session)

	firstDone := make(chan error, 1)
	go func() {
		_, err := sub.Submit(context.Background())
		firstDone <- err
	}()

	<-entered
	assert.True(t, sub.IsProcessing())
	_, err := sub.Submit(context.Background())
	assert.ErrorIs(t, err, checkout.ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, checkout.StepSuccess, session.CurrentStep())
	assert.False(t, sub.IsProcessing())
}
