package checkout_test

import (
	"testing"

	"github.com/example/storefront/internal/checkout"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize_ShippingBoundary(t *testing.T) {
	tests := []struct {
		name         string
		subtotal     float64
		wantShipping float64
	}{
		{name: "below_threshold", subtotal: 50, wantShipping: 9.99},
		{name: "just_below_threshold", subtotal: 99.99, wantShipping: 9.99},
		{name: "at_threshold_ships_free", subtotal: 100.00, wantShipping: 0},
		{name: "above_threshold", subtotal: 150, wantShipping: 0},
		{name: "empty_cart_still_flat_fee", subtotal: 0, wantShipping: 9.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := checkout.Summarize(tt.subtotal, 1)
			assert.Equal(t, tt.wantShipping, s.Shipping)
		})
	}
}

func TestSummarize_TaxAndTotal(t *testing.T) {
	s := checkout.Summarize(200, 3)

	assert.Equal(t, 200.0, s.Subtotal)
	assert.Equal(t, 0.0, s.Shipping)
	assert.InDelta(t, 17.0, s.Tax, 1e-9)
	assert.InDelta(t, 217.0, s.Total, 1e-9)
	assert.Equal(t, 3, s.ItemCount)
}

func TestSummary_RoundedScenario(t *testing.T) {
	got := checkout.Summarize(50, 2).Rounded()

	want := checkout.Summary{
		Subtotal:  50.00,
		Shipping:  9.99,
		Tax:       4.25,
		Total:     64.24,
		ItemCount: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rounded summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary_RoundedTotalIsExactSumOfComponents(t *testing.T) {
	for _, subtotal := range []float64{0.01, 19.995, 33.333333, 50, 99.99, 100, 1234.5678} {
		s := checkout.Summarize(subtotal, 1).Rounded()

		sum := decimal.NewFromFloat(s.Subtotal).
			Add(decimal.NewFromFloat(s.Shipping)).
			Add(decimal.NewFromFloat(s.Tax))
		assert.True(t, sum.Equal(decimal.NewFromFloat(s.Total)),
			"subtotal %v: %v + %v + %v != %v", subtotal, s.Subtotal, s.Shipping, s.Tax, s.Total)
	}
}
