package pricing

import (
	"errors"
	"testing"
)

func TestQuoteWithoutCoupon(t *testing.T) {
	items := []Item{
		{UnitPrice: 1000, Qty: 2},
		{UnitPrice: 500, Qty: 1},
	}
	got, err := Quote(items, 0)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got.Subtotal != 2500 || got.Discount != 0 || got.Total != 2500 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestQuoteWithPercentDiscount(t *testing.T) {
	items := []Item{
		{UnitPrice: 1000, Qty: 2},
		{UnitPrice: 500, Qty: 1},
	}
	got, err := Quote(items, 10)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got.Subtotal != 2500 {
		t.Fatalf("expected subtotal 2500, got %d", got.Subtotal)
	}
	if got.Discount != 250 {
		t.Fatalf("expected discount 250, got %d", got.Discount)
	}
	if got.Total != 2250 {
		t.Fatalf("expected total 2250, got %d", got.Total)
	}
}

func TestQuoteRoundsHalfUp(t *testing.T) {
	// 25 minor units at 10% is 2.5: rounds up to 3.
	got, err := Quote([]Item{{UnitPrice: 25, Qty: 1}}, 10)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got.Discount != 3 {
		t.Fatalf("expected half-up discount 3, got %d", got.Discount)
	}
	if got.Total != 22 {
		t.Fatalf("expected total 22, got %d", got.Total)
	}
}

func TestQuoteZeroQtyDefaultsToOne(t *testing.T) {
	got, err := Quote([]Item{{UnitPrice: 700}}, 0)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got.Subtotal != 700 {
		t.Fatalf("expected subtotal 700, got %d", got.Subtotal)
	}
}

func TestQuoteRejectsEmptyCart(t *testing.T) {
	if _, err := Quote(nil, 10); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestQuoteRejectsNegativeValues(t *testing.T) {
	cases := []Item{
		{UnitPrice: -1, Qty: 1},
		{UnitPrice: 100, Qty: -2},
	}
	for _, it := range cases {
		if _, err := Quote([]Item{it}, 0); !errors.Is(err, ErrInvalidItem) {
			t.Fatalf("expected ErrInvalidItem for %+v, got %v", it, err)
		}
	}
}

func TestQuoteDiscountNeverExceedsSubtotal(t *testing.T) {
	got, err := Quote([]Item{{UnitPrice: 100, Qty: 1}}, 100)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if got.Total != 0 {
		t.Fatalf("expected total 0 at 100%%, got %d", got.Total)
	}
}
