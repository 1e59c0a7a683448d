package pricing

import "errors"

// Money represents a monetary value stored in minor units.
type Money = int64

var (
	// ErrEmptyCart is returned when a quote is requested for no line items.
	ErrEmptyCart = errors.New("pricing: no line items")
	// ErrInvalidItem is returned when a line item carries a negative price or quantity.
	ErrInvalidItem = errors.New("pricing: invalid line item")
)

// Item describes a line item used for pricing calculation.
type Item struct {
	ProductID string
	Name      string
	Image     string
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Quote calculates cart totals for the provided line items and an optional
// percentage discount. The discount is applied once, to the full subtotal,
// never per item. A zero quantity is treated as 1; negative quantities and
// prices are rejected.
func Quote(items []Item, discountPercent int32) (Summary, error) {
	if len(items) == 0 {
		return Summary{}, ErrEmptyCart
	}
	var subtotal Money
	for _, it := range items {
		if it.UnitPrice < 0 || it.Qty < 0 {
			return Summary{}, ErrInvalidItem
		}
		qty := it.Qty
		if qty == 0 {
			qty = 1
		}
		subtotal += Money(qty) * it.UnitPrice
	}
	discount := percentOf(subtotal, discountPercent)
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal - discount,
	}, nil
}

// percentOf computes pct% of amount rounded half-up at the minor unit.
func percentOf(amount Money, pct int32) Money {
	if pct <= 0 || amount <= 0 {
		return 0
	}
	if pct > 100 {
		pct = 100
	}
	return (amount*Money(pct) + 50) / 100
}

// EffectiveQty normalises a client supplied quantity: absent or zero means one.
func EffectiveQty(qty int) int {
	if qty == 0 {
		return 1
	}
	return qty
}
