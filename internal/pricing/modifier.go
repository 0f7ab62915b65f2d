package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

// Modifier transforms a snapshot without side effects.
type Modifier interface {
	Name() string
	Apply(s Snapshot) Snapshot
}

// Chain runs its modifiers in a fixed order: discount, then tax.
type Chain struct {
	modifiers []Modifier
}

func NewChain(discount *DiscountModifier, tax *TaxModifier) *Chain {
	return &Chain{modifiers: []Modifier{discount, tax}}
}

func (c *Chain) Apply(s Snapshot) Snapshot {
	for _, m := range c.modifiers {
		s = m.Apply(s)
	}
	return s
}

// Price builds a snapshot of the cart and runs the chain over it.
func (c *Chain) Price(cart *domain.Cart, actingUserID int64) Snapshot {
	return c.Apply(NewSnapshot(cart, actingUserID))
}

// DiscountModifier subtracts each item's stored absolute discount, clamped to
// the item price.
type DiscountModifier struct{}

func NewDiscountModifier() *DiscountModifier {
	return &DiscountModifier{}
}

func (DiscountModifier) Name() string { return "discount" }

func (DiscountModifier) Apply(s Snapshot) Snapshot {
	lines := s.cloneLines()
	for i := range lines {
		base := lines[i].Base
		discount := clampDiscount(base.Discount, base.Price)
		lines[i].Discount = discount
		lines[i].Price = base.Price.Sub(discount)
	}
	s.Lines = lines
	s.aggregate()
	return s
}

func clampDiscount(discount, price decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() || price.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(price) {
		return price
	}
	return discount
}
