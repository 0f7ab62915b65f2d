package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountSpec is the pair a cashier submits; at most one value may be non-zero.
type DiscountSpec struct {
	Percent  decimal.Decimal `json:"discount_percent"`
	Absolute decimal.Decimal `json:"discount_absolute"`
}

const (
	FieldDiscountPercent  = "discount_percent"
	FieldDiscountAbsolute = "discount_absolute"
)

func (d DiscountSpec) Validate() error {
	verr := &ValidationError{}

	if !d.Percent.IsZero() && !d.Absolute.IsZero() {
		verr.Add(FieldDiscountPercent, MsgOnlyOneValue)
		verr.Add(FieldDiscountAbsolute, MsgOnlyOneValue)
		return verr
	}
	if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
		verr.Add(FieldDiscountPercent, MsgPercentRange)
	}
	if d.Absolute.IsNegative() {
		verr.Add(FieldDiscountAbsolute, MsgMustNotNegative)
	}
	return verr.OrNil()
}

// Resolve turns a validated spec into the absolute discount for the given
// price, together with the mode the value was entered in.
func (d DiscountSpec) Resolve(price decimal.Decimal) (decimal.Decimal, DiscountMode) {
	switch {
	case !d.Percent.IsZero():
		return price.Mul(d.Percent).Div(hundred).Round(2), DiscountModePercent
	case !d.Absolute.IsZero():
		return d.Absolute, DiscountModeAbsolute
	default:
		return decimal.Zero, DiscountModeNone
	}
}

// ApplyDiscount stores the resolved discount together with the values the
// cashier entered.
func (i *CartItem) ApplyDiscount(spec DiscountSpec) {
	i.Discount, i.DiscountMode = spec.Resolve(i.Price)
	i.DiscountPercent = decimal.Zero
	if i.DiscountMode == DiscountModePercent {
		i.DiscountPercent = spec.Percent
	}
}

// InferDiscount guesses how a stored absolute discount was entered. A discount
// that divides the price into a whole percentage is reported as a percentage,
// anything else as an absolute amount. This is a heuristic: an absolute 10 on a
// price of 100 is reported as 10%.
func InferDiscount(discount, price decimal.Decimal) DiscountSpec {
	if !discount.IsZero() && price.IsPositive() && discount.Mul(hundred).Mod(price).IsZero() {
		return DiscountSpec{Percent: discount.Mul(hundred).Div(price)}
	}
	return DiscountSpec{Absolute: discount}
}

// DiscountOf returns the spec to pre-fill a discount form for the item. The
// recorded mode wins; entries stored without one fall back to InferDiscount.
func DiscountOf(item CartItem) DiscountSpec {
	switch item.DiscountMode {
	case DiscountModePercent:
		if !item.DiscountPercent.IsZero() {
			return DiscountSpec{Percent: item.DiscountPercent}
		}
		if item.Price.IsPositive() {
			return DiscountSpec{Percent: item.Discount.Mul(hundred).Div(item.Price).Round(2)}
		}
	case DiscountModeAbsolute:
		return DiscountSpec{Absolute: item.Discount}
	}
	return InferDiscount(item.Discount, item.Price)
}
