package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Quote asks the oracle to price one item.
type Quote struct {
	Item     domain.CartItem
	Amount   decimal.Decimal // base price minus discount
	Category string
	Country  string
	Rate     decimal.Decimal // percent
	Override int
}

type QuotedPrice struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
	Tax   decimal.Decimal
}

// PriceOracle computes the taxed price of a single item.
type PriceOracle interface {
	Quote(q Quote) QuotedPrice
}

// NetGrossOracle treats stored prices either as net (tax is added on top) or
// as gross (tax is extracted). Amounts are rounded to 2 decimals.
type NetGrossOracle struct {
	PriceIsNet bool
}

func (o NetGrossOracle) Quote(q Quote) QuotedPrice {
	if o.PriceIsNet {
		net := q.Amount.Round(2)
		tax := net.Mul(q.Rate).Div(hundred).Round(2)
		return QuotedPrice{Gross: net.Add(tax), Net: net, Tax: tax}
	}

	gross := q.Amount.Round(2)
	net := gross.Div(decimal.NewFromInt(1).Add(q.Rate.Div(hundred))).Round(2)
	return QuotedPrice{Gross: gross, Net: net, Tax: gross.Sub(net)}
}

// TaxModifier stamps the acting-user override on every item and, when taxes
// are enabled, re-prices each item through the oracle.
type TaxModifier struct {
	enabled    bool
	categories *domain.TaxCategories
	oracle     PriceOracle
}

// NewTaxModifier builds the modifier. categories may be nil when taxes are disabled.
func NewTaxModifier(enabled bool, categories *domain.TaxCategories, oracle PriceOracle) *TaxModifier {
	if categories == nil {
		categories, _ = domain.ParseTaxCategories("", "")
	}
	if oracle == nil {
		oracle = NetGrossOracle{PriceIsNet: true}
	}
	return &TaxModifier{enabled: enabled, categories: categories, oracle: oracle}
}

func (TaxModifier) Name() string { return "tax" }

func (m TaxModifier) Apply(s Snapshot) Snapshot {
	override := domain.OverrideSelf
	if s.ActingUserID != s.OwnerID {
		override = domain.OverrideCashier
	}

	lines := s.cloneLines()
	for i := range lines {
		l := &lines[i]
		l.UserIDOverride = override
		amount := l.Base.Price.Sub(l.Discount)

		if !m.enabled {
			l.Price = amount
			l.PriceNet = nil
			l.Tax = decimal.Zero
			l.TaxPercentage = decimal.Zero
			l.TaxCategory = l.Base.TaxCategory
			continue
		}

		// Unknown categories resolve to a zero rate.
		rate, code, _ := m.categories.CountryRate(s.Country, l.Base.TaxCategory)
		quoted := m.oracle.Quote(Quote{
			Item:     l.Base,
			Amount:   amount,
			Category: code,
			Country:  s.Country,
			Rate:     rate,
			Override: override,
		})

		net := quoted.Net
		l.Price = quoted.Gross
		l.PriceNet = &net
		l.Tax = quoted.Tax
		l.TaxPercentage = rate
		l.TaxCategory = code
	}

	s.Lines = lines
	s.TaxesEnabled = m.enabled
	s.aggregate()
	return s
}
