package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

// Line is one priced cart item. Base is never modified by modifiers; every
// other field is recomputed from it on each pass.
type Line struct {
	Base domain.CartItem `json:"-"`

	Component      string           `json:"component"`
	ItemID         int64            `json:"item_id"`
	ItemName       string           `json:"item_name"`
	Description    string           `json:"description"`
	Currency       string           `json:"currency"`
	Price          decimal.Decimal  `json:"price"`
	PriceNet       *decimal.Decimal `json:"price_net,omitempty"`
	Discount       decimal.Decimal  `json:"discount"`
	Tax            decimal.Decimal  `json:"tax"`
	TaxPercentage  decimal.Decimal  `json:"tax_percentage"`
	TaxCategory    string           `json:"tax_category,omitempty"`
	UserIDOverride int              `json:"user_id_override"`
}

func newLine(item domain.CartItem) Line {
	return Line{
		Base:           item,
		Component:      item.Component,
		ItemID:         item.ItemID,
		ItemName:       item.ItemName,
		Description:    item.Description,
		Currency:       item.Currency,
		Price:          item.Price,
		TaxCategory:    item.TaxCategory,
		UserIDOverride: item.UserIDOverride,
	}
}

// Snapshot is the cart as seen by the modifier chain.
type Snapshot struct {
	OwnerID        int64            `json:"user_id"`
	ActingUserID   int64            `json:"-"`
	Lines          []Line           `json:"items"`
	Count          int              `json:"count"`
	Price          decimal.Decimal  `json:"price"`
	PriceNet       *decimal.Decimal `json:"price_net,omitempty"`
	Discount       decimal.Decimal  `json:"discount"`
	Currency       string           `json:"currency"`
	Country        string           `json:"country,omitempty"`
	TaxesEnabled   bool             `json:"taxes_enabled"`
	ExpirationDate time.Time        `json:"expiration_date"`
}

// NewSnapshot builds an unpriced snapshot of the cart for the acting user.
func NewSnapshot(cart *domain.Cart, actingUserID int64) Snapshot {
	items := cart.SortedItems()
	s := Snapshot{
		OwnerID:        cart.UserID,
		ActingUserID:   actingUserID,
		Lines:          make([]Line, 0, len(items)),
		Country:        cart.Country,
		ExpirationDate: cart.ExpirationDate,
	}
	for _, item := range items {
		s.Lines = append(s.Lines, newLine(item))
	}
	s.aggregate()
	return s
}

// Line returns the priced line for the composite key.
func (s Snapshot) Line(component string, itemID int64) (Line, bool) {
	for _, l := range s.Lines {
		if l.Component == component && l.ItemID == itemID {
			return l, true
		}
	}
	return Line{}, false
}

func (s Snapshot) cloneLines() []Line {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return lines
}

func (s *Snapshot) aggregate() {
	s.Count = len(s.Lines)
	s.Price = decimal.Zero
	s.Discount = decimal.Zero
	s.PriceNet = nil
	s.Currency = ""

	var net decimal.Decimal
	for _, l := range s.Lines {
		s.Price = s.Price.Add(l.Price)
		s.Discount = s.Discount.Add(l.Discount)
		if l.PriceNet != nil {
			net = net.Add(*l.PriceNet)
		}
		if s.Currency == "" {
			s.Currency = l.Currency
		}
	}
	if s.TaxesEnabled {
		s.PriceNet = &net
	}
}
