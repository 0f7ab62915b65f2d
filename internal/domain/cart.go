package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountMode string

const (
	DiscountModeNone     DiscountMode = ""
	DiscountModePercent  DiscountMode = "percent"
	DiscountModeAbsolute DiscountMode = "absolute"
)

// Override markers stamped on items by the tax modifier.
const (
	OverrideSelf    = 0
	OverrideCashier = -1
)

type CartItem struct {
	Component    string          `json:"component"`
	ItemID       int64           `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountMode DiscountMode    `json:"discount_mode,omitempty"`
	// DiscountPercent is the percentage as entered; set only in percent mode.
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxCategory     string          `json:"tax_category,omitempty"`
	UserIDOverride  int             `json:"user_id_override"`
	AddedAt         time.Time       `json:"added_at"`
}

func (i CartItem) Key() string {
	return CompositeKey(i.Component, i.ItemID)
}

// Cart is one user's shopping session. It is void once now is past ExpirationDate.
type Cart struct {
	UserID         int64               `json:"user_id"`
	Items          map[string]CartItem `json:"items"`
	ExpirationDate time.Time           `json:"expiration_date"`
	// Country selects the owner's tax table; empty means the default table.
	Country string `json:"country,omitempty"`
}

func NewCart(userID int64) *Cart {
	return &Cart{
		UserID: userID,
		Items:  make(map[string]CartItem),
	}
}

// IsExpired reports whether the cart is past its expiration date. A cart that
// never had an expiration date set (the empty shape) is never expired.
func (c *Cart) IsExpired(now time.Time) bool {
	if c.ExpirationDate.IsZero() {
		return false
	}
	return now.After(c.ExpirationDate)
}

func (c *Cart) Len() int {
	return len(c.Items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Item(component string, itemID int64) (CartItem, bool) {
	item, ok := c.Items[CompositeKey(component, itemID)]
	return item, ok
}

// Put inserts the item or overwrites the one with the same composite key.
func (c *Cart) Put(item CartItem) {
	if c.Items == nil {
		c.Items = make(map[string]CartItem)
	}
	c.Items[item.Key()] = item
}

// Remove deletes the item and reports whether it was present.
func (c *Cart) Remove(component string, itemID int64) bool {
	key := CompositeKey(component, itemID)
	if _, ok := c.Items[key]; !ok {
		return false
	}
	delete(c.Items, key)
	return true
}

// SortedItems returns the items in insertion order, falling back to the
// composite key for items added at the same instant.
func (c *Cart) SortedItems() []CartItem {
	items := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].Key() < items[j].Key()
	})
	return items
}

// Currency returns the currency shared by the items, or "" for an empty cart.
// mixed is true when the items do not agree.
func (c *Cart) Currency() (currency string, mixed bool) {
	for _, item := range c.Items {
		if currency == "" {
			currency = item.Currency
			continue
		}
		if item.Currency != currency {
			return currency, true
		}
	}
	return currency, false
}

func CompositeKey(component string, itemID int64) string {
	return fmt.Sprintf("%s-%d", component, itemID)
}
