package domain

import "time"

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	// StatusActive is the single mutable cart a user shops with.
	StatusActive CartStatus = "active"
	// StatusAbandoned is reached when the last item is removed. One-way.
	StatusAbandoned CartStatus = "abandoned"
	// StatusCheckedOut is set by the checkout flow, outside this service.
	StatusCheckedOut CartStatus = "checked_out"
)

// Cart is the persisted cart aggregate. Version backs the optimistic
// concurrency check in the store.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Status    CartStatus `json:"status"`
	IsActive  bool       `json:"is_active"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one line in the cart. A cart holds at most one item per
// variant, so the variant ID doubles as the item identity. LineTotal is
// derived from Quantity and UnitPrice and never mutated independently.
type CartItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// FindItem returns the index of the item with the given variant ID, or -1.
func (c *Cart) FindItem(variantID string) int {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// RemoveItemAt deletes the item at index i, preserving insertion order.
func (c *Cart) RemoveItemAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Abandon transitions the cart out of the active state. The transition is
// one-way: an abandoned cart is never reactivated by this service.
func (c *Cart) Abandon() {
	c.Status = StatusAbandoned
	c.IsActive = false
}

// RecalculateLineTotals restores the LineTotal invariant on every item.
// The store calls this right before persisting so a caller that changed a
// quantity without touching the total cannot corrupt the aggregate.
func (c *Cart) RecalculateLineTotals() {
	for i := range c.Items {
		c.Items[i].LineTotal = int64(c.Items[i].Quantity) * c.Items[i].UnitPrice
	}
}

// ItemCount returns the total quantity across all items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
