package domain

import "time"

// EnrichedCart is the display-ready cart view composed from the persisted
// cart and live catalog/inventory data. It is built fresh on every response
// and never persisted.
type EnrichedCart struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Status    CartStatus         `json:"status"`
	IsActive  bool               `json:"is_active"`
	Items     []EnrichedCartItem `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	Subtotal        int64 `json:"subtotal"`
	TotalDiscount   int64 `json:"total_discount"`
	TotalFinalPrice int64 `json:"total_final_price"`
	GrandTotal      int64 `json:"grand_total"`
}

// EnrichedCartItem joins one cart line with its upstream product and variant
// data. Product and Variant are nil when the upstream had no match; the item
// then contributes zero to every cart-level aggregate.
type EnrichedCartItem struct {
	CartItem
	Product       *ProductInfo `json:"product"`
	Variant       *VariantInfo `json:"variant"`
	CurrentPrice  int64        `json:"current_price"`
	OriginalPrice int64        `json:"original_price"`
}

// ProductInfo is the catalog slice of an enriched item.
type ProductInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Images       []string `json:"images"`
	Gender       string   `json:"gender"`
	CollectionID string   `json:"collection_id"`
}

// VariantInfo is the inventory slice of an enriched item.
type VariantInfo struct {
	ID            string `json:"id"`
	Size          string `json:"size"`
	Price         int64  `json:"price"`
	DiscountPrice int64  `json:"discount_price"`
	Stock         int    `json:"stock"`
	IsActive      bool   `json:"is_active"`
}
