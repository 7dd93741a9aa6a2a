// Package pricing derives the price and stock a caller should act on from a
// variant snapshot. Pure functions; callers ensure the snapshot is present.
package pricing

import "github.com/Mayank7677/fragrance-cart-service/internal/catalog"

// EffectivePrice returns the discount price when one is set, otherwise the
// list price.
func EffectivePrice(v *catalog.VariantSnapshot) int64 {
	if v.DiscountPrice > 0 {
		return v.DiscountPrice
	}
	return v.Price
}

// EffectiveStock returns the stock ceiling for the variant.
func EffectiveStock(v *catalog.VariantSnapshot) int {
	return v.Stock
}
