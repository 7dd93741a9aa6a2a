package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Mayank7677/fragrance-cart-service/internal/catalog"
	"github.com/Mayank7677/fragrance-cart-service/internal/domain"
	"github.com/Mayank7677/fragrance-cart-service/internal/pricing"
)

// Enricher joins a persisted cart with live product and variant data to
// produce the display-ready view. Prices and totals always come from the
// fresh upstream state, never from values stamped into the stored cart.
type Enricher struct {
	gateway CatalogGateway
	logger  *slog.Logger
}

// NewEnricher creates a cart enricher.
func NewEnricher(gateway CatalogGateway, logger *slog.Logger) *Enricher {
	return &Enricher{
		gateway: gateway,
		logger:  logger,
	}
}

// Enrich builds the enriched view of the cart. Product and variant batches
// are fetched in parallel and both must succeed; a failed upstream fails the
// whole enrichment. An item whose product or variant no longer exists keeps
// its slot with a nil join and contributes zero to the totals.
func (e *Enricher) Enrich(ctx context.Context, cart *domain.Cart) (*domain.EnrichedCart, error) {
	variantIDs := make([]string, 0, len(cart.Items))
	productIDs := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		variantIDs = append(variantIDs, item.VariantID)
		productIDs = append(productIDs, item.ProductID)
	}

	var (
		variants map[string]catalog.VariantSnapshot
		products map[string]catalog.ProductSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		variants, err = e.gateway.GetVariantsByIDs(gctx, variantIDs)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = e.gateway.GetProductsByIDs(gctx, productIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich cart: %w", err)
	}

	view := &domain.EnrichedCart{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Status:    cart.Status,
		IsActive:  cart.IsActive,
		Items:     make([]domain.EnrichedCartItem, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}

	for _, item := range cart.Items {
		enriched := domain.EnrichedCartItem{CartItem: item}

		if p, ok := products[item.ProductID]; ok {
			enriched.Product = &domain.ProductInfo{
				ID:           p.ID,
				Name:         p.Name,
				Images:       p.Images,
				Gender:       p.Gender,
				CollectionID: p.CollectionID,
			}
		}

		if v, ok := variants[item.VariantID]; ok {
			enriched.Variant = &domain.VariantInfo{
				ID:            v.ID,
				Size:          v.Size,
				Price:         v.Price,
				DiscountPrice: v.DiscountPrice,
				Stock:         v.Stock,
				IsActive:      v.IsActive,
			}
			enriched.CurrentPrice = pricing.EffectivePrice(&v)
			enriched.OriginalPrice = v.Price

			qty := int64(item.Quantity)
			view.Subtotal += enriched.OriginalPrice * qty
			view.TotalFinalPrice += enriched.CurrentPrice * qty
		} else {
			e.logger.WarnContext(ctx, "cart item variant missing upstream",
				slog.String("cart_id", cart.ID),
				slog.String("variant_id", item.VariantID),
			)
		}

		view.Items = append(view.Items, enriched)
	}

	view.TotalDiscount = view.Subtotal - view.TotalFinalPrice
	view.GrandTotal = view.TotalFinalPrice

	return view, nil
}
