package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mayank7677/fragrance-cart-service/internal/catalog"
	"github.com/Mayank7677/fragrance-cart-service/internal/domain"
	"github.com/Mayank7677/fragrance-cart-service/internal/pricing"
	"github.com/Mayank7677/fragrance-cart-service/internal/repository"
	apperrors "github.com/Mayank7677/fragrance-cart-service/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart item.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct items allowed in a cart.
	MaxItemsPerCart = 50
)

// maxSaveAttempts bounds the load-modify-save retry loop before giving up
// with a conflict.
const maxSaveAttempts = 3

// CatalogGateway fetches product and variant state from the upstream catalog
// services.
type CatalogGateway interface {
	GetVariant(ctx context.Context, id string) (*catalog.VariantSnapshot, error)
	GetVariantsByIDs(ctx context.Context, ids []string) (map[string]catalog.VariantSnapshot, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]catalog.ProductSnapshot, error)
}

// EventPublisher emits cart domain events. Publish failures never fail the
// originating request.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartAbandoned(ctx context.Context, cart *domain.Cart) error
}

// CartService implements the business logic for cart operations. Every
// mutation is validated against live variant state and written with an
// optimistic version check.
type CartService struct {
	repo     repository.CartRepository
	gateway  CatalogGateway
	producer EventPublisher
	logger   *slog.Logger

	// revalidateStockOnUpdate re-checks available stock when a quantity is
	// raised on an existing line, at the cost of an extra upstream call.
	revalidateStockOnUpdate bool
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, gateway CatalogGateway, producer EventPublisher, logger *slog.Logger, revalidateStockOnUpdate bool) *CartService {
	return &CartService{
		repo:                    repo,
		gateway:                 gateway,
		producer:                producer,
		logger:                  logger,
		revalidateStockOnUpdate: revalidateStockOnUpdate,
	}
}

// GetCart retrieves the user's active cart. A user with no active cart gets
// ErrNotFound rather than an implicitly created empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds a variant to the user's cart, creating the cart if the user
// has none. Adding a variant already in the cart merges quantities and
// re-stamps the line's unit price from the live variant. The requested and
// merged quantities are both checked against available stock.
func (s *CartService) AddItem(ctx context.Context, userID, variantID string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	variant, err := s.gateway.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !variant.IsActive {
		return nil, apperrors.NotFound("variant", variantID)
	}

	price := pricing.EffectivePrice(variant)
	stock := pricing.EffectiveStock(variant)
	if quantity > stock {
		return nil, apperrors.InsufficientStock(fmt.Sprintf("only %d of variant %s available", stock, variantID))
	}

	cart, err := s.mutate(ctx, userID, true, func(cart *domain.Cart) error {
		if i := cart.FindItem(variantID); i >= 0 {
			newQty := cart.Items[i].Quantity + quantity
			if newQty > MaxQuantityPerItem {
				return apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
			}
			if newQty > stock {
				return apperrors.InsufficientStock(fmt.Sprintf("only %d of variant %s available", stock, variantID))
			}
			cart.Items[i].Quantity = newQty
			// Re-stamp the unit price in case it changed upstream.
			cart.Items[i].UnitPrice = price
			return nil
		}

		if len(cart.Items) >= MaxItemsPerCart {
			return apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: variant.ProductID,
			VariantID: variantID,
			Quantity:  quantity,
			UnitPrice: price,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("variant_id", variantID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// UpdateItemQuantity replaces the quantity of an existing cart line. The item
// is addressed by its variant ID. Setting a quantity of zero is rejected;
// removal goes through RemoveItem.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	if s.revalidateStockOnUpdate {
		variant, err := s.gateway.GetVariant(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if stock := pricing.EffectiveStock(variant); quantity > stock {
			return nil, apperrors.InsufficientStock(fmt.Sprintf("only %d of variant %s available", stock, itemID))
		}
	}

	cart, err := s.mutate(ctx, userID, false, func(cart *domain.Cart) error {
		i := cart.FindItem(itemID)
		if i < 0 {
			return apperrors.NotFound("cart item", itemID)
		}
		cart.Items[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes a cart line by its variant ID. Removing the last item
// abandons the cart, freeing the user's active slot.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.mutate(ctx, userID, false, func(cart *domain.Cart) error {
		i := cart.FindItem(itemID)
		if i < 0 {
			return apperrors.NotFound("cart item", itemID)
		}
		cart.RemoveItemAt(i)
		if cart.IsEmpty() {
			cart.Abandon()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cart.Status == domain.StatusAbandoned {
		if err := s.producer.PublishCartAbandoned(ctx, cart); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.abandoned event",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	} else {
		s.publishUpdated(ctx, cart)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// mutate runs the load-modify-save cycle with an optimistic version check,
// retrying on concurrent modification. apply sees the freshly loaded cart on
// every attempt, so it must be safe to run more than once.
func (s *CartService) mutate(ctx context.Context, userID string, createIfMissing bool, apply func(cart *domain.Cart) error) (*domain.Cart, error) {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		cart, err := s.repo.FindActive(ctx, userID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("load cart: %w", err)
			}
			if !createIfMissing {
				return nil, err
			}
			cart = s.newCart(userID)
		}

		expectedVersion := cart.Version

		if err := apply(cart); err != nil {
			return nil, err
		}
		cart.UpdatedAt = time.Now().UTC()

		ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return cart, nil
		}

		s.logger.WarnContext(ctx, "cart version conflict, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}

	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// newCart creates a fresh active cart for the given user. Version 0 makes
// the first save a create.
func (s *CartService) newCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		Status:    domain.StatusActive,
		IsActive:  true,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
