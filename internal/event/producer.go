package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mayank7677/fragrance-cart-service/internal/domain"
	pkgkafka "github.com/Mayank7677/fragrance-cart-service/pkg/kafka"
)

// Kafka topic constants for cart domain events.
const (
	TopicCartUpdated   = "fragrance.cart.updated"
	TopicCartAbandoned = "fragrance.cart.abandoned"
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from this service.
const SourceCartService = "cart-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	CartID    string         `json:"cart_id"`
	UserID    string         `json:"user_id"`
	Items     []CartItemData `json:"items"`
	ItemCount int            `json:"item_count"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// CartAbandonedData is the payload for a cart.abandoned event.
type CartAbandonedData struct {
	CartID string `json:"cart_id"`
	UserID string `json:"user_id"`
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the cart service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	data := CartUpdatedData{
		CartID:    cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		ItemCount: cart.ItemCount(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.UserID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartAbandoned publishes a cart.abandoned event.
func (p *Producer) PublishCartAbandoned(ctx context.Context, cart *domain.Cart) error {
	data := CartAbandonedData{
		CartID: cart.ID,
		UserID: cart.UserID,
	}

	event, err := pkgkafka.NewEvent(TopicCartAbandoned, cart.UserID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.abandoned event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartAbandoned, event); err != nil {
		return fmt.Errorf("publish cart.abandoned event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.abandoned event",
		slog.String("user_id", cart.UserID),
		slog.String("cart_id", cart.ID),
	)

	return nil
}
