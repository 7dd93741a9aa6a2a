package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mayank7677/fragrance-cart-service/internal/domain"
	apperrors "github.com/Mayank7677/fragrance-cart-service/pkg/errors"
)

const (
	activeKeyPrefix   = "cart:active:"
	archivedKeyPrefix = "cart:archived:"
)

// saveScript performs the version-checked write. It compares the version
// stored in the current JSON document against the expected version and, on
// match, writes the new document. A non-active cart is moved from the active
// slot to its archive key in the same script, which keeps the
// one-active-cart-per-user invariant atomic.
var saveScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
if current then
  local stored = cjson.decode(current)
  if tonumber(stored['version']) ~= expected then
    return 0
  end
elseif expected ~= 0 then
  return 0
end
if ARGV[3] == 'active' then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[4])
else
  redis.call('DEL', KEYS[1])
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
end
return 1
`)

// CartRepository implements repository.CartRepository on Redis. The active
// cart lives at cart:active:{userID}; carts that leave the active state are
// parked at cart:archived:{cartID}.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository. Documents expire
// after ttl to keep stale carts from accumulating.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// FindActive returns the user's active cart, or ErrNotFound.
func (r *CartRepository) FindActive(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, activeKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Status != domain.StatusActive {
		return nil, apperrors.NotFound("cart", userID)
	}

	return &cart, nil
}

// Save persists the cart unconditionally at its active key, bypassing the
// version gate. It is not part of the CartRepository interface: request
// handling always goes through SaveIfVersion, and Save exists for seeding
// and administrative rewrites where the version check would get in the way.
// Line totals are recomputed from quantity and unit price before the write.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	cart.RecalculateLineTotals()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, activeKeyPrefix+cart.UserID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// SaveIfVersion persists the cart only when the stored document still holds
// expectedVersion. Line totals are recomputed before marshaling, and the
// cart's Version is stamped to expectedVersion+1 on success.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	cart.RecalculateLineTotals()
	cart.Version = expectedVersion + 1

	data, err := json.Marshal(cart)
	if err != nil {
		cart.Version = expectedVersion
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	keys := []string{activeKeyPrefix + cart.UserID, archivedKeyPrefix + cart.ID}
	argv := []any{expectedVersion, string(data), string(cart.Status), r.ttl.Milliseconds()}

	res, err := saveScript.Run(ctx, r.client, keys, argv...).Int()
	if err != nil {
		cart.Version = expectedVersion
		return false, fmt.Errorf("redis save cart: %w", err)
	}
	if res == 0 {
		cart.Version = expectedVersion
		return false, nil
	}

	return true, nil
}
