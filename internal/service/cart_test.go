package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mayank7677/fragrance-cart-service/internal/catalog"
	"github.com/Mayank7677/fragrance-cart-service/internal/domain"
	apperrors "github.com/Mayank7677/fragrance-cart-service/pkg/errors"
)

// --- Mock Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) FindActive(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

// --- Mock Catalog Gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetVariant(ctx context.Context, id string) (*catalog.VariantSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.VariantSnapshot), args.Error(1)
}

func (m *mockGateway) GetVariantsByIDs(ctx context.Context, ids []string) (map[string]catalog.VariantSnapshot, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]catalog.VariantSnapshot), args.Error(1)
}

func (m *mockGateway) GetProductsByIDs(ctx context.Context, ids []string) (map[string]catalog.ProductSnapshot, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]catalog.ProductSnapshot), args.Error(1)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockPublisher) PublishCartAbandoned(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockCartRepository, gateway *mockGateway, producer *mockPublisher) *CartService {
	return NewCartService(repo, gateway, producer, newTestLogger(), false)
}

func sampleVariant() *catalog.VariantSnapshot {
	return &catalog.VariantSnapshot{
		ID:            "var-1",
		ProductID:     "prod-1",
		Size:          "100ml",
		Price:         10000,
		DiscountPrice: 8000,
		Stock:         10,
		IsActive:      true,
	}
}

func newCartWithItem(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-123",
		UserID: userID,
		Items: []domain.CartItem{
			{
				ProductID: "prod-1",
				VariantID: "var-1",
				Quantity:  2,
				UnitPrice: 8000,
			},
		},
		Status:    domain.StatusActive,
		IsActive:  true,
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ---------------------------------------------------------------------------
// GetCart
// ---------------------------------------------------------------------------

func TestGetCart_Existing(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))
	ctx := context.Background()

	expected := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(expected, nil)

	cart, err := svc.GetCart(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, expected, cart)

	repo.AssertExpectations(t)
}

func TestGetCart_NoActiveCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))
	ctx := context.Background()

	repo.On("FindActive", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.GetCart(ctx, "user-1")

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	repo.AssertExpectations(t)
}

func TestGetCart_EmptyUserID(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))

	cart, err := svc.GetCart(context.Background(), "")

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// AddItem
// ---------------------------------------------------------------------------

func TestAddItem_NewCart(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	producer := new(mockPublisher)
	svc := newTestService(repo, gateway, producer)
	ctx := context.Background()

	gateway.On("GetVariant", ctx, "var-1").Return(sampleVariant(), nil)
	repo.On("FindActive", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 0).Return(true, nil)
	producer.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 2)

	require.NoError(t, err)
	assert.NotEmpty(t, cart.ID)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Equal(t, domain.StatusActive, cart.Status)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod-1", cart.Items[0].ProductID)
	assert.Equal(t, "var-1", cart.Items[0].VariantID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	// Discounted price wins over the list price.
	assert.Equal(t, int64(8000), cart.Items[0].UnitPrice)

	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestAddItem_MergeRestampsPrice(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	producer := new(mockPublisher)
	svc := newTestService(repo, gateway, producer)
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	existing.Items[0].UnitPrice = 9500 // stale price from an earlier add

	variant := sampleVariant()
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)
	producer.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 3)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	// Quantity merged: 2 existing + 3 new.
	assert.Equal(t, 5, cart.Items[0].Quantity)
	// Unit price re-stamped from the live variant.
	assert.Equal(t, int64(8000), cart.Items[0].UnitPrice)

	repo.AssertExpectations(t)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	variant := sampleVariant()
	variant.Stock = 1
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 2)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
}

func TestAddItem_MergeExceedsStock(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	// 2 already in the cart, 3 in stock: a further 2 must be refused.
	existing := newCartWithItem("user-1")
	variant := sampleVariant()
	variant.Stock = 3
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 2)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
}

func TestAddItem_ZeroStock(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	variant := sampleVariant()
	variant.Stock = 0
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 1)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
}

func TestAddItem_InactiveVariant(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	variant := sampleVariant()
	variant.IsActive = false
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 1)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddItem_VariantNotFound(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	gateway.On("GetVariant", ctx, "var-404").Return(nil, apperrors.NotFound("variant", "var-404"))

	cart, err := svc.AddItem(ctx, "user-1", "var-404", 1)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddItem_UpstreamUnavailable(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	gateway.On("GetVariant", ctx, "var-1").Return(nil, apperrors.ServiceUnavailable("inventory service unreachable"))

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 1)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := newTestService(new(mockCartRepository), new(mockGateway), new(mockPublisher))

	cart, err := svc.AddItem(context.Background(), "user-1", "var-1", 0)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_EmptyVariantID(t *testing.T) {
	svc := newTestService(new(mockCartRepository), new(mockGateway), new(mockPublisher))

	cart, err := svc.AddItem(context.Background(), "user-1", "", 1)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_VersionConflictExhaustsRetries(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestService(repo, gateway, new(mockPublisher))
	ctx := context.Background()

	gateway.On("GetVariant", ctx, "var-1").Return(sampleVariant(), nil)
	repo.On("FindActive", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 0).Return(false, nil)

	cart, err := svc.AddItem(ctx, "user-1", "var-1", 1)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertNumberOfCalls(t, "SaveIfVersion", 3)
}

// ---------------------------------------------------------------------------
// UpdateItemQuantity
// ---------------------------------------------------------------------------

func TestUpdateItemQuantity_Success(t *testing.T) {
	repo := new(mockCartRepository)
	producer := new(mockPublisher)
	svc := newTestService(repo, new(mockGateway), producer)
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)
	producer.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "var-1", 5)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	// Unit price survives a quantity update untouched.
	assert.Equal(t, int64(8000), cart.Items[0].UnitPrice)

	repo.AssertExpectations(t)
}

func TestUpdateItemQuantity_ZeroRejected(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))

	cart, err := svc.UpdateItemQuantity(context.Background(), "user-1", "var-1", 0)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything)
}

func TestUpdateItemQuantity_ItemNotFound(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "var-999", 5)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	repo.AssertExpectations(t)
}

func TestUpdateItemQuantity_CartNotFound(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))
	ctx := context.Background()

	repo.On("FindActive", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "var-1", 5)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateItemQuantity_RevalidatesStockWhenEnabled(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := NewCartService(repo, gateway, new(mockPublisher), newTestLogger(), true)
	ctx := context.Background()

	variant := sampleVariant()
	variant.Stock = 4
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "var-1", 5)

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertExpectations(t)
}

func TestUpdateItemQuantity_NoStockCheckByDefault(t *testing.T) {
	repo := new(mockCartRepository)
	gateway := new(mockGateway)
	producer := new(mockPublisher)
	svc := newTestService(repo, gateway, producer)
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)
	producer.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	_, err := svc.UpdateItemQuantity(ctx, "user-1", "var-1", 50)

	require.NoError(t, err)
	gateway.AssertNotCalled(t, "GetVariant", mock.Anything, mock.Anything)
}

// ---------------------------------------------------------------------------
// RemoveItem
// ---------------------------------------------------------------------------

func TestRemoveItem_Success(t *testing.T) {
	repo := new(mockCartRepository)
	producer := new(mockPublisher)
	svc := newTestService(repo, new(mockGateway), producer)
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	existing.Items = append(existing.Items, domain.CartItem{
		ProductID: "prod-2",
		VariantID: "var-2",
		Quantity:  1,
		UnitPrice: 4500,
	})
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)
	producer.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.RemoveItem(ctx, "user-1", "var-1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, cart.Status)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "var-2", cart.Items[0].VariantID)

	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestRemoveItem_LastItemAbandonsCart(t *testing.T) {
	repo := new(mockCartRepository)
	producer := new(mockPublisher)
	svc := newTestService(repo, new(mockGateway), producer)
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)
	producer.On("PublishCartAbandoned", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.RemoveItem(ctx, "user-1", "var-1")

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, domain.StatusAbandoned, cart.Status)
	assert.False(t, cart.IsActive)

	producer.AssertNotCalled(t, "PublishCartUpdated", mock.Anything, mock.Anything)
	producer.AssertExpectations(t)
}

func TestRemoveItem_NotFound(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)

	cart, err := svc.RemoveItem(ctx, "user-1", "var-999")

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveItem_CartNotFound(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo, new(mockGateway), new(mockPublisher))
	ctx := context.Background()

	repo.On("FindActive", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.RemoveItem(ctx, "user-1", "var-1")

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveItem_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := new(mockCartRepository)
	producer := new(mockPublisher)
	svc := newTestService(repo, new(mockGateway), producer)
	ctx := context.Background()

	existing := newCartWithItem("user-1")
	repo.On("FindActive", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(true, nil)
	producer.On("PublishCartAbandoned", ctx, mock.AnythingOfType("*domain.Cart")).Return(assert.AnError)

	cart, err := svc.RemoveItem(ctx, "user-1", "var-1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, cart.Status)
}

// ---------------------------------------------------------------------------
// Additive stock gate across successive adds
// ---------------------------------------------------------------------------

// memoryCartRepository mirrors the Redis repository's contract in memory so a
// sequence of mutations can be driven through real state: version-checked
// writes, line-total recompute, and a deep copy per save.
type memoryCartRepository struct {
	stored *domain.Cart
}

func (m *memoryCartRepository) FindActive(ctx context.Context, userID string) (*domain.Cart, error) {
	if m.stored == nil || m.stored.UserID != userID {
		return nil, apperrors.NotFound("cart", userID)
	}
	cp := *m.stored
	cp.Items = append([]domain.CartItem(nil), m.stored.Items...)
	return &cp, nil
}

func (m *memoryCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	if m.stored == nil {
		if expectedVersion != 0 {
			return false, nil
		}
	} else if m.stored.Version != expectedVersion {
		return false, nil
	}

	cart.RecalculateLineTotals()
	cart.Version = expectedVersion + 1

	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	m.stored = &cp
	return true, nil
}

func TestAddItem_AdditiveQuantityAgainstStock(t *testing.T) {
	repo := &memoryCartRepository{}
	gateway := new(mockGateway)
	producer := new(mockPublisher)
	svc := NewCartService(repo, gateway, producer, newTestLogger(), false)
	ctx := context.Background()

	variant := sampleVariant()
	variant.Stock = 3
	gateway.On("GetVariant", ctx, "var-1").Return(variant, nil)
	producer.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil).Maybe()

	// First add fits within stock.
	cart, err := svc.AddItem(ctx, "user-1", "var-1", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(16000), cart.Items[0].LineTotal)

	// A further 2 would take the merged quantity past stock; the stored
	// line must be untouched.
	cart, err = svc.AddItem(ctx, "user-1", "var-1", 2)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)

	stored, err := repo.FindActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, int64(16000), stored.Items[0].LineTotal)

	// Topping up to exactly the stock level is allowed.
	cart, err = svc.AddItem(ctx, "user-1", "var-1", 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, int64(24000), cart.Items[0].LineTotal)
}
