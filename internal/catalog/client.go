package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/Mayank7677/fragrance-cart-service/pkg/errors"
	"github.com/Mayank7677/fragrance-cart-service/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.BreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client fetches product and variant snapshots from the two upstream
// services. Each upstream sits behind its own circuit breaker; the client
// itself never retries.
type Client struct {
	product      HTTPDoer
	inventory    HTTPDoer
	productURL   string
	inventoryURL string
	logger       *slog.Logger
}

// NewClient creates a gateway client for the product and inventory services.
// Base URLs must not end with a trailing slash.
func NewClient(productURL, inventoryURL string, product, inventory HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		product:      product,
		inventory:    inventory,
		productURL:   strings.TrimRight(productURL, "/"),
		inventoryURL: strings.TrimRight(inventoryURL, "/"),
		logger:       logger,
	}
}

// GetVariant fetches a single variant by ID. An unknown ID maps to
// ErrNotFound; an unreachable or failing upstream maps to ErrServiceUnavail.
func (c *Client) GetVariant(ctx context.Context, id string) (*VariantSnapshot, error) {
	reqURL := c.inventoryURL + "/api/variants/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create variant request: %w", err)
	}

	resp, err := c.inventory.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("inventory service unreachable: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("variant", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "inventory")
	}

	var body struct {
		Variant *VariantSnapshot `json:"variant"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode variant response: %w", err)
	}
	if body.Variant == nil {
		return nil, apperrors.NotFound("variant", id)
	}

	return body.Variant, nil
}

// GetVariantsByIDs batch-fetches variants. IDs are deduplicated before the
// request; IDs unknown upstream are simply absent from the returned map.
func (c *Client) GetVariantsByIDs(ctx context.Context, ids []string) (map[string]VariantSnapshot, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string]VariantSnapshot{}, nil
	}

	reqURL := c.inventoryURL + "/api/variants/all-by-variant-ids?variantIds=" + url.QueryEscape(strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create variants request: %w", err)
	}

	resp, err := c.inventory.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("inventory service unreachable: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "inventory")
	}

	var body struct {
		Variants []VariantSnapshot `json:"variants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode variants response: %w", err)
	}

	result := make(map[string]VariantSnapshot, len(body.Variants))
	for _, v := range body.Variants {
		result[v.ID] = v
	}
	return result, nil
}

// GetProductsByIDs batch-fetches products with the same partial-result
// contract as GetVariantsByIDs.
func (c *Client) GetProductsByIDs(ctx context.Context, ids []string) (map[string]ProductSnapshot, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string]ProductSnapshot{}, nil
	}

	reqURL := c.productURL + "/api/products/all-by-product-ids?productIds=" + url.QueryEscape(strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create products request: %w", err)
	}

	resp, err := c.product.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("product service unreachable: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "product")
	}

	var body struct {
		Products []ProductSnapshot `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode products response: %w", err)
	}

	result := make(map[string]ProductSnapshot, len(body.Products))
	for _, p := range body.Products {
		result[p.ID] = p
	}
	return result, nil
}

// dedupe returns the distinct non-empty IDs, preserving first-seen order so
// request URLs stay deterministic for the same cart.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
