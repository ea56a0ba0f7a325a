package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockwatch-service/pkg/config"

	"go.uber.org/zap"
)

// Client is a typed client for the shops' GraphQL admin API. It is read-only
// for the paged queries and issues the tag/status mutations used by
// deactivation and reactivation. Every call carries a bounded timeout via the
// underlying HTTP client; a timeout surfaces as an ordinary error that
// callers treat as "stop paging, keep what we have".
type Client struct {
	httpClient *http.Client
	apiVersion string
	scheme     string
	pageSize   int
	log        *zap.Logger
}

// NewClient creates a catalog client. pageSize bounds the paged zero-stock
// query.
func NewClient(cfg *config.CatalogConfig, pageSize int, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiVersion: cfg.APIVersion,
		scheme:     cfg.Scheme,
		pageSize:   pageSize,
		log:        log,
	}
}

const zeroStockQuery = `query zeroStockActiveProducts($query: String!, $first: Int!, $after: String) {
  products(first: $first, after: $after, query: $query) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      title
      status
      tags
      productType
      category { name }
      featuredMedia { preview { image { url } } }
      variants(first: 100) {
        nodes {
          sku
          inventoryQuantity
          inventoryItem {
            id
            tracked
            inventoryLevels(first: 10) { nodes { updatedAt } }
          }
        }
      }
    }
  }
}`

const inventoryItemQuery = `query inventoryItemProduct($id: ID!) {
  inventoryItem(id: $id) {
    variant {
      sku
      product { id title status tags }
    }
  }
}`

const addTagsMutation = `mutation addTags($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    userErrors { field message }
  }
}`

const setStatusMutation = `mutation setStatus($input: ProductInput!) {
  productUpdate(input: $input) {
    userErrors { field message }
  }
}`

const reactivateMutation = `mutation reactivateProduct($id: ID!, $tags: [String!]!, $input: ProductInput!) {
  tagsRemove(id: $id, tags: $tags) {
    userErrors { field message }
  }
  productUpdate(input: $input) {
    userErrors { field message }
  }
}`

// ZeroStockActivePage fetches one page of currently-active products whose
// total inventory is at or below zero, with variant-level inventory detail.
// An empty cursor fetches the first page.
func (c *Client) ZeroStockActivePage(ctx context.Context, shop Shop, cursor string) (*Page, error) {
	variables := map[string]interface{}{
		"query": "status:active inventory_total:<=0",
		"first": c.pageSize,
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	var resp struct {
		Products struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []productNode `json:"nodes"`
		} `json:"products"`
	}
	if err := c.execute(ctx, shop, zeroStockQuery, variables, &resp); err != nil {
		return nil, fmt.Errorf("zero-stock page fetch for %s: %w", shop.Domain, err)
	}

	page := &Page{
		EndCursor:   resp.Products.PageInfo.EndCursor,
		HasNextPage: resp.Products.PageInfo.HasNextPage,
	}
	for _, node := range resp.Products.Nodes {
		page.Products = append(page.Products, node.toProduct())
	}
	return page, nil
}

// ProductByInventoryItem resolves an inventory item to its owning product.
// Returns nil (and no error) when the item or its product no longer exists.
func (c *Client) ProductByInventoryItem(ctx context.Context, shop Shop, inventoryItemID string) (*ProductRef, error) {
	variables := map[string]interface{}{
		"id": InventoryItemGID(inventoryItemID),
	}

	var resp struct {
		InventoryItem *struct {
			Variant *struct {
				SKU     string `json:"sku"`
				Product *struct {
					ID     string   `json:"id"`
					Title  string   `json:"title"`
					Status string   `json:"status"`
					Tags   []string `json:"tags"`
				} `json:"product"`
			} `json:"variant"`
		} `json:"inventoryItem"`
	}
	if err := c.execute(ctx, shop, inventoryItemQuery, variables, &resp); err != nil {
		return nil, fmt.Errorf("inventory item lookup for %s: %w", shop.Domain, err)
	}

	if resp.InventoryItem == nil || resp.InventoryItem.Variant == nil || resp.InventoryItem.Variant.Product == nil {
		return nil, nil
	}

	product := resp.InventoryItem.Variant.Product
	return &ProductRef{
		ID:     product.ID,
		Title:  product.Title,
		Status: product.Status,
		Tags:   product.Tags,
		SKU:    resp.InventoryItem.Variant.SKU,
	}, nil
}

// AddTags attaches tags to a product.
func (c *Client) AddTags(ctx context.Context, shop Shop, productID string, tags []string) error {
	variables := map[string]interface{}{"id": productID, "tags": tags}

	var resp struct {
		TagsAdd struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"tagsAdd"`
	}
	if err := c.execute(ctx, shop, addTagsMutation, variables, &resp); err != nil {
		return fmt.Errorf("add tags to %s: %w", productID, err)
	}
	if err := firstUserError(resp.TagsAdd.UserErrors); err != nil {
		return fmt.Errorf("add tags to %s: %w", productID, err)
	}
	return nil
}

// SetStatus updates a product's sales status (ACTIVE or DRAFT).
func (c *Client) SetStatus(ctx context.Context, shop Shop, productID, status string) error {
	variables := map[string]interface{}{
		"input": map[string]interface{}{"id": productID, "status": status},
	}

	var resp struct {
		ProductUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := c.execute(ctx, shop, setStatusMutation, variables, &resp); err != nil {
		return fmt.Errorf("set status of %s: %w", productID, err)
	}
	if err := firstUserError(resp.ProductUpdate.UserErrors); err != nil {
		return fmt.Errorf("set status of %s: %w", productID, err)
	}
	return nil
}

// ReactivateProduct removes the given tags and sets the product back to
// ACTIVE in a single combined request, so the marker removal and the status
// change land together.
func (c *Client) ReactivateProduct(ctx context.Context, shop Shop, productID string, tags []string) error {
	variables := map[string]interface{}{
		"id":    productID,
		"tags":  tags,
		"input": map[string]interface{}{"id": productID, "status": StatusActive},
	}

	var resp struct {
		TagsRemove struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"tagsRemove"`
		ProductUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := c.execute(ctx, shop, reactivateMutation, variables, &resp); err != nil {
		return fmt.Errorf("reactivate %s: %w", productID, err)
	}
	if err := firstUserError(resp.TagsRemove.UserErrors); err != nil {
		return fmt.Errorf("reactivate %s: %w", productID, err)
	}
	if err := firstUserError(resp.ProductUpdate.UserErrors); err != nil {
		return fmt.Errorf("reactivate %s: %w", productID, err)
	}
	return nil
}

// InventoryItemGID converts a bare numeric inventory item ID, as delivered by
// webhooks, into the admin API's global ID form. IDs already in global form
// pass through unchanged.
func InventoryItemGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/InventoryItem/" + id
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func firstUserError(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("user error: %s", errs[0].Message)
}

// execute posts one GraphQL request and decodes the data envelope into out.
func (c *Client) execute(ctx context.Context, shop Shop, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s://%s/admin/api/%s/graphql.json", c.scheme, shop.Domain, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", shop.AccessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Catalog request failed",
			zap.String("shop", shop.Domain),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("Catalog request returned error status",
			zap.String("shop", shop.Domain),
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)))
		return fmt.Errorf("catalog request failed: %d %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("malformed catalog response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("catalog query error: %s", envelope.Errors[0].Message)
	}
	if envelope.Data == nil {
		return fmt.Errorf("catalog response missing data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("malformed catalog response: %w", err)
	}

	c.log.Debug("Catalog request completed",
		zap.String("shop", shop.Domain),
		zap.Duration("latency", time.Since(start)))
	return nil
}
