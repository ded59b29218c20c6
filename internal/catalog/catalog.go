// Package catalog exposes the read-only product catalog consumed by the
// cart and checkout. Products are owned by the backing store; this core
// never mutates them.
package catalog

import (
	"context"
	"fmt"

	"github.com/example/storefront/internal/recordstore"
)

const collection = "products"

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
	Category string  `json:"category"`
	Stock    int     `json:"stock"`
}

// Reader is the catalog surface the rest of the core depends on.
type Reader interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

type Client struct {
	records *recordstore.Client
}

func NewClient(records *recordstore.Client) *Client {
	return &Client{records: records}
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.records.List(ctx, collection, nil, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	if err := c.records.Get(ctx, collection, id, &p); err != nil {
		return Product{}, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}
