package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/port"
)

//go:embed products.json
var embeddedProducts []byte

type catalogFile struct {
	Coffees []domain.Product `json:"coffees"`
}

// JSONCatalog serves a fixed product list decoded once at startup.
type JSONCatalog struct {
	products []domain.Product
	byID     map[int]int
}

func NewEmbeddedCatalog() (*JSONCatalog, error) {
	return decodeCatalog(embeddedProducts)
}

func NewJSONCatalog(r io.Reader) (*JSONCatalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return decodeCatalog(raw)
}

func NewStaticCatalog(products []domain.Product) (*JSONCatalog, error) {
	c := &JSONCatalog{
		products: products,
		byID:     make(map[int]int, len(products)),
	}
	for i, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

func decodeCatalog(raw []byte) (*JSONCatalog, error) {
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStaticCatalog(file.Coffees)
}

func (c *JSONCatalog) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, port.ErrProductNotFound
	}

	p := c.products[i]
	p.Tags = append([]string(nil), p.Tags...)
	return &p, nil
}

func (c *JSONCatalog) List(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, len(c.products))
	for i, p := range c.products {
		p.Tags = append([]string(nil), p.Tags...)
		out[i] = p
	}
	return out, nil
}
