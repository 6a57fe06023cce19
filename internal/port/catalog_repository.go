package port

import (
	"context"
	"errors"

	"github.com/rl1809/coffee-cart/internal/core/domain"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogRepository interface {
	// FindByID looks up a product, returns ErrProductNotFound when absent
	FindByID(ctx context.Context, id int) (*domain.Product, error)

	// List returns every product in catalog order
	List(ctx context.Context) ([]domain.Product, error)
}
