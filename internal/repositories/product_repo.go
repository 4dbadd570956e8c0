package repositories

import (
	"errors"

	"boutique/internal/models"
)

// ErrProductNotFound is returned when a product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	// FindByIDs returns the products matching the given ids in a single
	// batched lookup. Unknown ids are simply absent from the result.
	FindByIDs(ids []string) ([]models.Product, error)
	// DecrementStock consumes one unit of stock if any is available. It must
	// be a single atomic conditional write (decrement only where stock > 0);
	// it returns true when a unit was consumed.
	DecrementStock(id string) (bool, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
}
