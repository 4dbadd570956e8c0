package repositories

import (
	"errors"

	"boutique/internal/models"
)

// Sentinel errors surfaced by order repositories.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateOrderCode = errors.New("order code already exists")
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create persists a new order. A code collision surfaces as
	// ErrDuplicateOrderCode.
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	// FindPaged returns one page of orders, newest first, along with the
	// total count for the same scope. An empty userID means all users.
	FindPaged(userID string, page, limit int) ([]models.Order, int64, error)
	UpdateStatus(id string, status string) error
	Delete(id string) error
	// CountByStatus returns the number of orders per status. Statuses with
	// no orders are absent from the map.
	CountByStatus() (map[string]int64, error)
}
