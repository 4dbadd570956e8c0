package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"boutique/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order, enforcing code uniqueness like the storage layer.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.Code == order.Code {
			return fmt.Errorf("order code %s: %w", order.Code, ErrDuplicateOrderCode)
		}
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrOrderNotFound)
	}
	return &order, nil
}

// FindPaged returns one page of orders, newest first.
func (r *MockOrderRepository) FindPaged(userID string, page, limit int) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scoped := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if userID == "" || order.UserID == userID {
			scoped = append(scoped, order)
		}
	}
	sort.Slice(scoped, func(i, j int) bool {
		return scoped[i].CreatedAt.After(scoped[j].CreatedAt)
	})

	total := int64(len(scoped))
	start := (page - 1) * limit
	if start >= len(scoped) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(scoped) {
		end = len(scoped)
	}
	return scoped[start:end], total, nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s not found for status update: %w", id, ErrOrderNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// Delete removes an order by its ID.
func (r *MockOrderRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return fmt.Errorf("order with ID %s not found for deletion: %w", id, ErrOrderNotFound)
	}
	delete(r.orders, id)
	return nil
}

// CountByStatus returns the number of orders per status.
func (r *MockOrderRepository) CountByStatus() (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, order := range r.orders {
		counts[order.Status]++
	}
	return counts, nil
}
