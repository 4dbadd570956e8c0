package repositories

import (
	"errors"

	"boutique/internal/models"
)

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the interface for user data access. It doubles as
// the account directory the order workflow writes to: clearing the transient
// cart and appending placed orders to the user's history.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	UpdateCart(userID string, cart map[string]int) error
	ClearCart(userID string) error
	AppendOrder(userID string, orderID string) error
}
