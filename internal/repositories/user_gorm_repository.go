package repositories

import (
	"errors"
	"fmt"

	"boutique/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with username %s: %w", username, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// UpdateCart replaces the user's transient cart. The update goes through a
// struct so the cart passes the JSON serializer instead of hitting the SQL
// driver as a raw map; Select forces the write even for an empty cart.
func (r *GORMUserRepository) UpdateCart(userID string, cart map[string]int) error {
	res := r.db.Model(&models.User{ID: userID}).Select("cart").Updates(models.User{Cart: cart})
	if res.Error != nil {
		return fmt.Errorf("failed to update cart for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for cart update: %w", userID, ErrUserNotFound)
	}
	return nil
}

// ClearCart empties the user's transient cart.
func (r *GORMUserRepository) ClearCart(userID string) error {
	return r.UpdateCart(userID, map[string]int{})
}

// AppendOrder adds an order id to the user's order history.
func (r *GORMUserRepository) AppendOrder(userID string, orderID string) error {
	user, err := r.GetByID(userID)
	if err != nil {
		return err
	}
	user.OrderIDs = append(user.OrderIDs, orderID)
	if err := r.db.Model(user).Select("order_ids").Updates(models.User{OrderIDs: user.OrderIDs}).Error; err != nil {
		return fmt.Errorf("failed to append order %s to user %s: %w", orderID, userID, err)
	}
	return nil
}
