package services

import (
	"fmt"

	"boutique/internal/models"
	"boutique/internal/repositories"
)

// UserService handles profile and cart logic for the account directory.
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetProfile returns the user without their password hash.
func (s *UserService) GetProfile(userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// GetCart returns the user's transient cart.
func (s *UserService) GetCart(userID string) (map[string]int, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Cart == nil {
		return map[string]int{}, nil
	}
	return user.Cart, nil
}

// AddToCart merges a product into the user's cart.
func (s *UserService) AddToCart(userID, productID string, quantity int) (map[string]int, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	cart := user.Cart
	if cart == nil {
		cart = map[string]int{}
	}
	cart[productID] += quantity
	if err := s.userRepo.UpdateCart(userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveFromCart drops a product from the user's cart.
func (s *UserService) RemoveFromCart(userID, productID string) (map[string]int, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	cart := user.Cart
	if cart == nil {
		cart = map[string]int{}
	}
	delete(cart, productID)
	if err := s.userRepo.UpdateCart(userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
