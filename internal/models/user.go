package models

import "gorm.io/gorm"

// User roles. Administrators see every order; regular users only their own.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a customer (or administrator) of the store.
//
// Cart holds the transient cart as a product-id to quantity mapping; it is
// cleared when an order is placed. OrderIDs is the user's order history.
type User struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username   string         `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email      string         `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password   string         `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	FullName   string         `json:"full_name" validate:"omitempty,max=200"`
	Phone      string         `json:"phone" validate:"omitempty,max=30"`
	Role       string         `json:"role" gorm:"type:varchar(16);default:user" validate:"omitempty,oneof=user admin"`
	Cart       map[string]int `json:"carts" gorm:"serializer:json"`
	OrderIDs   []string       `json:"orders" gorm:"serializer:json"`
	gorm.Model                // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// DisplayName returns the name used in customer-facing messages.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
