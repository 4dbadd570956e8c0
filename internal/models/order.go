package models

import "time"

// Order status values. An order starts as pending and may later be accepted
// or rejected by an administrator; it can also stay pending indefinitely.
const (
	OrderStatusPending  = "pending"
	OrderStatusAccepted = "accepted"
	OrderStatusRejected = "rejected"
)

// Address is the shipping address attached to an order.
type Address struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city" validate:"required"`
	Zip    string `json:"zip" validate:"required"`
	Phone  string `json:"phone" validate:"omitempty,max=30"`
	Note   string `json:"note,omitempty"`
}

// Order represents a placed customer order. Once created it is immutable
// except for its status.
//
// ProductIDs is the flattened product list: one entry per purchased unit, so
// a product bought three times appears three times.
type Order struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code       string    `json:"code_order" gorm:"uniqueIndex;type:varchar(100)" validate:"omitempty,min=3,max=100"`
	UserID     string    `json:"user_id" gorm:"index;type:varchar(36)"`
	ProductIDs []string  `json:"products" gorm:"serializer:json"`
	Address    Address   `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status" gorm:"type:varchar(16);default:pending"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
