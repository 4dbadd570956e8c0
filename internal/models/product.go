package models

import "gorm.io/gorm"

// Product represents a product in the catalog.
type Product struct {
	ID          string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string   `json:"name" validate:"required,min=3,max=100"`
	Description string   `json:"desc" validate:"omitempty,max=500"`
	Price       float64  `json:"price" validate:"required,gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Images      []string `json:"images" gorm:"serializer:json"`
	gorm.Model           // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
