package models

import "github.com/google/uuid"

// ProductSize holds the sellable stock for one (product, size) pair.
type ProductSize struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Size      string    `gorm:"column:size;primaryKey"`
	Stock     int       `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	Position  int       `gorm:"column:position;not null;default:0"`
}
