package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// AddItemInput is the add-to-cart payload.
type AddItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size"`
	Quantity  *int      `json:"quantity"`
}

// UpdateItemInput sets an entry's quantity; zero removes it.
type UpdateItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size"`
	Quantity  *int      `json:"quantity" validate:"required"`
}

// RemoveItemInput removes one entry, or every entry for the product when Size is empty.
type RemoveItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size"`
}

// ItemDTO is a cart entry joined with live product data.
type ItemDTO struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Image     string    `json:"image,omitempty"`
	Size      string    `json:"size,omitempty"`
	Quantity  int       `json:"quantity"`
	Available *int      `json:"available,omitempty"`
}

// CartDTO is the populated cart returned by every cart mutation.
type CartDTO struct {
	Items     []ItemDTO `json:"cartData"`
	CartCount int       `json:"cartCount"`
}

// CountDTO summarises the cart for badges.
type CountDTO struct {
	Count       int `json:"count"`
	UniqueItems int `json:"uniqueItems"`
}

func itemFromModels(item models.CartItem, product *models.Product) ItemDTO {
	dto := ItemDTO{
		ProductID: item.ProductID,
		Name:      product.Name,
		Price:     product.Price.InexactFloat64(),
		Size:      item.Size,
		Quantity:  item.Quantity,
	}
	if len(product.Images) > 0 {
		dto.Image = product.Images[0]
	}
	if item.Size != "" {
		if row, ok := product.SizeStock(item.Size); ok {
			stock := row.Stock
			dto.Available = &stock
		}
	}
	return dto
}
