package product

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	SubCategory string    `json:"subCategory"`
	Sizes       []SizeDTO `json:"sizes"`
	Images      []string  `json:"images"`
	BestSeller  bool      `json:"bestSeller"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SizeDTO is one size with its available stock.
type SizeDTO struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// FromModel maps a product and its loaded sizes.
func FromModel(p *models.Product) ProductDTO {
	sizes := make([]SizeDTO, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		sizes = append(sizes, SizeDTO{Size: s.Size, Stock: s.Stock})
	}
	images := append([]string{}, p.Images...)
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Sizes:       sizes,
		Images:      images,
		BestSeller:  p.BestSeller,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
