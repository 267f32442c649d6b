package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Stock lives per size in ProductSize rows.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null;uniqueIndex"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Category    string          `gorm:"column:category;not null;default:''"`
	SubCategory string          `gorm:"column:sub_category;not null;default:''"`
	Images      pq.StringArray  `gorm:"column:images;type:text[]"`
	ImageIDs    pq.StringArray  `gorm:"column:image_ids;type:text[]"`
	BestSeller  bool            `gorm:"column:best_seller;not null;default:false"`
	Sizes       []ProductSize   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the identity client-side so sqlite and postgres behave alike.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SizeStock returns the stock row for size, if offered.
func (p *Product) SizeStock(size string) (ProductSize, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s, true
		}
	}
	return ProductSize{}, false
}

// SizeNames lists offered sizes in stored order.
func (p *Product) SizeNames() []string {
	out := make([]string, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		out = append(out, s.Size)
	}
	return out
}
