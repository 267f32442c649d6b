package product

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// LowStockRow is a (product, size) pair at or under a stock threshold.
type LowStockRow struct {
	ProductID   uuid.UUID
	ProductName string
	Size        string
	Stock       int
}

func orderedSizes(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, size ASC")
}

// Create inserts the product together with its size rows.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product with its sizes.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Sizes", orderedSizes).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByName loads a product by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the requested products with sizes, keyed by id. Missing ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Sizes", orderedSizes).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// List returns every product with sizes, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Sizes", orderedSizes).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields writes the scalar catalog columns of product.
func (r *Repository) UpdateFields(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":         product.Name,
			"description":  product.Description,
			"price":        product.Price,
			"category":     product.Category,
			"sub_category": product.SubCategory,
			"best_seller":  product.BestSeller,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// ReplaceSizes swaps the size rows of a product for the provided set.
func (r *Repository) ReplaceSizes(ctx context.Context, productID uuid.UUID, sizes []models.ProductSize) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductSize{}).Error; err != nil {
		return err
	}
	if len(sizes) == 0 {
		return nil
	}
	for i := range sizes {
		sizes[i].ProductID = productID
	}
	return tx.Create(&sizes).Error
}

// Delete removes the product, its sizes and any cart entries that reference it.
// gorm.ErrRecordNotFound is returned when no product matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductSize{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock subtracts qty from the (product, size) row only if enough stock remains.
// It reports false, with no change, when the row is missing or short.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, size string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductSize{}).
		Where("product_id = ? AND size = ? AND stock >= ?", productID, size, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock adds qty back to the (product, size) row. It reports false when
// the row no longer exists.
func (r *Repository) IncrementStock(ctx context.Context, productID uuid.UUID, size string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductSize{}).
		Where("product_id = ? AND size = ?", productID, size).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetStock upserts an absolute stock level for a (product, size) pair.
func (r *Repository) SetStock(ctx context.Context, productID uuid.UUID, size string, stock int) error {
	row := models.ProductSize{ProductID: productID, Size: size, Stock: stock}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "size"}},
			DoUpdates: clause.AssignmentColumns([]string{"stock"}),
		}).
		Create(&row).Error
}

// ListLowStock returns size rows whose stock is at or below threshold.
func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := r.db.WithContext(ctx).
		Table("product_sizes AS ps").
		Select("ps.product_id AS product_id, p.name AS product_name, ps.size AS size, ps.stock AS stock").
		Joins("JOIN products p ON p.id = ps.product_id").
		Where("ps.stock <= ?", threshold).
		Order("ps.stock ASC, p.name ASC, ps.size ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
