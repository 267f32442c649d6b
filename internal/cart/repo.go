package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists cart entries keyed by (user, product, size).
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListByUser returns the user's entries in insertion order.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Find returns the single entry for (user, product, size).
func (r *Repository) Find(ctx context.Context, userID, productID uuid.UUID, size string) (*models.CartItem, error) {
	var row models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND size = ?", userID, productID, size).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// AddQuantity inserts the entry or merges qty into the existing one, returning the merged row.
func (r *Repository) AddQuantity(ctx context.Context, userID, productID uuid.UUID, size string, qty int) (*models.CartItem, error) {
	now := time.Now().UTC()
	row := models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Size:      size,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "size"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": now,
			}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, userID, productID, size)
}

// SetQuantity overwrites the quantity of an existing entry. It reports false when no entry matched.
func (r *Repository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, size string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ? AND size = ?", userID, productID, size).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Remove deletes the entry for (user, product, size), or every entry for the product
// when size is empty. It returns the number of deleted rows.
func (r *Repository) Remove(ctx context.Context, userID, productID uuid.UUID, size string, allSizes bool) (int64, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID)
	if !allSizes {
		q = q.Where("size = ?", size)
	}
	res := q.Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteByIDs drops specific entries, used when pruning dangling references.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartItem{}).Error
}

// Clear removes every entry for the user.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
