package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists shopper and admin accounts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the account described by dto. Duplicate emails surface as a
// unique violation from the driver.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	return create(r.db.WithContext(ctx), dto)
}

// FindByEmail looks up an address as stored; callers normalize first.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return take(r.db.WithContext(ctx), "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return take(r.db.WithContext(ctx), "id = ?", id)
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("password_hash", hash).Error
}

// ProvisionAdmin makes dto.Email an admin with dto.PasswordHash, creating the
// account when the address is new. created reports which path ran.
func (r *Repository) ProvisionAdmin(ctx context.Context, dto CreateUserDTO) (user *models.User, created bool, err error) {
	dto.Role = enums.UserRoleAdmin
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := take(tx, "email = ?", NormalizeEmail(dto.Email))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user, err = create(tx, dto)
			created = err == nil
			return err
		}
		if err != nil {
			return err
		}
		if err := tx.Model(existing).Updates(map[string]any{
			"password_hash": dto.PasswordHash,
			"role":          dto.Role,
		}).Error; err != nil {
			return err
		}
		user = existing
		return nil
	})
	return user, created, err
}

func create(tx *gorm.DB, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := tx.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func take(tx *gorm.DB, cond string, arg any) (*models.User, error) {
	var user models.User
	if err := tx.Where(cond, arg).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
