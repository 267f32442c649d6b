package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// Repository defines persistence operations for the orders and order_items tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, window pagination.Window) ([]models.Order, error)
	SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, stockApplied bool) error
	DeleteUnpaid(ctx context.Context, id uuid.UUID) (bool, error)
}

// PaymentGateway is the hosted checkout provider. *pkgstripe.CheckoutGateway satisfies it.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req pkgstripe.CheckoutRequest) (*pkgstripe.CheckoutSession, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}

// Locker serialises payment verification per order. *redis.Client satisfies it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
