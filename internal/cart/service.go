package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Service mutates a user's cart against live stock.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	Remove(ctx context.Context, userID uuid.UUID, input RemoveItemInput) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context, userID uuid.UUID) (*CountDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the cart service dependencies.
type ServiceParams struct {
	Repo     *Repository
	Products *product.Repository
	Tx       txRunner
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	products *product.Repository
	tx       txRunner
	logg     *logger.Logger
}

// NewService constructs the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	qty := 1
	if input.Quantity != nil {
		qty = *input.Quantity
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	size := strings.TrimSpace(input.Size)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		p, err := products.FindByID(ctx, input.ProductID)
		if err != nil {
			return notFound(err, "product not found")
		}
		if err := checkSizeOffered(p, size); err != nil {
			return err
		}

		merged, err := s.repo.WithTx(tx).AddQuantity(ctx, userID, input.ProductID, size, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		return checkStock(p, size, merged.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}

	out := &CartDTO{Items: make([]ItemDTO, 0, len(rows))}
	var dangling []uuid.UUID
	for _, row := range rows {
		p, ok := catalog[row.ProductID]
		if !ok {
			dangling = append(dangling, row.ID)
			continue
		}
		out.Items = append(out.Items, itemFromModels(row, p))
	}
	out.CartCount = len(out.Items)

	if len(dangling) > 0 {
		if err := s.repo.DeleteByIDs(ctx, dangling); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.prune_failed")
		}
	}
	return out, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil || input.Quantity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and quantity are required")
	}
	qty := *input.Quantity
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	size := strings.TrimSpace(input.Size)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if qty == 0 {
			n, err := repo.Remove(ctx, userID, input.ProductID, size, false)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
			}
			if n == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
			}
			return nil
		}

		if _, err := repo.Find(ctx, userID, input.ProductID, size); err != nil {
			return notFound(err, "item not found in cart")
		}
		p, err := s.products.WithTx(tx).FindByID(ctx, input.ProductID)
		if err != nil {
			return notFound(err, "product not found")
		}
		if err := checkSizeOffered(p, size); err != nil {
			return err
		}
		if err := checkStock(p, size, qty); err != nil {
			return err
		}
		found, err := repo.SetQuantity(ctx, userID, input.ProductID, size, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID uuid.UUID, input RemoveItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	size := strings.TrimSpace(input.Size)
	n, err := s.repo.Remove(ctx, userID, input.ProductID, size, size == "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) Count(ctx context.Context, userID uuid.UUID) (*CountDTO, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &CountDTO{UniqueItems: len(cart.Items)}
	for _, item := range cart.Items {
		out.Count += item.Quantity
	}
	return out, nil
}

func checkSizeOffered(p *models.Product, size string) error {
	if size == "" {
		return nil
	}
	if _, ok := p.SizeStock(size); !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidSize, "invalid size selected").
			WithDetails(map[string]any{"productId": p.ID, "size": size, "available": p.SizeNames()})
	}
	return nil
}

func checkStock(p *models.Product, size string, qty int) error {
	if size == "" {
		return nil
	}
	row, _ := p.SizeStock(size)
	if qty > row.Stock {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("only %d items available in size %s", row.Stock, size)).
			WithDetails(map[string]any{"productId": p.ID, "size": size, "requested": qty, "available": row.Stock})
	}
	return nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
