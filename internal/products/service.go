package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
)

// MaxImages is the number of image slots accepted by the add form.
const MaxImages = 4

// Service exposes catalog management operations.
type Service interface {
	Add(ctx context.Context, input AddProductInput) (*ProductDTO, error)
	List(ctx context.Context) ([]ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Remove(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
}

// ImageUpload is one image file taken from the add form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// AddProductInput holds the validated payload to create a product.
type AddProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	SubCategory string
	BestSeller  bool
	Sizes       []SizeInput
	Images      []ImageUpload
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	SubCategory *string          `json:"subCategory"`
	BestSeller  *bool            `json:"bestSeller"`
	Sizes       *SizeList        `json:"sizes"`
}

type imageStore interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (gcs.Object, error)
	Delete(ctx context.Context, objectID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the catalog service dependencies.
type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Images imageStore
	Logger *logger.Logger
}

type service struct {
	repo   *Repository
	tx     txRunner
	images imageStore
	logg   *logger.Logger
}

// NewService constructs a product service instance. Images may be nil when uploads
// are disabled; Add then fails with a dependency error.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		images: params.Images,
		logg:   params.Logger,
	}, nil
}

func (s *service) Add(ctx context.Context, input AddProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name and price are required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if len(input.Images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product image is required")
	}
	if len(input.Images) > MaxImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images are allowed", MaxImages))
	}
	sizes, err := buildSizeRows(input.Sizes)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage unavailable")
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product name")
	}

	uploaded := make([]gcs.Object, 0, len(input.Images))
	for _, img := range input.Images {
		obj, err := s.images.Upload(ctx, img.Filename, img.ContentType, img.Body)
		if err != nil {
			s.discardImages(ctx, uploaded)
			if errors.Is(err, gcs.ErrUnsupportedContentType) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported image type")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload product image")
		}
		uploaded = append(uploaded, obj)
	}

	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price.Round(2),
		Category:    strings.TrimSpace(input.Category),
		SubCategory: strings.TrimSpace(input.SubCategory),
		BestSeller:  input.BestSeller,
		Sizes:       sizes,
	}
	for _, obj := range uploaded {
		product.Images = append(product.Images, obj.URL)
		product.ImageIDs = append(product.ImageIDs, obj.ID)
	}

	if _, err := s.repo.Create(ctx, product); err != nil {
		s.discardImages(ctx, uploaded)
		if db.IsUniqueViolation(err, "idx_products_name") || db.IsUniqueViolation(err, "products.name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	dto := FromModel(product)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "load product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	var imageIDs pq.StringArray
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		imageIDs = product.ImageIDs
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return mapNotFound(err, "remove product")
	}

	objs := make([]gcs.Object, 0, len(imageIDs))
	for _, objectID := range imageIDs {
		objs = append(objs, gcs.Object{ID: objectID})
	}
	s.discardImages(ctx, objs)
	return nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var sizes []models.ProductSize
	if input.Sizes != nil {
		rows, err := buildSizeRows(*input.Sizes)
		if err != nil {
			return nil, err
		}
		sizes = rows
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(product, input)
		if err := repo.UpdateFields(ctx, product); err != nil {
			return err
		}
		if input.Sizes != nil {
			if err := repo.ReplaceSizes(ctx, id, sizes); err != nil {
				return err
			}
		}
		updated, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_name") || db.IsUniqueViolation(err, "products.name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
		}
		return nil, mapNotFound(err, "update product")
	}

	dto := FromModel(updated)
	return &dto, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		product.Price = input.Price.Round(2)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.SubCategory != nil {
		product.SubCategory = strings.TrimSpace(*input.SubCategory)
	}
	if input.BestSeller != nil {
		product.BestSeller = *input.BestSeller
	}
}

// discardImages deletes stored objects on a best-effort basis.
func (s *service) discardImages(ctx context.Context, objs []gcs.Object) {
	if s.images == nil || len(objs) == 0 {
		return
	}
	var errs error
	for _, obj := range objs {
		errs = multierr.Append(errs, s.images.Delete(ctx, obj.ID))
	}
	if errs != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("product image cleanup incomplete: %v", errs))
	}
}

func mapNotFound(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
