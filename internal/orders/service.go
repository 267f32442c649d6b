package orders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	verifyLockPrefix = "order-verify:"
	deliveryLineName = "Delivery Charges"
	defaultLockTTL   = 30 * time.Second
)

// Service places orders, confirms gateway payments and drives the status machine.
type Service interface {
	PlaceCOD(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderDTO, error)
	PlaceGateway(ctx context.Context, userID uuid.UUID, input PlaceOrderInput, origin string) (*GatewaySessionDTO, error)
	Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	ListUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	ListAll(ctx context.Context, params pagination.Params) (*OrderList, error)
}

// ServiceParams bundles the order service dependencies. Gateway, Locker and
// Metrics are optional.
type ServiceParams struct {
	Repo           Repository
	Products       *product.Repository
	Cart           *cart.Repository
	Tx             txRunner
	Gateway        PaymentGateway
	Locker         Locker
	Metrics        *metrics.OrderMetrics
	Logger         *logger.Logger
	DeliveryFee    decimal.Decimal
	Currency       string
	FrontendURL    string
	VerifyLockTTL  time.Duration
	// GatewayTimeout bounds each gateway call; zero leaves only the request deadline.
	GatewayTimeout time.Duration
	Now            func() time.Time
}

type service struct {
	repo           Repository
	products       *product.Repository
	cart           *cart.Repository
	tx             txRunner
	gateway        PaymentGateway
	locker         Locker
	metrics        *metrics.OrderMetrics
	logg           *logger.Logger
	deliveryFee    decimal.Decimal
	currency       string
	frontendURL    string
	verifyLockTTL  time.Duration
	gatewayTimeout time.Duration
	now            func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.DeliveryFee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must be non-negative")
	}
	ttl := params.VerifyLockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:           params.Repo,
		products:       params.Products,
		cart:           params.Cart,
		tx:             params.Tx,
		gateway:        params.Gateway,
		locker:         params.Locker,
		metrics:        params.Metrics,
		logg:           params.Logger,
		deliveryFee:    params.DeliveryFee,
		currency:       params.Currency,
		frontendURL:    strings.TrimRight(params.FrontendURL, "/"),
		verifyLockTTL:  ttl,
		gatewayTimeout: params.GatewayTimeout,
		now:            now,
	}, nil
}

func (s *service) PlaceCOD(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderDTO, error) {
	order, err := s.prepareOrder(ctx, userID, input, enums.PaymentMethodCOD)
	if err != nil {
		s.metrics.IncRejected(string(codeOf(err)))
		return nil, err
	}
	order.Status = enums.OrderStatusOrderPlaced
	order.StockApplied = true

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := s.applyStock(ctx, tx, order.Items); err != nil {
			return err
		}
		if err := s.cart.WithTx(tx).Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncRejected(string(codeOf(err)))
		return nil, err
	}

	s.metrics.IncPlaced(string(enums.PaymentMethodCOD))
	s.metrics.AddStockDecremented(totalUnits(order.Items))
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order.placed_cod")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) PlaceGateway(ctx context.Context, userID uuid.UUID, input PlaceOrderInput, origin string) (*GatewaySessionDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "online payments are unavailable")
	}
	order, err := s.prepareOrder(ctx, userID, input, enums.PaymentMethodStripe)
	if err != nil {
		s.metrics.IncRejected(string(codeOf(err)))
		return nil, err
	}
	order.Status = enums.OrderStatusPendingPayment
	order.StockApplied = false

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	base := s.returnBase(origin)
	req := pkgstripe.CheckoutRequest{
		OrderID:    order.ID,
		Currency:   s.currency,
		Lines:      checkoutLines(order),
		SuccessURL: verifyURL(base, order.ID, true),
		CancelURL:  verifyURL(base, order.ID, false),
	}
	gctx, cancel := s.gatewayContext(ctx)
	sess, err := s.gateway.CreateSession(gctx, req)
	cancel()
	if err == nil {
		err = s.repo.SetGatewaySession(ctx, order.ID, sess.ID)
	}
	if err != nil {
		if _, delErr := s.repo.DeleteUnpaid(ctx, order.ID); delErr != nil {
			err = multierr.Append(err, fmt.Errorf("discard pending order: %w", delErr))
		}
		s.metrics.IncRejected(string(pkgerrors.CodeDependency))
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "order.gateway_session_failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment session could not be created")
	}

	s.metrics.IncPlaced(string(enums.PaymentMethodStripe))
	return &GatewaySessionDTO{OrderID: order.ID, SessionURL: sess.URL}, nil
}

func (s *service) Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if !order.PaymentMethod.RequiresGateway() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting online payment")
	}
	result := &VerifyResult{OrderID: order.ID}
	if order.IsPaid {
		result.Paid = true
		return result, nil
	}

	release, err := s.lock(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	success := bool(input.Success)
	if success {
		paid, err := s.sessionPaid(ctx, order)
		if err != nil {
			return nil, err
		}
		success = paid
	}

	if !success {
		deleted, err := s.repo.DeleteUnpaid(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "discard pending order")
		}
		result.Deleted = deleted
		return result, nil
	}

	applied := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		marked, err := s.repo.WithTx(tx).MarkPaid(ctx, order.ID, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if !marked {
			return nil
		}
		if err := s.applyStock(ctx, tx, order.Items); err != nil {
			return err
		}
		if err := s.cart.WithTx(tx).Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		applied = true
		return nil
	})
	if err != nil {
		s.metrics.IncRejected(string(codeOf(err)))
		return nil, err
	}
	if applied {
		s.metrics.AddStockDecremented(totalUnits(order.Items))
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order.payment_confirmed")
		}
	}
	result.Paid = true
	return result, nil
}

// sessionPaid asks the gateway whether the order's checkout session was paid.
// An order without a recorded session cannot have been paid.
func (s *service) sessionPaid(ctx context.Context, order *models.Order) (bool, error) {
	if order.GatewaySessionID == nil || *order.GatewaySessionID == "" {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "order.verify_without_session")
		}
		return false, nil
	}
	if s.gateway == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "online payments are unavailable")
	}
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	paid, err := s.gateway.SessionPaid(gctx, *order.GatewaySessionID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
	}
	return paid, nil
}

func (s *service) ListUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	window, err := params.Window()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	rows, next := pagination.Trim(rows, window, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &OrderList{NextCursor: next, Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		out.Orders = append(out.Orders, FromModel(&rows[i]))
	}
	return out, nil
}

// prepareOrder validates the request against the catalog and prices it. Nothing is written.
func (s *service) prepareOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput, method enums.PaymentMethod) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	address := input.Address
	address.Normalize()
	if missing := address.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item needs a product id")
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	type lineKey struct {
		productID uuid.UUID
		size      string
	}
	demand := map[lineKey]int{}
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		p, ok := catalog[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": line.ProductID})
		}
		size := strings.TrimSpace(line.Size)
		row, ok := p.SizeStock(size)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidSize,
				fmt.Sprintf("size %q is not available for %s", size, p.Name)).
				WithDetails(map[string]any{"productId": p.ID, "size": size, "available": p.SizeNames()})
		}
		key := lineKey{productID: p.ID, size: size}
		demand[key] += line.Quantity
		if demand[key] > row.Stock {
			return nil, insufficientStock(p.ID, p.Name, size, demand[key], row.Stock)
		}

		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     image,
			Size:      size,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := s.now().UTC()
	return &models.Order{
		UserID:        userID,
		Items:         items,
		Amount:        subtotal.Add(s.deliveryFee),
		DeliveryFee:   s.deliveryFee,
		Address:       address,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// applyStock decrements every line inside tx. A short row aborts the transaction.
func (s *service) applyStock(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	products := s.products.WithTx(tx)
	for _, item := range items {
		ok, err := products.DecrementStock(ctx, item.ProductID, item.Size, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
		}
		if !ok {
			available := 0
			if p, err := products.FindByID(ctx, item.ProductID); err == nil {
				if row, found := p.SizeStock(item.Size); found {
					available = row.Stock
				}
			}
			return insufficientStock(item.ProductID, item.Name, item.Size, item.Quantity, available)
		}
	}
	return nil
}

// restoreStock hands every line back to stock inside tx. Rows that no longer exist are skipped.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, items []models.OrderItem) (int, error) {
	products := s.products.WithTx(tx)
	restored := 0
	for _, item := range items {
		ok, err := products.IncrementStock(ctx, item.ProductID, item.Size, item.Quantity)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
		}
		if !ok {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"product_id": item.ProductID.String(), "size": item.Size}), "order.restock_skipped")
			}
			continue
		}
		restored += item.Quantity
	}
	return restored, nil
}

func (s *service) lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	unlock, acquired, err := s.locker.TryLock(ctx, verifyLockPrefix+orderID.String(), s.verifyLockTTL)
	if err != nil {
		// The conditional is_paid update still guards against double application.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order.verify_lock_unavailable")
		}
		return noop, nil
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment verification already in progress")
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order.verify_unlock_failed")
		}
	}, nil
}

func (s *service) returnBase(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin != "" {
		return origin
	}
	return s.frontendURL
}

func verifyURL(base string, orderID uuid.UUID, success bool) string {
	q := url.Values{}
	q.Set("success", fmt.Sprintf("%t", success))
	q.Set("orderId", orderID.String())
	return base + "/verify?" + q.Encode()
}

func checkoutLines(order *models.Order) []pkgstripe.CheckoutLine {
	lines := make([]pkgstripe.CheckoutLine, 0, len(order.Items)+1)
	for _, item := range order.Items {
		name := item.Name
		if item.Size != "" {
			name = fmt.Sprintf("%s (%s)", item.Name, item.Size)
		}
		lines = append(lines, pkgstripe.CheckoutLine{Name: name, UnitAmount: item.Price, Quantity: item.Quantity})
	}
	if order.DeliveryFee.IsPositive() {
		lines = append(lines, pkgstripe.CheckoutLine{Name: deliveryLineName, UnitAmount: order.DeliveryFee, Quantity: 1})
	}
	return lines
}

func insufficientStock(productID uuid.UUID, name, size string, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s in size %s: requested %d, available %d", name, size, requested, available)).
		WithDetails(map[string]any{
			"productId": productID,
			"name":      name,
			"size":      size,
			"requested": requested,
			"available": available,
			"shortfall": requested - available,
		})
}

func totalUnits(items []models.OrderItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func (s *service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.gatewayTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.gatewayTimeout)
}
