package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// LineInput is one requested order line.
type LineInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// UnmarshalJSON accepts "product" as an alias for "productId".
func (l *LineInput) UnmarshalJSON(data []byte) error {
	type plain LineInput
	var wire struct {
		plain
		Product *uuid.UUID `json:"product"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*l = LineInput(wire.plain)
	if l.ProductID == uuid.Nil && wire.Product != nil {
		l.ProductID = *wire.Product
	}
	return nil
}

// PlaceOrderInput is the shared payload for COD and gateway placement. A client
// supplied amount is accepted for compatibility and ignored.
type PlaceOrderInput struct {
	Items   []LineInput     `json:"items" validate:"required,min=1,dive"`
	Address types.Address   `json:"address"`
	Amount  json.RawMessage `json:"amount,omitempty"`
}

// VerifyInput is the payment callback payload.
type VerifyInput struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Success FlexBool  `json:"success"`
}

// UpdateStatusInput is the admin status change payload.
type UpdateStatusInput struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Status  string    `json:"status" validate:"required"`
}

// FlexBool accepts true/false as JSON booleans or strings.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	if raw == "" || raw == "null" {
		*b = false
		return nil
	}
	parsed, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return fmt.Errorf("invalid boolean %q", raw)
	}
	*b = FlexBool(parsed)
	return nil
}

// OrderItemDTO is an order line as captured at placement.
type OrderItemDTO struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
}

// OrderDTO is the API projection of an order.
type OrderDTO struct {
	ID            uuid.UUID           `json:"_id"`
	UserID        uuid.UUID           `json:"userId"`
	Items         []OrderItemDTO      `json:"items"`
	Amount        float64             `json:"amount"`
	DeliveryFee   float64             `json:"deliveryFee"`
	Address       types.Address       `json:"address"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Payment       bool                `json:"payment"`
	Status        enums.OrderStatus   `json:"status"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
	Date          int64               `json:"date"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// GatewaySessionDTO is returned when a hosted checkout session was opened.
type GatewaySessionDTO struct {
	OrderID    uuid.UUID `json:"orderId"`
	SessionURL string    `json:"session_url"`
}

// VerifyResult reports the outcome of a payment callback.
type VerifyResult struct {
	OrderID uuid.UUID `json:"orderId"`
	Paid    bool      `json:"paid"`
	Deleted bool      `json:"deleted,omitempty"`
}

// FromModel maps an order row with items to its API projection.
func FromModel(order *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
		})
	}
	return OrderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		Items:         items,
		Amount:        order.Amount.InexactFloat64(),
		DeliveryFee:   order.DeliveryFee.InexactFloat64(),
		Address:       order.Address,
		PaymentMethod: order.PaymentMethod,
		Payment:       order.IsPaid,
		Status:        order.Status,
		PaidAt:        order.PaidAt,
		Date:          order.CreatedAt.UnixMilli(),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}
