package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, method enums.PaymentMethod) *models.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &models.Order{
		UserID:        userID,
		Amount:        decimal.RequireFromString("30.00"),
		DeliveryFee:   decimal.RequireFromString("10.00"),
		Address:       address(),
		PaymentMethod: method,
		Status:        enums.OrderStatusPendingPayment,
		Items: []models.OrderItem{{
			ProductID: uuid.New(),
			Name:      "Tee",
			Size:      "M",
			Quantity:  1,
			Price:     decimal.RequireFromString("20.00"),
		}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestRepositoryMarkPaidIsConditional(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	order := seedOrder(t, repo, user.ID, enums.PaymentMethodStripe)
	ctx := context.Background()

	marked, err := repo.MarkPaid(ctx, order.ID, time.Now().UTC())
	if err != nil || !marked {
		t.Fatalf("first mark: marked=%v err=%v", marked, err)
	}
	marked, err = repo.MarkPaid(ctx, order.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if marked {
		t.Fatal("expected second mark to be a no-op")
	}

	loaded, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !loaded.IsPaid || loaded.Status != enums.OrderStatusOrderPlaced || !loaded.StockApplied {
		t.Fatalf("unexpected order state %+v", loaded)
	}
	if len(loaded.Items) != 1 || !loaded.Items[0].Price.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected captured line price, got %+v", loaded.Items)
	}
	if loaded.Address.City != "Springfield" {
		t.Fatalf("expected address roundtrip, got %+v", loaded.Address)
	}
}

func TestRepositoryDeleteUnpaidSparesPaidOrders(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	ctx := context.Background()

	paid := seedOrder(t, repo, user.ID, enums.PaymentMethodStripe)
	if _, err := repo.MarkPaid(ctx, paid.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	deleted, err := repo.DeleteUnpaid(ctx, paid.ID)
	if err != nil {
		t.Fatalf("delete paid: %v", err)
	}
	if deleted {
		t.Fatal("paid orders must never be deleted")
	}

	pending := seedOrder(t, repo, user.ID, enums.PaymentMethodStripe)
	deleted, err = repo.DeleteUnpaid(ctx, pending.ID)
	if err != nil || !deleted {
		t.Fatalf("delete pending: deleted=%v err=%v", deleted, err)
	}
	var items int64
	if err := client.DB().Model(&models.OrderItem{}).Where("order_id = ?", pending.ID).Count(&items).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if items != 0 {
		t.Fatalf("expected items removed, got %d", items)
	}
}
