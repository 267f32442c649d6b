package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Products: product.NewRepository(client.DB()),
		Tx:       client,
	})
	require.NoError(t, err)
	return svc, client
}

func qty(n int) *int { return &n }

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.Is(err, code), "expected %s, got %v", code, err)
}

func TestAddMergesIntoExistingEntry(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Linen Shirt", "25.00", dbtest.SizeStock{Size: "M", Stock: 10})

	_, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "M", Quantity: qty(2)})
	require.NoError(t, err)
	cart, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "M", Quantity: qty(3)})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	require.Equal(t, 5, cart.Items[0].Quantity)
	require.Equal(t, 1, cart.CartCount)
	require.Equal(t, "Linen Shirt", cart.Items[0].Name)
	require.Equal(t, 25.0, cart.Items[0].Price)
}

func TestAddDefaultsQuantityToOne(t *testing.T) {
	svc, client := newTestService(t)
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Cap", "9.99", dbtest.SizeStock{Size: "One", Stock: 4})

	cart, err := svc.Add(context.Background(), user.ID, AddItemInput{ProductID: p.ID, Size: "One"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 1, cart.Items[0].Quantity)
	require.NotNil(t, cart.Items[0].Available)
	require.Equal(t, 4, *cart.Items[0].Available)
}

func TestAddRejectsUnknownProductAndSize(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Hoodie", "40.00", dbtest.SizeStock{Size: "L", Stock: 2})

	_, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: uuid.New(), Size: "L"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "XXL"})
	requireCode(t, err, pkgerrors.CodeInvalidSize)

	_, err = svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "L", Quantity: qty(0)})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAddBeyondStockRollsBackMerge(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Sneaker", "80.00", dbtest.SizeStock{Size: "UK-8", Stock: 5})

	_, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "UK-8", Quantity: qty(4)})
	require.NoError(t, err)

	_, err = svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "UK-8", Quantity: qty(2)})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	cart, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 4, cart.Items[0].Quantity)
}

func TestAddWithoutSizeSkipsStockCheck(t *testing.T) {
	svc, client := newTestService(t)
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Gift Card", "50.00")

	cart, err := svc.Add(context.Background(), user.ID, AddItemInput{ProductID: p.ID, Quantity: qty(7)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "", cart.Items[0].Size)
	require.Nil(t, cart.Items[0].Available)
}

func TestGetPrunesDanglingEntries(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	keep := dbtest.MustCreateProduct(t, client, "Keep", "10.00", dbtest.SizeStock{Size: "S", Stock: 3})
	gone := dbtest.MustCreateProduct(t, client, "Gone", "10.00", dbtest.SizeStock{Size: "S", Stock: 3})

	_, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: keep.ID, Size: "S"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, user.ID, AddItemInput{ProductID: gone.ID, Size: "S"})
	require.NoError(t, err)

	require.NoError(t, client.DB().Exec("DELETE FROM product_sizes WHERE product_id = ?", gone.ID).Error)
	require.NoError(t, client.DB().Exec("DELETE FROM products WHERE id = ?", gone.ID).Error)

	cart, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, keep.ID, cart.Items[0].ProductID)

	var remaining int64
	require.NoError(t, client.DB().Table("cart_items").Where("user_id = ?", user.ID).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}

func TestUpdateQuantity(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Jeans", "60.00", dbtest.SizeStock{Size: "32", Stock: 3})

	_, err := svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "32", Quantity: qty(1)})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "32"})
	require.NoError(t, err)

	cart, err := svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "32", Quantity: qty(3)})
	require.NoError(t, err)
	require.Equal(t, 3, cart.Items[0].Quantity)

	_, err = svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "32", Quantity: qty(4)})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	_, err = svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "32", Quantity: qty(-1)})
	requireCode(t, err, pkgerrors.CodeValidation)

	cart, err = svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "32", Quantity: qty(0)})
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}

func TestUpdateMissingEntryIsNotFoundBeforeStock(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Chinos", "45.00",
		dbtest.SizeStock{Size: "30", Stock: 2}, dbtest.SizeStock{Size: "32", Stock: 2})

	_, err := svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "30", Quantity: qty(9)})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: "32"})
	require.NoError(t, err)
	_, err = svc.UpdateQuantity(ctx, user.ID, UpdateItemInput{ProductID: p.ID, Size: "30", Quantity: qty(9)})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Tee", "15.00",
		dbtest.SizeStock{Size: "S", Stock: 5},
		dbtest.SizeStock{Size: "M", Stock: 5},
	)
	other := dbtest.MustCreateProduct(t, client, "Sock", "5.00", dbtest.SizeStock{Size: "One", Stock: 5})

	for _, size := range []string{"S", "M"} {
		_, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: p.ID, Size: size})
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, user.ID, AddItemInput{ProductID: other.ID, Size: "One", Quantity: qty(2)})
	require.NoError(t, err)

	cart, err := svc.Remove(ctx, user.ID, RemoveItemInput{ProductID: p.ID, Size: "S"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	_, err = svc.Remove(ctx, user.ID, RemoveItemInput{ProductID: p.ID, Size: "S"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	count, err := svc.Count(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count.Count)
	require.Equal(t, 2, count.UniqueItems)

	cart, err = svc.Remove(ctx, user.ID, RemoveItemInput{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	require.NoError(t, svc.Clear(ctx, user.ID))
	count, err = svc.Count(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, count.Count)
	require.Zero(t, count.UniqueItems)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
