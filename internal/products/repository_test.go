package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestDecrementStockIsConditional(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	p := dbtest.MustCreateProduct(t, client, "Runner", "49.99", dbtest.SizeStock{Size: "UK-8", Stock: 5})

	ok, err := repo.DecrementStock(ctx, p.ID, "UK-8", 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, dbtest.Stock(t, client, p.ID, "UK-8"))

	ok, err = repo.DecrementStock(ctx, p.ID, "UK-8", 3)
	require.NoError(t, err)
	require.False(t, ok, "decrement beyond stock must not apply")
	require.Equal(t, 2, dbtest.Stock(t, client, p.ID, "UK-8"))

	ok, err = repo.DecrementStock(ctx, p.ID, "UK-9", 1)
	require.NoError(t, err)
	require.False(t, ok, "unknown size must not apply")

	ok, err = repo.DecrementStock(ctx, p.ID, "UK-8", 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, dbtest.Stock(t, client, p.ID, "UK-8"))
}

func TestIncrementStockRestoresAndReportsMissingRows(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	p := dbtest.MustCreateProduct(t, client, "Tee", "10", dbtest.SizeStock{Size: "M", Stock: 0})

	ok, err := repo.IncrementStock(ctx, p.ID, "M", 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, dbtest.Stock(t, client, p.ID, "M"))

	ok, err = repo.IncrementStock(ctx, p.ID, "XL", 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListOrdersNewestFirstWithSortedSizes(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	first := dbtest.MustCreateProduct(t, client, "First", "1", dbtest.SizeStock{Size: "L", Stock: 1}, dbtest.SizeStock{Size: "S", Stock: 2})
	second := dbtest.MustCreateProduct(t, client, "Second", "2")
	require.NoError(t, client.DB().Model(&models.Product{}).Where("id = ?", second.ID).
		UpdateColumn("created_at", first.CreatedAt.Add(time.Minute)).Error)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, second.ID, rows[0].ID)
	require.Equal(t, []string{"L", "S"}, rows[1].SizeNames())
}

func TestReplaceSizesAndSetStock(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	p := dbtest.MustCreateProduct(t, client, "Hoodie", "30", dbtest.SizeStock{Size: "M", Stock: 3})

	require.NoError(t, repo.ReplaceSizes(ctx, p.ID, []models.ProductSize{{Size: "S", Stock: 1}, {Size: "XL", Stock: 2, Position: 1}}))
	loaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"S", "XL"}, loaded.SizeNames())

	require.NoError(t, repo.SetStock(ctx, p.ID, "XL", 9))
	require.NoError(t, repo.SetStock(ctx, p.ID, "XXL", 1))
	require.Equal(t, 9, dbtest.Stock(t, client, p.ID, "XL"))
	require.Equal(t, 1, dbtest.Stock(t, client, p.ID, "XXL"))

	low, err := repo.ListLowStock(ctx, 1)
	require.NoError(t, err)
	require.Len(t, low, 2)
	require.Equal(t, "Hoodie", low[0].ProductName)
}

func TestDeleteRemovesSizesAndCartReferences(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, client, enums.UserRoleNormal)
	p := dbtest.MustCreateProduct(t, client, "Cap", "12", dbtest.SizeStock{Size: "OS", Stock: 3})
	require.NoError(t, client.DB().Create(&models.CartItem{UserID: user.ID, ProductID: p.ID, Size: "OS", Quantity: 1}).Error)

	require.NoError(t, repo.Delete(ctx, p.ID))

	var count int64
	require.NoError(t, client.DB().Model(&models.CartItem{}).Where("product_id = ?", p.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, client.DB().Model(&models.ProductSize{}).Where("product_id = ?", p.ID).Count(&count).Error)
	require.Zero(t, count)

	err := repo.Delete(ctx, p.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
