// Package dbtest opens throwaway databases for repository and service tests.
package dbtest

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PostgresDSNEnv points Postgres-only tests at a migrated database.
const PostgresDSNEnv = "STOREFRONT_TEST_DB_DSN"

// sqlite has no text[] / jsonb / numeric(12,2); the shapes below keep the same
// columns, keys and checks as the goose migrations.
var sqliteSchema = []string{
	`CREATE TABLE users (
		id text PRIMARY KEY,
		name text NOT NULL,
		email text NOT NULL,
		password_hash text NOT NULL,
		role text NOT NULL DEFAULT 'normal' CHECK (role IN ('normal', 'admin')),
		last_login_at datetime,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_users_email ON users (email)`,
	`CREATE TABLE products (
		id text PRIMARY KEY,
		name text NOT NULL,
		description text NOT NULL DEFAULT '',
		price text NOT NULL,
		category text NOT NULL DEFAULT '',
		sub_category text NOT NULL DEFAULT '',
		images text NOT NULL DEFAULT '{}',
		image_ids text NOT NULL DEFAULT '{}',
		best_seller boolean NOT NULL DEFAULT false,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_products_name ON products (name)`,
	`CREATE TABLE product_sizes (
		product_id text NOT NULL,
		size text NOT NULL,
		stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0),
		position integer NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, size)
	)`,
	`CREATE TABLE cart_items (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		product_id text NOT NULL,
		size text NOT NULL DEFAULT '',
		quantity integer NOT NULL CHECK (quantity >= 1),
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_cart_items_user_product_size ON cart_items (user_id, product_id, size)`,
	`CREATE TABLE orders (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		amount text NOT NULL,
		delivery_fee text NOT NULL DEFAULT '0',
		address text NOT NULL,
		payment_method text NOT NULL CHECK (payment_method IN ('COD', 'Stripe')),
		is_paid boolean NOT NULL DEFAULT false,
		status text NOT NULL,
		stock_applied boolean NOT NULL DEFAULT false,
		gateway_session_id text,
		paid_at datetime,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE TABLE order_items (
		id text PRIMARY KEY,
		order_id text NOT NULL,
		product_id text NOT NULL,
		name text NOT NULL,
		image text NOT NULL DEFAULT '',
		size text NOT NULL,
		quantity integer NOT NULL CHECK (quantity >= 1),
		price text NOT NULL
	)`,
}

// Open returns a client over a private in-memory sqlite database with the storefront schema.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range sqliteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db.NewFromGorm(conn)
}

// OpenPostgres connects to the database named by PostgresDSNEnv or skips the test.
func OpenPostgres(t testing.TB) *db.Client {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", PostgresDSNEnv)
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db.NewFromGorm(conn)
}

// MustCreateUser inserts an account with a throwaway hash.
func MustCreateUser(t testing.TB, client *db.Client, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test Shopper",
		Email:        fmt.Sprintf("shopper_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Role:         role,
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// SizeStock is a seed row for MustCreateProduct.
type SizeStock struct {
	Size  string
	Stock int
}

// MustCreateProduct inserts a product with the given sizes in order.
func MustCreateProduct(t testing.TB, client *db.Client, name, price string, sizes ...SizeStock) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "Men",
		Images:   pq.StringArray{"https://cdn.example.com/" + name + ".png"},
		ImageIDs: pq.StringArray{"products/" + name + ".png"},
	}
	for i, s := range sizes {
		product.Sizes = append(product.Sizes, models.ProductSize{Size: s.Size, Stock: s.Stock, Position: i})
	}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// Stock reads the current stock for a (product, size) row.
func Stock(t testing.TB, client *db.Client, productID uuid.UUID, size string) int {
	t.Helper()
	var row models.ProductSize
	if err := client.DB().Where("product_id = ? AND size = ?", productID, size).First(&row).Error; err != nil {
		t.Fatalf("load stock %s/%s: %v", productID, size, err)
	}
	return row.Stock
}
