package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type harness struct {
	t       *testing.T
	cfg     *config.Config
	client  *db.Client
	handler http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60, CookieName: "token"},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8 * 1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		CORS:     config.CORSConfig{FrontendURL: "http://localhost:5173", AdminURL: "http://localhost:5174"},
		Checkout: config.CheckoutConfig{DeliveryFeeRaw: "10", Currency: "usd", IdempotencyTTL: time.Hour},
		GCS:      config.GCSConfig{MaxUploadMB: 1},
	}
}

func newHarness(t *testing.T, readiness map[string]controllers.Pinger) *harness {
	t.Helper()
	cfg := testConfig()
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard})

	userRepo := users.NewRepository(client.DB())
	productRepo := product.NewRepository(client.DB())
	cartRepo := cart.NewRepository(client.DB())

	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo, JWTConfig: cfg.JWT, PasswordConfig: cfg.Password})
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cart.ServiceParams{Repo: cartRepo, Products: productRepo, Tx: client, Logger: logg})
	require.NoError(t, err)
	productSvc, err := product.NewService(product.ServiceParams{Repo: productRepo, Tx: client, Logger: logg})
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:        orders.NewRepository(client.DB()),
		Products:    productRepo,
		Cart:        cartRepo,
		Tx:          client,
		Logger:      logg,
		DeliveryFee: decimal.NewFromInt(10),
		Currency:    "usd",
		FrontendURL: cfg.CORS.FrontendURL,
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	handler := NewRouter(cfg, logg, readiness, nil, userRepo, Services{
		Auth:     authSvc,
		Cart:     cartSvc,
		Products: productSvc,
		Orders:   orderSvc,
	}, metrics.NewHTTPMetrics(reg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &harness{t: t, cfg: cfg, client: client, handler: handler}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) tokenFor(user *models.User) string {
	h.t.Helper()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	require.NoError(h.t, err)
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRegisterSetsCookieAndMeResolvesAccount(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/users/register", "", map[string]string{
		"name":     "Ada",
		"email":    "Ada@Example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: cookie.Value})
	me := httptest.NewRecorder()
	h.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())

	body := decode(t, me)
	user := body["user"].(map[string]any)
	require.Equal(t, "ada@example.com", user["email"])
	require.Equal(t, "normal", user["role"])

	login := h.do(http.MethodPost, "/users/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, login.Code)

	logout := h.do(http.MethodGet, "/users/logout", "", nil)
	require.Equal(t, http.StatusOK, logout.Code)
	require.Contains(t, logout.Header().Get("Set-Cookie"), "token=;")
}

func TestCartRequiresAuthAndNormalRole(t *testing.T) {
	h := newHarness(t, nil)
	admin := dbtest.MustCreateUser(t, h.client, enums.UserRoleAdmin)

	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/cart/", "", nil).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/cart/", h.tokenFor(admin), nil).Code)

	body := decode(t, h.do(http.MethodGet, "/cart/", "", nil))
	require.Equal(t, false, body["success"])
	require.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	h := newHarness(t, nil)
	shopper := dbtest.MustCreateUser(t, h.client, enums.UserRoleNormal)
	admin := dbtest.MustCreateUser(t, h.client, enums.UserRoleAdmin)
	tee := dbtest.MustCreateProduct(t, h.client, "Tee", "20", dbtest.SizeStock{Size: "M", Stock: 5})
	token := h.tokenFor(shopper)

	add := h.do(http.MethodPost, "/cart/add", token, map[string]any{"productId": tee.ID, "size": "M", "quantity": 2})
	require.Equal(t, http.StatusOK, add.Code, add.Body.String())
	require.EqualValues(t, 1, decode(t, add)["cartCount"])

	over := h.do(http.MethodPost, "/cart/add", token, map[string]any{"productId": tee.ID, "size": "M", "quantity": 9})
	require.Equal(t, http.StatusConflict, over.Code)
	require.Equal(t, "INSUFFICIENT_STOCK", decode(t, over)["code"])

	count := decode(t, h.do(http.MethodGet, "/cart/count", token, nil))
	require.EqualValues(t, 2, count["count"])

	place := h.do(http.MethodPost, "/orders/cod", token, map[string]any{
		"items": []map[string]any{{"productId": tee.ID, "size": "M", "quantity": 2, "name": "ignored"}},
		"address": map[string]string{
			"street": "1 Market St", "city": "Springfield", "state": "IL",
			"country": "US", "zipcode": "62701", "phone": "555-0100",
		},
		"amount": 1,
	})
	require.Equal(t, http.StatusCreated, place.Code, place.Body.String())
	order := decode(t, place)["order"].(map[string]any)
	require.EqualValues(t, 50, order["amount"])
	require.Equal(t, "Order Placed", order["status"])
	require.Equal(t, 3, dbtest.Stock(t, h.client, tee.ID, "M"))

	empty := decode(t, h.do(http.MethodGet, "/cart/count", token, nil))
	require.EqualValues(t, 0, empty["count"])

	mine := decode(t, h.do(http.MethodGet, "/orders/userOrders", token, nil))
	require.EqualValues(t, 1, mine["count"])

	require.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/orders/allOrders", token, nil).Code)
	all := h.do(http.MethodGet, "/orders/allOrders?limit=10", h.tokenFor(admin), nil)
	require.Equal(t, http.StatusOK, all.Code)
	require.EqualValues(t, 1, decode(t, all)["count"])

	cancel := h.do(http.MethodPost, "/orders/status", h.tokenFor(admin), map[string]any{"orderId": order["_id"], "status": "Cancelled"})
	require.Equal(t, http.StatusOK, cancel.Code, cancel.Body.String())
	require.Equal(t, 5, dbtest.Stock(t, h.client, tee.ID, "M"))
}

func TestProductsPublicAndAdminRoutes(t *testing.T) {
	h := newHarness(t, nil)
	shopper := dbtest.MustCreateUser(t, h.client, enums.UserRoleNormal)
	admin := dbtest.MustCreateUser(t, h.client, enums.UserRoleAdmin)
	tee := dbtest.MustCreateProduct(t, h.client, "Tee", "20", dbtest.SizeStock{Size: "S", Stock: 1})

	list := h.do(http.MethodGet, "/products/list", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	require.Len(t, decode(t, list)["products"], 1)

	single := h.do(http.MethodGet, "/products/single/"+tee.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, single.Code)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/products/single/not-a-uuid", "", nil).Code)

	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodDelete, "/products/remove/"+tee.ID.String(), "", nil).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/products/remove/"+tee.ID.String(), h.tokenFor(shopper), nil).Code)

	update := h.do(http.MethodPatch, "/products/update/"+tee.ID.String(), h.tokenFor(admin), map[string]any{"price": "25.50", "sizes": `[{"size":"S","stock":4}]`})
	require.Equal(t, http.StatusOK, update.Code, update.Body.String())
	require.Equal(t, 4, dbtest.Stock(t, h.client, tee.ID, "S"))

	removed := h.do(http.MethodDelete, "/products/remove/"+tee.ID.String(), h.tokenFor(admin), nil)
	require.Equal(t, http.StatusOK, removed.Code, removed.Body.String())
	require.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/products/remove/"+tee.ID.String(), h.tokenFor(admin), nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{err: errors.New("connection refused")},
	})

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "", nil).Code)

	ready := h.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, ready.Code)
	require.Equal(t, "DEPENDENCY_ERROR", decode(t, ready)["code"])

	rec := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"}`), rec.Body.String())
}

func TestCORSPreflightAllowsFrontend(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/cart/add", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
