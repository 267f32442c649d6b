package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// KeyValueStore is the redis surface used by request middleware.
type KeyValueStore interface {
	middleware.ReplayStore
	middleware.RateLimitStore
}

// Accounts resolves token subjects and serves /users/me.
type Accounts interface {
	middleware.AccountResolver
	controllers.AccountReader
}

// Services groups the domain services mounted by the router.
type Services struct {
	Auth     auth.Service
	Cart     cart.Service
	Products product.Service
	Orders   orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	store KeyValueStore,
	accounts Accounts,
	svcs Services,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	// a nil store must stay a nil interface for the middleware guards
	var (
		rateStore middleware.RateLimitStore
		idemStore middleware.ReplayStore
	)
	if store != nil {
		rateStore = store
		idemStore = store
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var resolver middleware.AccountResolver
	if accounts != nil {
		resolver = accounts
	}
	requireAuth := middleware.Auth(cfg.JWT, resolver, logg)
	idempotent := middleware.Idempotency(idemStore, cfg.Checkout.IdempotencyTTL, logg)
	cookies := controllers.CookieSettings{JWT: cfg.JWT, Secure: cfg.App.IsProd()}
	maxUpload := int64(cfg.GCS.MaxUploadMB) << 20 * product.MaxImages

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/users", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.UserRegister(svcs.Auth, cookies, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.UserLogin(svcs.Auth, cookies, logg))
		r.Get("/logout", controllers.UserLogout(cookies))
		r.Post("/logout", controllers.UserLogout(cookies))
		if accounts != nil {
			r.With(requireAuth).Get("/me", controllers.UserMe(accounts, logg))
		}
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(logg, enums.UserRoleNormal))
		r.Post("/add", controllers.CartAdd(svcs.Cart, logg))
		r.Get("/", controllers.CartGet(svcs.Cart, logg))
		r.Get("/count", controllers.CartCount(svcs.Cart, logg))
		r.Patch("/update", controllers.CartUpdate(svcs.Cart, logg))
		r.Delete("/remove", controllers.CartRemove(svcs.Cart, logg))
		r.Delete("/clear", controllers.CartClear(svcs.Cart, logg))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(idempotent).Post("/cod", controllers.OrderPlaceCOD(svcs.Orders, logg))
		r.With(idempotent).Post("/stripe", controllers.OrderPlaceStripe(svcs.Orders, logg))
		r.Post("/verifyStripe", controllers.OrderVerifyStripe(svcs.Orders, logg))
		r.Get("/userOrders", controllers.OrderListUser(svcs.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/allOrders", controllers.OrderListAll(svcs.Orders, logg))
			r.Post("/status", controllers.OrderUpdateStatus(svcs.Orders, logg))
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/list", controllers.ProductList(svcs.Products, logg))
		r.Get("/single/{id}", controllers.ProductSingle(svcs.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Post("/add", controllers.ProductAdd(svcs.Products, maxUpload, logg))
			r.Delete("/remove/{id}", controllers.ProductRemove(svcs.Products, logg))
			r.Patch("/update/{id}", controllers.ProductUpdate(svcs.Products, logg))
		})
	})

	return r
}
