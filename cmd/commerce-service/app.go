package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/cart"
	_ "github.com/MikeMC777/tienda-commerce/internal/docs"
	"github.com/MikeMC777/tienda-commerce/internal/httpx"
	"github.com/MikeMC777/tienda-commerce/internal/idempotency"
	"github.com/MikeMC777/tienda-commerce/internal/notify"
	"github.com/MikeMC777/tienda-commerce/internal/order"
	"github.com/MikeMC777/tienda-commerce/internal/payment"
	"github.com/MikeMC777/tienda-commerce/internal/product"
	"github.com/MikeMC777/tienda-commerce/internal/tenant"
)

type repositories struct {
	accounts account.Repository
	products product.Repository
	carts    cart.Repository
	orders   order.Repository
}

type settings struct {
	jwtSecret      []byte
	pricing        order.Pricing
	currency       string
	requestTimeout time.Duration
	notifyTimeout  time.Duration
	idempotencyTTL time.Duration
}

type app struct {
	accounts   account.Repository
	carts      *cart.Service
	factory    *order.Factory
	orders     *order.Service
	payments   *payment.Channel
	tenants    *tenant.Filter
	dispatcher *notify.Dispatcher
	idem       idempotency.Store
	settings   settings
	logger     *zap.Logger
}

func newApp(repos repositories, sink notify.Sink, gateway payment.Gateway, idem idempotency.Store, s settings, logger *zap.Logger) *app {
	dispatcher := notify.NewDispatcher(sink, repos.accounts, s.notifyTimeout, logger.Named("notify"))
	filter := tenant.New(repos.products).WithOrders(repos.orders)
	carts := cart.NewService(repos.carts, repos.products, logger.Named("cart"))
	orders := order.NewService(repos.orders, filter, carts, dispatcher, logger.Named("order"))
	factory := order.NewFactory(order.FactoryDeps{
		Repo:     repos.orders,
		Carts:    carts,
		Products: repos.products,
		Accounts: repos.accounts,
		Authz:    filter,
		Notifier: dispatcher,
		Logger:   logger.Named("order"),
	}, s.pricing)

	return &app{
		accounts:   repos.accounts,
		carts:      carts,
		factory:    factory,
		orders:     orders,
		payments:   payment.NewChannel(repos.orders, orders, gateway, s.currency, logger.Named("payment")),
		tenants:    filter,
		dispatcher: dispatcher,
		idem:       idem,
		settings:   s,
		logger:     logger,
	}
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		httpx.RequestID(a.logger),
		httpx.Logger(),
		httpx.Deadline(a.settings.requestTimeout),
		httpx.Authenticate(a.settings.jwtSecret, a.accounts),
	)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	idem := idempotency.Middleware(a.idem, a.settings.idempotencyTTL, idempotencyScope, a.logger.Named("idempotency"))
	signedIn := httpx.RequireAccount()

	r.GET("/cart", getCartHandler(a.carts))
	r.POST("/cart/add", addToCartHandler(a.carts))
	r.POST("/cart/decrement", decrementCartHandler(a.carts))
	r.DELETE("/cart/remove", removeFromCartHandler(a.carts))
	r.POST("/cart/merge", signedIn, mergeCartHandler(a.carts))

	r.POST("/order/checkout", signedIn, idem, checkoutHandler(a.factory))
	r.POST("/order/checkout-guest", idem, guestCheckoutHandler(a.factory))
	r.POST("/order/create", signedIn, idem, createOrderHandler(a.factory))
	r.GET("/order/all", listOrdersHandler(a.orders))
	r.GET("/order/:id", getOrderHandler(a.orders))
	r.PUT("/order/:id/status", signedIn, updateOrderStatusHandler(a.orders))
	r.PUT("/order/:id/confirm-payment", signedIn, confirmPaymentHandler(a.orders))
	r.POST("/order/:id/cancel", signedIn, cancelOrderHandler(a.orders))

	r.POST("/payment/:orderId/issue-code", issuePaymentCodeHandler(a.payments))
	r.POST("/payment/:orderId/confirm", customerConfirmHandler(a.payments))

	r.GET("/seller/my-customers", signedIn, myCustomersHandler(a.tenants))
	r.GET("/seller/products", signedIn, sellerProductsHandler(a.tenants))
	return r
}
