package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/cart"
	"github.com/MikeMC777/tienda-commerce/internal/config"
	"github.com/MikeMC777/tienda-commerce/internal/db"
	"github.com/MikeMC777/tienda-commerce/internal/httpx"
	"github.com/MikeMC777/tienda-commerce/internal/idempotency"
	"github.com/MikeMC777/tienda-commerce/internal/memstore"
	"github.com/MikeMC777/tienda-commerce/internal/notify"
	"github.com/MikeMC777/tienda-commerce/internal/order"
	"github.com/MikeMC777/tienda-commerce/internal/payment"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := httpx.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var repos repositories
	switch cfg.Storage {
	case config.StorageMemory:
		store := memstore.New()
		seedDemo(store)
		repos = repositories{
			accounts: store.Accounts(),
			products: store.Products(),
			carts:    store.Carts(),
			orders:   store.Orders(),
		}
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		pool, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		closers = append(closers, pool.Close)
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to migrate", zap.Error(err))
		}
		repos = repositories{
			accounts: account.NewPGRepo(pool),
			products: product.NewPGRepo(pool),
			carts:    cart.NewPGRepo(pool),
			orders:   order.NewPGRepo(pool),
		}
	}

	if cfg.AccountSvcAddr != "" {
		client, conn, err := account.Dial(cfg.AccountSvcAddr)
		if err != nil {
			logger.Fatal("failed to dial account-service", zap.Error(err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		repos.accounts = client
	}

	var sink notify.Sink = notify.NewLogSink(logger.Named("notify"))
	if len(cfg.KafkaBrokers) > 0 {
		ks := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.NotifyTopic)
		closers = append(closers, func() { _ = ks.Close() })
		sink = ks
	}

	var idem idempotency.Store = idempotency.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 50})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		idem = idempotency.NewRedisStore(rdb)
	}

	var gateway payment.Gateway = payment.StaticGateway{Code: cfg.PaymentStaticCode}
	if cfg.PaymentProvider == config.PaymentProviderStripe {
		sg, err := payment.NewStripeGateway(cfg.StripeAPIKey, nil)
		if err != nil {
			logger.Fatal("failed to configure stripe", zap.Error(err))
		}
		gateway = sg
	}

	a := newApp(repos, sink, gateway, idem, settings{
		jwtSecret:      []byte(cfg.JWTSecret),
		pricing:        order.Pricing{DiscountRate: cfg.DiscountRate, DeliveryFee: cfg.DeliveryFee, Places: cfg.MoneyPlaces},
		currency:       cfg.Currency,
		requestTimeout: cfg.RequestTimeout,
		notifyTimeout:  cfg.NotifyTimeout,
		idempotencyTTL: cfg.IdempotencyTTL,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("commerce-service listening", cfg.Fields()...)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	a.dispatcher.Wait()
	logger.Info("notifications drained")
}

// seedDemo gives STORAGE=memory something to sell.
func seedDemo(store *memstore.Store) {
	store.PutAccount(account.Account{ID: 1, Email: "admin@example.com", Name: "Admin", Role: account.RoleAdmin, Status: actor.StatusActive})
	store.PutAccount(account.Account{ID: 2, Email: "seller-a@example.com", Name: "Seller A", Role: account.RoleSeller, Status: actor.StatusActive})
	store.PutAccount(account.Account{ID: 3, Email: "seller-b@example.com", Name: "Seller B", Role: account.RoleSeller, Status: actor.StatusActive})
	store.PutAccount(account.Account{ID: 4, Email: "customer@example.com", Name: "Customer", Role: account.RoleCustomer, Status: actor.StatusActive})
	store.PutProduct(product.Product{ID: 10, OwnerID: 2, Name: "Tea bowl", Price: decimal.NewFromInt(1000), Stock: 20})
	store.PutProduct(product.Product{ID: 11, OwnerID: 3, Name: "Chopsticks", Price: decimal.NewFromInt(500), Stock: 50})
}
