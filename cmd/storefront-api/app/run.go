package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aq2208/storefront-api/configs"
	"github.com/aq2208/storefront-api/internal/adapter/cache"
	"github.com/aq2208/storefront-api/internal/adapter/grpc"
	httpadapter "github.com/aq2208/storefront-api/internal/adapter/http"
	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/adapter/kafka"
	"github.com/aq2208/storefront-api/internal/adapter/queue"
	"github.com/aq2208/storefront-api/internal/adapter/repo"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/pricing"
	"github.com/aq2208/storefront-api/internal/usecase"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg     configs.Config
	log     *slog.Logger
	server  *http.Server
	hub     *httpadapter.Hub
	workers []func(ctx context.Context)
}

// InitWithConfig connects every backing service and wires the HTTP API.
// The returned cleanup closes them in reverse order.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	ctx = logging.WithCtx(ctx, logger)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = db.Close() })
	db.SetConnMaxLifetime(orDefault(cfg.MySQL.ConnMaxLifetime, 30*time.Minute))
	db.SetMaxOpenConns(orDefaultInt(cfg.MySQL.MaxOpenConns, 16))
	db.SetMaxIdleConns(orDefaultInt(cfg.MySQL.MaxIdleConns, 16))

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fail(fmt.Errorf("mysql ping: %w", err))
	}

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closers = append(closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fail(fmt.Errorf("redis ping: %w", err))
	}

	catalog, closeCatalog, err := newCatalog(cfg, db)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeCatalog)

	zones, err := pricing.NewZones(cfg.Checkout.ZoneCharges)
	if err != nil {
		return fail(fmt.Errorf("checkout.zone_charges: %w", err))
	}
	calc := pricing.NewCalculator(cfg.Checkout.CurrencyExponent)

	hub := httpadapter.NewHub(cfg.CORS.AllowOrigins)
	closers = append(closers, hub.Close)

	a := &App{cfg: cfg, log: logger, hub: hub}

	placed, closeRabbit, err := a.setupRabbit(cfg, hub)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeRabbit)

	statusCache := cache.NewRedisCache(rdb, cfg.Cache.TTL)
	changed, closeKafka, err := a.setupKafka(cfg, statusCache, hub)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeKafka)

	// usecases
	orders := repo.NewMySQLOrderRepo(db)
	outbox := repo.NewMySQLOutboxRepo(db)
	marker := cache.NewRedisCartClearMarker(rdb, cfg.Checkout.CartClearTTL)
	cart := usecase.NewCartManager(repo.NewMySQLCartRepo(db), catalog, marker, calc)
	checkout := usecase.NewCheckout(usecase.CheckoutDeps{
		Cart:      cart,
		Tx:        repo.NewTxRunner(db, cfg.Checkout.Atomic),
		Orders:    orders,
		Outbox:    outbox,
		Incidents: repo.NewMySQLIncidentRepo(db),
		Idem:      cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL),
		Marker:    marker,
		Events:    placed,
		Zones:     zones,
		Calc:      calc,
	})
	lifecycle := usecase.NewOrderLifecycle(orders, repo.NewMySQLPaymentRepo(db), statusCache, changed)
	admin := usecase.NewAdminOrders(repo.NewMySQLAdminOrderRepo(db), lifecycle, httpadapter.XLSXOrderSheet{})

	if cfg.Rabbit.Enabled {
		relay := usecase.NewOutboxRelay(outbox, placed, cfg.Outbox.Batch, cfg.Outbox.Backoff)
		every := orDefault(cfg.Outbox.RelayEvery, 15*time.Second)
		a.workers = append(a.workers, func(ctx context.Context) { relay.Run(ctx, every) })
	}

	authz := middleware.NewAuthz(middleware.AuthzConfig{
		Secret:   cfg.Security.JWTSecret,
		Issuer:   cfg.Security.Issuer,
		Audience: cfg.Security.Audience,
		LoginURL: cfg.Security.LoginURL,
	})
	router := httpadapter.NewRouter(httpadapter.Handlers{
		Cart:     httpadapter.NewCartHandler(cart),
		Checkout: httpadapter.NewCheckoutHandler(checkout),
		Orders:   httpadapter.NewOrderHandler(lifecycle),
		Admin:    httpadapter.NewAdminHandler(admin),
		Catalog:  httpadapter.NewCatalogHandler(catalog),
		Hub:      hub,
	}, authz, logging.New("http"), cfg.CORS.AllowOrigins)

	a.server = &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	logger.Info("storefront-api: starting up",
		"catalog", cfg.Catalog.Source, "atomic_checkout", cfg.Checkout.Atomic,
		"rabbitmq", cfg.Rabbit.Enabled, "kafka", cfg.Kafka.Enabled)
	return a, cleanup, nil
}

// Run starts background consumers and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = logging.WithCtx(ctx, a.log)
	for _, w := range a.workers {
		go w(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	a.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(a.cfg.HTTP.ShutdownTimeout, 15*time.Second))
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

func newCatalog(cfg configs.Config, db *sql.DB) (usecase.CatalogReader, func(), error) {
	if cfg.Catalog.Source != "grpc" {
		return repo.NewMySQLCatalogRepo(db), func() {}, nil
	}
	conn, err := grpc.NewConn(cfg.Catalog.GRPC)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog grpc: %w", err)
	}
	return grpc.NewCatalogClient(conn, cfg.Catalog.GRPC.Timeout), func() { _ = conn.Close() }, nil
}

func (a *App) setupRabbit(cfg configs.Config, feed usecase.LiveFeed) (usecase.OrderPlacedPublisher, func(), error) {
	if !cfg.Rabbit.Enabled {
		return queue.NopPublisher{}, func() {}, nil
	}
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	closeConn := func() { _ = conn.Close() }

	topo := queue.DefaultTopology()
	if cfg.Rabbit.Exchange != "" {
		topo.Exchange = cfg.Rabbit.Exchange
	}
	if cfg.Rabbit.Queue != "" {
		topo.Queue = cfg.Rabbit.Queue
	}
	if cfg.Rabbit.RoutingKey != "" {
		topo.RoutingKey = cfg.Rabbit.RoutingKey
	}

	pubCh, err := conn.Channel()
	if err != nil {
		closeConn()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	producer, err := queue.NewRabbitProducer(pubCh, topo)
	if err != nil {
		closeConn()
		return nil, nil, err
	}

	subCh, err := conn.Channel()
	if err != nil {
		closeConn()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	router := queue.NewRouter(subCh, queue.WithPrefetch(orDefaultInt(cfg.Rabbit.Prefetch, 50)))
	router.Register(topo.Queue, queue.NewOrderPlacedHandler(feed))
	a.workers = append(a.workers, func(ctx context.Context) {
		if err := router.Start(ctx); err != nil {
			logging.FromCtx(ctx).Error("rabbitmq router", "err", err)
		}
	})
	return producer, closeConn, nil
}

func (a *App) setupKafka(cfg configs.Config, statusCache usecase.OrderCache, feed usecase.LiveFeed) (usecase.StatusChangedPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return kafka.NopStatusPublisher{}, func() {}, nil
	}
	sp, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	producer := kafka.NewStatusProducer(sp, cfg.Kafka.Topic)

	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ClientID)
	if err != nil {
		_ = producer.Close()
		return nil, nil, fmt.Errorf("kafka group: %w", err)
	}
	h := kafka.NewOrderStatusChangedHandler(statusCache, feed)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, h.Handle)
	a.workers = append(a.workers, func(ctx context.Context) {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.FromCtx(ctx).Error("kafka consumer", "err", err)
		}
	})

	closeAll := func() {
		_ = grp.Close()
		_ = producer.Close()
	}
	return producer, closeAll, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func orDefaultInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
