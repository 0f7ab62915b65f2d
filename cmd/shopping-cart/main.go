package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/cache"
	"github.com/fjod/go_cart/shopping-cart/internal/config"
	"github.com/fjod/go_cart/shopping-cart/internal/consumer"
	"github.com/fjod/go_cart/shopping-cart/internal/domain"
	cartgrpc "github.com/fjod/go_cart/shopping-cart/internal/grpc"
	"github.com/fjod/go_cart/shopping-cart/internal/history"
	h "github.com/fjod/go_cart/shopping-cart/internal/http"
	"github.com/fjod/go_cart/shopping-cart/internal/itemsource"
	"github.com/fjod/go_cart/shopping-cart/internal/logger"
	"github.com/fjod/go_cart/shopping-cart/internal/payment"
	"github.com/fjod/go_cart/shopping-cart/internal/pricing"
	"github.com/fjod/go_cart/shopping-cart/internal/publisher"
	"github.com/fjod/go_cart/shopping-cart/internal/report"
	"github.com/fjod/go_cart/shopping-cart/internal/service"
)

const (
	healthInterval = 15 * time.Second
	paymentTimeout = 30 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if err := run(cfg, lg); err != nil {
		lg.Fatal("shopping cart stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]pinger)

	backend, closeBackend, err := openBackend(ctx, cfg.Store, lg)
	if err != nil {
		return err
	}
	defer closeBackend()
	checks[cfg.Store.Backend] = backend
	store := cache.NewCartStore(backend)

	catalog, err := itemsource.NewCatalog(cfg.Catalog.DBPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer catalog.Close()
	if err := catalog.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}
	items := itemsource.NewRegistry(itemsource.DefaultBreakerSettings(), lg)
	if err := catalog.RegisterAll(ctx, items); err != nil {
		return fmt.Errorf("register catalog components: %w", err)
	}
	lg.Info("item sources registered", zap.Strings("components", items.Components()))

	cred := &history.Credentials{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		DBName:            cfg.Database.DBName,
		MigrationsDirPath: cfg.Database.MigrationsPath,
	}
	repo, err := history.NewRepository(cred)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		return fmt.Errorf("history migrations: %w", err)
	}
	checks["postgres"] = repo
	lg.Info("connected to postgres", zap.String("host", cfg.Database.Host))

	taxes, err := cfg.Cart.ParseTaxCategories()
	if err != nil {
		return fmt.Errorf("tax categories: %w", err)
	}
	chain := pricing.NewChain(
		pricing.NewDiscountModifier(),
		pricing.NewTaxModifier(cfg.Cart.TaxesEnabled, taxes, pricing.NetGrossOracle{PriceIsNet: cfg.Cart.ItemPriceIsNet}),
	)

	gateway := payment.NewRouter(
		payment.NewCashierGateway(domain.PaymentMethodCashierCash),
		payment.NewBreakerGateway("online", payment.NewOnlineGateway("simulated", payment.RandomStatus{}), paymentTimeout, lg),
	)

	svc := service.NewCartService(service.Dependencies{
		Store:   store,
		Items:   items,
		Pricing: chain,
		Gateway: gateway,
		History: repo,
		Rebook:  repo,
		Reports: repo,
		Users:   repo,
		Logger:  lg,
	}, service.Config{
		MaxItems:           cfg.Cart.MaxItems,
		ExpirationTime:     cfg.Cart.ExpirationTime(),
		CashierSectionHTML: cfg.Cart.AdditionalCashierSectionHTML,
	})

	var archiver h.ReportArchiver
	if cfg.Report.ArchiveEnabled() {
		s3Archiver, err := report.NewS3Archiver(ctx, cfg.Report)
		if err != nil {
			return fmt.Errorf("report archive: %w", err)
		}
		archiver = s3Archiver
		lg.Info("cash reports will be archived", zap.String("bucket", cfg.Report.BucketName))
	}

	writer := publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
	defer writer.Close()
	poller := publisher.NewOutboxPoller(repo, writer, lg)
	go poller.Run(ctx)

	checkoutConsumer := consumer.NewCheckoutConsumer(
		consumer.NewKafkaReader(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...),
		store,
		lg,
	)
	defer checkoutConsumer.Close()
	go checkoutConsumer.Run(ctx)

	httpChecks := make(map[string]h.Pinger, len(checks))
	grpcChecks := make(map[string]cartgrpc.Pinger, len(checks))
	for name, check := range checks {
		httpChecks[name] = check
		grpcChecks[name] = check
	}

	handler := h.NewHandler(svc, archiver, cfg.Server.RequestTimeout, lg)
	router := h.NewRouter(handler, cfg.Auth.JWTSecret, cfg.Server.RequestTimeout, httpChecks)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "shopping-cart"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := cartgrpc.NewServer(grpcChecks, lg)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	go grpcServer.WatchHealth(ctx, healthInterval)

	errCh := make(chan error, 2)
	go func() {
		lg.Info("http server starting", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		lg.Info("grpc server starting", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		return err
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	grpcServer.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	lg.Info("shopping cart stopped")
	return nil
}

// storeBackend is a cache.Backend that can report its health.
type storeBackend interface {
	cache.Backend
	pinger
}

func openBackend(ctx context.Context, cfg config.StoreConfig, lg *zap.Logger) (storeBackend, func(), error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		lg.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		return cache.NewRedisBackend(client), func() { client.Close() }, nil

	case "mongo":
		db, err := cache.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		backend := cache.NewMongoBackend(db)
		if err := backend.CreateIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		lg.Info("connected to MongoDB", zap.String("db", cfg.MongoDBName))
		return backend, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	default:
		lg.Warn("using in-memory cart store, carts are lost on restart")
		return cache.NewMemoryBackend(), func() {}, nil
	}
}
