package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/consumer"
	"github.com/fjod/go_cart/storefront/internal/conversation"
	"github.com/fjod/go_cart/storefront/internal/httpapi"
	"github.com/fjod/go_cart/storefront/internal/notification"
	"github.com/fjod/go_cart/storefront/internal/offer"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func serve(parent context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds := cfg.Credentials()
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(creds); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Str("driver", creds.Driver).Msg("database migrations completed")

	var (
		redisClient *redis.Client
		store       cart.LocalStore
		cache       *reservation.Cache
		pending     checkout.PendingOrders
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis ping succeeded")

		store = cart.NewRedisStore(redisClient, cart.DefaultLocalCartTTL)
		cache = reservation.NewCache(redisClient, time.Minute)
		pending = checkout.NewRedisPendingOrders(redisClient, checkout.DefaultPendingTTL)
	} else {
		log.Warn().Msg("redis not configured, carts and pending orders are kept in memory")
		store = cart.NewMemoryStore(cart.DefaultLocalCartTTL)
		pending = checkout.NewMemoryPendingOrders()
	}
	defer store.Close()

	var convRepo conversation.Repository
	if cfg.Mongo.URI != "" {
		db, err := conversation.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()
		convRepo = conversation.NewMongoRepository(db)
		if err := conversation.EnsureIndexes(ctx, convRepo); err != nil {
			return fmt.Errorf("failed to create conversation indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	} else {
		log.Warn().Msg("mongo not configured, conversations are kept in memory")
		convRepo = conversation.NewMemoryRepository()
	}

	source := reservation.NewRepositorySource(repo, cache, log)
	resolver := reservation.NewResolver(source, log)

	offers := offer.NewService(repo, repo, offer.Options{
		MaxAmount:       cfg.Offers.MaxAmount,
		ReservationTTL:  cfg.Offers.ReservationTTL,
		SubmitPerMinute: cfg.Offers.SubmitPerMinute,
		Invalidator:     source,
	}, log)
	carts := cart.NewService(store, resolver, repo, log)
	conversations := conversation.NewService(convRepo, log)
	feed := notification.NewAggregator(offers, conversations, cfg.Notifications.PerKindLimit, cfg.Notifications.FeedLimit, log)

	root := chi.NewRouter()
	redirect, orders := paymentProviders(cfg, root, log)
	checkouts := checkout.NewService(carts, redirect, orders, pending, repo, checkout.Options{
		SuccessURL:  cfg.Payments.SuccessURL,
		CancelURL:   cfg.Payments.CancelURL,
		Invalidator: source,
	}, log)

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	api := httpapi.NewServer(httpapi.Deps{
		Offers:        offers,
		Cart:          carts,
		Reservations:  resolver,
		Conversations: conversations,
		Notifications: feed,
		Checkout:      checkouts,
		Tokens:        tokens,
	}, httpapi.Config{
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
	}, log)
	root.Mount("/", api.Handler())

	var wg sync.WaitGroup
	if len(cfg.Kafka.Brokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...),
			cfg.Offers.EventTick, cfg.Offers.RecoveryTick, log)
		defer poller.Close()

		events := consumer.NewConsumer(consumer.NewKafkaReader(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...), source, log)
		defer events.Close()

		wg.Add(2)
		go func() { defer wg.Done(); poller.Run(ctx) }()
		go func() { defer wg.Done(); events.Run(ctx) }()
	} else {
		log.Warn().Msg("kafka not configured, outbox events are not published")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()
	log.Info().Msg("server exited")
	return nil
}

// paymentProviders returns the configured provider clients. In sandbox mode one in-process
// sandbox serves both paths and its protocol is mounted under /sandbox.
func paymentProviders(cfg *config.Config, root chi.Router, log zerolog.Logger) (payment.RedirectProvider, payment.OrderProvider) {
	if cfg.Payments.Sandbox {
		sandbox := payment.NewSandbox("http://localhost:"+cfg.HTTP.Port+"/sandbox", payment.RandomDecider{})
		root.Mount("/sandbox", sandbox.Handler())
		log.Warn().Msg("payments run against the in-process sandbox")
		return sandbox, sandbox
	}

	breaker := payment.BreakerSettings{MaxFailures: cfg.Payments.MaxFailures, OpenTimeout: 30 * time.Second}
	redirect := payment.NewRedirectClient(payment.ClientOptions{
		BaseURL: cfg.Payments.Redirect.BaseURL,
		APIKey:  cfg.Payments.Redirect.APIKey,
		Timeout: cfg.Payments.Redirect.Timeout,
		Breaker: breaker,
	}, log)
	orders := payment.NewOrderClient(payment.ClientOptions{
		BaseURL: cfg.Payments.Capture.BaseURL,
		APIKey:  cfg.Payments.Capture.APIKey,
		Timeout: cfg.Payments.Capture.Timeout,
		Breaker: breaker,
	}, log)
	return redirect, orders
}
