package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[storefront-service] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("db migrate: %v", err)
		}
	}

	m := metrics.New()

	// --- AMQP ---
	var publisher order.EventPublisher = events.NopPublisher{}
	conn, err := events.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Fatalf("rabbitmq: %v", err)
	}
	if conn != nil {
		defer conn.Close()
		pub, err := events.NewPublisher(conn, events.NewSequenceRepository(pool), events.PublisherOptions{})
		if err != nil {
			logger.Fatalf("events publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
	} else {
		logger.Printf("RABBITMQ_URL not set, events disabled")
	}

	// --- domain ---
	products := catalog.NewPostgresRepository(pool)
	carts := cart.NewService(cart.NewPostgresRepository(pool), logger, m)
	engine := order.NewEngine(pool, order.EngineOptions{
		CheckoutTimeout: cfg.CheckoutTimeout,
		LockTimeout:     cfg.LockTimeout,
	})
	orders := order.NewService(engine, order.NewPostgresRepository(pool), publisher, logger, m)
	accounts := account.NewService(account.NewPostgresRepository(pool), logger)
	tokens := account.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	// --- HTTP ---
	h := httpapi.NewHandler(products, carts, orders, accounts, tokens, logger, httpapi.HandlerOptions{
		RequestTimeout: cfg.RequestTimeout,
		SecureCookies:  cfg.SecureCookies,
	})
	r := httpapi.NewRouter(h, httpapi.RouterOptions{
		AdminAPIKey:      cfg.AdminAPIKey,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Metrics:          m,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Printf("shutdown complete")
}
