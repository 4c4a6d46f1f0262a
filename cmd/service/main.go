package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-service/config"
	"shop-service/internal/database"
	"shop-service/internal/gateway"
	"shop-service/internal/logger"
	"shop-service/internal/notify"
	"shop-service/internal/ordertoken"
	"shop-service/internal/repository"
	"shop-service/internal/service"
	"shop-service/internal/shipping"
	httpapi "shop-service/internal/transport/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	tokens, err := ordertoken.New(cfg.Webhook.OrderTokenKey)
	if err != nil {
		log.Fatal("Некорректный ключ order token", zap.Error(err))
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		APIURL:      cfg.Gateway.APIURL,
		StoreID:     cfg.Gateway.StoreID,
		AuthKey:     cfg.Gateway.AuthKey,
		TestMode:    cfg.Gateway.TestMode,
		SuccessURL:  cfg.Gateway.SuccessURL,
		DeclinedURL: cfg.Gateway.DeclinedURL,
		CancelURL:   cfg.Gateway.CancelURL,
	}, log)

	providers := []service.ShippingProvider{shipping.NewFlatRateProvider()}
	if cfg.Shipping.CarrierAPIURL != "" {
		providers = append(providers,
			shipping.NewCarrierAPIProvider(cfg.Shipping.CarrierName, cfg.Shipping.CarrierAPIURL))
	}
	registry := service.NewShippingRegistry(log, providers...)

	flags := service.NewFlagService(repos.Settings, cfg.FlagsTTL)

	carts := service.NewCartService(repos, service.CartConfig{
		MaxQtyPerItem: cfg.Cart.MaxQtyPerItem,
		Retries:       cfg.Cart.Retries,
		RetryBackoff:  cfg.Cart.RetryBackoff,
	}, log)
	checkout := service.NewCheckoutService(repos, registry, gatewayClient, flags, tokens,
		service.CheckoutConfig{
			MinTotalCents: cfg.Checkout.MinTotalCents,
			MaxTotalCents: cfg.Checkout.MaxTotalCents,
			Currency:      cfg.Checkout.Currency,
		}, log)
	status := service.NewStatusService(repos, gatewayClient, log)
	webhooks := service.NewWebhookService(repos, gatewayClient, tokens,
		[]byte(cfg.Webhook.Secret), cfg.Checkout.Currency, cfg.OpsEmail, log)

	// Доставка уведомлений из outbox: kafka, если включена, иначе прямой SMTP
	var deliverer notify.Deliverer
	if cfg.Kafka.Enabled {
		producer := notify.NewEmailProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		deliverer = notify.NewKafkaDeliverer(producer)
	} else {
		deliverer = notify.NewSMTPDeliverer(notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}
	worker := notify.NewWorker(repos.Outbox, deliverer, notify.DefaultWorkerConfig(), log)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Run(workerCtx)

	router := httpapi.Router(httpapi.RouterConfig{
		JWTSecret:            cfg.JWTSecret,
		WebhookRatePerSecond: cfg.Webhook.RatePerSecond,
		WebhookRateBurst:     cfg.Webhook.RateBurst,
	}, carts, checkout, status, webhooks, flags, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting shop HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down shop HTTP server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
	log.Info("Shop HTTP server stopped gracefully")
}
