package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"shop-service/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Port string
	DB   DB

	Webhook  Webhook
	Gateway  Gateway
	Checkout Checkout
	Cart     Cart
	Kafka    Kafka
	SMTP     SMTP
	Shipping Shipping

	JWTSecret string
	OpsEmail  string
	FlagsTTL  time.Duration
}

type DB struct {
	database.Config
}

type Webhook struct {
	Secret        string // HMAC-SHA256 подпись событий шлюза
	OrderTokenKey string // 32 байта hex — AES-GCM для order id в метаданных сессии
	RatePerSecond int
	RateBurst     int
}

type Gateway struct {
	APIURL      string
	StoreID     string
	AuthKey     string
	TestMode    bool
	SuccessURL  string
	DeclinedURL string
	CancelURL   string
}

type Checkout struct {
	MinTotalCents int64
	MaxTotalCents int64
	Currency      string
}

type Cart struct {
	MaxQtyPerItem int32
	Retries       int
	RetryBackoff  time.Duration
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type Shipping struct {
	CarrierAPIURL string // пустая строка — внешний провайдер выключен
	CarrierName   string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Webhook: Webhook{
			Secret:        getEnv("WEBHOOK_SECRET", log),
			OrderTokenKey: getEnv("ORDER_TOKEN_KEY", log),
			RatePerSecond: atoiDefault(os.Getenv("WEBHOOK_RATE_PER_SECOND"), 20),
			RateBurst:     atoiDefault(os.Getenv("WEBHOOK_RATE_BURST"), 40),
		},
		Gateway: Gateway{
			APIURL:      getEnv("GATEWAY_API_URL", log),
			StoreID:     getEnv("GATEWAY_STORE_ID", log),
			AuthKey:     getEnv("GATEWAY_AUTH_KEY", log),
			TestMode:    os.Getenv("GATEWAY_MODE") == "sandbox" || os.Getenv("GATEWAY_MODE") == "dev",
			SuccessURL:  os.Getenv("GATEWAY_SUCCESS_URL"),
			DeclinedURL: os.Getenv("GATEWAY_DECLINED_URL"),
			CancelURL:   os.Getenv("GATEWAY_CANCEL_URL"),
		},
		Checkout: Checkout{
			MinTotalCents: int64Default(os.Getenv("CHECKOUT_MIN_TOTAL_CENTS"), 100),
			MaxTotalCents: int64Default(os.Getenv("CHECKOUT_MAX_TOTAL_CENTS"), 5_000_000),
			Currency:      envDefault("CHECKOUT_CURRENCY", "USD"),
		},
		Cart: Cart{
			MaxQtyPerItem: int32(atoiDefault(os.Getenv("CART_MAX_QTY_PER_ITEM"), 20)),
			Retries:       atoiDefault(os.Getenv("CART_RETRIES"), 3),
			RetryBackoff:  durationDefault(os.Getenv("CART_RETRY_BACKOFF"), 50*time.Millisecond),
		},
		Kafka: Kafka{
			Enabled: os.Getenv("KAFKA_ENABLED") == "true",
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   envDefault("KAFKA_TOPIC_EMAIL", "shop.email"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     atoiDefault(os.Getenv("SMTP_PORT"), 465),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Shipping: Shipping{
			CarrierAPIURL: os.Getenv("SHIPPING_CARRIER_API_URL"),
			CarrierName:   envDefault("SHIPPING_CARRIER_NAME", "carrier"),
		},
		JWTSecret: getEnv("JWT_SECRET", log),
		OpsEmail:  getEnv("OPS_EMAIL", log),
		FlagsTTL:  durationDefault(os.Getenv("FLAGS_CACHE_TTL"), 30*time.Second),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func envDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func int64Default(s string, def int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
