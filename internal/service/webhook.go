package service

import (
	"context"

	"github.com/google/uuid"
)

// OrderTokenCodec защищает идентификатор заказа в метаданных платёжной сессии
type OrderTokenCodec interface {
	Encrypt(orderID uuid.UUID) (string, error)
	Decrypt(token string) (uuid.UUID, error)
}

const EventTypeCheckoutCompleted = "checkout.completed"

// GatewayEvent — полезная нагрузка события платёжного шлюза
type GatewayEvent struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	OrderToken    string `json:"order_token"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}

type WebhookResult struct {
	AlreadyProcessed bool
}

type WebhookService interface {
	// HandleEvent обрабатывает сырое тело вебхука. Идемпотентно при
	// at-least-once доставке; signature — hex HMAC-SHA256 тела.
	HandleEvent(ctx context.Context, body []byte, signature string) (WebhookResult, error)
}
