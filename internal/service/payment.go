package service

import "context"

type CheckoutSessionInput struct {
	OrderRef      string // зашифрованный идентификатор заказа (ordertoken)
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
}

type CheckoutSession struct {
	RedirectURL string
	Reference   string
}

// PaymentGateway — синхронный клиент платёжного провайдера.
// Refund с amountCents == nil означает полный возврат.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (CheckoutSession, error)
	Refund(ctx context.Context, transactionID string, amountCents *int64) error
}
