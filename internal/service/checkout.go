package service

import (
	"context"
	"strings"

	"shop-service/internal/models"

	"github.com/google/uuid"
)

type AddressInput struct {
	Line1   string
	Line2   string
	City    string
	Region  string
	Country string
	Zip     string
}

// Format собирает адрес в единый неизменяемый снимок для аудита и отображения
func (a AddressInput) Format() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.Region, a.Zip, a.Country} {
		if pt := strings.TrimSpace(p); pt != "" {
			parts = append(parts, pt)
		}
	}
	return strings.Join(parts, ", ")
}

func (a AddressInput) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Country) != "" &&
		strings.TrimSpace(a.Zip) != ""
}

type CheckoutInput struct {
	Address        AddressInput
	CouponCode     string
	ShippingMethod string
}

type CheckoutConfig struct {
	MinTotalCents int64
	MaxTotalCents int64
	Currency      string
}

type OrderListInput struct {
	Status *models.OrderStatus
	Limit  int
	Offset int
}

type CheckoutService interface {
	CreateOrderFromCart(ctx context.Context, in CheckoutInput) (*models.Order, error)
	CreatePaymentSession(ctx context.Context, orderID uuid.UUID) (string, error)
	ShippingOptions(ctx context.Context, destinationZip string) ([]ShippingOption, error)

	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, in OrderListInput) ([]models.Order, int64, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
}
