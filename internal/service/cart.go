package service

import (
	"context"
	"time"

	"shop-service/internal/models"

	"github.com/google/uuid"
)

type CartConfig struct {
	MaxQtyPerItem int32
	Retries       int
	RetryBackoff  time.Duration
}

type CartService interface {
	AddItem(ctx context.Context, productID uuid.UUID, qty int32) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, productID uuid.UUID, qty int32) (*models.Cart, error)
	RemoveItem(ctx context.Context, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context) error
	GetCart(ctx context.Context) (*models.Cart, error)
}
