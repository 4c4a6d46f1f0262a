package service

import (
	"errors"
	"fmt"

	"shop-service/internal/models"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// validation
	ErrQuantityInvalid    = errors.New("quantity must be > 0")
	ErrQuantityAboveLimit = errors.New("quantity above per-item limit")
	ErrTotalOutOfBounds   = errors.New("order total outside allowed bounds")
	ErrAddressInvalid     = errors.New("shipping address incomplete")
	ErrShippingNoMatch    = errors.New("no shipping option matches requested method")
	ErrPurchaseDisabled   = errors.New("purchasing is currently disabled")

	// not found
	ErrProductNotFound  = errors.New("product not found")
	ErrProductInactive  = errors.New("product is not active")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCouponNotFound   = errors.New("coupon not found")

	// conflict
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrHighConcurrency   = errors.New("operation aborted due to high concurrency")
	ErrCouponAlreadyUsed = errors.New("coupon already used by this user")
	ErrCouponExpired     = errors.New("coupon is not valid at this time")

	// security — логируются как critical, никогда не проглатываются
	ErrBadSignature      = errors.New("webhook signature verification failed")
	ErrOrderTokenInvalid = errors.New("order token decryption failed")
	ErrAmountMismatch    = errors.New("paid amount does not match order total")

	// gateway
	ErrGateway = errors.New("payment gateway error")

	// refunds
	ErrRefundAlreadyRequested = errors.New("refund already requested for this order")
	ErrRefundNotAllowed       = errors.New("order status does not allow a refund request")
	ErrRefundQuantityInvalid  = errors.New("refund quantity invalid")
	ErrRefundAmountTooHigh    = errors.New("refund amount exceeds allowed maximum")
	ErrMissingTransactionID   = errors.New("order has no gateway transaction id")
)

// InvalidTransitionError — типизированный отказ конечного автомата статусов.
// Ранее любой статус принимался молча; теперь переходы вне таблицы — ошибка.
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}

// InsufficientStockError называет товар, которого не хватило
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int32
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
