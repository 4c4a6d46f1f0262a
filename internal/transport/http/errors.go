package httpapi

import (
	"errors"
	"net/http"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError переводит ошибку сервиса в HTTP-ответ по таксономии:
// валидация — 400, авторизация — 401/403, отсутствие — 404, конфликт — 409,
// всё остальное — 500 без деталей наружу
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var transition *service.InvalidTransitionError
	var stock *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, NewUnauthorizedError("authentication required"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, NewForbiddenError("access denied"))
	case errors.Is(err, service.ErrPurchaseDisabled):
		c.JSON(http.StatusForbidden, NewForbiddenError("purchasing is temporarily disabled"))

	case errors.Is(err, service.ErrQuantityInvalid),
		errors.Is(err, service.ErrQuantityAboveLimit),
		errors.Is(err, service.ErrTotalOutOfBounds),
		errors.Is(err, service.ErrAddressInvalid),
		errors.Is(err, service.ErrShippingNoMatch),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrRefundQuantityInvalid),
		errors.Is(err, service.ErrRefundAmountTooHigh):
		c.JSON(http.StatusBadRequest, NewValidationError(err.Error(), nil))

	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, NewNotFoundError(err.Error()))

	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, BaseError{
			Code:    "insufficient_stock",
			Message: stock.Error(),
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, BaseError{
			Code:    "invalid_transition",
			Message: transition.Error(),
		})

	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrCouponAlreadyUsed),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrRefundAlreadyRequested),
		errors.Is(err, service.ErrRefundNotAllowed),
		errors.Is(err, service.ErrMissingTransactionID):
		c.JSON(http.StatusConflict, NewConflictError(err.Error()))

	case errors.Is(err, service.ErrHighConcurrency):
		// клиент может сразу повторить
		c.JSON(http.StatusConflict, NewConflictError("cart is busy, please retry"))

	default:
		log.Error("Необработанная ошибка сервиса", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError(""))
	}
}
