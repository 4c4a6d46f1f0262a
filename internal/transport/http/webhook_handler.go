package httpapi

import (
	"errors"
	"io"
	"net/http"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignatureHeader — hex HMAC-SHA256 тела запроса
const SignatureHeader = "X-Gateway-Signature"

type WebhookHandler struct {
	webhooks service.WebhookService
	log      *zap.Logger
}

func NewWebhookHandler(webhooks service.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, log: log}
}

// HandleGatewayEvent принимает события платёжного шлюза.
// Контракт со шлюзом: 2xx — событие принято (повтора не будет),
// 5xx — шлюз доставит событие повторно. Поэтому ошибки БД и шлюза
// возврата отдаются как 500, а недоставляемые события — как 4xx.
func (h *WebhookHandler) HandleGatewayEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("unreadable body", nil))
		return
	}

	res, err := h.webhooks.HandleEvent(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadSignature):
			c.JSON(http.StatusUnauthorized, NewUnauthorizedError("signature verification failed"))
		case errors.Is(err, service.ErrOrderTokenInvalid),
			errors.Is(err, service.ErrAmountMismatch):
			// повтор того же события не поможет; исправленное событие
			// придёт с тем же event_id и будет обработано
			c.JSON(http.StatusBadRequest, NewValidationError(err.Error(), nil))
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusBadRequest, NewValidationError("order not found", nil))
		default:
			h.log.Error("Ошибка обработки события шлюза", zap.Error(err))
			c.JSON(http.StatusInternalServerError, NewInternalError(""))
		}
		return
	}

	if res.AlreadyProcessed {
		c.JSON(http.StatusOK, WebhookResponse{Status: "already_processed"})
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Status: "ok"})
}
