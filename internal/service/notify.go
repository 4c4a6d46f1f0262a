package service

import (
	"context"
	"encoding/json"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

// Ключи шаблонов уведомлений; рендеринг и доставка — забота notify-воркера
const (
	TemplateOrderReceived   = "order_received"
	TemplateOrderPaid       = "order_paid"
	TemplateOrderCancelled  = "order_cancelled"
	TemplateOrderStatus     = "order_status_changed"
	TemplateRefundRequested = "refund_requested"
	TemplateSecurityAlert   = "security_alert"
)

// enqueueNotification кладёт запись в outbox. Вызывается либо на tx-репозитории
// (внутри бизнес-транзакции), либо на корневом — для алертов, которые должны
// пережить откат.
func enqueueNotification(ctx context.Context, outbox repository.OutboxRepo, recipient, template string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return outbox.Enqueue(ctx, &models.NotificationOutbox{
		Recipient:     recipient,
		Template:      template,
		Payload:       string(payload),
		Status:        models.OutboxStatusPending,
		NextAttemptAt: time.Now(),
	})
}
