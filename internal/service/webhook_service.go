package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"go.uber.org/zap"
)

type webhookService struct {
	repo     *repository.Repository
	gateway  PaymentGateway
	tokens   OrderTokenCodec
	secret   []byte
	currency string
	opsEmail string
	log      *zap.Logger
	now      func() time.Time
}

func NewWebhookService(
	repo *repository.Repository,
	gateway PaymentGateway,
	tokens OrderTokenCodec,
	secret []byte,
	currency string,
	opsEmail string,
	log *zap.Logger,
) WebhookService {
	return &webhookService{
		repo:     repo,
		gateway:  gateway,
		tokens:   tokens,
		secret:   secret,
		currency: currency,
		opsEmail: opsEmail,
		log:      log,
		now:      time.Now,
	}
}

func (s *webhookService) HandleEvent(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !s.verifySignature(body, signature) {
		s.log.Error("webhook signature verification failed",
			zap.Int("body_len", len(body)))
		return WebhookResult{}, ErrBadSignature
	}

	var ev GatewayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookResult{}, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if ev.EventID == "" {
		return WebhookResult{}, fmt.Errorf("malformed webhook payload: missing event_id")
	}

	processed, err := s.repo.WebhookEvents.Exists(ctx, ev.EventID)
	if err != nil {
		return WebhookResult{}, err
	}
	if processed {
		return WebhookResult{AlreadyProcessed: true}, nil
	}

	switch ev.Type {
	case EventTypeCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, ev)
	default:
		// незнакомые типы фиксируем в леджере и подтверждаем, чтобы шлюз
		// не ретраил их бесконечно
		s.log.Info("ignoring webhook event of unknown type",
			zap.String("event_id", ev.EventID), zap.String("type", ev.Type))
		if err := s.repo.WebhookEvents.Create(ctx, ev.EventID); err != nil &&
			!errors.Is(err, repository.ErrEventDuplicate) {
			return WebhookResult{}, err
		}
		return WebhookResult{}, nil
	}
}

func (s *webhookService) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (s *webhookService) handleCheckoutCompleted(ctx context.Context, ev GatewayEvent) (WebhookResult, error) {
	orderID, err := s.tokens.Decrypt(ev.OrderToken)
	if err != nil {
		// повреждённые/подделанные метаданные — инцидент безопасности;
		// событие не фиксируется, шлюз получит ретрай
		s.log.Error("order token decryption failed: possible tampering",
			zap.String("event_id", ev.EventID), zap.Error(err))
		return WebhookResult{}, ErrOrderTokenInvalid
	}

	order, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return WebhookResult{}, err
	}
	if order == nil {
		return WebhookResult{}, ErrOrderNotFound
	}

	// валюта не та — сумма в минорных единицах несопоставима, это то же
	// расхождение сумм
	if ev.AmountCents != order.TotalCents || !strings.EqualFold(ev.Currency, s.currency) {
		// алерт в операционный канал, заказ не трогаем, событие НЕ
		// фиксируем — исправленный resend шлюза сможет пройти
		reason := "amount_mismatch"
		if ev.AmountCents == order.TotalCents {
			reason = "currency_mismatch"
		}
		s.log.Error("paid amount mismatch",
			zap.String("event_id", ev.EventID),
			zap.String("order_id", order.ID.String()),
			zap.String("reason", reason),
			zap.Int64("reported_cents", ev.AmountCents),
			zap.String("reported_currency", ev.Currency),
			zap.Int64("order_total_cents", order.TotalCents))
		if nerr := enqueueNotification(ctx, s.repo.Outbox, s.opsEmail, TemplateSecurityAlert, map[string]any{
			"reason":            reason,
			"event_id":          ev.EventID,
			"order_id":          order.ID.String(),
			"reported_cents":    ev.AmountCents,
			"reported_currency": ev.Currency,
			"order_total_cents": order.TotalCents,
			"gateway_tx":        ev.TransactionID,
		}); nerr != nil {
			s.log.Error("failed to enqueue security alert", zap.Error(nerr))
		}
		return WebhookResult{}, ErrAmountMismatch
	}

	result := WebhookResult{}
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		locked, err := tx.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if locked.Status != models.OrderStatusPending {
			// заказ уже оплачен/отменён — дубликат или переупорядоченная
			// доставка; фиксируем событие без побочных эффектов
			if err := tx.WebhookEvents.Create(ctx, ev.EventID); err != nil {
				return err
			}
			result.AlreadyProcessed = true
			return nil
		}

		// Повторная проверка склада под блокировками строк товаров.
		// Политика: одна попытка; при нехватке — полный возврат и отмена.
		var outOfStock []string
		for _, it := range locked.Items {
			p, err := tx.Products.GetByIDForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p == nil || p.StockQuantity < it.Quantity {
				outOfStock = append(outOfStock, it.ProductName)
			}
		}

		meta := ClientMeta{} // системный переход, без клиентского контекста
		now := s.now()

		if len(outOfStock) > 0 {
			// Возврат строго до отмены: если сам вызов возврата упал,
			// транзакция откатывается и заказ остаётся неоплаченным —
			// дальше разбирается оператор
			if err := s.gateway.Refund(ctx, ev.TransactionID, nil); err != nil {
				s.log.Error("refund for oversold order failed",
					zap.String("order_id", locked.ID.String()), zap.Error(err))
				return fmt.Errorf("%w: %v", ErrGateway, err)
			}
			if err := tx.Orders.UpdateFields(ctx, locked.ID, map[string]any{
				"status":                 models.OrderStatusCancelled,
				"gateway_transaction_id": ev.TransactionID,
			}); err != nil {
				return err
			}
			if err := tx.History.Append(ctx, &models.OrderHistory{
				OrderID:   locked.ID,
				Status:    models.OrderStatusCancelled,
				Message:   fmt.Sprintf("payment refunded: out of stock: %s", strings.Join(outOfStock, ", ")),
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
				CreatedAt: now,
			}); err != nil {
				return err
			}
			if err := enqueueNotification(ctx, tx.Outbox, locked.CustomerEmail, TemplateOrderCancelled, map[string]any{
				"order_id":     locked.ID.String(),
				"out_of_stock": outOfStock,
			}); err != nil {
				return err
			}
		} else {
			for _, it := range locked.Items {
				ok, err := tx.Products.DebitStock(ctx, it.ProductID, it.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					// под блокировкой невозможно, кроме гонки вне нашего кода
					return &InsufficientStockError{
						ProductID:   it.ProductID.String(),
						ProductName: it.ProductName,
						Requested:   it.Quantity,
					}
				}
			}
			if err := tx.Orders.UpdateFields(ctx, locked.ID, map[string]any{
				"status":                 models.OrderStatusPaid,
				"gateway_transaction_id": ev.TransactionID,
			}); err != nil {
				return err
			}
			if err := tx.History.Append(ctx, &models.OrderHistory{
				OrderID:   locked.ID,
				Status:    models.OrderStatusPaid,
				Message:   fmt.Sprintf("payment confirmed, gateway transaction %s", ev.TransactionID),
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
				CreatedAt: now,
			}); err != nil {
				return err
			}
			if err := enqueueNotification(ctx, tx.Outbox, locked.CustomerEmail, TemplateOrderPaid, map[string]any{
				"order_id":    locked.ID.String(),
				"total_cents": locked.TotalCents,
			}); err != nil {
				return err
			}
		}

		// Запись в леджер в той же транзакции: эффект и отметка атомарны
		return tx.WebhookEvents.Create(ctx, ev.EventID)
	})
	if errors.Is(err, repository.ErrEventDuplicate) {
		// конкурентная доставка успела раньше — наш набор эффектов откатился
		return WebhookResult{AlreadyProcessed: true}, nil
	}
	if err != nil {
		return WebhookResult{}, err
	}
	return result, nil
}
