package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReturnInstructions = "Pack the items in their original packaging and hand the parcel " +
	"to the carrier using the reverse logistics code."

type statusService struct {
	repo    *repository.Repository
	gateway PaymentGateway
	log     *zap.Logger
	now     func() time.Time
}

func NewStatusService(repo *repository.Repository, gateway PaymentGateway, log *zap.Logger) StatusService {
	return &statusService{
		repo:    repo,
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
}

func (s *statusService) UpdateStatus(ctx context.Context, orderID uuid.UUID, in UpdateStatusInput) (*models.Order, error) {
	actorID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if role != RoleAdmin {
		return nil, ErrForbidden
	}
	meta, _ := ClientMetaFromContext(ctx)

	var result *models.Order
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		order, err := tx.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		target := in.Status
		if !transitionAllowed(order.Status, target) {
			return &InvalidTransitionError{From: order.Status, To: target}
		}

		now := s.now()
		fields := map[string]any{}
		message := fmt.Sprintf("status changed: %s -> %s", order.Status, target)

		switch target {
		case models.OrderStatusAwaitingReturn:
			if in.ReverseLogisticsCode != nil {
				fields["reverse_logistics_code"] = *in.ReverseLogisticsCode
			}
			instructions := defaultReturnInstructions
			if in.ReturnInstructions != nil && *in.ReturnInstructions != "" {
				instructions = *in.ReturnInstructions
			}
			fields["return_instructions"] = instructions

		case models.OrderStatusDelivered:
			fields["delivered_at"] = now

		case models.OrderStatusRefundRejected:
			if in.RefundRejectionReason != nil {
				fields["refund_rejection_reason"] = *in.RefundRejectionReason
			}
			if in.RefundRejectionProof != nil {
				fields["refund_rejection_proof"] = *in.RefundRejectionProof
			}
		}

		// Отмена оплаченного, но не отгруженного заказа возвращает остатки:
		// списание произошло при подтверждении оплаты
		if target == models.OrderStatusCancelled && order.Status == models.OrderStatusPaid {
			for _, it := range order.Items {
				if _, err := tx.Products.CreditStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}

		// Возврат через шлюз — только при входе в refund-терминальный статус
		// из не-терминального и при наличии транзакции оплаты
		if isRefundTerminal(target) && !isRefundTerminal(order.Status) && order.GatewayTransactionID != nil {
			amount, err := resolveRefundAmount(order, in.RefundAmountCents)
			if err != nil {
				return err
			}

			var amountArg *int64
			if amount != order.TotalCents {
				amountArg = &amount
			}
			if err := s.gateway.Refund(ctx, *order.GatewayTransactionID, amountArg); err != nil {
				s.log.Error("gateway refund failed, rolling back transition",
					zap.String("order_id", order.ID.String()),
					zap.Int64("amount_cents", amount),
					zap.Error(err))
				return fmt.Errorf("%w: %v", ErrGateway, err)
			}

			// Запрошен Refunded, но вернули меньше полной суммы —
			// статус тихо понижается до PartiallyRefunded
			if target == models.OrderStatusRefunded && amount < order.TotalCents {
				target = models.OrderStatusPartiallyRefunded
			}
			message = fmt.Sprintf("refunded %d cents via gateway transaction %s",
				amount, *order.GatewayTransactionID)
		}

		fields["status"] = target
		if in.TrackingCode != nil {
			fields["tracking_code"] = *in.TrackingCode
			message = fmt.Sprintf("%s; tracking code %s", message, *in.TrackingCode)
		}

		if err := tx.Orders.UpdateFields(ctx, order.ID, fields); err != nil {
			return err
		}
		if err := tx.History.Append(ctx, &models.OrderHistory{
			OrderID:   order.ID,
			Status:    target,
			Message:   message,
			ActorID:   &actorID,
			ActorRole: string(role),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := enqueueNotification(ctx, tx.Outbox, order.CustomerEmail, TemplateOrderStatus, map[string]any{
			"order_id": order.ID.String(),
			"status":   string(target),
		}); err != nil {
			return err
		}

		result, err = tx.Orders.GetByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveRefundAmount: явное переопределение -> ранее запрошенная частичная
// сумма -> полная сумма заказа; с валидацией верхних границ
func resolveRefundAmount(order *models.Order, override *int64) (int64, error) {
	amount := order.TotalCents
	if order.RefundRequestedCents != nil {
		amount = *order.RefundRequestedCents
	}
	if override != nil {
		amount = *override
	}

	if amount <= 0 || amount > order.TotalCents {
		return 0, ErrRefundAmountTooHigh
	}
	if order.RefundRequestedCents != nil && amount > *order.RefundRequestedCents {
		return 0, ErrRefundAmountTooHigh
	}
	return amount, nil
}

func (s *statusService) RequestRefund(ctx context.Context, orderID uuid.UUID, in RefundRequestInput) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	meta, _ := ClientMetaFromContext(ctx)

	if in.Type != models.RefundTypeTotal && in.Type != models.RefundTypePartial {
		return nil, ErrRefundQuantityInvalid
	}

	var result *models.Order
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		order, err := tx.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.UserID != userID && role != RoleAdmin {
			return ErrForbidden
		}
		if order.Status != models.OrderStatusPaid && order.Status != models.OrderStatusDelivered {
			return ErrRefundNotAllowed
		}
		if order.RefundType != nil {
			return ErrRefundAlreadyRequested
		}

		var (
			requested int64
			message   string
		)
		switch in.Type {
		case models.RefundTypeTotal:
			requested = order.TotalCents
			for _, it := range order.Items {
				if err := tx.Orders.UpdateItemRefundQuantity(ctx, it.ID, it.Quantity); err != nil {
					return err
				}
			}
			message = fmt.Sprintf("total refund requested: %d cents", requested)

		case models.RefundTypePartial:
			if len(in.Items) == 0 {
				return ErrRefundQuantityInvalid
			}
			byProduct := make(map[uuid.UUID]models.OrderItem, len(order.Items))
			for _, it := range order.Items {
				byProduct[it.ProductID] = it
			}

			// дисконт раскладывается на позиции пропорционально
			discountRatio := 0.0
			if order.SubTotalCents > 0 {
				discountRatio = float64(order.DiscountCents) / float64(order.SubTotalCents)
			}

			// повторные позиции одного товара складываются до проверки,
			// иначе дублями можно запросить больше купленного
			selected := make(map[uuid.UUID]int64, len(in.Items))
			for _, sel := range in.Items {
				if sel.Quantity <= 0 {
					return ErrRefundQuantityInvalid
				}
				selected[sel.ProductID] += int64(sel.Quantity)
			}

			var sum float64
			for productID, qty := range selected {
				it, ok := byProduct[productID]
				if !ok {
					return ErrRefundQuantityInvalid
				}
				if qty > int64(it.Quantity) {
					return ErrRefundQuantityInvalid
				}
				sum += float64(it.UnitPriceCents) * (1 - discountRatio) * float64(qty)
				if err := tx.Orders.UpdateItemRefundQuantity(ctx, it.ID, int32(qty)); err != nil {
					return err
				}
			}
			requested = int64(math.Round(sum))
			message = fmt.Sprintf("partial refund requested: %d cents for %d item(s)",
				requested, len(selected))
		}

		refundType := in.Type
		if err := tx.Orders.UpdateFields(ctx, order.ID, map[string]any{
			"status":                 models.OrderStatusRefundRequested,
			"refund_type":            refundType,
			"refund_requested_cents": requested,
		}); err != nil {
			return err
		}
		if err := tx.History.Append(ctx, &models.OrderHistory{
			OrderID:   order.ID,
			Status:    models.OrderStatusRefundRequested,
			Message:   message,
			ActorID:   &userID,
			ActorRole: string(role),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		if err := enqueueNotification(ctx, tx.Outbox, order.CustomerEmail, TemplateRefundRequested, map[string]any{
			"order_id":        order.ID.String(),
			"requested_cents": requested,
		}); err != nil {
			return err
		}

		result, err = tx.Orders.GetByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
