package service

import (
	"context"

	"shop-service/internal/models"

	"github.com/google/uuid"
)

// Таблица допустимых переходов. Всё, чего здесь нет, — InvalidTransitionError.
var statusTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:      {models.OrderStatusShipped, models.OrderStatusCancelled, models.OrderStatusRefundRequested},
	models.OrderStatusShipped:   {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered: {models.OrderStatusRefundRequested},
	models.OrderStatusRefundRequested: {
		models.OrderStatusAwaitingReturn, models.OrderStatusRefunded,
		models.OrderStatusPartiallyRefunded, models.OrderStatusRefundRejected,
		models.OrderStatusCancelled,
	},
	models.OrderStatusAwaitingReturn: {
		models.OrderStatusRefunded, models.OrderStatusPartiallyRefunded,
		models.OrderStatusRefundRejected,
	},
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, t := range statusTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// refund-терминальные статусы: повторный возврат из них не инициируется
func isRefundTerminal(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusRefunded, models.OrderStatusPartiallyRefunded, models.OrderStatusCancelled:
		return true
	}
	return false
}

type UpdateStatusInput struct {
	Status                models.OrderStatus
	TrackingCode          *string
	ReverseLogisticsCode  *string
	ReturnInstructions    *string
	RefundAmountCents     *int64
	RefundRejectionReason *string
	RefundRejectionProof  *string
}

type RefundItemInput struct {
	ProductID uuid.UUID
	Quantity  int32
}

type RefundRequestInput struct {
	Type  models.RefundType
	Items []RefundItemInput // только для RefundTypePartial
}

type StatusService interface {
	// UpdateStatus — только для администратора
	UpdateStatus(ctx context.Context, orderID uuid.UUID, in UpdateStatusInput) (*models.Order, error)
	// RequestRefund — заявка клиента на возврат (Paid/Delivered, однократно)
	RequestRefund(ctx context.Context, orderID uuid.UUID, in RefundRequestInput) (*models.Order, error)
}
