package repository

import (
	"context"

	"shop-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepo — только Append и чтение: журнал аудита не редактируется
type HistoryRepo interface {
	Append(ctx context.Context, h *models.OrderHistory) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
}

type historyRepo struct{ db *gorm.DB }

func NewHistoryRepo(db *gorm.DB) HistoryRepo { return &historyRepo{db: db} }

func (r *historyRepo) Append(ctx context.Context, h *models.OrderHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *historyRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var list []models.OrderHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}
