package repository

import (
	"context"
	"errors"

	"shop-service/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrEventDuplicate = errors.New("webhook event already recorded")

type WebhookEventRepo interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Create возвращает ErrEventDuplicate при гонке на уникальном event_id
	Create(ctx context.Context, eventID string) error
}

type webhookEventRepo struct{ db *gorm.DB }

func NewWebhookEventRepo(db *gorm.DB) WebhookEventRepo { return &webhookEventRepo{db: db} }

func (r *webhookEventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.ProcessedWebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *webhookEventRepo) Create(ctx context.Context, eventID string) error {
	err := r.db.WithContext(ctx).Create(&models.ProcessedWebhookEvent{EventID: eventID}).Error
	if isUniqueViolation(err) {
		return ErrEventDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
