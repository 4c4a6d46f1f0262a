package repository

import (
	"context"
	"time"

	"shop-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxRepo interface {
	Enqueue(ctx context.Context, n *models.NotificationOutbox) error
	// FetchDue забирает готовые к доставке записи и в том же запросе
	// сдвигает им next_attempt_at на claim вперёд: конкурирующие воркеры
	// не делят одну запись, а записи упавшего воркера всплывают после
	// истечения claim
	FetchDue(ctx context.Context, limit int, claim time.Duration) ([]models.NotificationOutbox, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, terminal bool) error
}

type outboxRepo struct{ db *gorm.DB }

func NewOutboxRepo(db *gorm.DB) OutboxRepo { return &outboxRepo{db: db} }

func (r *outboxRepo) Enqueue(ctx context.Context, n *models.NotificationOutbox) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *outboxRepo) FetchDue(ctx context.Context, limit int, claim time.Duration) ([]models.NotificationOutbox, error) {
	if limit <= 0 {
		limit = 50
	}
	if claim <= 0 {
		claim = time.Minute
	}
	var list []models.NotificationOutbox
	err := r.db.WithContext(ctx).Raw(`
UPDATE notification_outbox
SET next_attempt_at = now() + make_interval(secs => ?)
WHERE id IN (
    SELECT id FROM notification_outbox
    WHERE status = ? AND next_attempt_at <= now()
    ORDER BY created_at
    LIMIT ?
    FOR UPDATE SKIP LOCKED
)
RETURNING *
`, claim.Seconds(), models.OutboxStatusPending, limit).Scan(&list).Error
	return list, err
}

func (r *outboxRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.NotificationOutbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  models.OutboxStatusSent,
			"sent_at": at,
		}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, terminal bool) error {
	status := models.OutboxStatusPending
	if terminal {
		status = models.OutboxStatusFailed
	}
	return r.db.WithContext(ctx).Exec(`
UPDATE notification_outbox
SET attempts = attempts + 1,
    next_attempt_at = ?,
    status = ?
WHERE id = ?
`, nextAttemptAt, status, id).Error
}
