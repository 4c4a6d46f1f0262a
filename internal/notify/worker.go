package notify

import (
	"context"
	"encoding/json"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"go.uber.org/zap"
)

// Deliverer — транспорт доставки одного уведомления
type Deliverer interface {
	Deliver(ctx context.Context, n models.NotificationOutbox, data map[string]any) error
}

type KafkaDeliverer struct {
	producer *EmailProducer
}

func NewKafkaDeliverer(p *EmailProducer) *KafkaDeliverer {
	return &KafkaDeliverer{producer: p}
}

func (d *KafkaDeliverer) Deliver(ctx context.Context, n models.NotificationOutbox, data map[string]any) error {
	return d.producer.SendEmail(ctx, n.ID.String(), EmailMessage{
		To:       n.Recipient,
		Subject:  subjects[n.Template],
		Template: n.Template,
		Data:     data,
	})
}

type SMTPDeliverer struct {
	sender *SMTPSender
}

func NewSMTPDeliverer(s *SMTPSender) *SMTPDeliverer {
	return &SMTPDeliverer{sender: s}
}

func (d *SMTPDeliverer) Deliver(_ context.Context, n models.NotificationOutbox, data map[string]any) error {
	return d.sender.Send(n.Recipient, n.Template, data)
}

type WorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Interval:    5 * time.Second,
		BatchSize:   50,
		MaxAttempts: 5,
		RetryDelay:  time.Minute,
	}
}

// Worker опрашивает outbox и доставляет накопившиеся уведомления.
// Записи берутся под SKIP LOCKED, так что воркеров может быть несколько.
type Worker struct {
	outbox    repository.OutboxRepo
	deliverer Deliverer
	cfg       WorkerConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewWorker(outbox repository.OutboxRepo, d Deliverer, cfg WorkerConfig, log *zap.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWorkerConfig().Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWorkerConfig().BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultWorkerConfig().MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultWorkerConfig().RetryDelay
	}
	return &Worker{outbox: outbox, deliverer: d, cfg: cfg, log: log, now: time.Now}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch обрабатывает одну пачку записей; выделен отдельно для тестов
func (w *Worker) ProcessBatch(ctx context.Context) {
	// claim-окно равно шагу ретрая: упавший воркер отдаёт свои записи
	// не раньше, чем они всё равно пошли бы на повтор
	list, err := w.outbox.FetchDue(ctx, w.cfg.BatchSize, w.cfg.RetryDelay)
	if err != nil {
		w.log.Error("outbox: не удалось получить записи", zap.Error(err))
		return
	}
	for _, n := range list {
		w.process(ctx, n)
	}
}

func (w *Worker) process(ctx context.Context, n models.NotificationOutbox) {
	var data map[string]any
	if err := json.Unmarshal([]byte(n.Payload), &data); err != nil {
		// битый payload не исправится повтором
		w.log.Error("outbox: некорректный payload",
			zap.String("id", n.ID.String()), zap.Error(err))
		if err := w.outbox.MarkFailed(ctx, n.ID, w.now(), true); err != nil {
			w.log.Error("outbox: не удалось пометить запись", zap.Error(err))
		}
		return
	}

	if err := w.deliverer.Deliver(ctx, n, data); err != nil {
		attempts := int(n.Attempts) + 1
		terminal := attempts >= w.cfg.MaxAttempts
		next := w.now().Add(time.Duration(attempts) * w.cfg.RetryDelay)
		w.log.Warn("outbox: доставка не удалась",
			zap.String("id", n.ID.String()),
			zap.String("template", n.Template),
			zap.Int("attempts", attempts),
			zap.Bool("terminal", terminal),
			zap.Error(err))
		if err := w.outbox.MarkFailed(ctx, n.ID, next, terminal); err != nil {
			w.log.Error("outbox: не удалось пометить запись", zap.Error(err))
		}
		return
	}

	if err := w.outbox.MarkSent(ctx, n.ID, w.now()); err != nil {
		w.log.Error("outbox: не удалось пометить доставку", zap.Error(err))
	}
}
