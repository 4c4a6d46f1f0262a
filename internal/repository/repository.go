package repository

import "gorm.io/gorm"

type Repository struct {
	DB            *gorm.DB
	Products      ProductRepo
	Carts         CartRepo
	Orders        OrderRepo
	History       HistoryRepo
	Coupons       CouponRepo
	WebhookEvents WebhookEventRepo
	Outbox        OutboxRepo
	Settings      SettingsRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		Products:      NewProductRepo(db),
		Carts:         NewCartRepo(db),
		Orders:        NewOrderRepo(db),
		History:       NewHistoryRepo(db),
		Coupons:       NewCouponRepo(db),
		WebhookEvents: NewWebhookEventRepo(db),
		Outbox:        NewOutboxRepo(db),
		Settings:      NewSettingsRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	if r.DB == nil {
		// бандл собран вручную (моки) — транзакции нет, выполняем как есть
		return fn(r)
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
