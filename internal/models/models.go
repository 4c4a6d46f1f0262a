package models

import (
	"time"

	"github.com/google/uuid"
)

// Статус заказа — строковый тип, закрытый набор значений (CHECK в миграции)
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "ORDER_STATUS_PENDING"
	OrderStatusPaid              OrderStatus = "ORDER_STATUS_PAID"
	OrderStatusShipped           OrderStatus = "ORDER_STATUS_SHIPPED"
	OrderStatusDelivered         OrderStatus = "ORDER_STATUS_DELIVERED"
	OrderStatusCancelled         OrderStatus = "ORDER_STATUS_CANCELLED"
	OrderStatusRefundRequested   OrderStatus = "ORDER_STATUS_REFUND_REQUESTED"
	OrderStatusAwaitingReturn    OrderStatus = "ORDER_STATUS_AWAITING_RETURN"
	OrderStatusRefunded          OrderStatus = "ORDER_STATUS_REFUNDED"
	OrderStatusPartiallyRefunded OrderStatus = "ORDER_STATUS_PARTIALLY_REFUNDED"
	OrderStatusRefundRejected    OrderStatus = "ORDER_STATUS_REFUND_REJECTED"
)

type RefundType string

const (
	RefundTypeTotal   RefundType = "REFUND_TYPE_TOTAL"
	RefundTypePartial RefundType = "REFUND_TYPE_PARTIAL"
)

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"type:text;not null"`
	PriceCents    int64     `gorm:"not null"`
	StockQuantity int32     `gorm:"not null;default:0"` // CHECK >= 0 в миграции
	IsActive      bool      `gorm:"not null;default:true;index"`

	// Габариты для расчёта доставки
	WeightGrams int32 `gorm:"not null;default:0"`
	WidthCm     int32 `gorm:"not null;default:0"`
	HeightCm    int32 `gorm:"not null;default:0"`
	LengthCm    int32 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

type Cart struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	LastUpdated time.Time `gorm:"not null;default:now()"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_cart_items_cart_product"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	Quantity  int32     `gorm:"not null"` // CHECK > 0 в миграции
	AddedAt   time.Time `gorm:"not null;default:now()"`
}

func (CartItem) TableName() string { return "cart_items" }

type Order struct {
	ID     uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status OrderStatus `gorm:"type:text;not null;default:'ORDER_STATUS_PENDING';index"`

	// Снимок адреса одним текстом: каталожные изменения не трогают историю
	ShippingAddress   string `gorm:"type:text;not null"`
	ShippingMethod    string `gorm:"type:text;not null"`
	ShippingCostCents int64  `gorm:"not null;default:0"`

	SubTotalCents int64   `gorm:"not null;default:0"`
	DiscountCents int64   `gorm:"not null;default:0"`
	TotalCents    int64   `gorm:"not null;default:0"`
	AppliedCoupon *string `gorm:"type:text"`

	GatewayTransactionID *string `gorm:"type:text;index"`

	RefundType            *RefundType `gorm:"type:text"`
	RefundRequestedCents  *int64
	RefundRejectionReason *string `gorm:"type:text"`
	RefundRejectionProof  *string `gorm:"type:text"`

	TrackingCode         *string `gorm:"type:text"`
	ReverseLogisticsCode *string `gorm:"type:text"`
	ReturnInstructions   *string `gorm:"type:text"`
	DeliveredAt          *time.Time

	CustomerEmail     string `gorm:"type:text;not null"`
	CustomerIP        string `gorm:"type:text;not null;default:''"`
	CustomerUserAgent string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`

	// Снимок имени и цены на момент оформления
	ProductName    string `gorm:"type:text;not null"`
	Quantity       int32  `gorm:"not null"`
	UnitPriceCents int64  `gorm:"not null"`
	RefundQuantity int32  `gorm:"not null;default:0"` // CHECK <= quantity в миграции

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderHistory — append-only журнал переходов, никогда не обновляется
type OrderHistory struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status    OrderStatus `gorm:"type:text;not null"`
	Message   string      `gorm:"type:text;not null"`
	ActorID   *uuid.UUID  `gorm:"type:uuid"`
	ActorRole string      `gorm:"type:text;not null;default:''"`
	IP        string      `gorm:"type:text;not null;default:''"`
	UserAgent string      `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time   `gorm:"not null;default:now();index"`
}

func (OrderHistory) TableName() string { return "order_history" }

type Coupon struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string    `gorm:"type:text;not null;uniqueIndex"`
	Percentage int32     `gorm:"not null"` // скидка в процентах от subtotal
	ValidFrom  time.Time `gorm:"not null"`
	ValidTo    time.Time `gorm:"not null"`
	IsActive   bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time `gorm:"not null;default:now()"`
}

func (Coupon) TableName() string { return "coupons" }

type CouponUsage struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_coupon_usages_user_code"`
	CouponCode string    `gorm:"type:text;not null;uniqueIndex:ux_coupon_usages_user_code"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null"`
	UsedAt     time.Time `gorm:"not null;default:now()"`
}

func (CouponUsage) TableName() string { return "coupon_usages" }

// ProcessedWebhookEvent — леджер идемпотентности: event_id шлюза, записанный
// ровно один раз на успешно обработанное событие
type ProcessedWebhookEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID    string    `gorm:"type:text;not null;uniqueIndex"`
	ReceivedAt time.Time `gorm:"not null;default:now()"`
}

func (ProcessedWebhookEvent) TableName() string { return "processed_webhook_events" }

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "OUTBOX_STATUS_PENDING"
	OutboxStatusSent    OutboxStatus = "OUTBOX_STATUS_SENT"
	OutboxStatusFailed  OutboxStatus = "OUTBOX_STATUS_FAILED"
)

// NotificationOutbox — запись создаётся в той же транзакции, что и бизнес-изменение;
// доставка — асинхронно отдельным воркером
type NotificationOutbox struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Recipient     string       `gorm:"type:text;not null"`
	Template      string       `gorm:"type:text;not null"`
	Payload       string       `gorm:"type:jsonb;not null;default:'{}'"`
	Status        OutboxStatus `gorm:"type:text;not null;default:'OUTBOX_STATUS_PENDING';index"`
	Attempts      int32        `gorm:"not null;default:0"`
	NextAttemptAt time.Time    `gorm:"not null;default:now();index"`
	SentAt        *time.Time
	CreatedAt     time.Time `gorm:"not null;default:now()"`
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }

// Setting — явное хранилище фич-флагов (например purchase_enabled),
// читается через FlagService с TTL-кэшем
type Setting struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Setting) TableName() string { return "settings" }
