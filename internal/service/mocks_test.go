package service_test

import (
	"context"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"

	"github.com/google/uuid"
)

// Моки для всех зависимостей сервисов

// MockProductRepo
type MockProductRepo struct {
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDForUpdateFunc func(ctx context.Context, id uuid.UUID) (*models.Product, error)
	BatchGetByIDsFunc    func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	CreateFunc           func(ctx context.Context, p *models.Product) error
	DebitStockFunc       func(ctx context.Context, id uuid.UUID, qty int32) (bool, error)
	CreditStockFunc      func(ctx context.Context, id uuid.UUID, qty int32) (bool, error)
}

func (m *MockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockProductRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockProductRepo) BatchGetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if m.BatchGetByIDsFunc != nil {
		return m.BatchGetByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *MockProductRepo) Create(ctx context.Context, p *models.Product) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil
}

func (m *MockProductRepo) DebitStock(ctx context.Context, id uuid.UUID, qty int32) (bool, error) {
	if m.DebitStockFunc != nil {
		return m.DebitStockFunc(ctx, id, qty)
	}
	return true, nil
}

func (m *MockProductRepo) CreditStock(ctx context.Context, id uuid.UUID, qty int32) (bool, error) {
	if m.CreditStockFunc != nil {
		return m.CreditStockFunc(ctx, id, qty)
	}
	return true, nil
}

// MockCartRepo
type MockCartRepo struct {
	GetByUserFunc          func(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetOrCreateByUserFunc  func(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	TouchFunc              func(ctx context.Context, cartID uuid.UUID, at time.Time) error
	GetItemFunc            func(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	GetItemForUpdateFunc   func(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItemFunc         func(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantityFunc func(ctx context.Context, itemID uuid.UUID, qty int32, at time.Time) error
	DeleteItemFunc         func(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	DeleteItemsFunc        func(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error
	ClearByCartFunc        func(ctx context.Context, cartID uuid.UUID) error
}

func (m *MockCartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if m.GetByUserFunc != nil {
		return m.GetByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockCartRepo) GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if m.GetOrCreateByUserFunc != nil {
		return m.GetOrCreateByUserFunc(ctx, userID)
	}
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (m *MockCartRepo) Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, cartID, at)
	}
	return nil
}

func (m *MockCartRepo) GetItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, cartID, productID)
	}
	return nil, nil
}

func (m *MockCartRepo) GetItemForUpdate(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	if m.GetItemForUpdateFunc != nil {
		return m.GetItemForUpdateFunc(ctx, cartID, productID)
	}
	return nil, nil
}

func (m *MockCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	if m.CreateItemFunc != nil {
		return m.CreateItemFunc(ctx, item)
	}
	return nil
}

func (m *MockCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int32, at time.Time) error {
	if m.UpdateItemQuantityFunc != nil {
		return m.UpdateItemQuantityFunc(ctx, itemID, qty, at)
	}
	return nil
}

func (m *MockCartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, cartID, productID)
	}
	return true, nil
}

func (m *MockCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	if m.DeleteItemsFunc != nil {
		return m.DeleteItemsFunc(ctx, cartID, productIDs)
	}
	return nil
}

func (m *MockCartRepo) ClearByCart(ctx context.Context, cartID uuid.UUID) error {
	if m.ClearByCartFunc != nil {
		return m.ClearByCartFunc(ctx, cartID)
	}
	return nil
}

// MockOrderRepo
type MockOrderRepo struct {
	CreateFunc                   func(ctx context.Context, o *models.Order) error
	GetByIDFunc                  func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForUserFunc           func(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	GetByIDForUpdateFunc         func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateFieldsFunc             func(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateItemRefundQuantityFunc func(ctx context.Context, itemID uuid.UUID, qty int32) error
	ListFunc                     func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error)
}

func (m *MockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	o.ID = uuid.New()
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	if m.GetByIDForUserFunc != nil {
		return m.GetByIDForUserFunc(ctx, id, userID)
	}
	return nil, nil
}

func (m *MockOrderRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockOrderRepo) UpdateItemRefundQuantity(ctx context.Context, itemID uuid.UUID, qty int32) error {
	if m.UpdateItemRefundQuantityFunc != nil {
		return m.UpdateItemRefundQuantityFunc(ctx, itemID, qty)
	}
	return nil
}

func (m *MockOrderRepo) List(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return nil, 0, nil
}

// MockHistoryRepo
type MockHistoryRepo struct {
	AppendFunc      func(ctx context.Context, h *models.OrderHistory) error
	ListByOrderFunc func(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
}

func (m *MockHistoryRepo) Append(ctx context.Context, h *models.OrderHistory) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, h)
	}
	return nil
}

func (m *MockHistoryRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderID)
	}
	return nil, nil
}

// MockCouponRepo
type MockCouponRepo struct {
	GetByCodeFunc   func(ctx context.Context, code string) (*models.Coupon, error)
	CreateFunc      func(ctx context.Context, c *models.Coupon) error
	UsageExistsFunc func(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	CreateUsageFunc func(ctx context.Context, u *models.CouponUsage) error
}

func (m *MockCouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return nil, nil
}

func (m *MockCouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil
}

func (m *MockCouponRepo) UsageExists(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	if m.UsageExistsFunc != nil {
		return m.UsageExistsFunc(ctx, userID, code)
	}
	return false, nil
}

func (m *MockCouponRepo) CreateUsage(ctx context.Context, u *models.CouponUsage) error {
	if m.CreateUsageFunc != nil {
		return m.CreateUsageFunc(ctx, u)
	}
	return nil
}

// MockWebhookEventRepo
type MockWebhookEventRepo struct {
	ExistsFunc func(ctx context.Context, eventID string) (bool, error)
	CreateFunc func(ctx context.Context, eventID string) error
}

func (m *MockWebhookEventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, eventID)
	}
	return false, nil
}

func (m *MockWebhookEventRepo) Create(ctx context.Context, eventID string) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, eventID)
	}
	return nil
}

// MockOutboxRepo
type MockOutboxRepo struct {
	EnqueueFunc    func(ctx context.Context, n *models.NotificationOutbox) error
	FetchDueFunc   func(ctx context.Context, limit int, claim time.Duration) ([]models.NotificationOutbox, error)
	MarkSentFunc   func(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailedFunc func(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, terminal bool) error
}

func (m *MockOutboxRepo) Enqueue(ctx context.Context, n *models.NotificationOutbox) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, n)
	}
	return nil
}

func (m *MockOutboxRepo) FetchDue(ctx context.Context, limit int, claim time.Duration) ([]models.NotificationOutbox, error) {
	if m.FetchDueFunc != nil {
		return m.FetchDueFunc(ctx, limit, claim)
	}
	return nil, nil
}

func (m *MockOutboxRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id, at)
	}
	return nil
}

func (m *MockOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, terminal bool) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, nextAttemptAt, terminal)
	}
	return nil
}

// MockSettingsRepo
type MockSettingsRepo struct {
	GetFunc    func(ctx context.Context, key string) (*models.Setting, error)
	UpsertFunc func(ctx context.Context, key, value string) error
}

func (m *MockSettingsRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, nil
}

func (m *MockSettingsRepo) Upsert(ctx context.Context, key, value string) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, key, value)
	}
	return nil
}

// MockGateway
type MockGateway struct {
	CreateCheckoutSessionFunc func(ctx context.Context, in service.CheckoutSessionInput) (service.CheckoutSession, error)
	RefundFunc                func(ctx context.Context, transactionID string, amountCents *int64) error
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, in service.CheckoutSessionInput) (service.CheckoutSession, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, in)
	}
	return service.CheckoutSession{RedirectURL: "https://pay.example/session"}, nil
}

func (m *MockGateway) Refund(ctx context.Context, transactionID string, amountCents *int64) error {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, transactionID, amountCents)
	}
	return nil
}

// MockTokens
type MockTokens struct {
	EncryptFunc func(orderID uuid.UUID) (string, error)
	DecryptFunc func(token string) (uuid.UUID, error)
}

func (m *MockTokens) Encrypt(orderID uuid.UUID) (string, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(orderID)
	}
	return "tok-" + orderID.String(), nil
}

func (m *MockTokens) Decrypt(token string) (uuid.UUID, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(token)
	}
	return uuid.Nil, nil
}

// newMockRepo собирает бандл на моках; DB == nil, поэтому WithTx
// выполняет функцию без транзакции
func newMockRepo() *repository.Repository {
	return &repository.Repository{
		Products:      &MockProductRepo{},
		Carts:         &MockCartRepo{},
		Orders:        &MockOrderRepo{},
		History:       &MockHistoryRepo{},
		Coupons:       &MockCouponRepo{},
		WebhookEvents: &MockWebhookEventRepo{},
		Outbox:        &MockOutboxRepo{},
		Settings:      &MockSettingsRepo{},
	}
}

func authedCtx(userID uuid.UUID, role service.Role) context.Context {
	ctx := service.WithUserID(context.Background(), userID)
	ctx = service.WithRole(ctx, role)
	ctx = service.WithEmail(ctx, "user@example.com")
	return ctx
}
