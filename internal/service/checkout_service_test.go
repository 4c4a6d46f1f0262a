package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func checkoutCfg() service.CheckoutConfig {
	return service.CheckoutConfig{
		MinTotalCents: 100,
		MaxTotalCents: 5_000_000,
		Currency:      "USD",
	}
}

func validAddress() service.AddressInput {
	return service.AddressInput{
		Line1:   "1 Main st",
		City:    "Springfield",
		Country: "US",
		Zip:     "12345",
	}
}

func newCheckoutService(repo *repository.Repository, gw service.PaymentGateway, providers ...service.ShippingProvider) service.CheckoutService {
	if len(providers) == 0 {
		providers = []service.ShippingProvider{&stubProvider{
			name: "flat",
			opts: []service.ShippingOption{{Name: "Standard", PriceCents: 1500, DeliveryDays: 7, Provider: "flat"}},
		}}
	}
	flags := service.NewFlagService(repo.Settings, time.Minute)
	reg := service.NewShippingRegistry(zap.NewNop(), providers...)
	return service.NewCheckoutService(repo, reg, gw, flags, &MockTokens{}, checkoutCfg(), zap.NewNop())
}

// корзина из двух позиций: 2 x 1000 + 1 x 3000 = 5000 центов
func seedCheckoutRepo(t *testing.T, userID uuid.UUID) (*repository.Repository, uuid.UUID, uuid.UUID) {
	t.Helper()
	cartID := uuid.New()
	p1 := uuid.New()
	p2 := uuid.New()

	repo := newMockRepo()
	repo.Carts = &MockCartRepo{
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid, Items: []models.CartItem{
				{ProductID: p1, Quantity: 2},
				{ProductID: p2, Quantity: 1},
			}}, nil
		},
	}
	repo.Products = &MockProductRepo{
		BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
			return []models.Product{
				{ID: p1, Name: "Mug", PriceCents: 1000, StockQuantity: 5, IsActive: true, WeightGrams: 300},
				{ID: p2, Name: "Teapot", PriceCents: 3000, StockQuantity: 5, IsActive: true, WeightGrams: 900},
			}, nil
		},
	}
	return repo, p1, p2
}

func TestCheckout_CreateOrderFromCart(t *testing.T) {
	userID := uuid.New()
	repo, _, _ := seedCheckoutRepo(t, userID)

	var (
		createdOrder *models.Order
		history      *models.OrderHistory
		cleared      bool
		notified     *models.NotificationOutbox
	)
	repo.Orders = &MockOrderRepo{
		CreateFunc: func(ctx context.Context, o *models.Order) error {
			o.ID = uuid.New()
			createdOrder = o
			return nil
		},
	}
	repo.History = &MockHistoryRepo{
		AppendFunc: func(ctx context.Context, h *models.OrderHistory) error {
			history = h
			return nil
		},
	}
	repo.Carts.(*MockCartRepo).ClearByCartFunc = func(ctx context.Context, cartID uuid.UUID) error {
		cleared = true
		return nil
	}
	repo.Outbox = &MockOutboxRepo{
		EnqueueFunc: func(ctx context.Context, n *models.NotificationOutbox) error {
			notified = n
			return nil
		},
	}

	svc := newCheckoutService(repo, &MockGateway{})
	order, err := svc.CreateOrderFromCart(authedCtx(userID, service.RoleCustomer), service.CheckoutInput{
		Address:        validAddress(),
		ShippingMethod: "standard", // матчинг имени без учёта регистра
	})
	if err != nil {
		t.Fatalf("CreateOrderFromCart: %v", err)
	}

	if order.SubTotalCents != 5000 {
		t.Fatalf("subtotal expected 5000 got %d", order.SubTotalCents)
	}
	if order.ShippingCostCents != 1500 {
		t.Fatalf("shipping expected 1500 got %d", order.ShippingCostCents)
	}
	if order.TotalCents != 6500 {
		t.Fatalf("total expected 6500 got %d", order.TotalCents)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("status expected PENDING got %s", order.Status)
	}
	if len(createdOrder.Items) != 2 || createdOrder.Items[0].ProductName == "" {
		t.Fatalf("order items must snapshot product data: %+v", createdOrder.Items)
	}
	if !strings.Contains(order.ShippingAddress, "Springfield") {
		t.Fatalf("address snapshot mismatch: %q", order.ShippingAddress)
	}
	if history == nil || history.Status != models.OrderStatusPending {
		t.Fatalf("history entry missing: %+v", history)
	}
	if !cleared {
		t.Fatalf("cart must be cleared in the same transaction")
	}
	if notified == nil || notified.Template != service.TemplateOrderReceived {
		t.Fatalf("order_received notification expected, got %+v", notified)
	}
}

func TestCheckout_CouponDiscount(t *testing.T) {
	userID := uuid.New()
	repo, _, _ := seedCheckoutRepo(t, userID)

	var usage *models.CouponUsage
	repo.Coupons = &MockCouponRepo{
		GetByCodeFunc: func(ctx context.Context, code string) (*models.Coupon, error) {
			return &models.Coupon{
				Code:       "SAVE10",
				Percentage: 10,
				ValidFrom:  time.Now().Add(-time.Hour),
				ValidTo:    time.Now().Add(time.Hour),
				IsActive:   true,
			}, nil
		},
		CreateUsageFunc: func(ctx context.Context, u *models.CouponUsage) error {
			usage = u
			return nil
		},
	}

	svc := newCheckoutService(repo, &MockGateway{})
	order, err := svc.CreateOrderFromCart(authedCtx(userID, service.RoleCustomer), service.CheckoutInput{
		Address:        validAddress(),
		CouponCode:     "SAVE10",
		ShippingMethod: "Standard",
	})
	if err != nil {
		t.Fatalf("CreateOrderFromCart: %v", err)
	}

	// 5000 - 10% + 1500 доставка
	if order.DiscountCents != 500 {
		t.Fatalf("discount expected 500 got %d", order.DiscountCents)
	}
	if order.TotalCents != 6000 {
		t.Fatalf("total expected 6000 got %d", order.TotalCents)
	}
	if order.AppliedCoupon == nil || *order.AppliedCoupon != "SAVE10" {
		t.Fatalf("coupon snapshot mismatch: %v", order.AppliedCoupon)
	}
	if usage == nil || usage.CouponCode != "SAVE10" || usage.UserID != userID {
		t.Fatalf("coupon usage must be recorded: %+v", usage)
	}
}

func TestCheckout_CouponRejections(t *testing.T) {
	userID := uuid.New()
	ctx := authedCtx(userID, service.RoleCustomer)
	in := service.CheckoutInput{Address: validAddress(), CouponCode: "SAVE10", ShippingMethod: "Standard"}

	t.Run("unknown or inactive", func(t *testing.T) {
		repo, _, _ := seedCheckoutRepo(t, userID)
		svc := newCheckoutService(repo, &MockGateway{})
		if _, err := svc.CreateOrderFromCart(ctx, in); !errors.Is(err, service.ErrCouponNotFound) {
			t.Fatalf("expected ErrCouponNotFound, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		repo, _, _ := seedCheckoutRepo(t, userID)
		repo.Coupons = &MockCouponRepo{
			GetByCodeFunc: func(ctx context.Context, code string) (*models.Coupon, error) {
				return &models.Coupon{
					Code: "SAVE10", Percentage: 10, IsActive: true,
					ValidFrom: time.Now().Add(-2 * time.Hour),
					ValidTo:   time.Now().Add(-time.Hour),
				}, nil
			},
		}
		svc := newCheckoutService(repo, &MockGateway{})
		if _, err := svc.CreateOrderFromCart(ctx, in); !errors.Is(err, service.ErrCouponExpired) {
			t.Fatalf("expected ErrCouponExpired, got %v", err)
		}
	})

	t.Run("already used", func(t *testing.T) {
		repo, _, _ := seedCheckoutRepo(t, userID)
		repo.Coupons = &MockCouponRepo{
			GetByCodeFunc: func(ctx context.Context, code string) (*models.Coupon, error) {
				return &models.Coupon{
					Code: "SAVE10", Percentage: 10, IsActive: true,
					ValidFrom: time.Now().Add(-time.Hour),
					ValidTo:   time.Now().Add(time.Hour),
				}, nil
			},
			UsageExistsFunc: func(ctx context.Context, uid uuid.UUID, code string) (bool, error) {
				return true, nil
			},
		}
		svc := newCheckoutService(repo, &MockGateway{})
		if _, err := svc.CreateOrderFromCart(ctx, in); !errors.Is(err, service.ErrCouponAlreadyUsed) {
			t.Fatalf("expected ErrCouponAlreadyUsed, got %v", err)
		}
	})
}

func TestCheckout_Guards(t *testing.T) {
	userID := uuid.New()
	ctx := authedCtx(userID, service.RoleCustomer)

	t.Run("empty cart", func(t *testing.T) {
		repo := newMockRepo()
		svc := newCheckoutService(repo, &MockGateway{})
		_, err := svc.CreateOrderFromCart(ctx, service.CheckoutInput{Address: validAddress(), ShippingMethod: "Standard"})
		if !errors.Is(err, service.ErrCartEmpty) {
			t.Fatalf("expected ErrCartEmpty, got %v", err)
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		repo, _, _ := seedCheckoutRepo(t, userID)
		svc := newCheckoutService(repo, &MockGateway{})
		_, err := svc.CreateOrderFromCart(ctx, service.CheckoutInput{ShippingMethod: "Standard"})
		if !errors.Is(err, service.ErrAddressInvalid) {
			t.Fatalf("expected ErrAddressInvalid, got %v", err)
		}
	})

	t.Run("purchase disabled", func(t *testing.T) {
		repo, _, _ := seedCheckoutRepo(t, userID)
		repo.Settings = &MockSettingsRepo{
			GetFunc: func(ctx context.Context, key string) (*models.Setting, error) {
				return &models.Setting{Key: key, Value: "false"}, nil
			},
		}
		svc := newCheckoutService(repo, &MockGateway{})
		_, err := svc.CreateOrderFromCart(ctx, service.CheckoutInput{Address: validAddress(), ShippingMethod: "Standard"})
		if !errors.Is(err, service.ErrPurchaseDisabled) {
			t.Fatalf("expected ErrPurchaseDisabled, got %v", err)
		}
	})

	t.Run("unknown shipping method", func(t *testing.T) {
		repo, _, _ := seedCheckoutRepo(t, userID)
		svc := newCheckoutService(repo, &MockGateway{})
		_, err := svc.CreateOrderFromCart(ctx, service.CheckoutInput{Address: validAddress(), ShippingMethod: "Drone"})
		if !errors.Is(err, service.ErrShippingNoMatch) {
			t.Fatalf("expected ErrShippingNoMatch, got %v", err)
		}
	})

	t.Run("stock drained after carting", func(t *testing.T) {
		repo, p1, p2 := seedCheckoutRepo(t, userID)
		repo.Products = &MockProductRepo{
			BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
				return []models.Product{
					{ID: p1, Name: "Mug", PriceCents: 1000, StockQuantity: 1, IsActive: true},
					{ID: p2, Name: "Teapot", PriceCents: 3000, StockQuantity: 5, IsActive: true},
				}, nil
			},
		}
		svc := newCheckoutService(repo, &MockGateway{})
		_, err := svc.CreateOrderFromCart(ctx, service.CheckoutInput{Address: validAddress(), ShippingMethod: "Standard"})
		if !errors.Is(err, service.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
	})

	t.Run("total above cap", func(t *testing.T) {
		repo, p1, p2 := seedCheckoutRepo(t, userID)
		repo.Products = &MockProductRepo{
			BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
				return []models.Product{
					{ID: p1, Name: "Mug", PriceCents: 4_000_000, StockQuantity: 5, IsActive: true},
					{ID: p2, Name: "Teapot", PriceCents: 3000, StockQuantity: 5, IsActive: true},
				}, nil
			},
		}
		svc := newCheckoutService(repo, &MockGateway{})
		_, err := svc.CreateOrderFromCart(ctx, service.CheckoutInput{Address: validAddress(), ShippingMethod: "Standard"})
		if !errors.Is(err, service.ErrTotalOutOfBounds) {
			t.Fatalf("expected ErrTotalOutOfBounds, got %v", err)
		}
	})
}

func TestCheckout_CreatePaymentSession(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	repo := newMockRepo()
	repo.Orders = &MockOrderRepo{
		GetByIDForUserFunc: func(ctx context.Context, id, uid uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, UserID: uid, Status: models.OrderStatusPending, TotalCents: 6500, CustomerEmail: "user@example.com"}, nil
		},
	}

	var sessionIn service.CheckoutSessionInput
	gw := &MockGateway{
		CreateCheckoutSessionFunc: func(ctx context.Context, in service.CheckoutSessionInput) (service.CheckoutSession, error) {
			sessionIn = in
			return service.CheckoutSession{RedirectURL: "https://pay.example/abc"}, nil
		},
	}

	svc := newCheckoutService(repo, gw)
	url, err := svc.CreatePaymentSession(authedCtx(userID, service.RoleCustomer), orderID)
	if err != nil {
		t.Fatalf("CreatePaymentSession: %v", err)
	}
	if url != "https://pay.example/abc" {
		t.Fatalf("redirect url mismatch: %s", url)
	}
	if sessionIn.AmountCents != 6500 || sessionIn.Currency != "USD" {
		t.Fatalf("session input mismatch: %+v", sessionIn)
	}
	// в метаданные уходит шифрованный токен, а не сырой id
	if sessionIn.OrderRef == orderID.String() || sessionIn.OrderRef == "" {
		t.Fatalf("order ref must be an encrypted token, got %q", sessionIn.OrderRef)
	}
}

func TestCheckout_CreatePaymentSession_NotPending(t *testing.T) {
	userID := uuid.New()
	repo := newMockRepo()
	repo.Orders = &MockOrderRepo{
		GetByIDForUserFunc: func(ctx context.Context, id, uid uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, UserID: uid, Status: models.OrderStatusPaid}, nil
		},
	}

	svc := newCheckoutService(repo, &MockGateway{})
	_, err := svc.CreatePaymentSession(authedCtx(userID, service.RoleCustomer), uuid.New())

	var transition *service.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestCheckout_GetOrder_Scoping(t *testing.T) {
	owner := uuid.New()
	orderID := uuid.New()

	repo := newMockRepo()
	repo.Orders = &MockOrderRepo{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, UserID: owner}, nil
		},
		GetByIDForUserFunc: func(ctx context.Context, id, uid uuid.UUID) (*models.Order, error) {
			if uid != owner {
				return nil, nil
			}
			return &models.Order{ID: id, UserID: uid}, nil
		},
	}

	svc := newCheckoutService(repo, &MockGateway{})

	if _, err := svc.GetOrder(authedCtx(owner, service.RoleCustomer), orderID); err != nil {
		t.Fatalf("owner GetOrder: %v", err)
	}
	if _, err := svc.GetOrder(authedCtx(uuid.New(), service.RoleCustomer), orderID); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("stranger must get ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.GetOrder(authedCtx(uuid.New(), service.RoleAdmin), orderID); err != nil {
		t.Fatalf("admin GetOrder: %v", err)
	}
}

func TestCheckout_ListOrders_UserScoped(t *testing.T) {
	userID := uuid.New()

	var gotFilter repository.OrderListFilter
	repo := newMockRepo()
	repo.Orders = &MockOrderRepo{
		ListFunc: func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
			gotFilter = f
			return []*models.Order{{ID: uuid.New(), UserID: userID}}, 1, nil
		},
	}

	svc := newCheckoutService(repo, &MockGateway{})
	_, total, err := svc.ListOrders(authedCtx(userID, service.RoleCustomer), service.OrderListInput{Limit: 10})
	if err != nil || total != 1 {
		t.Fatalf("ListOrders: total=%d err=%v", total, err)
	}
	if gotFilter.UserID == nil || *gotFilter.UserID != userID {
		t.Fatalf("customer list must be scoped to own orders: %+v", gotFilter)
	}

	_, _, err = svc.ListOrders(authedCtx(uuid.New(), service.RoleAdmin), service.OrderListInput{Limit: 10})
	if err != nil {
		t.Fatalf("admin ListOrders: %v", err)
	}
	if gotFilter.UserID != nil {
		t.Fatalf("admin list must not be user-scoped: %+v", gotFilter)
	}
}
