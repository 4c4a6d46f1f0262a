package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type checkoutService struct {
	repo     *repository.Repository
	shipping *ShippingRegistry
	gateway  PaymentGateway
	flags    *FlagService
	tokens   OrderTokenCodec
	cfg      CheckoutConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewCheckoutService(
	repo *repository.Repository,
	shipping *ShippingRegistry,
	gateway PaymentGateway,
	flags *FlagService,
	tokens OrderTokenCodec,
	cfg CheckoutConfig,
	log *zap.Logger,
) CheckoutService {
	return &checkoutService{
		repo:     repo,
		shipping: shipping,
		gateway:  gateway,
		flags:    flags,
		tokens:   tokens,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *checkoutService) CreateOrderFromCart(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	_ = role

	if !s.flags.Bool(ctx, FlagPurchaseEnabled, true) {
		return nil, ErrPurchaseDisabled
	}
	if !in.Address.Valid() {
		return nil, ErrAddressInvalid
	}

	cart, err := s.repo.Carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}
	for _, it := range cart.Items {
		if it.Quantity <= 0 {
			return nil, ErrCartEmpty
		}
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.repo.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Доставка: опрос провайдеров и выбор варианта по имени метода
	shipItems := make([]ShippingItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		shipItems = append(shipItems, ShippingItem{
			WeightGrams: p.WeightGrams,
			WidthCm:     p.WidthCm,
			HeightCm:    p.HeightCm,
			LengthCm:    p.LengthCm,
			Quantity:    it.Quantity,
		})
	}
	options := s.shipping.Calculate(ctx, in.Address.Zip, shipItems)
	wanted := strings.TrimSpace(in.ShippingMethod)
	var selected *ShippingOption
	for i := range options {
		if strings.EqualFold(strings.TrimSpace(options[i].Name), wanted) {
			selected = &options[i]
			break
		}
	}
	if selected == nil {
		return nil, ErrShippingNoMatch
	}

	// Повторная проверка склада именно в этот момент (отдельно от проверки при
	// добавлении в корзину); списание произойдёт только при подтверждении оплаты
	var subTotal int64
	orderItems := make([]models.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p := byID[it.ProductID]
		if p.StockQuantity < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID:   p.ID.String(),
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.StockQuantity,
			}
		}
		subTotal += int64(it.Quantity) * p.PriceCents
		orderItems = append(orderItems, models.OrderItem{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
		})
	}

	var (
		discount   int64
		couponCode *string
	)
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		coupon, err := s.repo.Coupons.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if coupon == nil || !coupon.IsActive {
			return nil, ErrCouponNotFound
		}
		now := s.now()
		if now.Before(coupon.ValidFrom) || now.After(coupon.ValidTo) {
			return nil, ErrCouponExpired
		}
		used, err := s.repo.Coupons.UsageExists(ctx, userID, coupon.Code)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrCouponAlreadyUsed
		}
		discount = subTotal * int64(coupon.Percentage) / 100
		couponCode = &coupon.Code
	}

	total := subTotal - discount + selected.PriceCents
	if total < s.cfg.MinTotalCents || total > s.cfg.MaxTotalCents {
		return nil, ErrTotalOutOfBounds
	}

	email, _ := EmailFromContext(ctx)
	meta, _ := ClientMetaFromContext(ctx)
	now := s.now()

	order := &models.Order{
		UserID:            userID,
		Status:            models.OrderStatusPending,
		ShippingAddress:   in.Address.Format(),
		ShippingMethod:    selected.Name,
		ShippingCostCents: selected.PriceCents,
		SubTotalCents:     subTotal,
		DiscountCents:     discount,
		TotalCents:        total,
		AppliedCoupon:     couponCode,
		CustomerEmail:     email,
		CustomerIP:        meta.IP,
		CustomerUserAgent: meta.UserAgent,
		CreatedAt:         now,
		UpdatedAt:         now,
		Items:             orderItems,
	}

	// Одна атомарная транзакция: заказ + позиции + аудит + купон + очистка
	// корзины + outbox. Любой сбой откатывает всё целиком.
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		if err := tx.History.Append(ctx, &models.OrderHistory{
			OrderID:   order.ID,
			Status:    models.OrderStatusPending,
			Message:   "created via checkout",
			ActorID:   &userID,
			ActorRole: string(RoleCustomer),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if couponCode != nil {
			if err := tx.Coupons.CreateUsage(ctx, &models.CouponUsage{
				UserID:     userID,
				CouponCode: *couponCode,
				OrderID:    order.ID,
				UsedAt:     now,
			}); err != nil {
				return err
			}
		}
		if err := tx.Carts.ClearByCart(ctx, cart.ID); err != nil {
			return err
		}
		return enqueueNotification(ctx, tx.Outbox, email, TemplateOrderReceived, map[string]any{
			"order_id":    order.ID.String(),
			"total_cents": total,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("total_cents", total))
	return order, nil
}

func (s *checkoutService) CreatePaymentSession(ctx context.Context, orderID uuid.UUID) (string, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return "", err
	}

	order, err := s.repo.Orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrOrderNotFound
	}
	if order.Status != models.OrderStatusPending {
		return "", &InvalidTransitionError{From: order.Status, To: models.OrderStatusPaid}
	}

	// Идентификатор заказа уходит в метаданные сессии только в зашифрованном
	// виде: подделанный или угаданный id не пройдёт проверку вебхука
	ref, err := s.tokens.Encrypt(order.ID)
	if err != nil {
		return "", err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionInput{
		OrderRef:      ref,
		AmountCents:   order.TotalCents,
		Currency:      s.cfg.Currency,
		Description:   fmt.Sprintf("order %s", order.ID),
		CustomerEmail: order.CustomerEmail,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return session.RedirectURL, nil
}

func (s *checkoutService) ShippingOptions(ctx context.Context, destinationZip string) ([]ShippingOption, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.Carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.repo.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]ShippingItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		items = append(items, ShippingItem{
			WeightGrams: p.WeightGrams,
			WidthCm:     p.WidthCm,
			HeightCm:    p.HeightCm,
			LengthCm:    p.LengthCm,
			Quantity:    it.Quantity,
		})
	}
	return s.shipping.Calculate(ctx, destinationZip, items), nil
}

func (s *checkoutService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	var ord *models.Order
	if role == RoleAdmin {
		ord, err = s.repo.Orders.GetByID(ctx, id)
	} else {
		ord, err = s.repo.Orders.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, in OrderListInput) ([]models.Order, int64, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}

	f := repository.OrderListFilter{
		Status: in.Status,
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if role != RoleAdmin {
		f.UserID = &userID
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

func (s *checkoutService) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.History.ListByOrder(ctx, orderID)
}
