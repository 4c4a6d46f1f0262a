package service

import (
	"context"
	"errors"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type cartService struct {
	repo  *repository.Repository
	cfg   CartConfig
	log   *zap.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

func NewCartService(repo *repository.Repository, cfg CartConfig, log *zap.Logger) CartService {
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	return &cartService{
		repo:  repo,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// withRetry повторяет транзакцию при конфликте записи: до cfg.Retries попыток
// с линейно растущей задержкой, после — ErrHighConcurrency
func (s *cartService) withRetry(ctx context.Context, fn func(tx *repository.Repository) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		err := s.repo.WithTx(fn)
		if err == nil {
			return nil
		}
		if !isWriteConflict(err) {
			return err
		}
		lastErr = err
		if attempt < s.cfg.Retries {
			s.sleep(time.Duration(attempt) * s.cfg.RetryBackoff)
		}
	}
	s.log.Warn("cart mutation exhausted retries", zap.Error(lastErr))
	return ErrHighConcurrency
}

func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "23505":
			// serialization failure, deadlock, lock not available,
			// unique violation (проигрыш гонки на вставке позиции)
			return true
		}
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (s *cartService) AddItem(ctx context.Context, productID uuid.UUID, qty int32) (*models.Cart, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, ErrQuantityInvalid
	}
	if qty > s.cfg.MaxQtyPerItem {
		return nil, ErrQuantityAboveLimit
	}

	err = s.withRetry(ctx, func(tx *repository.Repository) error {
		p, err := tx.Products.GetByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		if !p.IsActive {
			return ErrProductInactive
		}

		cart, err := tx.Carts.GetOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}

		item, err := tx.Carts.GetItemForUpdate(ctx, cart.ID, productID)
		if err != nil {
			return err
		}

		newQty := qty
		if item != nil {
			newQty = item.Quantity + qty
		}
		if newQty > s.cfg.MaxQtyPerItem {
			return ErrQuantityAboveLimit
		}
		if newQty > p.StockQuantity {
			return &InsufficientStockError{
				ProductID:   p.ID.String(),
				ProductName: p.Name,
				Requested:   newQty,
				Available:   p.StockQuantity,
			}
		}

		now := s.now()
		if item == nil {
			if err := tx.Carts.CreateItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  newQty,
				AddedAt:   now,
			}); err != nil {
				return err
			}
		} else {
			if err := tx.Carts.UpdateItemQuantity(ctx, item.ID, newQty, now); err != nil {
				return err
			}
		}
		return tx.Carts.Touch(ctx, cart.ID, now)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx)
}

func (s *cartService) UpdateQuantity(ctx context.Context, productID uuid.UUID, qty int32) (*models.Cart, error) {
	if qty == 0 {
		return s.RemoveItem(ctx, productID)
	}

	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, ErrQuantityInvalid
	}
	if qty > s.cfg.MaxQtyPerItem {
		return nil, ErrQuantityAboveLimit
	}

	err = s.withRetry(ctx, func(tx *repository.Repository) error {
		p, err := tx.Products.GetByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		if !p.IsActive {
			return ErrProductInactive
		}
		if qty > p.StockQuantity {
			return &InsufficientStockError{
				ProductID:   p.ID.String(),
				ProductName: p.Name,
				Requested:   qty,
				Available:   p.StockQuantity,
			}
		}

		cart, err := tx.Carts.GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartItemNotFound
		}

		item, err := tx.Carts.GetItemForUpdate(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrCartItemNotFound
		}

		now := s.now()
		if err := tx.Carts.UpdateItemQuantity(ctx, item.ID, qty, now); err != nil {
			return err
		}
		return tx.Carts.Touch(ctx, cart.ID, now)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx)
}

func (s *cartService) RemoveItem(ctx context.Context, productID uuid.UUID) (*models.Cart, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	err = s.withRetry(ctx, func(tx *repository.Repository) error {
		cart, err := tx.Carts.GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartItemNotFound
		}
		removed, err := tx.Carts.DeleteItem(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrCartItemNotFound
		}
		return tx.Carts.Touch(ctx, cart.ID, s.now())
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx)
}

func (s *cartService) ClearCart(ctx context.Context) error {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return err
	}

	cart, err := s.repo.Carts.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return s.repo.Carts.ClearByCart(ctx, cart.ID)
}

// GetCart возвращает корзину, предварительно выбрасывая позиции с пропавшими
// или деактивированными товарами; чистка персистится сразу
func (s *cartService) GetCart(ctx context.Context) (*models.Cart, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.Carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.Cart{UserID: userID}, nil
	}
	if len(cart.Items) == 0 {
		return cart, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.repo.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	active := make(map[uuid.UUID]bool, len(products))
	for _, p := range products {
		if p.IsActive {
			active[p.ID] = true
		}
	}

	var (
		kept  []models.CartItem
		stale []uuid.UUID
	)
	for _, it := range cart.Items {
		if active[it.ProductID] {
			kept = append(kept, it)
		} else {
			stale = append(stale, it.ProductID)
		}
	}
	if len(stale) > 0 {
		if err := s.repo.Carts.DeleteItems(ctx, cart.ID, stale); err != nil {
			return nil, err
		}
		s.log.Info("pruned stale cart items",
			zap.String("cart_id", cart.ID.String()), zap.Int("count", len(stale)))
	}
	cart.Items = kept
	return cart, nil
}
