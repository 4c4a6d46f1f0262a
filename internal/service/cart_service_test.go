package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

func cartCfg() service.CartConfig {
	return service.CartConfig{
		MaxQtyPerItem: 20,
		Retries:       3,
		RetryBackoff:  time.Millisecond,
	}
}

func TestCartService_AddItem_CreatesItem(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	cartID := uuid.New()

	var created *models.CartItem
	repo := newMockRepo()
	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, Name: "Mug", PriceCents: 500, StockQuantity: 10, IsActive: true}, nil
		},
		BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
			return []models.Product{{ID: productID, IsActive: true}}, nil
		},
	}
	repo.Carts = &MockCartRepo{
		GetOrCreateByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid}, nil
		},
		CreateItemFunc: func(ctx context.Context, item *models.CartItem) error {
			created = item
			return nil
		},
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			if created == nil {
				return &models.Cart{ID: cartID, UserID: uid}, nil
			}
			return &models.Cart{ID: cartID, UserID: uid, Items: []models.CartItem{*created}}, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	cart, err := svc.AddItem(authedCtx(userID, service.RoleCustomer), productID, 3)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if created == nil || created.Quantity != 3 {
		t.Fatalf("created item mismatch: %+v", created)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("cart items expected 1 got %d", len(cart.Items))
	}
}

func TestCartService_AddItem_MergesQuantityAndCaps(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	cartID := uuid.New()
	itemID := uuid.New()

	var updatedQty int32
	repo := newMockRepo()
	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, Name: "Mug", StockQuantity: 100, IsActive: true}, nil
		},
		BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
			return []models.Product{{ID: productID, IsActive: true}}, nil
		},
	}
	repo.Carts = &MockCartRepo{
		GetOrCreateByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid}, nil
		},
		GetItemForUpdateFunc: func(ctx context.Context, cid, pid uuid.UUID) (*models.CartItem, error) {
			return &models.CartItem{ID: itemID, CartID: cid, ProductID: pid, Quantity: 5}, nil
		},
		UpdateItemQuantityFunc: func(ctx context.Context, id uuid.UUID, qty int32, at time.Time) error {
			updatedQty = qty
			return nil
		},
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid, Items: []models.CartItem{
				{ProductID: productID, Quantity: updatedQty},
			}}, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	ctx := authedCtx(userID, service.RoleCustomer)

	if _, err := svc.AddItem(ctx, productID, 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if updatedQty != 8 {
		t.Fatalf("merged quantity expected 8 got %d", updatedQty)
	}

	// 5 существующих + 16 превышают лимит 20
	if _, err := svc.AddItem(ctx, productID, 16); !errors.Is(err, service.ErrQuantityAboveLimit) {
		t.Fatalf("expected ErrQuantityAboveLimit, got %v", err)
	}
}

func TestCartService_AddItem_InsufficientStock(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()

	repo := newMockRepo()
	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, Name: "Mug", StockQuantity: 2, IsActive: true}, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	_, err := svc.AddItem(authedCtx(userID, service.RoleCustomer), productID, 5)

	var stockErr *service.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 5 || stockErr.Available != 2 {
		t.Fatalf("stock error mismatch: %+v", stockErr)
	}
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("expected errors.Is ErrInsufficientStock")
	}
}

func TestCartService_AddItem_Validation(t *testing.T) {
	repo := newMockRepo()
	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	ctx := authedCtx(uuid.New(), service.RoleCustomer)

	if _, err := svc.AddItem(ctx, uuid.New(), 0); !errors.Is(err, service.ErrQuantityInvalid) {
		t.Fatalf("qty 0: expected ErrQuantityInvalid, got %v", err)
	}
	if _, err := svc.AddItem(ctx, uuid.New(), 21); !errors.Is(err, service.ErrQuantityAboveLimit) {
		t.Fatalf("qty 21: expected ErrQuantityAboveLimit, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), uuid.New(), 1); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("no auth: expected ErrUnauthorized, got %v", err)
	}
	// товар не найден
	if _, err := svc.AddItem(ctx, uuid.New(), 1); !errors.Is(err, service.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: id, IsActive: false, StockQuantity: 10}, nil
		},
	}
	if _, err := svc.AddItem(ctx, uuid.New(), 1); !errors.Is(err, service.ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
}

func TestCartService_RetriesOnWriteConflict(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	cartID := uuid.New()

	attempts := 0
	repo := newMockRepo()
	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			attempts++
			if attempts < 3 {
				return nil, &pgconn.PgError{Code: "40001"}
			}
			return &models.Product{ID: productID, StockQuantity: 10, IsActive: true}, nil
		},
		BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
			return []models.Product{{ID: productID, IsActive: true}}, nil
		},
	}
	repo.Carts = &MockCartRepo{
		GetOrCreateByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid}, nil
		},
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid, Items: []models.CartItem{
				{ProductID: productID, Quantity: 1},
			}}, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	if _, err := svc.AddItem(authedCtx(userID, service.RoleCustomer), productID, 1); err != nil {
		t.Fatalf("AddItem after retries: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestCartService_HighConcurrencyAfterExhaustedRetries(t *testing.T) {
	repo := newMockRepo()
	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return nil, &pgconn.PgError{Code: "40P01"}
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	_, err := svc.AddItem(authedCtx(uuid.New(), service.RoleCustomer), uuid.New(), 1)
	if !errors.Is(err, service.ErrHighConcurrency) {
		t.Fatalf("expected ErrHighConcurrency, got %v", err)
	}
}

func TestCartService_NonConflictErrorNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	attempts := 0
	repo := newMockRepo()
	repo.Products = &MockProductRepo{
		GetByIDForUpdateFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			attempts++
			return nil, boom
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	_, err := svc.AddItem(authedCtx(uuid.New(), service.RoleCustomer), uuid.New(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
}

func TestCartService_UpdateQuantityZeroRemoves(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	cartID := uuid.New()

	removed := false
	repo := newMockRepo()
	repo.Carts = &MockCartRepo{
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid}, nil
		},
		DeleteItemFunc: func(ctx context.Context, cid, pid uuid.UUID) (bool, error) {
			removed = true
			return true, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	if _, err := svc.UpdateQuantity(authedCtx(userID, service.RoleCustomer), productID, 0); err != nil {
		t.Fatalf("UpdateQuantity(0): %v", err)
	}
	if !removed {
		t.Fatalf("expected item removal on zero quantity")
	}
}

func TestCartService_RemoveItem_NotFound(t *testing.T) {
	repo := newMockRepo()
	repo.Carts = &MockCartRepo{
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: uuid.New(), UserID: uid}, nil
		},
		DeleteItemFunc: func(ctx context.Context, cid, pid uuid.UUID) (bool, error) {
			return false, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	_, err := svc.RemoveItem(authedCtx(uuid.New(), service.RoleCustomer), uuid.New())
	if !errors.Is(err, service.ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestCartService_GetCart_PrunesStaleItems(t *testing.T) {
	userID := uuid.New()
	cartID := uuid.New()
	activeID := uuid.New()
	staleID := uuid.New()

	var pruned []uuid.UUID
	repo := newMockRepo()
	repo.Carts = &MockCartRepo{
		GetByUserFunc: func(ctx context.Context, uid uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: cartID, UserID: uid, Items: []models.CartItem{
				{ProductID: activeID, Quantity: 1},
				{ProductID: staleID, Quantity: 2},
			}}, nil
		},
		DeleteItemsFunc: func(ctx context.Context, cid uuid.UUID, ids []uuid.UUID) error {
			pruned = ids
			return nil
		},
	}
	repo.Products = &MockProductRepo{
		BatchGetByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
			return []models.Product{
				{ID: activeID, IsActive: true},
				{ID: staleID, IsActive: false},
			}, nil
		},
	}

	svc := service.NewCartService(repo, cartCfg(), zap.NewNop())
	cart, err := svc.GetCart(authedCtx(userID, service.RoleCustomer))
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != activeID {
		t.Fatalf("expected only active item, got %+v", cart.Items)
	}
	if len(pruned) != 1 || pruned[0] != staleID {
		t.Fatalf("expected stale item pruned, got %v", pruned)
	}
}

var _ repository.CartRepo = (*MockCartRepo)(nil)
