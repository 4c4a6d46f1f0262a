package repository

import (
	"context"
	"errors"
	"time"

	"shop-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepo interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// GetOrCreateByUser создаёт корзину лениво при первой мутации
	GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error

	GetItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	// GetItemForUpdate блокирует строку позиции; вызывать только внутри WithTx
	GetItemForUpdate(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int32, at time.Time) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	DeleteItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error
	ClearByCart(ctx context.Context, cartID uuid.UUID) error
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).Preload("Items").First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *cartRepo) GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	c, err := r.GetByUser(ctx, userID)
	if err != nil || c != nil {
		return c, err
	}
	c = &models.Cart{UserID: userID, LastUpdated: time.Now()}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		// проигрыш гонки на uniqueIndex(user_id) — корзину уже создали рядом
		if existing, gerr := r.GetByUser(ctx, userID); gerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *cartRepo) Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("last_updated", at).Error
}

func (r *cartRepo) GetItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).
		First(&it, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartRepo) GetItemForUpdate(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *cartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int32, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": qty, "added_at": at}).Error
}

func (r *cartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id IN ?", cartID, productIDs).
		Delete(&models.CartItem{}).Error
}

func (r *cartRepo) ClearByCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
