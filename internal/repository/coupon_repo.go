package repository

import (
	"context"
	"errors"

	"shop-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CouponRepo interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	UsageExists(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	CreateUsage(ctx context.Context, u *models.CouponUsage) error
}

type couponRepo struct{ db *gorm.DB }

func NewCouponRepo(db *gorm.DB) CouponRepo { return &couponRepo{db: db} }

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *couponRepo) Create(ctx context.Context, c *models.Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *couponRepo) UsageExists(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("user_id = ? AND coupon_code = ?", userID, code).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *couponRepo) CreateUsage(ctx context.Context, u *models.CouponUsage) error {
	return r.db.WithContext(ctx).Create(u).Error
}
