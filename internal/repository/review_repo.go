package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dropship_erp/internal/model"
)

// ReviewRepository 商品评价仓储接口
type ReviewRepository interface {
	// Upsert 按 (product_id, external_review_id) 幂等写入
	Upsert(ctx context.Context, reviews []model.ProductReview) error
	ListByProduct(ctx context.Context, productID int64, page, pageSize int) ([]model.ProductReview, int64, error)
	AverageScore(ctx context.Context, productID int64) (float64, error)
}

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓储
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Upsert(ctx context.Context, reviews []model.ProductReview) error {
	if len(reviews) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "external_review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "author", "content", "country", "images", "reviewed_at", "updated_at",
		}),
	}).CreateInBatches(&reviews, 100).Error
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID int64, page, pageSize int) ([]model.ProductReview, int64, error) {
	var reviews []model.ProductReview
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ProductReview{}).Where("product_id = ?", productID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := query.
		Order("reviewed_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&reviews).Error
	return reviews, total, err
}

func (r *reviewRepo) AverageScore(ctx context.Context, productID int64) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).
		Model(&model.ProductReview{}).
		Where("product_id = ?", productID).
		Select("COALESCE(AVG(score), 0)").
		Scan(&avg).Error
	return avg, err
}
