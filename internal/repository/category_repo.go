package repository

import (
	"context"

	"gorm.io/gorm"

	"dropship_erp/internal/model"
)

// CategoryRepository 分类仓储接口
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	GetBySourceExternalID(ctx context.Context, source, externalID string) (*model.Category, error)
	// FindBySourceExternalIDs 批量查询，结果顺序不保证
	FindBySourceExternalIDs(ctx context.Context, source string, externalIDs []string) ([]model.Category, error)
	ListPlaceholders(ctx context.Context, source string) ([]model.Category, error)
}

type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) GetBySourceExternalID(ctx context.Context, source, externalID string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Where("source = ? AND external_id = ?", source, externalID).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) FindBySourceExternalIDs(ctx context.Context, source string, externalIDs []string) ([]model.Category, error) {
	var categories []model.Category
	if len(externalIDs) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).
		Where("source = ? AND external_id IN ?", source, externalIDs).
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) ListPlaceholders(ctx context.Context, source string) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).
		Where("source = ? AND is_placeholder = ?", source, true).
		Order("id ASC").
		Find(&categories).Error
	return categories, err
}
