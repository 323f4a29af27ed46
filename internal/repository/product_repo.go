package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dropship_erp/internal/model"
)

// BulkChunkSize 单条 upsert 语句的最大行数
const BulkChunkSize = 500

// bulkUpdateColumns 批量 upsert 冲突时覆盖的列
// slug / status / is_active / created_at 只在首次插入时写入
var bulkUpdateColumns = []string{
	"source", "name", "description", "category_id",
	"cost_price", "selling_price", "currency",
	"attributes", "changed_fields", "last_synced_at", "updated_at",
}

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	MarkRemoved(ctx context.Context, id int64) error
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// 批量操作
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]model.Product, error)
	BulkUpsert(ctx context.Context, products []model.Product) error

	// 变体操作
	ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	FindVariant(ctx context.Context, productID int64, externalVariantID, sku string) (*model.ProductVariant, error)
	SaveVariant(ctx context.Context, variant *model.ProductVariant) error
	UpdateVariantFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// 媒体操作
	ListImages(ctx context.Context, productID int64) ([]model.ProductImage, error)
	ReplaceImages(ctx context.Context, productID int64, images []model.ProductImage) error
	UpdateImageStorageURL(ctx context.Context, id int64, storageURL string) error
	ListVideos(ctx context.Context, productID int64) ([]model.ProductVideo, error)
	ReplaceVideos(ctx context.Context, productID int64, videos []model.ProductVideo) error

	// 统计
	CountByStatus(ctx context.Context) (map[model.ProductStatus]int64, error)

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	ExternalID  string
	Status      model.ProductStatus
	CategoryID  int64
	SyncEnabled *bool
	Keyword     string
	Page        int
	PageSize    int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Videos", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

func (r *productRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// MarkRemoved 供应商下架: 置为 removed 并关闭同步，不删除记录
func (r *productRepo) MarkRemoved(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.ProductStatusRemoved,
			"is_active":    false,
			"sync_enabled": false,
		}).Error
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.ExternalID != "" {
		query = query.Where("external_id = ?", filter.ExternalID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.SyncEnabled != nil {
		query = query.Where("sync_enabled = ?", *filter.SyncEnabled)
	}
	if filter.Keyword != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Order("updated_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

// ==================== 批量操作 ====================

func (r *productRepo) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]model.Product, error) {
	var products []model.Product
	for start := 0; start < len(externalIDs); start += BulkChunkSize {
		end := min(start+BulkChunkSize, len(externalIDs))

		var chunk []model.Product
		err := r.db.WithContext(ctx).
			Where("external_id IN ?", externalIDs[start:end]).
			Find(&chunk).Error
		if err != nil {
			return nil, err
		}
		products = append(products, chunk...)
	}
	return products, nil
}

// BulkUpsert 按 external_id 分批 INSERT ... ON CONFLICT DO UPDATE
// 每批一条语句，已提交的批次不会因后续批次失败而回滚
func (r *productRepo) BulkUpsert(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	now := time.Now()
	for i := range products {
		if products[i].UpdatedAt.IsZero() {
			products[i].UpdatedAt = now
		}
	}

	for start := 0; start < len(products); start += BulkChunkSize {
		end := min(start+BulkChunkSize, len(products))
		chunk := products[start:end]

		err := r.db.WithContext(ctx).
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_id"}},
				DoUpdates: clause.AssignmentColumns(bulkUpdateColumns),
			}).
			Create(&chunk).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ==================== 变体操作 ====================

func (r *productRepo) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&variants).Error
	return variants, err
}

func (r *productRepo) FindVariant(ctx context.Context, productID int64, externalVariantID, sku string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND external_variant_id = ? AND sku = ?", productID, externalVariantID, sku).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// SaveVariant 无 ID 时插入，否则整行更新
func (r *productRepo) SaveVariant(ctx context.Context, variant *model.ProductVariant) error {
	if variant.ID == 0 {
		return r.db.WithContext(ctx).Create(variant).Error
	}
	return r.db.WithContext(ctx).Save(variant).Error
}

func (r *productRepo) UpdateVariantFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ==================== 媒体操作 ====================

func (r *productRepo) ListImages(ctx context.Context, productID int64) ([]model.ProductImage, error) {
	var images []model.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC").
		Find(&images).Error
	return images, err
}

// ReplaceImages 在事务内整体替换图片集合
func (r *productRepo) ReplaceImages(ctx context.Context, productID int64, images []model.ProductImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		for i := range images {
			images[i].ProductID = productID
		}
		return tx.Create(&images).Error
	})
}

func (r *productRepo) UpdateImageStorageURL(ctx context.Context, id int64, storageURL string) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductImage{}).
		Where("id = ?", id).
		Update("storage_url", storageURL).Error
}

func (r *productRepo) ListVideos(ctx context.Context, productID int64) ([]model.ProductVideo, error) {
	var videos []model.ProductVideo
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC").
		Find(&videos).Error
	return videos, err
}

func (r *productRepo) ReplaceVideos(ctx context.Context, productID int64, videos []model.ProductVideo) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.ProductVideo{}).Error; err != nil {
			return err
		}
		if len(videos) == 0 {
			return nil
		}
		for i := range videos {
			videos[i].ProductID = productID
		}
		return tx.Create(&videos).Error
	})
}

// ==================== 统计 ====================

func (r *productRepo) CountByStatus(ctx context.Context) (map[model.ProductStatus]int64, error) {
	type result struct {
		Status model.ProductStatus
		Count  int64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[model.ProductStatus]int64)
	for _, r := range results {
		stats[r.Status] = r.Count
	}
	return stats, nil
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
