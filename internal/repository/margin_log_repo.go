package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"dropship_erp/internal/model"
)

// ==================== 仓储接口 ====================

// MarginLogRepository 毛利审计日志仓储接口
type MarginLogRepository interface {
	Create(ctx context.Context, log *model.MarginLog) error
	GetByID(ctx context.Context, id int64) (*model.MarginLog, error)
	ListByProduct(ctx context.Context, productID int64, limit int) ([]model.MarginLog, error)

	// 统计查询
	GetStatsByProduct(ctx context.Context, productID int64) (*MarginStats, error)
	GetDailyStats(ctx context.Context, startDate, endDate time.Time) ([]DailyMarginStats, error)
}

// ==================== 统计结构 ====================

// MarginStats 毛利变更统计
type MarginStats struct {
	TotalEvents    int64   `json:"total_events"`
	CreatedEvents  int64   `json:"created_events"`
	UpdatedEvents  int64   `json:"updated_events"`
	VariantEvents  int64   `json:"variant_events"`
	RaisedCount    int64   `json:"raised_count"`
	AvgSellingDiff float64 `json:"avg_selling_diff"`
}

// DailyMarginStats 每日毛利事件统计
type DailyMarginStats struct {
	Date        string `json:"date"`
	TotalEvents int64  `json:"total_events"`
	RaisedCount int64  `json:"raised_count"`
}

// ==================== 仓储实现 ====================

type marginLogRepo struct {
	db *gorm.DB
}

// NewMarginLogRepository 创建毛利审计日志仓储
func NewMarginLogRepository(db *gorm.DB) MarginLogRepository {
	return &marginLogRepo{db: db}
}

func (r *marginLogRepo) Create(ctx context.Context, log *model.MarginLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *marginLogRepo) GetByID(ctx context.Context, id int64) (*model.MarginLog, error) {
	var log model.MarginLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *marginLogRepo) ListByProduct(ctx context.Context, productID int64, limit int) ([]model.MarginLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.MarginLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *marginLogRepo) GetStatsByProduct(ctx context.Context, productID int64) (*MarginStats, error) {
	var stats MarginStats

	err := r.db.WithContext(ctx).Model(&model.MarginLog{}).
		Where("product_id = ?", productID).
		Select(`
			COUNT(*) as total_events,
			COALESCE(SUM(CASE WHEN event = ? THEN 1 ELSE 0 END), 0) as created_events,
			COALESCE(SUM(CASE WHEN event = ? THEN 1 ELSE 0 END), 0) as updated_events,
			COALESCE(SUM(CASE WHEN event = ? THEN 1 ELSE 0 END), 0) as variant_events,
			COALESCE(SUM(CASE WHEN selling_price_after > selling_price_before THEN 1 ELSE 0 END), 0) as raised_count,
			COALESCE(AVG(selling_price_after - selling_price_before), 0) as avg_selling_diff
		`, model.MarginEventProductCreated, model.MarginEventProductUpdated, model.MarginEventVariantSynced).
		Scan(&stats).Error

	return &stats, err
}

func (r *marginLogRepo) GetDailyStats(ctx context.Context, startDate, endDate time.Time) ([]DailyMarginStats, error) {
	var stats []DailyMarginStats

	err := r.db.WithContext(ctx).Model(&model.MarginLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_events,
			SUM(CASE WHEN selling_price_after > selling_price_before THEN 1 ELSE 0 END) as raised_count
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}
