package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MarginLog 毛利审计日志，记录只增不改
type MarginLog struct {
	BaseModel

	// 关联
	ProductID int64  `gorm:"index;not null;comment:商品ID"`
	VariantID *int64 `gorm:"index;comment:变体ID"`

	// 事件
	Event  string `gorm:"size:32;index;comment:事件类型"`
	Source string `gorm:"size:32;comment:触发来源"`

	// 价格快照
	CostPrice          decimal.Decimal `gorm:"type:decimal(12,2);comment:成本价"`
	SellingPriceBefore decimal.Decimal `gorm:"type:decimal(12,2);comment:变更前售价"`
	SellingPriceAfter  decimal.Decimal `gorm:"type:decimal(12,2);comment:变更后售价"`
	MinSellingPrice    decimal.Decimal `gorm:"type:decimal(12,2);comment:最低售价"`

	// 状态快照
	StatusBefore string `gorm:"size:20;comment:变更前状态"`
	StatusAfter  string `gorm:"size:20;comment:变更后状态"`

	Meta datatypes.JSONMap `gorm:"comment:附加信息"`
}

func (MarginLog) TableName() string {
	return "margin_logs"
}

// ==================== 事件常量 ====================

const (
	MarginEventProductCreated = "product_created"
	MarginEventProductUpdated = "product_updated"
	MarginEventVariantSynced  = "variant_synced"
)
