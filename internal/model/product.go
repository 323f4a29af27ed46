package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

type ProductStatus string

const (
	ProductStatusDraft   ProductStatus = "draft"
	ProductStatusActive  ProductStatus = "active"
	ProductStatusRemoved ProductStatus = "removed" // 供应商下架
)

const (
	SourceCJ = "cj"

	DefaultCurrency = "USD"
)

// ==================== 变更字段 ====================

// changed_fields 中除字段名以外的标记
const (
	ChangedCreated  = "created"
	ChangedVariants = "variants"
	ChangedImages   = "images"
	ChangedVideos   = "videos"
)

// ==================== 商品 ====================

type Product struct {
	BaseModel

	// --- 供应商身份 ---
	ExternalID string `gorm:"size:64;uniqueIndex;not null" json:"external_id"` // CJ pid
	Source     string `gorm:"size:32;index" json:"source"`

	// --- 基本信息 ---
	Name        string    `gorm:"size:255" json:"name"`
	Slug        string    `gorm:"size:320;index" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CategoryID  *int64    `gorm:"index" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	// --- 价格 ---
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"selling_price"`
	Currency     string          `gorm:"size:8" json:"currency"`

	// --- 上架状态 ---
	Status     ProductStatus `gorm:"size:20;index" json:"status"`
	IsActive   bool          `gorm:"index" json:"is_active"`
	IsFeatured bool          `json:"is_featured"`

	// --- 同步开关与锁 ---
	// 布尔字段不设 default 标签，否则 false 会被 GORM 当作零值跳过
	SyncEnabled     bool `gorm:"index" json:"sync_enabled"`
	LockPrice       bool `json:"lock_price"`
	LockDescription bool `json:"lock_description"`
	LockImages      bool `json:"lock_images"`
	LockVariants    bool `json:"lock_variants"`

	// --- SEO ---
	MetaTitle       string `gorm:"size:255" json:"meta_title"`
	MetaDescription string `gorm:"size:512" json:"meta_description"`

	// --- 同步上下文 ---
	Attributes    datatypes.JSONMap           `json:"attributes"`
	ChangedFields datatypes.JSONSlice[string] `json:"changed_fields"`
	LastSyncedAt  *time.Time                  `json:"last_synced_at"`

	// --- 关联关系 ---
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	Videos   []ProductVideo   `gorm:"foreignKey:ProductID" json:"videos,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// ==================== 变体 ====================

type ProductVariant struct {
	BaseModel

	// --- 身份: (product_id, external_variant_id, sku) 唯一 ---
	ProductID         int64  `gorm:"uniqueIndex:idx_variant_identity;not null" json:"product_id"`
	ExternalVariantID string `gorm:"size:64;uniqueIndex:idx_variant_identity" json:"external_variant_id"`
	SKU               string `gorm:"size:100;uniqueIndex:idx_variant_identity" json:"sku"`

	Name      string `gorm:"size:255" json:"name"`
	IsDefault bool   `json:"is_default"`

	// --- 价格 ---
	Price          decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"price"`
	CostPrice      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cost_price"`
	CompareAtPrice decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"compare_at_price"`
	Currency       string          `gorm:"size:8" json:"currency"`

	// --- 规格 ---
	Options datatypes.JSONMap `json:"options"` // {"Color":"Red"}
	Image   string            `gorm:"size:1024" json:"image"`

	// --- 物理尺寸 (cm / g) ---
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`

	// 原始数据
	Metadata datatypes.JSONMap `json:"metadata"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

// ==================== 媒体 ====================

type ProductImage struct {
	BaseModel

	ProductID int64 `gorm:"index;not null" json:"product_id"`

	// --- 资源地址 ---
	Url        string `gorm:"size:1024" json:"url"`
	StorageURL string `gorm:"size:1024" json:"storage_url"` // 镜像到对象存储后的地址
	Position   int    `gorm:"default:0" json:"position"`
}

func (ProductImage) TableName() string {
	return "product_images"
}

type ProductVideo struct {
	BaseModel

	ProductID int64  `gorm:"index;not null" json:"product_id"`
	Url       string `gorm:"size:1024" json:"url"`
	Position  int    `gorm:"default:0" json:"position"`
}

func (ProductVideo) TableName() string {
	return "product_videos"
}
