package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"dropship_erp/internal/model"
)

// ==================== 响应 DTO ====================

// ProductResp 商品详情
type ProductResp struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Source     string `json:"source"`

	// 基础信息
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	CategoryID   *int64 `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`

	// 价格
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Currency     string          `json:"currency"`

	// 状态
	Status      string `json:"status"`
	IsActive    bool   `json:"is_active"`
	SyncEnabled bool   `json:"sync_enabled"`

	// 锁
	LockPrice       bool `json:"lock_price"`
	LockDescription bool `json:"lock_description"`
	LockImages      bool `json:"lock_images"`
	LockVariants    bool `json:"lock_variants"`

	ChangedFields []string   `json:"changed_fields"`
	LastSyncedAt  *time.Time `json:"last_synced_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Variants []ProductVariantResp `json:"variants,omitempty"`
	Images   []ProductImageResp   `json:"images,omitempty"`
	Videos   []string             `json:"videos,omitempty"`
}

// ProductVariantResp 变体响应
type ProductVariantResp struct {
	ID                int64           `json:"id"`
	ExternalVariantID string          `json:"external_variant_id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	IsDefault         bool            `json:"is_default"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	CompareAtPrice    decimal.Decimal `json:"compare_at_price"`
	Options           map[string]any  `json:"options"`
	Image             string          `json:"image,omitempty"`
}

// ProductImageResp 图片响应
type ProductImageResp struct {
	ID         int64  `json:"id"`
	Url        string `json:"url"`
	StorageURL string `json:"storage_url,omitempty"`
	Position   int    `json:"position"`
}

// ProductListResp 商品列表
type ProductListResp struct {
	Code     int           `json:"code"`
	Message  string        `json:"message"`
	Data     []ProductResp `json:"data"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ProductStatsResp 商品统计
type ProductStatsResp struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// ==================== 转换 ====================

// NewProductResp model -> 响应；关联数据未预加载时对应字段为空
func NewProductResp(p *model.Product) ProductResp {
	resp := ProductResp{
		ID:              p.ID,
		ExternalID:      p.ExternalID,
		Source:          p.Source,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		CategoryID:      p.CategoryID,
		CostPrice:       p.CostPrice,
		SellingPrice:    p.SellingPrice,
		Currency:        p.Currency,
		Status:          string(p.Status),
		IsActive:        p.IsActive,
		SyncEnabled:     p.SyncEnabled,
		LockPrice:       p.LockPrice,
		LockDescription: p.LockDescription,
		LockImages:      p.LockImages,
		LockVariants:    p.LockVariants,
		ChangedFields:   []string(p.ChangedFields),
		LastSyncedAt:    p.LastSyncedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if resp.ChangedFields == nil {
		resp.ChangedFields = []string{}
	}
	if p.Category != nil {
		resp.CategoryName = p.Category.Name
	}

	for _, v := range p.Variants {
		resp.Variants = append(resp.Variants, ProductVariantResp{
			ID:                v.ID,
			ExternalVariantID: v.ExternalVariantID,
			SKU:               v.SKU,
			Name:              v.Name,
			IsDefault:         v.IsDefault,
			Price:             v.Price,
			CostPrice:         v.CostPrice,
			CompareAtPrice:    v.CompareAtPrice,
			Options:           v.Options,
			Image:             v.Image,
		})
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, ProductImageResp{
			ID:         img.ID,
			Url:        img.Url,
			StorageURL: img.StorageURL,
			Position:   img.Position,
		})
	}
	for _, v := range p.Videos {
		resp.Videos = append(resp.Videos, v.Url)
	}
	return resp
}
