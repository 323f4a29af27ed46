package dto

import (
	"dropship_erp/internal/service"
)

// ==================== 请求 DTO ====================

// ImportOptionsReq 导入选项覆盖，未传的字段沿用默认值
type ImportOptionsReq struct {
	ShipToCountry *string `json:"ship_to_country,omitempty" binding:"omitempty,len=2"`

	RespectSyncFlag    *bool `json:"respect_sync_flag,omitempty"`
	DefaultSyncEnabled *bool `json:"default_sync_enabled,omitempty"`
	RespectLocks       *bool `json:"respect_locks,omitempty"`
	UpdateExisting     *bool `json:"update_existing,omitempty"`

	SyncVariants *bool `json:"sync_variants,omitempty"`
	SyncImages   *bool `json:"sync_images,omitempty"`
	GenerateSeo  *bool `json:"generate_seo,omitempty"`
	Translate    *bool `json:"translate,omitempty"`

	SyncReviews          *bool `json:"sync_reviews,omitempty"`
	ReviewThrowOnFailure *bool `json:"review_throw_on_failure,omitempty"`
	ReviewScore          *int  `json:"review_score,omitempty" binding:"omitempty,min=0,max=5"`
	ReviewPageSize       *int  `json:"review_page_size,omitempty" binding:"omitempty,min=1,max=100"`
	ReviewMaxPages       *int  `json:"review_max_pages,omitempty" binding:"omitempty,min=1"`

	DispatchChunkSize *int `json:"dispatch_chunk_size,omitempty" binding:"omitempty,min=1"`
	MediaChunkSize    *int `json:"media_chunk_size,omitempty" binding:"omitempty,min=1"`
	VariantsChunkSize *int `json:"variants_chunk_size,omitempty" binding:"omitempty,min=1"`

	Locales []string `json:"locales,omitempty"`
}

// ImportByPidReq 按 pid 导入，也可改用 SKU 查询
type ImportByPidReq struct {
	ProductSKU string           `json:"product_sku"`
	VariantSKU string           `json:"variant_sku"`
	Options    ImportOptionsReq `json:"options"`
}

// ImportPayloadReq 直接提交 CJ 数据导入
type ImportPayloadReq struct {
	Payload map[string]any   `json:"payload" binding:"required"`
	Options ImportOptionsReq `json:"options"`
}

// BulkImportReq 批量导入
type BulkImportReq struct {
	Payloads []map[string]any `json:"payloads" binding:"required,min=1,max=1000"`
	Options  ImportOptionsReq `json:"options"`
}

// ToOptions 在默认选项上叠加请求中出现的字段
func (r *ImportOptionsReq) ToOptions() service.ImportOptions {
	opts := service.DefaultImportOptions()

	if r.ShipToCountry != nil {
		opts.ShipToCountry = *r.ShipToCountry
	}
	setBool(&opts.RespectSyncFlag, r.RespectSyncFlag)
	setBool(&opts.DefaultSyncEnabled, r.DefaultSyncEnabled)
	setBool(&opts.RespectLocks, r.RespectLocks)
	setBool(&opts.UpdateExisting, r.UpdateExisting)
	setBool(&opts.SyncVariants, r.SyncVariants)
	setBool(&opts.SyncImages, r.SyncImages)
	setBool(&opts.GenerateSeo, r.GenerateSeo)
	setBool(&opts.Translate, r.Translate)
	setBool(&opts.SyncReviews, r.SyncReviews)
	setBool(&opts.ReviewThrowOnFailure, r.ReviewThrowOnFailure)

	setInt(&opts.ReviewScore, r.ReviewScore)
	setInt(&opts.ReviewPageSize, r.ReviewPageSize)
	setInt(&opts.ReviewMaxPages, r.ReviewMaxPages)
	setInt(&opts.DispatchChunkSize, r.DispatchChunkSize)
	setInt(&opts.MediaChunkSize, r.MediaChunkSize)
	setInt(&opts.VariantsChunkSize, r.VariantsChunkSize)

	if len(r.Locales) > 0 {
		opts.Locales = r.Locales
	}
	return opts
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// ==================== 响应 DTO ====================

// ImportResp 单个导入结果；下架或被过滤时 Product 为空
type ImportResp struct {
	Imported bool         `json:"imported"`
	Product  *ProductResp `json:"product,omitempty"`
}
