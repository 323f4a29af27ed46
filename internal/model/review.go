package model

import (
	"time"

	"gorm.io/datatypes"
)

// ProductReview 供应商商品评价
type ProductReview struct {
	BaseModel

	// (product_id, external_review_id) 唯一
	ProductID        int64  `gorm:"uniqueIndex:idx_review_identity;not null" json:"product_id"`
	ExternalReviewID string `gorm:"size:64;uniqueIndex:idx_review_identity" json:"external_review_id"`

	Score      int                         `gorm:"index" json:"score"`
	Author     string                      `gorm:"size:128" json:"author"`
	Content    string                      `gorm:"type:text" json:"content"`
	Country    string                      `gorm:"size:8" json:"country"`
	Images     datatypes.JSONSlice[string] `json:"images"`
	ReviewedAt *time.Time                  `json:"reviewed_at"`
}

func (ProductReview) TableName() string {
	return "product_reviews"
}
