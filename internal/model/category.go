package model

// Category 商品分类（树形）
type Category struct {
	BaseModel

	ParentID *int64    `gorm:"index" json:"parent_id"`
	Parent   *Category `gorm:"foreignKey:ParentID" json:"-"`

	Name string `gorm:"size:255" json:"name"`
	Slug string `gorm:"size:255;index" json:"slug"`

	// (source, external_id) 唯一
	Source     string `gorm:"size:32;uniqueIndex:idx_category_source_external" json:"source"`
	ExternalID string `gorm:"size:64;uniqueIndex:idx_category_source_external" json:"external_id"`

	// 供应商分类未映射时创建的占位分类
	IsPlaceholder bool `json:"is_placeholder"`
}

func (Category) TableName() string {
	return "categories"
}
