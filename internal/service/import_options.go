package service

import (
	"dropship_erp/internal/model"
)

// ImportOptions 单个 / 批量导入的调用选项
type ImportOptions struct {
	ShipToCountry string // 软过滤: 无仓库数据时放行

	RespectSyncFlag    bool
	DefaultSyncEnabled bool // 新建商品的 sync_enabled
	RespectLocks       bool
	UpdateExisting     bool

	SyncVariants bool
	SyncImages   bool
	GenerateSeo  bool
	Translate    bool

	SyncReviews          bool
	ReviewThrowOnFailure bool
	ReviewScore          int
	ReviewPageSize       int
	ReviewMaxPages       int

	DispatchChunkSize int
	MediaChunkSize    int
	VariantsChunkSize int

	Locales []string
}

// DefaultImportOptions 默认选项
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		RespectSyncFlag:    true,
		DefaultSyncEnabled: true,
		RespectLocks:       true,
		UpdateExisting:     true,
		SyncVariants:       true,
		SyncImages:         true,
		GenerateSeo:        true,
		Translate:          true,
		ReviewPageSize:     20,
		ReviewMaxPages:     5,
		DispatchChunkSize:  DefaultDispatchChunkSize,
		MediaChunkSize:     50,
		VariantsChunkSize:  50,
	}
}

// withDefaults 补齐未设置的数值项与语言列表
func (o ImportOptions) withDefaults(locales []string) ImportOptions {
	def := DefaultImportOptions()
	if o.ReviewPageSize <= 0 {
		o.ReviewPageSize = def.ReviewPageSize
	}
	if o.ReviewMaxPages <= 0 {
		o.ReviewMaxPages = def.ReviewMaxPages
	}
	if o.DispatchChunkSize <= 0 {
		o.DispatchChunkSize = def.DispatchChunkSize
	}
	if o.MediaChunkSize <= 0 {
		o.MediaChunkSize = def.MediaChunkSize
	}
	if o.VariantsChunkSize <= 0 {
		o.VariantsChunkSize = def.VariantsChunkSize
	}
	if len(o.Locales) == 0 {
		o.Locales = locales
	}
	return o
}

func (o ImportOptions) reviewOptions() ReviewOptions {
	return ReviewOptions{PageSize: o.ReviewPageSize, MaxPages: o.ReviewMaxPages, Score: o.ReviewScore}
}

// Locks 生效的锁，仅当 RespectLocks 且商品上对应标记为 true 时生效
type Locks struct {
	Price       bool
	Description bool
	Images      bool
	Variants    bool
}

func effectiveLocks(p *model.Product, respect bool) Locks {
	if p == nil || !respect {
		return Locks{}
	}
	return Locks{
		Price:       p.LockPrice,
		Description: p.LockDescription,
		Images:      p.LockImages,
		Variants:    p.LockVariants,
	}
}
