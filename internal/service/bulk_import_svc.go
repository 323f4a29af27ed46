package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"dropship_erp/internal/model"
	"dropship_erp/internal/queue"
)

// timePrecision PostgreSQL timestamp 精度为微秒，批次时间先截断再比较
const timePrecision = time.Microsecond

// BulkImportResult 批量导入统计
// Created / Updated 按 created_at 与批次时间比较得出，同一时间精度内的并发批次会误判
type BulkImportResult struct {
	Processed  int     `json:"processed"`
	Created    int     `json:"created"`
	Updated    int     `json:"updated"`
	Skipped    int     `json:"skipped"`
	ProductIDs []int64 `json:"product_ids"`
}

// bulkRow 待写入的一行及其派发所需的上下文
type bulkRow struct {
	locks   Locks
	changed []string
	created bool
}

// BulkImport 批量导入: 内存中映射为行后按 external_id 分批 upsert，不拉取变体
// 副作用在写库后按商品 ID 分批派发
func (s *ImportService) BulkImport(ctx context.Context, payloads []map[string]any, opts ImportOptions) (*BulkImportResult, error) {
	opts = opts.withDefaults(s.translation.Locales)
	result := &BulkImportResult{ProductIDs: []int64{}}

	// 1. 规范化，同一批次内重复的 pid 以最后一条为准
	order := make([]string, 0, len(payloads))
	byID := make(map[string]Payload, len(payloads))
	for _, raw := range payloads {
		p := Normalize(raw)
		if p.IsEmpty() || !p.ShipsTo(opts.ShipToCountry) {
			result.Skipped++
			continue
		}
		if _, seen := byID[p.ExternalID]; seen {
			result.Skipped++
		} else {
			order = append(order, p.ExternalID)
		}
		byID[p.ExternalID] = p
	}
	if len(order) == 0 {
		return result, nil
	}

	// 2. 预取已存在商品
	existingList, err := s.products.ListByExternalIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("批量查询商品失败: %w", err)
	}
	existing := make(map[string]*model.Product, len(existingList))
	for i := range existingList {
		existing[existingList[i].ExternalID] = &existingList[i]
	}

	accepted := make([]Payload, 0, len(order))
	for _, id := range order {
		if e, ok := existing[id]; ok {
			if (opts.RespectSyncFlag && !e.SyncEnabled) || !opts.UpdateExisting {
				result.Skipped++
				continue
			}
		}
		accepted = append(accepted, byID[id])
	}
	if len(accepted) == 0 {
		return result, nil
	}

	categories, err := s.categories.ResolveMany(ctx, accepted)
	if err != nil {
		s.logger.Warn("批量解析分类失败", zap.Error(err))
		categories = map[string]*model.Category{}
	}

	// 3. 映射为行，所有行共享同一批次时间
	now := s.now().Truncate(timePrecision)
	rows := make([]model.Product, 0, len(accepted))
	meta := make(map[string]*bulkRow, len(accepted))
	for _, p := range accepted {
		prev := existing[p.ExternalID]
		locks := effectiveLocks(prev, opts.RespectLocks)

		next := s.buildProduct(p, prev, categories[p.ExternalID], locks, p.Variants, opts)

		changed := []string{model.ChangedCreated}
		if prev != nil {
			changed = diffProduct(prev, next)
		}
		if opts.SyncVariants && !locks.Variants {
			changed = appendUnique(changed, model.ChangedVariants)
		}

		next.ID = 0
		next.Category = nil
		next.ChangedFields = datatypes.JSONSlice[string](changed)
		next.CreatedAt = now
		next.UpdatedAt = now
		next.LastSyncedAt = &now
		rows = append(rows, *next)

		meta[p.ExternalID] = &bulkRow{locks: locks, changed: changed}
	}

	// 4. 分批 upsert
	if err := s.products.BulkUpsert(ctx, rows); err != nil {
		return nil, fmt.Errorf("批量写入商品失败: %w", err)
	}

	// 5. 回读 ID 并区分新建 / 更新
	ids := make([]string, len(accepted))
	for i, p := range accepted {
		ids[i] = p.ExternalID
	}
	saved, err := s.products.ListByExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("批量回读商品失败: %w", err)
	}

	savedByID := make(map[string]*model.Product, len(saved))
	for i := range saved {
		savedByID[saved[i].ExternalID] = &saved[i]
	}
	products := make([]*model.Product, 0, len(saved))
	for _, id := range ids {
		sp, ok := savedByID[id]
		if !ok {
			continue
		}
		result.Processed++
		if !sp.CreatedAt.Before(now) {
			result.Created++
			meta[id].created = true
		} else {
			result.Updated++
		}
		result.ProductIDs = append(result.ProductIDs, sp.ID)
		products = append(products, sp)
	}

	s.dispatchBulk(ctx, products, meta, opts)

	s.logger.Info("批量导入完成",
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// dispatchBulk 按选项与锁筛选商品后分批投递
func (s *ImportService) dispatchBulk(ctx context.Context, products []*model.Product, meta map[string]*bulkRow, opts ImportOptions) {
	var media, variants, seo, translate, reviews []int64
	for _, p := range products {
		row := meta[p.ExternalID]
		if opts.SyncImages && !row.locks.Images {
			media = append(media, p.ID)
		}
		if opts.SyncVariants && !row.locks.Variants {
			variants = append(variants, p.ID)
		}
		if opts.GenerateSeo && (p.MetaTitle == "" || p.MetaDescription == "") {
			seo = append(seo, p.ID)
		}
		if opts.Translate && (row.created || needsTranslation(row.changed)) {
			translate = append(translate, p.ID)
		}
		if opts.SyncReviews {
			reviews = append(reviews, p.ID)
		}
	}

	report := func(kind queue.Kind, outcomes []Outcome) {
		for _, o := range outcomes {
			if o.Failed() {
				s.logger.Warn("批量派发失败", zap.String("kind", string(kind)), zap.String("reason", o.Reason))
			}
		}
	}

	report(queue.KindSyncMedia, s.dispatcher.DispatchBatch(ctx, queue.KindSyncMedia, media, opts.MediaChunkSize, nil))
	report(queue.KindSyncVariants, s.dispatcher.DispatchBatch(ctx, queue.KindSyncVariants, variants, opts.VariantsChunkSize, nil))
	report(queue.KindGenerateCompareAt, s.dispatcher.DispatchBatch(ctx, queue.KindGenerateCompareAt, variants, opts.VariantsChunkSize, nil))
	report(queue.KindGenerateSEO, s.dispatcher.DispatchBatch(ctx, queue.KindGenerateSEO, seo, opts.DispatchChunkSize, map[string]any{
		"locale": s.translation.SourceLocale,
	}))
	report(queue.KindTranslateProduct, s.dispatcher.DispatchBatch(ctx, queue.KindTranslateProduct, translate, opts.DispatchChunkSize, map[string]any{
		"locales":       opts.Locales,
		"source_locale": s.translation.SourceLocale,
	}))
	report(queue.KindSyncReviews, s.dispatcher.DispatchBatch(ctx, queue.KindSyncReviews, reviews, opts.DispatchChunkSize, map[string]any{
		"page_size": opts.ReviewPageSize,
		"max_pages": opts.ReviewMaxPages,
		"score":     opts.ReviewScore,
	}))
}
