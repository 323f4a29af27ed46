package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"dropship_erp/internal/model"
	"dropship_erp/internal/queue"
	"dropship_erp/internal/repository"
	"dropship_erp/pkg/cj"
)

// VariantSource 按 pid 拉取变体
type VariantSource interface {
	GetVariantsByPid(ctx context.Context, pid string) (*cj.Response, error)
}

// JobHandlers 队列任务消费者，SEO 与翻译任务由外部服务消费
type JobHandlers struct {
	products repository.ProductRepository
	supplier VariantSource
	variants *VariantService
	media    *MediaService
	reviews  *ReviewService
	respect  bool // 消费时是否仍按商品锁过滤
	logger   *zap.Logger
}

func NewJobHandlers(
	products repository.ProductRepository,
	supplier VariantSource,
	variants *VariantService,
	media *MediaService,
	reviews *ReviewService,
	logger *zap.Logger,
) *JobHandlers {
	return &JobHandlers{
		products: products,
		supplier: supplier,
		variants: variants,
		media:    media,
		reviews:  reviews,
		respect:  true,
		logger:   logger,
	}
}

// JobRegistrar queue.Worker 的注册能力
type JobRegistrar interface {
	Register(kind queue.Kind, h queue.Handler)
}

// RegisterJobHandlers 注册本服务负责的任务类型
func (h *JobHandlers) RegisterJobHandlers(w JobRegistrar) {
	w.Register(queue.KindSyncVariants, h.HandleSyncVariants)
	w.Register(queue.KindGenerateCompareAt, h.HandleGenerateCompareAt)
	w.Register(queue.KindSyncMedia, h.HandleSyncMedia)
	w.Register(queue.KindMirrorMedia, h.HandleMirrorMedia)
	w.Register(queue.KindSyncReviews, h.HandleSyncReviews)
}

// ==================== 变体 ====================

// HandleSyncVariants 使用商品 attributes 中保存的原始变体重新同步，未保存时向 CJ 拉取
func (h *JobHandlers) HandleSyncVariants(ctx context.Context, job *queue.Job) error {
	return h.eachProduct(ctx, job, func(p *model.Product) error {
		locks := effectiveLocks(p, h.respect)
		if locks.Variants {
			return nil
		}
		raw, err := h.loadVariants(ctx, p)
		if cj.IsDelisted(err) {
			h.logger.Info("CJ 商品已下架，已停用", zap.Int64("product_id", p.ID))
			return h.products.MarkRemoved(ctx, p.ID)
		}
		if err != nil {
			return err
		}
		keys := OptionKeys(mapValue(p.Attributes["payload"]))

		out := h.variants.Sync(ctx, p, raw, keys, locks)
		if out.Failed() {
			return errors.New(out.Reason)
		}
		return h.mergeChanged(ctx, p, out.Changed)
	})
}

// loadVariants 拉取成功且非空时回写 attributes.variants，超时等错误交由队列重试
func (h *JobHandlers) loadVariants(ctx context.Context, p *model.Product) ([]map[string]any, error) {
	raw := mapList(p.Attributes["variants"])
	if len(raw) > 0 || h.supplier == nil {
		return raw, nil
	}

	resp, err := h.supplier.GetVariantsByPid(ctx, p.ExternalID)
	if err == nil {
		err = cj.AsError(resp)
	}
	if err != nil {
		return nil, fmt.Errorf("获取变体失败: %w", err)
	}
	raw = resp.DataList()
	if len(raw) == 0 {
		return raw, nil
	}

	attrs := datatypes.JSONMap{}
	for k, v := range p.Attributes {
		attrs[k] = v
	}
	attrs["variants"] = anyList(raw)
	if err := h.products.UpdateFields(ctx, p.ID, map[string]interface{}{"attributes": attrs}); err != nil {
		return nil, fmt.Errorf("保存变体失败: %w", err)
	}
	p.Attributes = attrs
	return raw, nil
}

func (h *JobHandlers) HandleGenerateCompareAt(ctx context.Context, job *queue.Job) error {
	return h.eachProduct(ctx, job, func(p *model.Product) error {
		n, err := h.variants.GenerateCompareAtPrices(ctx, p.ID)
		if err != nil {
			return err
		}
		h.logger.Debug("划线价已生成", zap.Int64("product_id", p.ID), zap.Int("updated", n))
		return nil
	})
}

// ==================== 媒体 ====================

// HandleSyncMedia 从保存的原始载荷重建媒体列表，配置了对象存储时随后镜像
func (h *JobHandlers) HandleSyncMedia(ctx context.Context, job *queue.Job) error {
	return h.eachProduct(ctx, job, func(p *model.Product) error {
		if effectiveLocks(p, h.respect).Images {
			return nil
		}
		payload := Normalize(mapValue(p.Attributes["payload"]))

		out := h.media.Sync(ctx, p, payload.Images, payload.Videos)
		if out.Failed() {
			return errors.New(out.Reason)
		}
		if err := h.mergeChanged(ctx, p, out.Changed); err != nil {
			return err
		}
		if !h.media.CanMirror() {
			return nil
		}
		_, err := h.media.Mirror(ctx, p.ID)
		return err
	})
}

func (h *JobHandlers) HandleMirrorMedia(ctx context.Context, job *queue.Job) error {
	if !h.media.CanMirror() {
		return nil
	}
	return h.eachProduct(ctx, job, func(p *model.Product) error {
		n, err := h.media.Mirror(ctx, p.ID)
		if err != nil {
			return err
		}
		h.logger.Debug("图片已镜像", zap.Int64("product_id", p.ID), zap.Int("count", n))
		return nil
	})
}

// ==================== 评价 ====================

func (h *JobHandlers) HandleSyncReviews(ctx context.Context, job *queue.Job) error {
	opts := ReviewOptions{
		PageSize: intArg(job.Args, "page_size"),
		MaxPages: intArg(job.Args, "max_pages"),
		Score:    intArg(job.Args, "score"),
	}
	return h.eachProduct(ctx, job, func(p *model.Product) error {
		_, err := h.reviews.Sync(ctx, p, opts)
		return err
	})
}

// ==================== 工具 ====================

// eachProduct 逐个处理任务中的商品，单个失败不影响其它商品，返回合并后的错误
func (h *JobHandlers) eachProduct(ctx context.Context, job *queue.Job, fn func(p *model.Product) error) error {
	var errs []error
	for _, id := range job.ProductIDs {
		p, err := h.products.GetByID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("商品 %d: %w", id, err))
			continue
		}
		if p.Status == model.ProductStatusRemoved {
			continue
		}
		if err := fn(p); err != nil {
			h.logger.Warn("任务处理失败",
				zap.String("kind", string(job.Kind)),
				zap.Int64("product_id", id),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("商品 %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// mergeChanged 将异步同步产生的变更标记并入 changed_fields
func (h *JobHandlers) mergeChanged(ctx context.Context, p *model.Product, changed []string) error {
	merged := []string(p.ChangedFields)
	before := len(merged)
	for _, c := range changed {
		merged = appendUnique(merged, c)
	}
	if len(merged) == before {
		return nil
	}
	return h.products.UpdateFields(ctx, p.ID, map[string]interface{}{"changed_fields": datatypes.JSONSlice[string](merged)})
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
