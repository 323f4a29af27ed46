package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dropship_erp/internal/service"
	"dropship_erp/pkg/cj"
)

// ==================== ListingSyncTask CJ 我的商品同步 ====================

// ListingSource CJ "我的商品" 分页接口
type ListingSource interface {
	ListMyProducts(ctx context.Context, page, pageSize int) (*cj.Response, error)
}

// BulkImporter 批量导入
type BulkImporter interface {
	BulkImport(ctx context.Context, payloads []map[string]any, opts service.ImportOptions) (*service.BulkImportResult, error)
}

// ListingSyncStats 单次同步统计
type ListingSyncStats struct {
	Pages     int `json:"pages"`
	Failed    int `json:"failed"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// ListingSyncTask 定时拉取 CJ 我的商品列表并走批量导入
// 列表项不含变体，变体与媒体由批量导入派发的队列任务补齐
type ListingSyncTask struct {
	source   ListingSource
	importer BulkImporter
	cron     *cron.Cron
	logger   *zap.Logger

	spec     string
	pageSize int
	maxPages int
	opts     service.ImportOptions

	// 并发控制
	concurrencyLimit int
	sleepTime        time.Duration

	running sync.Mutex
}

// NewListingSyncTask 创建列表同步任务
func NewListingSyncTask(source ListingSource, importer BulkImporter, logger *zap.Logger) *ListingSyncTask {
	return &ListingSyncTask{
		source:           source,
		importer:         importer,
		cron:             cron.New(cron.WithSeconds()),
		logger:           logger,
		spec:             "0 */30 * * * *",
		pageSize:         50,
		maxPages:         20,
		opts:             service.DefaultImportOptions(),
		concurrencyLimit: 2,
		sleepTime:        200 * time.Millisecond,
	}
}

// SetSchedule 设置 cron 表达式 (带秒) 与分页参数
func (t *ListingSyncTask) SetSchedule(spec string, pageSize, maxPages int) {
	if spec != "" {
		t.spec = spec
	}
	if pageSize > 0 {
		t.pageSize = pageSize
	}
	if maxPages > 0 {
		t.maxPages = maxPages
	}
}

// SetConcurrency 设置并发导入的页数与翻页间隔
func (t *ListingSyncTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit > 0 {
		t.concurrencyLimit = limit
	}
	t.sleepTime = sleep
}

// SetImportOptions 设置批量导入选项
func (t *ListingSyncTask) SetImportOptions(opts service.ImportOptions) {
	t.opts = opts
}

// Start 启动定时任务
func (t *ListingSyncTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		if _, err := t.SyncNow(ctx); err != nil {
			t.logger.Warn("[ListingSyncTask] 同步未执行", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("[ListingSyncTask] 已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务，等待执行中的同步结束
func (t *ListingSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("[ListingSyncTask] 已停止")
}

// SyncNow 立即同步；上一轮未结束时返回 ErrTaskRunning
func (t *ListingSyncTask) SyncNow(ctx context.Context) (*ListingSyncStats, error) {
	if !t.running.TryLock() {
		return nil, ErrTaskRunning
	}
	defer t.running.Unlock()

	start := time.Now()
	stats := &ListingSyncStats{}

	sem := make(chan struct{}, t.concurrencyLimit)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for page := 1; page <= t.maxPages; page++ {
		select {
		case <-ctx.Done():
			t.logger.Warn("[ListingSyncTask] 任务超时停止", zap.Int("page", page))
			wg.Wait()
			return stats, ctx.Err()
		default:
		}

		resp, err := t.source.ListMyProducts(ctx, page, t.pageSize)
		if err == nil {
			err = cj.AsError(resp)
		}
		if err != nil {
			t.logger.Error("[ListingSyncTask] 拉取列表失败", zap.Int("page", page), zap.Error(err))
			stats.Failed++
			break
		}

		items := resp.DataList()
		if len(items) == 0 {
			break
		}
		stats.Pages++

		sem <- struct{}{}
		wg.Add(1)
		go func(page int, items []map[string]any) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := t.importer.BulkImport(ctx, items, t.opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.logger.Error("[ListingSyncTask] 批量导入失败", zap.Int("page", page), zap.Error(err))
				stats.Failed++
				return
			}
			stats.Processed += result.Processed
			stats.Created += result.Created
			stats.Updated += result.Updated
			stats.Skipped += result.Skipped
		}(page, items)

		if len(items) < t.pageSize {
			break
		}
		if t.sleepTime > 0 {
			time.Sleep(t.sleepTime)
		}
	}

	wg.Wait()
	t.logger.Info("[ListingSyncTask] 同步完成",
		zap.Int("pages", stats.Pages),
		zap.Int("processed", stats.Processed),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}
