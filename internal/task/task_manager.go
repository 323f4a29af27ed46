package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理定时同步任务
// 不包含：队列消费 (queue.Worker 独立运行)
type TaskManager struct {
	listingTask *ListingSyncTask
	logger      *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Source   ListingSource
	Importer BulkImporter
	Logger   *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// CJ 列表同步
	ListingEnabled     bool
	ListingSpec        string
	ListingPageSize    int
	ListingMaxPages    int
	ListingConcurrency int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		ListingEnabled:     true,
		ListingSpec:        "0 */30 * * * *",
		ListingPageSize:    50,
		ListingMaxPages:    20,
		ListingConcurrency: 2,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaskManager{logger: logger}

	if cfg.ListingEnabled && deps.Source != nil && deps.Importer != nil {
		tm.listingTask = NewListingSyncTask(deps.Source, deps.Importer, logger)
		tm.listingTask.SetSchedule(cfg.ListingSpec, cfg.ListingPageSize, cfg.ListingMaxPages)
		tm.listingTask.SetConcurrency(cfg.ListingConcurrency, 200*time.Millisecond)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	tm.logger.Info("[TaskManager] 正在启动定时任务...")

	if tm.listingTask != nil {
		if err := tm.listingTask.Start(); err != nil {
			return err
		}
	}

	tm.logger.Info("[TaskManager] 定时任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	tm.logger.Info("[TaskManager] 正在停止定时任务...")

	if tm.listingTask != nil {
		tm.listingTask.Stop()
	}

	tm.logger.Info("[TaskManager] 定时任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerListingSync 立即执行一次列表同步
func (tm *TaskManager) TriggerListingSync(ctx context.Context) (*ListingSyncStats, error) {
	if tm.listingTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.listingTask.SyncNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"listing": tm.listingTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
	ErrTaskRunning  TaskError = "task is already running"
)
