package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== SyncRateLimiter 同步限流器 ====================

// SyncRateLimiter 手动同步冷却
// CJ 免费账号 1 QPS，防止重复触发同一商品或整表同步
type SyncRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewSyncRateLimiter 创建独立的限流器，测试中避免共享全局状态
func NewSyncRateLimiter() *SyncRateLimiter {
	return &SyncRateLimiter{}
}

var globalLimiter = NewSyncRateLimiter()

// GetLimiter 获取全局限流器
func GetLimiter() *SyncRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查并占用一次执行机会
// key 形如 "product:CJ123:import"
func (r *SyncRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := time.Since(entry.lastTime)
	if elapsed < interval {
		return CheckResult{RetryAfter: interval - elapsed}
	}

	entry.lastTime = time.Now()
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key
func (r *SyncRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成 ====================

// SyncType 同步类型
type SyncType string

const (
	SyncTypeImport  SyncType = "import"  // 单商品按 pid 导入
	SyncTypeListing SyncType = "listing" // 我的商品整表同步
)

// ProductSyncKey 商品级 key
func ProductSyncKey(pid string, syncType SyncType) string {
	return fmt.Sprintf("product:%s:%s", pid, syncType)
}

// GlobalSyncKey 全局 key
func GlobalSyncKey(syncType SyncType) string {
	return fmt.Sprintf("global:%s", syncType)
}

// ==================== 默认间隔 ====================

var DefaultIntervals = map[SyncType]time.Duration{
	SyncTypeImport:  10 * time.Second,
	SyncTypeListing: 5 * time.Minute,
}

// GetInterval 同步类型的默认间隔，未配置时 1 分钟
func GetInterval(syncType SyncType) time.Duration {
	if interval, ok := DefaultIntervals[syncType]; ok {
		return interval
	}
	return time.Minute
}
