package controller

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"dropship_erp/internal/task"
)

// ListingTrigger 定时任务的手动触发入口
type ListingTrigger interface {
	TriggerListingSync(ctx context.Context) (*task.ListingSyncStats, error)
	Status() map[string]bool
}

// SyncController 同步控制器
type SyncController struct {
	tasks ListingTrigger
}

func NewSyncController(tasks ListingTrigger) *SyncController {
	return &SyncController{tasks: tasks}
}

// ==================== Handler 实现 ====================

// SyncListing 立即执行一次 CJ 我的商品同步
// POST /api/sync/listing
func (ctrl *SyncController) SyncListing(c *gin.Context) {
	stats, err := ctrl.tasks.TriggerListingSync(c.Request.Context())
	switch {
	case errors.Is(err, task.ErrTaskDisabled):
		c.JSON(400, gin.H{"code": 400, "message": "列表同步未启用"})
		return
	case errors.Is(err, task.ErrTaskRunning):
		c.JSON(409, gin.H{"code": 409, "message": "列表同步执行中"})
		return
	case err != nil:
		c.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    stats,
	})
}

// GetStatus 定时任务启用情况
// GET /api/sync/status
func (ctrl *SyncController) GetStatus(c *gin.Context) {
	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    ctrl.tasks.Status(),
	})
}
