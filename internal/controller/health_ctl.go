package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 依赖健康检查
type Pinger func(ctx context.Context) error

type HealthController struct {
	checks map[string]Pinger
}

// NewHealthController checks 为空时只返回进程存活
func NewHealthController(checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks}
}

// Health 各依赖状态，任一失败返回 503
// GET /api/health
func (ctrl *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := 200
	results := make(map[string]string, len(ctrl.checks))
	for name, ping := range ctrl.checks {
		if err := ping(ctx); err != nil {
			results[name] = err.Error()
			status = 503
			continue
		}
		results[name] = "ok"
	}

	if status != 200 {
		c.JSON(status, gin.H{"code": status, "message": "依赖不可用", "data": results})
		return
	}
	c.JSON(200, gin.H{"code": 0, "message": "success", "data": results})
}
